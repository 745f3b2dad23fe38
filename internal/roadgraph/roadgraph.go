// Package roadgraph implements the immutable road network the optimizer
// routes against: a directed graph of stops connected by timed,
// distance-weighted edges, queried with shortest-path and neighbor lookups.
package roadgraph

import (
	"container/heap"
	"sort"

	"github.com/transitlab/routeopt/internal/models"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// weightedEdge is a directed edge carrying both the duration gonum uses as
// its shortest-path weight and the distance riders actually travel.
type weightedEdge struct {
	F, T               graph.Node
	Duration, Distance float64
}

func (e weightedEdge) From() graph.Node         { return e.F }
func (e weightedEdge) To() graph.Node           { return e.T }
func (e weightedEdge) Weight() float64          { return e.Duration }
func (e weightedEdge) ReversedEdge() graph.Edge { return weightedEdge{F: e.T, T: e.F, Duration: e.Duration, Distance: e.Distance} }

// RoadGraph is the read-only road network the RouteSetGraph draws its
// in-vehicle timings from. Stop IDs are used directly as gonum node IDs.
type RoadGraph struct {
	g     *simple.WeightedDirectedGraph
	stops map[models.StopId]struct{}
}

// New returns an empty RoadGraph.
func New() *RoadGraph {
	return &RoadGraph{
		g:     simple.NewWeightedDirectedGraph(0, 0),
		stops: make(map[models.StopId]struct{}),
	}
}

// AddStop registers s as a vertex, a no-op if s is already present.
func (rg *RoadGraph) AddStop(s models.StopId) {
	if _, ok := rg.stops[s]; ok {
		return
	}
	rg.stops[s] = struct{}{}
	rg.g.AddNode(simple.Node(int64(s)))
}

// AddEdge adds (or replaces) the directed edge from -> to with the given
// duration (seconds, used as the Dijkstra weight) and distance (meters).
// Both endpoints are added as stops if not already present.
func (rg *RoadGraph) AddEdge(from, to models.StopId, duration, distance float64) {
	rg.AddStop(from)
	rg.AddStop(to)
	rg.g.SetWeightedEdge(weightedEdge{
		F:        simple.Node(int64(from)),
		T:        simple.Node(int64(to)),
		Duration: duration,
		Distance: distance,
	})
}

// HasStop reports whether s is a vertex of the road graph.
func (rg *RoadGraph) HasStop(s models.StopId) bool {
	_, ok := rg.stops[s]
	return ok
}

// Edge returns the edge from a to b, if one exists.
func (rg *RoadGraph) Edge(a, b models.StopId) (models.RoadEdge, bool) {
	e := rg.g.Edge(int64(a), int64(b))
	if e == nil {
		return models.RoadEdge{}, false
	}
	we := e.(weightedEdge)
	return models.RoadEdge{Duration: we.Duration, Distance: we.Distance}, true
}

// OutNeighbors returns the stops directly reachable from s, sorted by ID
// for deterministic iteration order.
func (rg *RoadGraph) OutNeighbors(s models.StopId) []models.StopId {
	return rg.sortedNeighbors(graph.NodesOf(rg.g.From(int64(s))))
}

// InNeighbors returns the stops with a direct edge into s, sorted by ID
// for deterministic iteration order.
func (rg *RoadGraph) InNeighbors(s models.StopId) []models.StopId {
	return rg.sortedNeighbors(graph.NodesOf(rg.g.To(int64(s))))
}

func (rg *RoadGraph) sortedNeighbors(nodes []graph.Node) []models.StopId {
	out := make([]models.StopId, len(nodes))
	for i, n := range nodes {
		out[i] = models.StopId(n.ID())
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ShortestPath returns the lowest-duration path from origin to dest. Ties
// are broken by preferring the lower stop index as predecessor, decided
// explicitly in dijkstraTieBroken's relaxation step rather than left to
// gonum's own Dijkstra, whose priority queue only orders by distance and so
// settles ties however its heap happens to pop them.
func (rg *RoadGraph) ShortestPath(origin, dest models.StopId) (models.Route, float64, error) {
	if !rg.HasStop(origin) || !rg.HasStop(dest) {
		return nil, 0, models.NewError(models.InvalidInput, "shortest path: unknown stop %d or %d", origin, dest)
	}
	tree := rg.dijkstraTieBroken(origin)
	ids, weight, ok := tree.to(int64(dest))
	if !ok {
		return nil, 0, models.NewError(models.Unreachable, "no path from stop %d to stop %d", origin, dest)
	}
	route := make(models.Route, len(ids))
	for i, id := range ids {
		route[i] = models.StopId(id)
	}
	return route, weight, nil
}

// ShortestPathTree returns the shortest-path tree rooted at origin, for
// callers that query many destinations from a single source without
// recomputing Dijkstra per destination.
func (rg *RoadGraph) ShortestPathTree(origin models.StopId) Tree {
	return Tree{tree: rg.dijkstraTieBroken(origin)}
}

// Tree wraps a shortestTree for repeated destination queries against a
// single precomputed source.
type Tree struct {
	tree shortestTree
}

// To returns the path and total duration from the tree's origin to dest.
func (t Tree) To(dest models.StopId) (models.Route, float64, bool) {
	ids, weight, ok := t.tree.to(int64(dest))
	if !ok {
		return nil, 0, false
	}
	route := make(models.Route, len(ids))
	for i, id := range ids {
		route[i] = models.StopId(id)
	}
	return route, weight, true
}

// shortestTree holds the settled distance and predecessor for every node
// reached by a single-source Dijkstra search.
type shortestTree struct {
	origin int64
	dist   map[int64]float64
	prev   map[int64]int64
}

// to reconstructs the path from the tree's origin to dest, if reached.
func (t shortestTree) to(dest int64) ([]int64, float64, bool) {
	if dest == t.origin {
		return []int64{t.origin}, 0, true
	}
	weight, ok := t.dist[dest]
	if !ok {
		return nil, 0, false
	}
	chain := []int64{dest}
	cur := dest
	for cur != t.origin {
		p, ok := t.prev[cur]
		if !ok {
			return nil, 0, false
		}
		chain = append(chain, p)
		cur = p
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, weight, true
}

// dijkstraTieBroken runs Dijkstra from origin with the lower-stop-index
// tie-break applied directly in the relaxation step, rather than via
// gonum's path package. gonum's own Dijkstra (graph/path/dijkstra.go) keeps
// a container/heap priority queue whose Less compares distance only; once
// three or more nodes share a tentative distance, heap.Pop does not return
// them in any ID-determined order, so whichever one happens to be popped
// first permanently wins the predecessor slot on a later tie (confirmed:
// sorting the edges pushed from each node does not fix this, since the
// heap's own pop order across *different* source nodes is what decides it).
//
// The rule used here instead: when a candidate predecessor ties the best
// known distance to a node, it replaces the incumbent predecessor only if
// its own stop ID is lower. This is correct independent of pop order: with
// non-negative weights, Dijkstra never settles a node before every
// strictly-shorter path into it has already relaxed, so by the time a tied
// node is settled, every equal-distance predecessor has already had a
// chance to apply this rule, and the lowest-ID one always wins regardless
// of which was processed first.
func (rg *RoadGraph) dijkstraTieBroken(origin models.StopId) shortestTree {
	originID := int64(origin)
	dist := map[int64]float64{originID: 0}
	prev := map[int64]int64{}
	settled := map[int64]bool{}

	pq := &priorityQueue{{id: originID, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(pqEntry)
		if settled[cur.id] {
			continue
		}
		settled[cur.id] = true

		for _, n := range graph.NodesOf(rg.g.From(cur.id)) {
			nid := n.ID()
			if settled[nid] {
				continue
			}
			edge := rg.g.WeightedEdge(cur.id, nid)
			joint := dist[cur.id] + edge.Weight()

			existing, reached := dist[nid]
			switch {
			case !reached || joint < existing:
				dist[nid] = joint
				prev[nid] = cur.id
				heap.Push(pq, pqEntry{id: nid, dist: joint})
			case joint == existing && cur.id < prev[nid]:
				prev[nid] = cur.id
			}
		}
	}

	return shortestTree{origin: originID, dist: dist, prev: prev}
}

// pqEntry is one candidate in dijkstraTieBroken's priority queue.
type pqEntry struct {
	id   int64
	dist float64
}

// priorityQueue is a container/heap min-heap ordered by dist alone; the
// lower-stop-index tie-break happens in the relaxation step, not here.
type priorityQueue []pqEntry

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqEntry)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}
