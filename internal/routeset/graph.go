// Package routeset implements the mutable transit multigraph a candidate
// solution is built from: a RouteSetGraph that encodes a set of bus routes
// as origin/destination/route vertices over a weighted directed graph,
// supports incremental mutation without a full rebuild, and memoizes its
// own fitness value.
package routeset

import (
	"github.com/transitlab/routeopt/internal/models"
	"github.com/transitlab/routeopt/internal/roadgraph"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Params carries the graph-wide constants spec.md's configuration file
// names alongside pop_size/elite_size/etc: the in-vehicle dwell penalty,
// the fixed transfer cost, and the unsatisfied-demand weight offset.
type Params struct {
	BusStopTime  float64 // seconds added to every in-vehicle edge
	TransferTime float64 // seconds for every transfer edge
	W2Offset     float64 // seconds added to ATT to weight unsatisfied demand
}

// DefaultParams returns the constants used throughout spec.md's worked
// examples: BUS_STOP_TIME=30, TRANSFER_TIME=300, W2_OFFSET=3000.
func DefaultParams() Params {
	return Params{BusStopTime: 30, TransferTime: 300, W2Offset: 3000}
}

// vertexRef identifies what a graph vertex represents: a stop playing
// either a virtual role (origin/destination) or membership in one route.
type vertexRef struct {
	Stop models.StopId
	Role models.RouteId // models.Origin, models.Dest, or a real RouteId
}

// routeNode is the per-(stop,route) bookkeeping entry: its position within
// the route and the vertex ID representing it in the graph.
type routeNode struct {
	StopSeq  int
	VertexId int64
}

func (rn *routeNode) copy() *routeNode {
	cp := *rn
	return &cp
}

// stopRecord is the per-stop directory entry: the shared origin/destination
// vertices, and one routeNode per route currently serving the stop.
type stopRecord struct {
	Stop         models.StopId
	OriginVertex int64
	DestVertex   int64
	RouteNodes   map[models.RouteId]*routeNode
}

func newStopRecord(s models.StopId, originV, destV int64) *stopRecord {
	return &stopRecord{Stop: s, OriginVertex: originV, DestVertex: destV, RouteNodes: map[models.RouteId]*routeNode{}}
}

func (s *stopRecord) copy() *stopRecord {
	cp := &stopRecord{Stop: s.Stop, OriginVertex: s.OriginVertex, DestVertex: s.DestVertex,
		RouteNodes: make(map[models.RouteId]*routeNode, len(s.RouteNodes))}
	for rid, rn := range s.RouteNodes {
		cp.RouteNodes[rid] = rn.copy()
	}
	return cp
}

// wedge is the graph.WeightedEdge implementation backing every edge of the
// transit multigraph; the only datum it carries is the travel cost, so
// unlike roadgraph's edge type it needs no separate distance field.
type wedge struct {
	F, T graph.Node
	W    float64
}

func (e wedge) From() graph.Node         { return e.F }
func (e wedge) To() graph.Node           { return e.T }
func (e wedge) Weight() float64          { return e.W }
func (e wedge) ReversedEdge() graph.Edge { return wedge{F: e.T, T: e.F, W: e.W} }

// HistoryEntry is one recorded mutation, kept only when history is enabled.
type HistoryEntry struct {
	Op   string
	Args map[string]any
}

// Graph is one individual's transit multigraph: a RouteSetGraph.
type Graph struct {
	roadGraph *roadgraph.RoadGraph
	params    Params
	g         *simple.WeightedDirectedGraph
	nextVertex int64

	vertexToStop map[int64]vertexRef
	routes       map[models.RouteId]models.Route
	stops        map[models.StopId]*stopRecord

	routesChanged bool
	fitness       float64
	report        models.FitnessReport

	saveHistory bool
	history     map[models.RouteId][]HistoryEntry
}

// New returns an empty RouteSetGraph backed by rg for duration lookups.
// saveHistory enables the optional per-route audit trail.
func New(rg *roadgraph.RoadGraph, params Params, saveHistory bool) *Graph {
	g := &Graph{
		roadGraph:    rg,
		params:       params,
		g:            simple.NewWeightedDirectedGraph(0, 0),
		vertexToStop: make(map[int64]vertexRef),
		routes:       make(map[models.RouteId]models.Route),
		stops:        make(map[models.StopId]*stopRecord),
		saveHistory:  saveHistory,
	}
	if saveHistory {
		g.history = make(map[models.RouteId][]HistoryEntry)
	}
	return g
}

func (g *Graph) recordHistory(r models.RouteId, op string, args map[string]any) {
	if !g.saveHistory {
		return
	}
	g.history[r] = append(g.history[r], HistoryEntry{Op: op, Args: args})
}

// History returns the recorded mutations for route r, or nil if history is
// disabled. Never consulted by fitness or any mutation operator.
func (g *Graph) History(r models.RouteId) []HistoryEntry {
	if !g.saveHistory {
		return nil
	}
	return g.history[r]
}

func (g *Graph) newVertex(s models.StopId, role models.RouteId) int64 {
	id := g.nextVertex
	g.nextVertex++
	g.g.AddNode(simple.Node(id))
	g.vertexToStop[id] = vertexRef{Stop: s, Role: role}
	return id
}

func (g *Graph) setEdge(from, to int64, weight float64) {
	g.g.SetWeightedEdge(wedge{F: simple.Node(from), T: simple.Node(to), W: weight})
}

func (g *Graph) edgeWeight(fromV, toV int64) (float64, bool) {
	e := g.g.Edge(fromV, toV)
	if e == nil {
		return 0, false
	}
	return e.(wedge).W, true
}

// NRoutes returns the number of routes currently in the set.
func (g *Graph) NRoutes() int { return len(g.routes) }

// GetRoute returns a copy of route r's stop sequence.
func (g *Graph) GetRoute(r models.RouteId) (models.Route, bool) {
	route, ok := g.routes[r]
	if !ok {
		return nil, false
	}
	return route.Copy(), true
}

// GetRoutes returns a copy of every route currently in the set, keyed by
// RouteId.
func (g *Graph) GetRoutes() map[models.RouteId]models.Route {
	out := make(map[models.RouteId]models.Route, len(g.routes))
	for id, route := range g.routes {
		out[id] = route.Copy()
	}
	return out
}

// HasStop reports whether s appears in any route.
func (g *Graph) HasStop(s models.StopId) bool {
	_, ok := g.stops[s]
	return ok
}

// addStopBase creates O(s) and D(s) for a stop new to the graph.
func (g *Graph) addStopBase(s models.StopId) *stopRecord {
	originV := g.newVertex(s, models.Origin)
	destV := g.newVertex(s, models.Dest)
	stop := newStopRecord(s, originV, destV)
	g.stops[s] = stop
	return stop
}

// addStop inserts R(s, r) at position seq in route r, wiring the boarding,
// alighting and transfer edges. Panics if s already has a route vertex
// for r (a stop cannot appear twice in the same route).
func (g *Graph) addStop(s models.StopId, r models.RouteId, seq int) {
	stop, ok := g.stops[s]
	if !ok {
		stop = g.addStopBase(s)
	}
	if _, exists := stop.RouteNodes[r]; exists {
		panic(models.NewError(models.InvariantViolation, "stop %d already present in route %d", s, r))
	}

	routeV := g.newVertex(s, r)

	route := g.routes[r]
	route = append(route, 0)
	copy(route[seq+1:], route[seq:])
	route[seq] = s
	g.routes[r] = route

	g.setEdge(stop.OriginVertex, routeV, 0)
	g.setEdge(routeV, stop.DestVertex, 0)

	for _, rn := range stop.RouteNodes {
		g.setEdge(routeV, rn.VertexId, g.params.TransferTime)
		g.setEdge(rn.VertexId, routeV, g.params.TransferTime)
	}

	stop.RouteNodes[r] = &routeNode{StopSeq: seq, VertexId: routeV}
}

// addRouteEdge wires the in-vehicle edge between two stops already present
// in route r.
func (g *Graph) addRouteEdge(fromSid, toSid models.StopId, r models.RouteId, duration float64) {
	fromV := g.stops[fromSid].RouteNodes[r].VertexId
	toV := g.stops[toSid].RouteNodes[r].VertexId
	g.setEdge(fromV, toV, duration)
}

// AppendStop adds stop s at the end of route r.
func (g *Graph) AppendStop(s models.StopId, r models.RouteId) error {
	route, ok := g.routes[r]
	if !ok {
		return models.NewError(models.InvalidInput, "append_stop: route %d does not exist", r)
	}
	beforeLen := len(route)
	g.addStop(s, r, beforeLen)
	g.routesChanged = true
	g.recordHistory(r, "append_stop", map[string]any{"stop_id": s, "route_id": r})

	if beforeLen >= 1 {
		prevSid := route[beforeLen-1]
		edge, ok := g.roadGraph.Edge(prevSid, s)
		if !ok {
			return models.NewError(models.InvalidInput, "append_stop: no road edge %d -> %d", prevSid, s)
		}
		g.addRouteEdge(prevSid, s, r, edge.Duration+g.params.BusStopTime)
	}
	return nil
}

// PrependStop adds stop s at the start of route r, shifting every other
// stop's sequence index up by one.
func (g *Graph) PrependStop(s models.StopId, r models.RouteId) error {
	oldRoute, ok := g.routes[r]
	if !ok {
		return models.NewError(models.InvalidInput, "prepend_stop: route %d does not exist", r)
	}
	g.addStop(s, r, 0)

	newRoute := g.routes[r]
	for _, sid := range newRoute[1:] {
		sc := g.stops[sid]
		sc.RouteNodes[r].StopSeq++
	}
	g.routesChanged = true
	g.recordHistory(r, "prepend_stop", map[string]any{"stop_id": s, "route_id": r})

	if len(oldRoute) >= 1 {
		nextSid := oldRoute[0]
		edge, ok := g.roadGraph.Edge(s, nextSid)
		if !ok {
			return models.NewError(models.InvalidInput, "prepend_stop: no road edge %d -> %d", s, nextSid)
		}
		g.addRouteEdge(s, nextSid, r, edge.Duration+g.params.BusStopTime)
	}
	return nil
}

// AddRoute appends a new route made of the given stops, assigned RouteId
// equal to the route count at the time of the call. Panics if a stop
// appears twice in route.
func (g *Graph) AddRoute(route models.Route) models.RouteId {
	id := models.RouteId(len(g.routes))
	g.routes[id] = models.Route{}
	g.routesChanged = true
	for _, s := range route {
		if err := g.AppendStop(s, id); err != nil {
			panic(err)
		}
	}
	g.recordHistory(id, "add_route", map[string]any{"route": route})
	return id
}

// deleteStop removes O(s) and D(s); called once a stop belongs to no route.
func (g *Graph) deleteStop(s models.StopId) {
	stop := g.stops[s]
	g.g.RemoveNode(simple.Node(stop.DestVertex))
	delete(g.vertexToStop, stop.DestVertex)
	g.g.RemoveNode(simple.Node(stop.OriginVertex))
	delete(g.vertexToStop, stop.OriginVertex)
	delete(g.stops, s)
}

// RemoveNode removes stop s from route r, splicing the adjacent in-vehicle
// edge when s was an interior stop, and dropping s entirely once it
// belongs to no remaining route. Panics if s is not a member of r.
func (g *Graph) RemoveNode(s models.StopId, r models.RouteId) error {
	stop, ok := g.stops[s]
	if !ok {
		panic(models.NewError(models.InvariantViolation, "remove_node: stop %d not known", s))
	}
	rn, ok := stop.RouteNodes[r]
	if !ok {
		panic(models.NewError(models.InvariantViolation, "remove_node: stop %d not in route %d", s, r))
	}
	seq := rn.StopSeq
	route := g.routes[r]

	if seq > 0 && seq < len(route)-1 {
		prevSid := route[seq-1]
		nextSid := route[seq+1]
		prevV := g.stops[prevSid].RouteNodes[r].VertexId
		nextV := g.stops[nextSid].RouteNodes[r].VertexId
		w1, ok1 := g.edgeWeight(prevV, rn.VertexId)
		w2, ok2 := g.edgeWeight(rn.VertexId, nextV)
		if !ok1 || !ok2 {
			panic(models.NewError(models.InvariantViolation,
				"remove_node: missing adjacent in-vehicle edge around stop %d route %d", s, r))
		}
		g.addRouteEdge(prevSid, nextSid, r, w1+w2-g.params.BusStopTime)
	}

	g.g.RemoveNode(simple.Node(rn.VertexId))
	delete(g.vertexToStop, rn.VertexId)
	delete(stop.RouteNodes, r)

	for _, sid := range route[seq+1:] {
		g.stops[sid].RouteNodes[r].StopSeq--
	}
	newRoute := make(models.Route, 0, len(route)-1)
	newRoute = append(newRoute, route[:seq]...)
	newRoute = append(newRoute, route[seq+1:]...)
	g.routes[r] = newRoute

	if len(stop.RouteNodes) == 0 {
		g.deleteStop(s)
	}

	g.routesChanged = true
	g.recordHistory(r, "remove_node", map[string]any{"stop_id": s, "route_id": r})
	return nil
}

// RemoveRoute deletes every stop of route r, in reverse stop order, and
// drops the route slot itself.
func (g *Graph) RemoveRoute(r models.RouteId) error {
	route, ok := g.routes[r]
	if !ok {
		return models.NewError(models.InvalidInput, "remove_route: route %d does not exist", r)
	}
	for i := len(route) - 1; i >= 0; i-- {
		if err := g.RemoveNode(route[i], r); err != nil {
			return err
		}
	}
	delete(g.routes, r)
	g.routesChanged = true
	g.recordHistory(r, "remove_route", map[string]any{"route_id": r})
	return nil
}

// ReplaceRoute atomically removes route r and re-adds new_route under the
// same RouteId.
func (g *Graph) ReplaceRoute(r models.RouteId, newRoute models.Route) error {
	if err := g.RemoveRoute(r); err != nil {
		return err
	}
	g.routes[r] = models.Route{}
	for _, s := range newRoute {
		if err := g.AppendStop(s, r); err != nil {
			return err
		}
	}
	g.routesChanged = true
	g.recordHistory(r, "replace_route", map[string]any{"route_id": r, "new_route": newRoute})
	return nil
}

// Copy returns a deep, independent clone: graph, directories, routes,
// stops, memoized fitness and (if enabled) history.
func (g *Graph) Copy() *Graph {
	ng := &Graph{
		roadGraph:    g.roadGraph,
		params:       g.params,
		g:            simple.NewWeightedDirectedGraph(0, 0),
		nextVertex:   g.nextVertex,
		vertexToStop: make(map[int64]vertexRef, len(g.vertexToStop)),
		routes:       make(map[models.RouteId]models.Route, len(g.routes)),
		stops:        make(map[models.StopId]*stopRecord, len(g.stops)),
		routesChanged: g.routesChanged,
		fitness:      g.fitness,
		report:       g.report,
		saveHistory:  g.saveHistory,
	}
	for _, n := range graph.NodesOf(g.g.Nodes()) {
		ng.g.AddNode(n)
	}
	for _, we := range graph.WeightedEdgesOf(g.g.WeightedEdges()) {
		ng.g.SetWeightedEdge(we)
	}
	for id, ref := range g.vertexToStop {
		ng.vertexToStop[id] = ref
	}
	for id, route := range g.routes {
		ng.routes[id] = route.Copy()
	}
	for sid, stop := range g.stops {
		ng.stops[sid] = stop.copy()
	}
	if g.saveHistory {
		ng.history = make(map[models.RouteId][]HistoryEntry, len(g.history))
		for id, entries := range g.history {
			cp := make([]HistoryEntry, len(entries))
			copy(cp, entries)
			ng.history[id] = cp
		}
	}
	return ng
}
