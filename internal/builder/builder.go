// Package builder produces the initial routeset a run starts from: K routes
// greedily chosen to cover the heaviest-weighted, not-yet-dominated demand.
package builder

import (
	"sort"

	"github.com/transitlab/routeopt/internal/demand"
	"github.com/transitlab/routeopt/internal/models"
	"github.com/transitlab/routeopt/internal/roadgraph"
)

// BuildInitialRouteset runs the greedy cover described in spec.md §4.4: pick
// the (o, d) pair with the highest remaining total demand, lay a road-graph
// shortest path down as a route, then discount every (o, d) whose DS
// entry overlaps the stop pairs that route now dominates. (o, d) pairs with
// no road-graph path are marked invalid and skipped without consuming one
// of the k route slots.
func BuildInitialRouteset(odx *demand.ODX, ds *demand.DS, rg *roadgraph.RoadGraph, k int) []models.Route {
	totals := make(map[demand.Pair]float64)
	satisfiedBy := make(map[demand.Pair][]demand.Pair)

	for _, o := range odx.Origins() {
		for _, d := range odx.Dests(o) {
			pair := demand.Pair{O: o, D: d}
			total, _ := ds.Total(o, d)
			totals[pair] = total

			seen := make(map[demand.Pair]struct{})
			for _, mn := range ds.Pairs(o, d) {
				if _, dup := seen[mn]; dup {
					continue
				}
				seen[mn] = struct{}{}
				if _, ok := odx.Get(mn.O, mn.D); !ok {
					continue
				}
				satisfiedBy[mn] = append(satisfiedBy[mn], pair)
			}
		}
	}

	invalid := make(map[demand.Pair]struct{})
	var routes []models.Route

	for len(routes) < k {
		pair, ok := pickArgmax(totals, invalid)
		if !ok {
			break // exhausted every candidate pair, fewer than k routes produced
		}

		path, _, err := rg.ShortestPath(pair.O, pair.D)
		if err != nil {
			invalid[pair] = struct{}{}
			continue
		}

		routes = append(routes, path)
		delete(totals, pair)
		invalid[pair] = struct{}{}

		newlySatisfied := make(map[demand.Pair]struct{})
		for _, mn := range ds.Pairs(pair.O, pair.D) {
			newlySatisfied[mn] = struct{}{}
		}
		for mn := range newlySatisfied {
			odxVal, ok := odx.Get(mn.O, mn.D)
			if !ok {
				continue
			}
			for _, od := range satisfiedBy[mn] {
				if _, done := invalid[od]; done {
					continue
				}
				totals[od] -= float64(odxVal)
			}
		}
	}
	return routes
}

// pickArgmax returns the highest-total pair not already marked invalid,
// breaking ties lexicographically on (o, d) for determinism.
func pickArgmax(totals map[demand.Pair]float64, invalid map[demand.Pair]struct{}) (demand.Pair, bool) {
	candidates := make([]demand.Pair, 0, len(totals))
	for p := range totals {
		if _, skip := invalid[p]; skip {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		return demand.Pair{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if totals[a] != totals[b] {
			return totals[a] > totals[b]
		}
		if a.O != b.O {
			return a.O < b.O
		}
		return a.D < b.D
	})
	return candidates[0], true
}
