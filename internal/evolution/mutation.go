package evolution

import (
	"math/rand"

	"github.com/transitlab/routeopt/internal/demand"
	"github.com/transitlab/routeopt/internal/models"
	"github.com/transitlab/routeopt/internal/roadgraph"
)

// Config carries the evolutionary loop's tunable parameters (spec.md §4.5,
// §6's configuration-file list). BusStopTime/TransferTime/W2Offset live on
// routeset.Params instead, since they're graph-wide constants every
// individual's Graph already carries.
type Config struct {
	PopSize        int
	EliteSize      int
	TournamentSize int
	Pms            float64 // probability of small_mod over big_mod
	Pdelete        float64 // within small_mod, probability of delete over extend
	MinRouteSize   int
}

// fallbackMutationWeight is the weight assigned to a route whose endpoints
// carry no recorded demand total, per spec.md §4.5 step 4.
const fallbackMutationWeight = 2.0

// Mutate picks one of ind's routes weighted by 1/ds_total(route endpoints)
// (routes with no recorded endpoint demand get fallbackMutationWeight) and
// applies small_mod with probability cfg.Pms, else big_mod.
func Mutate(rng *rand.Rand, ind *Individual, rg *roadgraph.RoadGraph, odx *demand.ODX, ds *demand.DS, cfg Config) error {
	rid, err := pickMutationRoute(rng, ind.Graph, ds)
	if err != nil {
		return err
	}

	if rng.Float64() < cfg.Pms {
		return smallMod(rng, ind.Graph, rg, rid, cfg)
	}
	return bigMod(rng, ind.Graph, rg, odx, ds, rid)
}

// pickMutationRoute draws a RouteId weighted by the inverse of its
// endpoints' DS total, in ascending-RouteId order for a deterministic draw.
func pickMutationRoute(rng *rand.Rand, g routeGraph, ds *demand.DS) (models.RouteId, error) {
	nroutes := g.NRoutes()
	if nroutes == 0 {
		return 0, models.NewError(models.InvariantViolation, "mutate: empty route set")
	}
	weights := make([]float64, nroutes)
	var total float64
	for r := 0; r < nroutes; r++ {
		rid := models.RouteId(r)
		route, _ := g.GetRoute(rid)
		w := fallbackMutationWeight
		if len(route) > 0 {
			if dsTotal, ok := ds.Total(route[0], route[len(route)-1]); ok && dsTotal > 0 {
				w = 1 / dsTotal
			}
		}
		weights[r] = w
		total += w
	}
	target := rng.Float64() * total
	var cum float64
	for r, w := range weights {
		cum += w
		if target <= cum {
			return models.RouteId(r), nil
		}
	}
	return models.RouteId(nroutes - 1), nil
}

// routeGraph is the subset of *routeset.Graph this package mutates against,
// narrowed so mutation helpers are testable against a fake in isolation.
type routeGraph interface {
	NRoutes() int
	GetRoute(r models.RouteId) (models.Route, bool)
	AppendStop(s models.StopId, r models.RouteId) error
	PrependStop(s models.StopId, r models.RouteId) error
	RemoveNode(s models.StopId, r models.RouteId) error
	ReplaceRoute(r models.RouteId, newRoute models.Route) error
}

// smallMod implements spec.md §4.5's small_mod: choose a terminal, then
// either delete it or extend past it with a road-graph neighbor not
// already on the route.
func smallMod(rng *rand.Rand, g routeGraph, rg *roadgraph.RoadGraph, r models.RouteId, cfg Config) error {
	route, ok := g.GetRoute(r)
	if !ok || len(route) == 0 {
		return models.NewError(models.InvariantViolation, "small_mod: route %d empty or missing", r)
	}

	head := rng.Intn(2) == 0

	forceExtend := len(route) <= cfg.MinRouteSize
	if !forceExtend && rng.Float64() < cfg.Pdelete {
		terminal := route[0]
		if !head {
			terminal = route[len(route)-1]
		}
		return g.RemoveNode(terminal, r)
	}

	if head {
		candidates := excludeRouteStops(rg.InNeighbors(route[0]), route)
		if len(candidates) == 0 {
			return nil
		}
		return g.PrependStop(candidates[rng.Intn(len(candidates))], r)
	}

	candidates := excludeRouteStops(rg.OutNeighbors(route[len(route)-1]), route)
	if len(candidates) == 0 {
		return nil
	}
	return g.AppendStop(candidates[rng.Intn(len(candidates))], r)
}

// bigMod implements spec.md §4.5's big_mod: replace a route with the
// shortest path from a terminal that's an ODX origin to a weighted-random
// draw among that terminal's dominated destinations.
func bigMod(rng *rand.Rand, g routeGraph, rg *roadgraph.RoadGraph, odx *demand.ODX, ds *demand.DS, r models.RouteId) error {
	route, ok := g.GetRoute(r)
	if !ok || len(route) == 0 {
		return models.NewError(models.InvariantViolation, "big_mod: route %d empty or missing", r)
	}

	headIsOrigin := isODXOrigin(odx, route[0])
	tailIsOrigin := isODXOrigin(odx, route[len(route)-1])

	var nodeIdx int
	switch {
	case headIsOrigin && tailIsOrigin:
		if rng.Intn(2) == 0 {
			nodeIdx = 0
		} else {
			nodeIdx = len(route) - 1
		}
	case headIsOrigin:
		nodeIdx = 0
	case tailIsOrigin:
		nodeIdx = len(route) - 1
	default:
		// degenerate case: neither terminal has outgoing demand.
		head, tail := route[0], route[len(route)-1]
		if err := g.RemoveNode(head, r); err != nil {
			return err
		}
		if head != tail {
			if err := g.RemoveNode(tail, r); err != nil {
				return err
			}
		}
		return nil
	}

	i := route[nodeIdx]
	k, ok := pickWeightedDest(rng, ds, i)
	if !ok {
		return nil
	}

	path, _, err := rg.ShortestPath(i, k)
	if err != nil {
		return nil // Unreachable is recovered locally per spec.md §7
	}
	return g.ReplaceRoute(r, path)
}

func isODXOrigin(odx *demand.ODX, s models.StopId) bool {
	return len(odx.Dests(s)) > 0
}

// pickWeightedDest draws a destination from ds.Dests(i) with probability
// proportional to ds.Total(i, ·), in ascending stop-id order.
func pickWeightedDest(rng *rand.Rand, ds *demand.DS, i models.StopId) (models.StopId, bool) {
	dests := ds.Dests(i)
	if len(dests) == 0 {
		return 0, false
	}
	weights := make([]float64, len(dests))
	var total float64
	for idx, d := range dests {
		w, _ := ds.Total(i, d)
		weights[idx] = w
		total += w
	}
	if total <= 0 {
		return dests[rng.Intn(len(dests))], true
	}
	target := rng.Float64() * total
	var cum float64
	for idx, w := range weights {
		cum += w
		if target <= cum {
			return dests[idx], true
		}
	}
	return dests[len(dests)-1], true
}

func excludeRouteStops(candidates []models.StopId, route models.Route) []models.StopId {
	on := make(map[models.StopId]struct{}, len(route))
	for _, s := range route {
		on[s] = struct{}{}
	}
	out := candidates[:0:0]
	for _, c := range candidates {
		if _, skip := on[c]; skip {
			continue
		}
		out = append(out, c)
	}
	return out
}
