package evolution

import (
	"sort"

	"github.com/transitlab/routeopt/internal/demand"
	"github.com/transitlab/routeopt/internal/models"
	"github.com/transitlab/routeopt/internal/routeset"
)

// Individual is one candidate solution: a RouteSetGraph plus its memoized
// fitness and report against a fixed demand table.
type Individual struct {
	Graph   *routeset.Graph
	Fitness float64
	Report  models.FitnessReport
}

// Evaluate recomputes Fitness/Report against odx, relying on the Graph's
// own mutation-driven memoization to skip the work when nothing changed.
func (ind *Individual) Evaluate(odx *demand.ODX) {
	ind.Fitness = ind.Graph.GetFitness(odx)
	ind.Report = ind.Graph.GetReport(odx)
}

// Population is an ordered collection of individuals; SortAscending puts
// the lowest (best) objective value first, per spec.md §4.5 step 5.
type Population []*Individual

func (p Population) SortAscending() {
	sort.SliceStable(p, func(i, j int) bool { return p[i].Fitness < p[j].Fitness })
}

// routeLists returns each individual's routes in RouteId order, the shape
// checkpoint.Store.SavePopulation persists.
func (p Population) routeLists() [][]models.Route {
	out := make([][]models.Route, len(p))
	for i, ind := range p {
		n := ind.Graph.NRoutes()
		routes := make([]models.Route, 0, n)
		for r := 0; r < n; r++ {
			if route, ok := ind.Graph.GetRoute(models.RouteId(r)); ok {
				routes = append(routes, route)
			}
		}
		out[i] = routes
	}
	return out
}
