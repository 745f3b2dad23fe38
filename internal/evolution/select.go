package evolution

import (
	"math/rand"

	"github.com/transitlab/routeopt/internal/models"
)

// Tournament draws size individuals from pop uniformly without replacement
// and returns the two fittest (lowest objective) among them as parents.
func Tournament(rng *rand.Rand, pop Population, size int) (p1, p2 *Individual) {
	idx := rng.Perm(len(pop))[:size]
	best, second := idx[0], -1
	for _, i := range idx[1:] {
		switch {
		case pop[i].Fitness < pop[best].Fitness:
			second = best
			best = i
		case second == -1 || pop[i].Fitness < pop[second].Fitness:
			second = i
		}
	}
	return pop[best], pop[second]
}

// Crossover clones p1 and p2, then for every RouteId in [0, nroutes)
// independently swaps that route between the two clones with probability
// pSwap, skipping routes that are already identical between the parents.
func Crossover(rng *rand.Rand, p1, p2 *Individual, pSwap float64) (c1, c2 *Individual) {
	g1 := p1.Graph.Copy()
	g2 := p2.Graph.Copy()
	nroutes := p1.Graph.NRoutes()

	for r := 0; r < nroutes; r++ {
		rid := models.RouteId(r)
		route1, _ := p1.Graph.GetRoute(rid)
		route2, _ := p2.Graph.GetRoute(rid)
		if rng.Float64() >= pSwap || route1.Equal(route2) {
			continue
		}
		if err := g1.ReplaceRoute(rid, route2); err != nil {
			panic(err)
		}
		if err := g2.ReplaceRoute(rid, route1); err != nil {
			panic(err)
		}
	}
	return &Individual{Graph: g1}, &Individual{Graph: g2}
}
