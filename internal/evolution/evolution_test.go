package evolution

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/transitlab/routeopt/internal/demand"
	"github.com/transitlab/routeopt/internal/models"
	"github.com/transitlab/routeopt/internal/roadgraph"
	"github.com/transitlab/routeopt/internal/routeset"
	"github.com/stretchr/testify/assert"
)

func chainRoadGraph(t *testing.T, n models.StopId, duration float64) *roadgraph.RoadGraph {
	t.Helper()
	rg := roadgraph.New()
	for i := models.StopId(1); i < n; i++ {
		rg.AddEdge(i, i+1, duration, duration*10)
		rg.AddEdge(i+1, i, duration, duration*10)
	}
	return rg
}

func newGraph(t *testing.T, rg *roadgraph.RoadGraph, routes ...models.Route) *routeset.Graph {
	t.Helper()
	g := routeset.New(rg, routeset.DefaultParams(), false)
	for _, r := range routes {
		g.AddRoute(r)
	}
	return g
}

// TestScenarioS5CrossoverNoSwap covers spec.md §8 S5's p_swap=0 case:
// children are structurally equal to clones of their respective parent.
func TestScenarioS5CrossoverNoSwap(t *testing.T) {
	rg := chainRoadGraph(t, 6, 60)
	p1 := &Individual{Graph: newGraph(t, rg, models.Route{1, 2, 3})}
	p2 := &Individual{Graph: newGraph(t, rg, models.Route{4, 5, 6})}

	rng := rand.New(rand.NewSource(1))
	c1, c2 := Crossover(rng, p1, p2, 0)

	r1, _ := c1.Graph.GetRoute(0)
	r2, _ := c2.Graph.GetRoute(0)
	assert.Equal(t, models.Route{1, 2, 3}, r1)
	assert.Equal(t, models.Route{4, 5, 6}, r2)
}

// TestScenarioS5CrossoverFullSwap covers spec.md §8 S5's p_swap=1 case:
// children's route lists are the parents' exchanged route lists.
func TestScenarioS5CrossoverFullSwap(t *testing.T) {
	rg := chainRoadGraph(t, 6, 60)
	p1 := &Individual{Graph: newGraph(t, rg, models.Route{1, 2, 3})}
	p2 := &Individual{Graph: newGraph(t, rg, models.Route{4, 5, 6})}

	rng := rand.New(rand.NewSource(1))
	c1, c2 := Crossover(rng, p1, p2, 1)

	r1, _ := c1.Graph.GetRoute(0)
	r2, _ := c2.Graph.GetRoute(0)
	assert.Equal(t, models.Route{4, 5, 6}, r1)
	assert.Equal(t, models.Route{1, 2, 3}, r2)
}

// TestCrossoverSkipsIdenticalRoutes verifies an always-true swap draw still
// leaves an identical route alone (nothing to swap).
func TestCrossoverSkipsIdenticalRoutes(t *testing.T) {
	rg := chainRoadGraph(t, 4, 60)
	p1 := &Individual{Graph: newGraph(t, rg, models.Route{1, 2, 3})}
	p2 := &Individual{Graph: newGraph(t, rg, models.Route{1, 2, 3})}

	rng := rand.New(rand.NewSource(7))
	c1, c2 := Crossover(rng, p1, p2, 1)

	r1, _ := c1.Graph.GetRoute(0)
	r2, _ := c2.Graph.GetRoute(0)
	assert.Equal(t, models.Route{1, 2, 3}, r1)
	assert.Equal(t, models.Route{1, 2, 3}, r2)
}

// TestScenarioS6MutationDeterministic covers spec.md §8 S6: mutation with a
// fixed RNG seed on a fixed parent reproduces the same child.
func TestScenarioS6MutationDeterministic(t *testing.T) {
	rg := chainRoadGraph(t, 10, 60)
	odx, err := demand.LoadODX(strings.NewReader(`{"1": {"5": 10}}`), nil)
	assert.NoError(t, err)
	ds, err := demand.LoadDS(strings.NewReader(`{"1": {"5": [[1,5],[1,2],[2,5]]}}`), odx, nil)
	assert.NoError(t, err)

	cfg := Config{Pms: 0.5, Pdelete: 0.5, MinRouteSize: 2}

	run := func(seed int64) models.Route {
		g := newGraph(t, rg, models.Route{1, 2, 3})
		ind := &Individual{Graph: g}
		rng := rand.New(rand.NewSource(seed))
		err := Mutate(rng, ind, rg, odx, ds, cfg)
		assert.NoError(t, err)
		route, _ := ind.Graph.GetRoute(0)
		return route
	}

	a := run(42)
	b := run(42)
	assert.Equal(t, a, b)
}

// TestTournamentPicksTwoFittest verifies the selected pair is the two
// lowest-fitness individuals among the drawn subset.
func TestTournamentPicksTwoFittest(t *testing.T) {
	pop := Population{
		{Fitness: 50},
		{Fitness: 10},
		{Fitness: 30},
		{Fitness: 20},
	}
	rng := rand.New(rand.NewSource(3))
	p1, p2 := Tournament(rng, pop, 4)

	fits := map[float64]bool{p1.Fitness: true, p2.Fitness: true}
	assert.True(t, fits[10])
	assert.True(t, fits[20])
}

func TestPopulationSortAscending(t *testing.T) {
	pop := Population{{Fitness: 30}, {Fitness: 10}, {Fitness: 20}}
	pop.SortAscending()
	assert.Equal(t, []float64{10, 20, 30}, []float64{pop[0].Fitness, pop[1].Fitness, pop[2].Fitness})
}
