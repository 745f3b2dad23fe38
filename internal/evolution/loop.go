// Package evolution implements the genetic search over RouteSetGraph
// individuals: tournament selection, per-route crossover, and the
// small_mod/big_mod mutation operators, all driven from one seeded random
// source consumed in a fixed order so a run is reproducible given its seed.
package evolution

import (
	"context"
	"log"
	"math/rand"
	"time"

	"github.com/transitlab/routeopt/internal/checkpoint"
	"github.com/transitlab/routeopt/internal/demand"
	"github.com/transitlab/routeopt/internal/models"
	"github.com/transitlab/routeopt/internal/monitor"
	"github.com/transitlab/routeopt/internal/roadgraph"
	"github.com/transitlab/routeopt/internal/routeset"
)

// Loop owns the read-only shared inputs and the seeded RNG every operator
// draws from, per spec.md §5's "deterministic given a seeded random source"
// ordering guarantee.
type Loop struct {
	RoadGraph *roadgraph.RoadGraph
	ODX       *demand.ODX
	DS        *demand.DS
	Params    routeset.Params
	Config    Config
	Rand      *rand.Rand
}

// NewLoop returns a Loop ready to run, seeded by the given source.
func NewLoop(rg *roadgraph.RoadGraph, odx *demand.ODX, ds *demand.DS, params routeset.Params, cfg Config, rng *rand.Rand) *Loop {
	return &Loop{RoadGraph: rg, ODX: odx, DS: ds, Params: params, Config: cfg, Rand: rng}
}

// Seed builds an initial population of cfg.PopSize clones of the given
// route set, each evaluated against l.ODX.
func (l *Loop) Seed(routes []models.Route) Population {
	pop := make(Population, l.Config.PopSize)
	for i := range pop {
		g := routeset.New(l.RoadGraph, l.Params, false)
		for _, route := range routes {
			g.AddRoute(route)
		}
		ind := &Individual{Graph: g}
		ind.Evaluate(l.ODX)
		pop[i] = ind
	}
	return pop
}

// Step runs one generation: elite carry-over, tournament-selected
// crossover pairs filling the rest of the population, a mutation pass over
// every non-elite child, fitness evaluation, and an ascending sort.
func (l *Loop) Step(pop Population) Population {
	pop.SortAscending()

	next := make(Population, 0, l.Config.PopSize)
	next = append(next, pop[:l.Config.EliteSize]...)

	pairs := (l.Config.PopSize - l.Config.EliteSize) / 2
	for i := 0; i < pairs; i++ {
		p1, p2 := Tournament(l.Rand, pop, l.Config.TournamentSize)
		c1, c2 := Crossover(l.Rand, p1, p2, 1.0/float64(p1.Graph.NRoutes()))

		if err := Mutate(l.Rand, c1, l.RoadGraph, l.ODX, l.DS, l.Config); err != nil {
			panic(err)
		}
		if err := Mutate(l.Rand, c2, l.RoadGraph, l.ODX, l.DS, l.Config); err != nil {
			panic(err)
		}

		c1.Evaluate(l.ODX)
		c2.Evaluate(l.ODX)
		next = append(next, c1, c2)
	}

	next.SortAscending()
	return next
}

// Run drives the loop for `iterations` generations starting from pop,
// appending a metrics row and publishing a monitor snapshot once per
// generation, and saving the population every saveFreq generations.
// The three CLI subcommands (scratch/resume/from-routes) differ only in
// how pop is constructed; Run itself is identical for all three. CheckpointIO failures are logged and do not abort the
// run, per spec.md §7. store and status may both be nil.
func (l *Loop) Run(ctx context.Context, pop Population, startIteration, iterations int, store checkpoint.Store, saveFreq int, status *monitor.Status) (Population, error) {
	start := time.Now()
	for i := 0; i < iterations; i++ {
		select {
		case <-ctx.Done():
			return pop, ctx.Err()
		default:
		}

		pop = l.Step(pop)
		iteration := startIteration + i + 1
		elapsed := time.Since(start)
		row := Row(pop, elapsed.Seconds())

		if store != nil {
			if err := store.AppendRow(row); err != nil {
				log.Printf("checkpoint: append row failed: %v", err)
			}
			if saveFreq > 0 && iteration%saveFreq == 0 {
				if err := store.SavePopulation(iteration, pop.routeLists()); err != nil {
					log.Printf("checkpoint: save population failed: %v", err)
				}
			}
		}

		if status != nil {
			status.Publish(monitor.Snapshot{
				Iteration:   iteration,
				BestFitness: pop[0].Fitness,
				BestReport:  pop[0].Report,
				Elapsed:     elapsed,
			})
		}
	}
	return pop, nil
}

// Row summarizes the best individual of a generation as one df.csv record
// per spec.md §6.
func Row(pop Population, elapsed float64) models.IterationRow {
	best := pop[0]
	return models.IterationRow{
		Fitness:             best.Fitness,
		SatisfiedDemandPct:  best.Report.SatisfiedDemandPct(),
		SatisfiedStopsPct:   best.Report.SatisfiedStopsPct(),
		SatisfiedODPairsPct: best.Report.SatisfiedODPairsPct(),
		AverageTravelTime:   best.Report.AverageTravelTime,
		MeanTransfers:       best.Report.MeanTransfers(),
		Time:                elapsed,
	}
}
