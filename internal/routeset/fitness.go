package routeset

import (
	"github.com/transitlab/routeopt/internal/demand"
	"github.com/transitlab/routeopt/internal/models"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/stat"
)

// GetFitness returns the memoized objective value, recomputing against odx
// only if a structural mutation has happened since the last call.
func (g *Graph) GetFitness(odx *demand.ODX) float64 {
	if g.routesChanged {
		g.report, g.fitness = g.computeFitness(odx)
		g.routesChanged = false
	}
	return g.fitness
}

// GetReport returns the memoized demand-satisfaction report, recomputing
// under the same rule as GetFitness.
func (g *Graph) GetReport(odx *demand.ODX) models.FitnessReport {
	g.GetFitness(odx)
	return g.report
}

// computeFitness runs the per-origin shortest-path loop described in
// spec.md's Fitness Evaluator: a single Dijkstra tree per origin reused
// for every destination in that origin's demand row, objective
// F = TT + TTR + TU*w2 with w2 = ATT + W2Offset.
func (g *Graph) computeFitness(odx *demand.ODX) (models.FitnessReport, float64) {
	var tt, ttr float64
	transfers := make(map[int]float64)

	unsatisfiedODPairs := make(map[demand.Pair]struct{})
	var unsatisfiedDemand float64
	unsatisfiedStops := make(map[models.StopId]struct{})

	satisfiedODPairs := make(map[demand.Pair]struct{})
	var satisfiedDemand float64
	satisfiedStops := make(map[models.StopId]struct{})

	var noPath, noPathOverTransfers int
	var travelTimes []float64

	for _, o := range odx.Origins() {
		originStop, ok := g.stops[o]
		if !ok {
			unsatisfiedStops[o] = struct{}{}
			for _, d := range odx.Dests(o) {
				unsatisfiedODPairs[demand.Pair{O: o, D: d}] = struct{}{}
				if v, ok := odx.Get(o, d); ok {
					unsatisfiedDemand += float64(v)
				}
			}
			continue
		}
		satisfiedStops[o] = struct{}{}

		var destinations []models.StopId
		for _, d := range odx.Dests(o) {
			if !g.HasStop(d) {
				unsatisfiedStops[d] = struct{}{}
				unsatisfiedODPairs[demand.Pair{O: o, D: d}] = struct{}{}
				if v, ok := odx.Get(o, d); ok {
					unsatisfiedDemand += float64(v)
				}
				continue
			}
			satisfiedStops[d] = struct{}{}
			destinations = append(destinations, d)
		}

		tree := path.DijkstraFrom(simple.Node(originStop.OriginVertex), g.g)

		for _, d := range destinations {
			odxVal, _ := odx.Get(o, d)
			pair := demand.Pair{O: o, D: d}

			destV := g.stops[d].DestVertex
			nodes, weight := tree.To(destV)
			if nodes == nil {
				noPath++
				unsatisfiedODPairs[pair] = struct{}{}
				unsatisfiedDemand += float64(odxVal)
				continue
			}

			routesSeen := make(map[models.RouteId]struct{})
			for _, n := range nodes {
				ref := g.vertexToStop[n.ID()]
				if ref.Role.IsRoute() {
					routesSeen[ref.Role] = struct{}{}
				}
			}
			if len(routesSeen) == 0 {
				panic(models.NewError(models.InvariantViolation,
					"fitness: path from %d to %d touches no route vertex", o, d))
			}
			ntransfers := len(routesSeen) - 1

			dist := weight - (g.params.BusStopTime*float64(ntransfers) + g.params.BusStopTime)

			ttr += float64(ntransfers) * float64(odxVal)
			travelTimes = append(travelTimes, dist)
			tt += dist * float64(odxVal)

			if ntransfers > 2 {
				noPathOverTransfers++
				unsatisfiedODPairs[pair] = struct{}{}
				unsatisfiedDemand += float64(odxVal)
			} else {
				satisfiedODPairs[pair] = struct{}{}
				satisfiedDemand += float64(odxVal)
				transfers[ntransfers] += float64(odxVal)
			}
		}
	}

	var att float64
	if len(travelTimes) > 0 {
		att = stat.Mean(travelTimes, nil)
	}
	w2 := att + g.params.W2Offset
	tu := unsatisfiedDemand

	report := models.FitnessReport{
		SatisfiedODPairs:    len(satisfiedODPairs),
		UnsatisfiedODPairs:  len(unsatisfiedODPairs),
		SatisfiedStops:      len(satisfiedStops),
		UnsatisfiedStops:    len(unsatisfiedStops),
		SatisfiedDemand:     satisfiedDemand,
		UnsatisfiedDemand:   unsatisfiedDemand,
		AverageTravelTime:   att,
		Transfers:           transfers,
		NoPath:              noPath,
		NoPathOverTransfers: noPathOverTransfers,
	}
	return report, tt + ttr + tu*w2
}
