// Package demand holds the three read-only, process-wide demand tables the
// optimizer consumes: the origin-destination transaction matrix (ODX), the
// dominated-stop-pairs table (DS), and per-stop-pair travel durations.
// All three are built once at start-up and shared by value reference;
// nothing in this package is mutated after construction.
package demand

import (
	"sort"

	"github.com/transitlab/routeopt/internal/models"
)

// Pair is an ordered (origin, destination) stop pair.
type Pair struct {
	O, D models.StopId
}

// ODX is the origin-destination transaction matrix: inferred passenger
// demand between stop pairs.
type ODX struct {
	table   map[models.StopId]map[models.StopId]int
	origins []models.StopId
}

// NewODX builds an ODX from a raw nested count table, applying circular-
// route exclusion for the given circular routes first.
func NewODX(raw map[models.StopId]map[models.StopId]int, circular []models.Route) *ODX {
	excluded := circularExcludePairs(circular)
	table := make(map[models.StopId]map[models.StopId]int, len(raw))
	for o, row := range raw {
		for d, count := range row {
			if _, skip := excluded[Pair{o, d}]; skip {
				continue
			}
			if table[o] == nil {
				table[o] = make(map[models.StopId]int)
			}
			table[o][d] = count
		}
	}
	odx := &ODX{table: table}
	for o, row := range table {
		if len(row) == 0 {
			continue
		}
		odx.origins = append(odx.origins, o)
	}
	sort.Slice(odx.origins, func(i, j int) bool { return odx.origins[i] < odx.origins[j] })
	return odx
}

// Get returns the demand for (o, d), or (0, false) if no demand is recorded.
func (x *ODX) Get(o, d models.StopId) (int, bool) {
	row, ok := x.table[o]
	if !ok {
		return 0, false
	}
	v, ok := row[d]
	return v, ok
}

// Origins returns every origin with recorded demand, sorted by stop ID.
func (x *ODX) Origins() []models.StopId {
	return x.origins
}

// Dests returns the destinations with demand from o, sorted by stop ID.
func (x *ODX) Dests(o models.StopId) []models.StopId {
	row, ok := x.table[o]
	if !ok {
		return nil
	}
	dests := make([]models.StopId, 0, len(row))
	for d := range row {
		dests = append(dests, d)
	}
	sort.Slice(dests, func(i, j int) bool { return dests[i] < dests[j] })
	return dests
}

// DS holds, for each ODX pair (o, d), the set of intermediate (m, n) pairs
// "dominated" by a route running the shortest path from o to d, plus the
// ODX-weighted total demand those pairs represent.
type DS struct {
	pairs   map[models.StopId]map[models.StopId][]Pair
	totals  map[models.StopId]map[models.StopId]float64
	origins []models.StopId
}

// NewDS builds a DS table from a raw nested pair-list, weighting each
// (o,d)'s total by odx, and applying circular-route exclusion first.
func NewDS(raw map[models.StopId]map[models.StopId][]Pair, odx *ODX, circular []models.Route) *DS {
	excluded := circularExcludePairs(circular)
	pairs := make(map[models.StopId]map[models.StopId][]Pair, len(raw))
	totals := make(map[models.StopId]map[models.StopId]float64, len(raw))
	for o, row := range raw {
		for d, list := range row {
			if _, skip := excluded[Pair{o, d}]; skip {
				continue
			}
			if pairs[o] == nil {
				pairs[o] = make(map[models.StopId][]Pair)
				totals[o] = make(map[models.StopId]float64)
			}
			pairs[o][d] = list

			seen := make(map[Pair]struct{}, len(list))
			var total float64
			for _, mn := range list {
				if _, dup := seen[mn]; dup {
					continue
				}
				seen[mn] = struct{}{}
				if count, ok := odx.Get(mn.O, mn.D); ok {
					total += float64(count)
				}
			}
			totals[o][d] = total
		}
	}
	ds := &DS{pairs: pairs, totals: totals}
	for o, row := range totals {
		if len(row) == 0 {
			continue
		}
		ds.origins = append(ds.origins, o)
	}
	sort.Slice(ds.origins, func(i, j int) bool { return ds.origins[i] < ds.origins[j] })
	return ds
}

// Pairs returns the dominated (m, n) pairs for (o, d).
func (d *DS) Pairs(o, dest models.StopId) []Pair {
	row, ok := d.pairs[o]
	if !ok {
		return nil
	}
	return row[dest]
}

// Total returns the ODX-weighted demand dominated by (o, d).
func (d *DS) Total(o, dest models.StopId) (float64, bool) {
	row, ok := d.totals[o]
	if !ok {
		return 0, false
	}
	v, ok := row[dest]
	return v, ok
}

// Origins returns every origin with a recorded total, sorted by stop ID.
func (d *DS) Origins() []models.StopId {
	return d.origins
}

// Dests returns the destinations with a recorded total for o, sorted by
// stop ID.
func (d *DS) Dests(o models.StopId) []models.StopId {
	row, ok := d.totals[o]
	if !ok {
		return nil
	}
	dests := make([]models.StopId, 0, len(row))
	for dd := range row {
		dests = append(dests, dd)
	}
	sort.Slice(dests, func(i, j int) bool { return dests[i] < dests[j] })
	return dests
}

// Durations holds a persisted stop-to-stop travel-duration table. No other
// package of the optimizer reads it; in-vehicle timings come from the
// RoadGraph's edges.
type Durations struct {
	table map[models.StopId]map[models.StopId]float64
}

// NewDurations wraps a raw nested duration table.
func NewDurations(raw map[models.StopId]map[models.StopId]float64) *Durations {
	return &Durations{table: raw}
}

// Get returns the duration from o to d, in seconds.
func (d *Durations) Get(o, dest models.StopId) (float64, bool) {
	row, ok := d.table[o]
	if !ok {
		return 0, false
	}
	v, ok := row[dest]
	return v, ok
}

// circularExcludePairs computes, for a set of circular routes, every
// (o, d) pair that a closed loop would spuriously dominate: for each
// non-initial stop o in a circular route, every stop d that appears
// earlier in that same route (including the route's own first stop).
func circularExcludePairs(routes []models.Route) map[Pair]struct{} {
	excluded := make(map[Pair]struct{})
	for _, route := range routes {
		if len(route) == 0 {
			continue
		}
		first := route[0]
		for idx, o := range route {
			if o == first {
				continue
			}
			for _, d := range route[:idx] {
				excluded[Pair{o, d}] = struct{}{}
			}
		}
	}
	return excluded
}
