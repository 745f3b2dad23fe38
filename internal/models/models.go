// Package models holds the domain types shared across the routeset
// optimizer: stop and route identifiers, the fixed-point vertex roles used
// by the transit multigraph, and the run metadata persisted alongside a
// checkpoint.
package models

import "time"

// StopId identifies a physical bus stop.
type StopId int64

// RouteId identifies a bus route within one individual. Two reserved
// negative values mark the virtual origin/destination roles a stop plays
// in the transit multigraph; see Origin and Dest.
type RouteId int64

const (
	// Origin marks a vertex as the shortest-path source role O(s) for a stop.
	Origin RouteId = -1
	// Dest marks a vertex as the shortest-path target role D(s) for a stop.
	Dest RouteId = -2
)

// IsRoute reports whether id names a real route rather than a virtual role.
func (id RouteId) IsRoute() bool {
	return id >= 0
}

// Route is an ordered, non-empty sequence of distinct stops forming a
// valid path in the RoadGraph.
type Route []StopId

// Copy returns an independent copy of the route.
func (r Route) Copy() Route {
	out := make(Route, len(r))
	copy(out, r)
	return out
}

// Equal reports whether two routes visit the same stops in the same order.
func (r Route) Equal(other Route) bool {
	if len(r) != len(other) {
		return false
	}
	for i := range r {
		if r[i] != other[i] {
			return false
		}
	}
	return true
}

// RoadEdge describes one directed edge of the immutable road network.
type RoadEdge struct {
	Duration float64 // seconds
	Distance float64 // meters
}

// FitnessReport is the demand-satisfaction breakdown computed alongside the
// scalar objective value by the fitness evaluator.
type FitnessReport struct {
	SatisfiedODPairs    int
	UnsatisfiedODPairs  int
	SatisfiedStops      int
	UnsatisfiedStops    int
	SatisfiedDemand     float64
	UnsatisfiedDemand   float64
	AverageTravelTime   float64         // seconds
	Transfers           map[int]float64 // transfer count -> demand weight
	NoPath              int
	NoPathOverTransfers int
}

// SatisfiedDemandPct returns the percentage of demand that was satisfied.
func (r FitnessReport) SatisfiedDemandPct() float64 {
	total := r.SatisfiedDemand + r.UnsatisfiedDemand
	if total == 0 {
		return 0
	}
	return r.SatisfiedDemand / total * 100
}

// SatisfiedStopsPct returns the percentage of stops that were satisfied.
func (r FitnessReport) SatisfiedStopsPct() float64 {
	total := float64(r.SatisfiedStops + r.UnsatisfiedStops)
	if total == 0 {
		return 0
	}
	return float64(r.SatisfiedStops) / total * 100
}

// SatisfiedODPairsPct returns the percentage of OD pairs that were satisfied.
func (r FitnessReport) SatisfiedODPairsPct() float64 {
	total := float64(r.SatisfiedODPairs + r.UnsatisfiedODPairs)
	if total == 0 {
		return 0
	}
	return float64(r.SatisfiedODPairs) / total * 100
}

// MeanTransfers returns the demand-weighted average number of transfers
// among satisfied OD pairs.
func (r FitnessReport) MeanTransfers() float64 {
	if r.SatisfiedDemand == 0 {
		return 0
	}
	var sum float64
	for n, weight := range r.Transfers {
		sum += float64(n) * weight
	}
	return sum / r.SatisfiedDemand
}

// RunMeta is the per-run metadata persisted as meta.json.
type RunMeta struct {
	Date       time.Time      `json:"date"`
	LoadedFrom string         `json:"loaded_from,omitempty"`
	Config     map[string]any `json:"config"`
	NRoutes    int            `json:"nroutes"`
	UpdatedOn  *time.Time     `json:"updated_on,omitempty"`
}

// IterationRow is one row of the per-iteration report, df.csv.
type IterationRow struct {
	Fitness             float64 `json:"fitness" csv:"fitness"`
	SatisfiedDemandPct  float64 `json:"satisfied_demand_pct" csv:"satisfied_demand_pct"`
	SatisfiedStopsPct   float64 `json:"satisfied_stops_pct" csv:"satisfied_stops_pct"`
	SatisfiedODPairsPct float64 `json:"satisfied_od_pairs_pct" csv:"satisfied_od_pairs_pct"`
	AverageTravelTime   float64 `json:"average_travel_time" csv:"average_travel_time"`
	MeanTransfers       float64 `json:"mean_transfers" csv:"mean_transfers"`
	Time                float64 `json:"time" csv:"time"`
}
