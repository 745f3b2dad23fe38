// Package config loads the evolutionary run's tunable parameters from a
// YAML file, following the teacher's Config-struct-plus-defaults pattern
// (internal/db.LoadConfigFromEnv, internal/cache.LoadConfigFromEnv) but
// sourced from a file instead of the environment, since a run's parameter
// set is versioned alongside its experiment rather than deployment-local.
package config

import (
	"os"

	"github.com/transitlab/routeopt/internal/evolution"
	"github.com/transitlab/routeopt/internal/models"
	"github.com/transitlab/routeopt/internal/routeset"
	"gopkg.in/yaml.v3"
)

// Params is the full tunable surface of one evolutionary run: the
// evolutionary-loop knobs from spec.md §4.5 plus the graph-wide constants
// from spec.md §6.
type Params struct {
	PopSize        int     `yaml:"pop_size"`
	EliteSize      int     `yaml:"elite_size"`
	TournamentSize int     `yaml:"tournament_size"`
	Pms            float64 `yaml:"pms"`
	Pdelete        float64 `yaml:"pdelete"`
	MinRouteSize   int     `yaml:"min_route_size"`

	BusStopTime  float64 `yaml:"bus_stop_time"`
	TransferTime float64 `yaml:"transfer_time"`
	W2Offset     float64 `yaml:"w2_offset"`

	SaveFreq int   `yaml:"save_freq"`
	Seed     int64 `yaml:"seed"`
}

// Default returns the parameter set spec.md's worked examples assume.
func Default() Params {
	return Params{
		PopSize:        50,
		EliteSize:      5,
		TournamentSize: 5,
		Pms:            0.7,
		Pdelete:        0.3,
		MinRouteSize:   2,
		BusStopTime:    30,
		TransferTime:   300,
		W2Offset:       3000,
		SaveFreq:       10,
		Seed:           1,
	}
}

// Load reads path as YAML, starting from Default() so any field the file
// omits keeps its default value.
func Load(path string) (Params, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return p, nil
		}
		return p, models.NewError(models.InvalidInput, "load config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return p, models.NewError(models.InvalidInput, "parse config %s: %w", path, err)
	}
	return p, nil
}

// RouteSet extracts the routeset-facing subset of p.
func (p Params) RouteSet() routeset.Params {
	return routeset.Params{BusStopTime: p.BusStopTime, TransferTime: p.TransferTime, W2Offset: p.W2Offset}
}

// Evolution extracts the evolutionary-loop-facing subset of p.
func (p Params) Evolution() evolution.Config {
	return evolution.Config{
		PopSize:        p.PopSize,
		EliteSize:      p.EliteSize,
		TournamentSize: p.TournamentSize,
		Pms:            p.Pms,
		Pdelete:        p.Pdelete,
		MinRouteSize:   p.MinRouteSize,
	}
}
