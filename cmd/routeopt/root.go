package main

import (
	"context"
	"fmt"
	"log"
	"math/rand"

	"github.com/spf13/cobra"

	"github.com/transitlab/routeopt/internal/checkpoint"
	"github.com/transitlab/routeopt/internal/config"
	"github.com/transitlab/routeopt/internal/demand"
	"github.com/transitlab/routeopt/internal/evolution"
	"github.com/transitlab/routeopt/internal/models"
	"github.com/transitlab/routeopt/internal/monitor"
	"github.com/transitlab/routeopt/internal/roadgraph"
)

// inputFlags are the data-file flags shared by every subcommand: the
// road network and demand tables the optimizer reads from, never writes.
type inputFlags struct {
	configPath      string
	roadGraphPath   string
	odxPath         string
	dsPath          string
	circularPath    string
	experimentsRoot string
	checkpointKind  string // file | redis
	metricsSink     string // csv | postgres
	serve           bool
	serveAddr       string
}

func newRootCmd() *cobra.Command {
	var flags inputFlags

	root := &cobra.Command{
		Use:           "routeopt",
		Short:         "Evolutionary bus route network optimizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "path to YAML config file (defaults applied for anything missing)")
	root.PersistentFlags().StringVar(&flags.roadGraphPath, "roadgraph", "", "path to road graph JSON (required)")
	root.PersistentFlags().StringVar(&flags.odxPath, "odx", "", "path to ODX demand matrix JSON (required)")
	root.PersistentFlags().StringVar(&flags.dsPath, "ds", "", "path to DS dominated-pairs table JSON (required)")
	root.PersistentFlags().StringVar(&flags.circularPath, "circular-routes", "", "path to circular-route exclusion list JSON (optional)")
	root.PersistentFlags().StringVar(&flags.experimentsRoot, "experiments-dir", "experiments", "root directory FileStore writes experiment subdirectories under")
	root.PersistentFlags().StringVar(&flags.checkpointKind, "checkpoint", "file", "population/meta checkpoint backend: file|redis")
	root.PersistentFlags().StringVar(&flags.metricsSink, "metrics-sink", "csv", "per-iteration metrics sink: csv|postgres")
	root.PersistentFlags().BoolVar(&flags.serve, "serve", false, "start the read-only monitor HTTP server alongside the run")
	root.PersistentFlags().StringVar(&flags.serveAddr, "serve-addr", ":8090", "address the monitor server listens on when --serve is set")

	root.AddCommand(newScratchCmd(&flags))
	root.AddCommand(newResumeCmd(&flags))
	root.AddCommand(newFromRoutesCmd(&flags))

	return root
}

// runInputs bundles everything a subcommand needs to build a Loop.
type runInputs struct {
	cfg       config.Params
	roadGraph *roadgraph.RoadGraph
	odx       *demand.ODX
	ds        *demand.DS
	circular  []models.Route
}

func loadInputs(flags *inputFlags) (*runInputs, error) {
	if flags.roadGraphPath == "" || flags.odxPath == "" || flags.dsPath == "" {
		return nil, models.NewError(models.InvalidInput, "--roadgraph, --odx, and --ds are all required")
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	var circular []models.Route
	if flags.circularPath != "" {
		circular, err = demand.LoadCircularRoutesFile(flags.circularPath)
		if err != nil {
			return nil, err
		}
	}

	rg, err := roadgraph.LoadFile(flags.roadGraphPath)
	if err != nil {
		return nil, err
	}

	odx, err := demand.LoadODXFile(flags.odxPath, circular)
	if err != nil {
		return nil, err
	}

	ds, err := demand.LoadDSFile(flags.dsPath, odx, circular)
	if err != nil {
		return nil, err
	}

	return &runInputs{cfg: cfg, roadGraph: rg, odx: odx, ds: ds, circular: circular}, nil
}

// openStore picks a Store implementation from the --checkpoint/--metrics-sink
// flags. --metrics-sink=postgres takes the whole run to PostgresStore (it
// implements SaveMeta/SavePopulation too, not only AppendRow); otherwise
// --checkpoint selects between the file and redis backends.
func openStore(ctx context.Context, flags *inputFlags, experimentName string) (checkpoint.Store, error) {
	if flags.metricsSink == "postgres" {
		return checkpoint.NewPostgresStore(ctx, checkpoint.LoadPostgresConfigFromEnv(), experimentName)
	}
	switch flags.checkpointKind {
	case "redis":
		return checkpoint.NewRedisStore(checkpoint.LoadRedisConfigFromEnv(), experimentName)
	case "file", "":
		return checkpoint.NewFileStore(flags.experimentsRoot, experimentName)
	default:
		return nil, models.NewError(models.InvalidInput, "unknown --checkpoint backend %q", flags.checkpointKind)
	}
}

// maybeServe starts the monitor server in a background goroutine when
// --serve is set, returning the Status the Loop should publish to (nil if
// --serve wasn't passed).
func maybeServe(flags *inputFlags) *monitor.Status {
	if !flags.serve {
		return nil
	}
	status := &monitor.Status{}
	server := monitor.NewServer(status)
	go func() {
		if err := server.Listen(flags.serveAddr); err != nil {
			log.Printf("monitor server stopped: %v", err)
		}
	}()
	return status
}

func buildLoop(in *runInputs) *evolution.Loop {
	rng := rand.New(rand.NewSource(in.cfg.Seed))
	return evolution.NewLoop(in.roadGraph, in.odx, in.ds, in.cfg.RouteSet(), in.cfg.Evolution(), rng)
}

func configAsMap(cfg config.Params) map[string]any {
	return map[string]any{
		"pop_size":        cfg.PopSize,
		"elite_size":      cfg.EliteSize,
		"tournament_size": cfg.TournamentSize,
		"pms":             cfg.Pms,
		"pdelete":         cfg.Pdelete,
		"min_route_size":  cfg.MinRouteSize,
		"bus_stop_time":   cfg.BusStopTime,
		"transfer_time":   cfg.TransferTime,
		"w2_offset":       cfg.W2Offset,
		"save_freq":       cfg.SaveFreq,
		"seed":            cfg.Seed,
	}
}

func reportSummary(pop evolution.Population) string {
	best := pop[0]
	return fmt.Sprintf(
		"best fitness=%.2f satisfied_demand=%.1f%% satisfied_stops=%.1f%% mean_transfers=%.2f",
		best.Fitness,
		best.Report.SatisfiedDemandPct(),
		best.Report.SatisfiedStopsPct(),
		best.Report.MeanTransfers(),
	)
}
