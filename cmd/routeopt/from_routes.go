package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitlab/routeopt/internal/models"
)

func newFromRoutesCmd(flags *inputFlags) *cobra.Command {
	var (
		name       string
		routesPath string
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "from-routes",
		Short: "Run the optimizer starting from a predefined route set",
		RunE: func(cmd *cobra.Command, args []string) error {
			if routesPath == "" {
				return models.NewError(models.InvalidInput, "--routes is required")
			}
			if iterations <= 0 {
				return models.NewError(models.InvalidInput, "--iterations must be positive")
			}
			if name == "" {
				name = fmt.Sprintf("run-%d", time.Now().UnixNano())
			}

			initial, err := loadRoutesFile(routesPath)
			if err != nil {
				return err
			}
			if len(initial) == 0 {
				return models.NewError(models.InvalidInput, "%s contains no routes", routesPath)
			}

			in, err := loadInputs(flags)
			if err != nil {
				return err
			}

			ctx := context.Background()
			store, err := openStore(ctx, flags, name)
			if err != nil {
				return err
			}
			defer store.Close()

			status := maybeServe(flags)

			loop := buildLoop(in)
			pop := loop.Seed(initial)

			meta := models.RunMeta{Date: time.Now(), LoadedFrom: routesPath, Config: configAsMap(in.cfg), NRoutes: len(initial)}
			if err := store.SaveMeta(meta); err != nil {
				log.Printf("checkpoint: save meta failed: %v", err)
			}

			pop, err = loop.Run(ctx, pop, 0, iterations, store, in.cfg.SaveFreq, status)
			if err != nil {
				return err
			}

			fmt.Println(reportSummary(pop))
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "experiment name (defaults to a generated run-<timestamp>)")
	cmd.Flags().StringVar(&routesPath, "routes", "", "path to a JSON array of routes (each a stop-id array) to seed the population with (required)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "number of generations to run (required)")
	return cmd
}

// loadRoutesFile reads a JSON array of stop-id arrays, the same shape
// demand.LoadCircularRoutesFile uses for its route list.
func loadRoutesFile(path string) ([]models.Route, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, models.NewError(models.InvalidInput, "open routes %s: %w", path, err)
	}
	defer f.Close()

	var raw [][]int64
	if err := json.NewDecoder(f).Decode(&raw); err != nil {
		return nil, models.NewError(models.InvalidInput, "decode routes %s: %w", path, err)
	}
	routes := make([]models.Route, len(raw))
	for i, r := range raw {
		route := make(models.Route, len(r))
		for j, id := range r {
			route[j] = models.StopId(id)
		}
		routes[i] = route
	}
	return routes, nil
}
