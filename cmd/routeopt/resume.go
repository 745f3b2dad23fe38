package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitlab/routeopt/internal/evolution"
	"github.com/transitlab/routeopt/internal/models"
	"github.com/transitlab/routeopt/internal/routeset"
)

func newResumeCmd(flags *inputFlags) *cobra.Command {
	var (
		name       string
		iterations int
		appendRun  bool
		newName    string
	)

	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Continue the optimizer from a saved experiment's population",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" {
				return models.NewError(models.InvalidInput, "--name is required")
			}
			if iterations <= 0 {
				return models.NewError(models.InvalidInput, "--iterations must be positive")
			}

			in, err := loadInputs(flags)
			if err != nil {
				return err
			}

			ctx := context.Background()
			source, err := openStore(ctx, flags, name)
			if err != nil {
				return err
			}
			routes, err := source.LoadPopulation()
			if err != nil {
				source.Close()
				return err
			}

			writeName := name
			if newName != "" {
				writeName = newName
			}

			store := source
			if writeName != name {
				store.Close()
				store, err = openStore(ctx, flags, writeName)
				if err != nil {
					return err
				}
			} else if !appendRun {
				// Writing a fresh meta.json/df.csv under the same name without
				// --append would clobber the prior run's history; require an
				// explicit choice instead of silently overwriting it.
				return models.NewError(models.InvalidInput, "resuming into the same experiment requires --append or --new-name")
			}
			defer store.Close()

			loop := buildLoop(in)
			pop := make(evolution.Population, len(routes))
			for i, individualRoutes := range routes {
				g := routeset.New(in.roadGraph, in.cfg.RouteSet(), false)
				for _, route := range individualRoutes {
					g.AddRoute(route)
				}
				ind := &evolution.Individual{Graph: g}
				ind.Evaluate(in.odx)
				pop[i] = ind
			}
			if len(pop) == 0 {
				return models.NewError(models.InvalidInput, "saved population %q is empty", name)
			}
			pop.SortAscending()

			status := maybeServe(flags)

			meta := models.RunMeta{Date: time.Now(), LoadedFrom: name, Config: configAsMap(in.cfg), NRoutes: len(routes[0])}
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

	cmd.Flags().StringVar(&name, "name", "", "saved experiment to resume from (required)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "number of additional generations to run (required)")
	cmd.Flags().BoolVar(&appendRun, "append", false, "append to the existing experiment's history instead of requiring --new-name")
	cmd.Flags().StringVar(&newName, "new-name", "", "write continued run history under a new experiment name")
	return cmd
}
