package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/transitlab/routeopt/internal/builder"
	"github.com/transitlab/routeopt/internal/models"
)

func newScratchCmd(flags *inputFlags) *cobra.Command {
	var (
		name       string
		nRoutes    int
		iterations int
	)

	cmd := &cobra.Command{
		Use:   "scratch",
		Short: "Run the optimizer from a freshly built initial routeset",
		RunE: func(cmd *cobra.Command, args []string) error {
			if nRoutes <= 0 {
				return models.NewError(models.InvalidInput, "--routes must be positive")
			}
			if iterations <= 0 {
				return models.NewError(models.InvalidInput, "--iterations must be positive")
			}
			if name == "" {
				name = fmt.Sprintf("run-%d", time.Now().UnixNano())
			}

			in, err := loadInputs(flags)
			if err != nil {
				return err
			}

			initial := builder.BuildInitialRouteset(in.odx, in.ds, in.roadGraph, nRoutes)
			if len(initial) == 0 {
				return models.NewError(models.InvalidInput, "initial routeset builder produced zero routes")
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

			meta := models.RunMeta{Date: time.Now(), Config: configAsMap(in.cfg), NRoutes: len(initial)}
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
	cmd.Flags().IntVar(&nRoutes, "routes", 0, "number of routes the initial routeset builder should produce (required)")
	cmd.Flags().IntVar(&iterations, "iterations", 0, "number of generations to run (required)")
	return cmd
}
