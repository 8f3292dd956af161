package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/restarate/loadgen/internal/api"
	"github.com/example/restarate/loadgen/internal/client"
	"github.com/example/restarate/loadgen/internal/fixture"
)

func newFixturesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "fixtures",
		Short: "Show the dish and review ids a run would start from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			log, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			c, err := client.NewClient(cfg.Target)
			if err != nil {
				return err
			}
			defer c.Close()

			snap := fixture.Load(cmd.Context(), api.New(c), log)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Target:  %s\n", c.BaseURL())
			fmt.Fprintf(out, "Dishes:  %d %v\n", len(snap.DishIDs()), snap.DishIDs())
			_, err = fmt.Fprintf(out, "Reviews: %d %v\n", len(snap.ReviewIDs()), snap.ReviewIDs())
			return err
		},
	}
}
