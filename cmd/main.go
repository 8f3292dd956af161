// Package main provides the CLI entry point for the restaurant service load
// generator and contract verifier.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/example/restarate/loadgen/internal/config"
	"github.com/example/restarate/loadgen/internal/logger"
	"github.com/example/restarate/loadgen/internal/metrics"
)

// Version information (populated at build time)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(exitCode(err))
	}
}

// exitCode maps a command error to the process status: 2 when only the
// run's assertions failed, 1 for anything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return metrics.ExitCodeSuccess
	case errors.Is(err, metrics.ErrAssertionFailed):
		return metrics.ExitCodeAssertionFailure
	default:
		return 1
	}
}

// app carries what every subcommand shares: the viper instance flags are
// bound to and the config file path.
type app struct {
	v          *viper.Viper
	configPath string
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.NewViper()}

	root := &cobra.Command{
		Use:   "loadgen",
		Short: "Load generator and contract verifier for the restaurant service",
		Long: `loadgen simulates a population of virtual users against the restaurant
rating service (dishes, reviews, users, friendships) and verifies that a
running instance honors the HTTP contract.

The target host is taken from --host, then API_HOST, then the config file,
then http://localhost:8080.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to the YAML configuration file")
	root.PersistentFlags().String("host", "", "Service root URL (overrides API_HOST)")
	_ = a.v.BindPFlag(config.KeyHost, root.PersistentFlags().Lookup("host"))

	root.AddCommand(
		newRunCmd(a),
		newVerifyCmd(a),
		newFixturesCmd(a),
		newCatalogCmd(),
		newStubCmd(),
		newVersionCmd(),
	)
	return root
}

// load resolves the effective configuration for a subcommand.
func (a *app) load() (*config.Config, error) {
	return config.Load(a.configPath, a.v)
}

// logger builds the zap logger described by cfg.
func (a *app) logger(cfg *config.Config) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	return log, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "loadgen version %s\n", version)
			fmt.Fprintf(out, "  Build time: %s\n", buildTime)
			_, err := fmt.Fprintf(out, "  Git commit: %s\n", gitCommit)
			return err
		},
	}
}
