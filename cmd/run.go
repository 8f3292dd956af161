package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/restarate/loadgen/internal/config"
	"github.com/example/restarate/loadgen/internal/metrics"
	"github.com/example/restarate/loadgen/internal/runner"
)

func newRunCmd(a *app) *cobra.Command {
	var prometheusAddr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run virtual users against the service",
		Long: `Registers virtual users, lets each of them browse dishes, write and like
reviews, manage friends and edit their profile until the duration elapses
or the process is interrupted, then removes every account and prints a
report.

When the config file has an assertions block, the run fails and the
process exits with status 2 if any threshold is missed.`,
		Example: `  loadgen run --host http://localhost:8080 -u 50 -r 5 -d 5m
  loadgen run -c configs/restarate.yaml --prometheus :9090
  loadgen run -c configs/restarate.yaml --report-json reports/{{.Timestamp}}.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if prometheusAddr != "" {
				port := parsePrometheusPort(prometheusAddr)
				if port == 0 {
					return fmt.Errorf("invalid --prometheus address %q", prometheusAddr)
				}
				a.v.Set(config.KeyPrometheusEnabled, true)
				a.v.Set(config.KeyPrometheusPort, port)
			}

			cfg, err := a.load()
			if err != nil {
				return err
			}
			log, err := a.logger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			r, err := runner.New(cfg, log, runner.WithOutput(cmd.OutOrStdout()))
			if err != nil {
				return err
			}
			snap, err := r.Run(cmd.Context())
			if errors.Is(err, metrics.ErrAssertionFailed) {
				log.Warn("load run missed its assertions", zap.Error(err))
				return err
			}
			if err != nil {
				log.Error("load run failed", zap.Error(err))
				return err
			}
			log.Debug("load run finished",
				zap.Int64("requests", snap.Requests),
				zap.Int64("reviews_created", snap.ReviewsCreated))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntP("users", "u", 0, "Number of virtual users")
	flags.Float64P("spawn-rate", "r", 0, "Users started per second")
	flags.DurationP("duration", "d", 0, "Run duration (e.g. 5m, 1h); 0 runs until interrupted")
	flags.Uint64("seed", 0, "Seed for reproducible user behavior")
	flags.Duration("timeout", 0, "Per-request timeout")
	flags.Float64("qps", 0, "Global request rate cap across all users")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.BoolP("verbose", "v", false, "Print per-endpoint statistics in the final report")
	flags.StringVar(&prometheusAddr, "prometheus", "", "Expose Prometheus metrics (e.g. :9090)")
	flags.String("report-json", "", "Write a JSON report to this file ({{.Timestamp}}, {{.Date}} and {{.Time}} are expanded)")

	for key, name := range map[string]string{
		config.KeyUsers:        "users",
		config.KeySpawnRate:    "spawn-rate",
		config.KeyDuration:     "duration",
		config.KeySeed:         "seed",
		config.KeyTimeout:      "timeout",
		config.KeyRateLimitQPS: "qps",
		config.KeyLogLevel:     "log-level",
		config.KeyVerbose:      "verbose",
		config.KeyReportJSON:   "report-json",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}
	return cmd
}

// parsePrometheusPort extracts the port from ":9090", "localhost:9090" or
// "9090". It returns 0 when no valid port is present.
func parsePrometheusPort(addr string) int {
	addr = strings.TrimSpace(addr)
	if i := strings.LastIndexByte(addr, ':'); i >= 0 {
		addr = addr[i+1:]
	}
	port, err := strconv.Atoi(addr)
	if err != nil || port < 1 || port > 65535 {
		return 0
	}
	return port
}
