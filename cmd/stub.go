package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/restarate/loadgen/internal/generator"
	"github.com/example/restarate/loadgen/internal/logger"
	"github.com/example/restarate/loadgen/internal/stubapi"
)

func newStubCmd() *cobra.Command {
	var (
		addr     string
		dishes   int
		seed     uint64
		logLevel string
	)

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Serve an in-memory implementation of the service",
		Long: `Serves an in-memory restaurant service for trying out run and verify
locally. Data lives only as long as the process.`,
		Example: `  loadgen stub --addr :8080 --seed-dishes 50`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logCfg := logger.DefaultConfig()
			logCfg.Level = logLevel
			log, err := logger.New(logCfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			gin.SetMode(gin.ReleaseMode)
			stub := stubapi.New(log.Named("stub"))
			if dishes > 0 {
				stub.Seed(generator.NewFaker(seed), dishes)
			}

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			srv := &http.Server{
				Handler:           stub.Handler(),
				ReadHeaderTimeout: 5 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info("stub listening", zap.String("addr", ln.Addr().String()), zap.Int("dishes", dishes))
				errCh <- srv.Serve(ln)
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			log.Info("shutting down stub")
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().IntVar(&dishes, "seed-dishes", 20, "Number of generated dishes to start with")
	cmd.Flags().Uint64Var(&seed, "seed", 1, "Seed for the generated dishes")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")
	return cmd
}
