// Package runner orchestrates a load run: it loads fixtures once, spawns
// virtual users at the configured rate, stops them on timeout or signal
// and prints the final report.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/example/restarate/loadgen/internal/api"
	"github.com/example/restarate/loadgen/internal/client"
	"github.com/example/restarate/loadgen/internal/config"
	"github.com/example/restarate/loadgen/internal/fixture"
	"github.com/example/restarate/loadgen/internal/generator"
	"github.com/example/restarate/loadgen/internal/metrics"
	"github.com/example/restarate/loadgen/internal/selector"
	"github.com/example/restarate/loadgen/internal/session"
)

// ErrAlreadyRunning is returned when Run is called on a running Runner.
var ErrAlreadyRunning = errors.New("runner: already running")

// Runner is the main load run orchestrator.
type Runner struct {
	cfg *config.Config
	log *zap.Logger
	out io.Writer

	client    *client.Client
	api       *api.API
	collector *metrics.Collector
	exporter  *metrics.PrometheusExporter
	recorder  metrics.Recorder
	validator *metrics.AssertionValidator
	signals   bool

	running atomic.Bool

	// spawnSession builds user i; replaced in tests.
	spawnSession func(i int, snap fixture.Snapshot) (*session.Session, error)

	mu         sync.Mutex
	sessions   []*session.Session
	assertions *metrics.AssertionResults
}

// Option customizes a Runner.
type Option func(*Runner)

// WithOutput sets where the banner and final report are printed.
// Default: os.Stdout
func WithOutput(w io.Writer) Option {
	return func(r *Runner) { r.out = w }
}

// WithoutSignals disables SIGINT/SIGTERM handling, for embedding.
func WithoutSignals() Option {
	return func(r *Runner) { r.signals = false }
}

// New wires the client, metrics and optional exporter for cfg.
func New(cfg *config.Config, log *zap.Logger, opts ...Option) (*Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	assertions, err := assertionConfig(cfg.Assertions)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:       cfg,
		log:       log.Named("runner"),
		out:       os.Stdout,
		collector: metrics.NewCollector(),
		validator: metrics.NewAssertionValidator(assertions),
		signals:   true,
	}
	r.spawnSession = r.newSession
	for _, opt := range opts {
		opt(r)
	}

	recorders := metrics.Tee{r.collector}
	if cfg.Output.Prometheus.Enabled {
		r.exporter = metrics.NewPrometheusExporter(metrics.PrometheusExporterConfig{
			Port: cfg.Output.Prometheus.Port,
			Path: cfg.Output.Prometheus.Path,
		})
		recorders = append(recorders, r.exporter)
	}
	r.recorder = recorders

	c, err := client.NewClient(cfg.Target,
		client.WithRateLimit(cfg.RateLimit.QPS, cfg.RateLimit.Burst),
		client.WithHook(r.recorder.Observe),
	)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP client: %w", err)
	}
	r.client = c
	r.api = api.New(c)
	return r, nil
}

// assertionConfig converts the configured thresholds. Endpoint keys must be
// labels from the catalog.
func assertionConfig(a config.AssertionsConfig) (metrics.AssertionConfig, error) {
	out := metrics.AssertionConfig{ExitOnFailure: a.ExitOnFailure}
	if a.Global != nil {
		g := metrics.GlobalThresholds(*a.Global)
		out.Global = &g
	}
	if len(a.Endpoints) == 0 {
		return out, nil
	}

	known := make(map[string]bool)
	for _, ep := range api.Catalog() {
		known[ep.Name()] = true
	}
	out.Endpoints = make(map[string]metrics.Thresholds, len(a.Endpoints))
	for name, e := range a.Endpoints {
		if !known[name] {
			return metrics.AssertionConfig{}, fmt.Errorf("%w: assertions.endpoints: unknown endpoint %q", config.ErrInvalidConfig, name)
		}
		out.Endpoints[name] = metrics.Thresholds(e)
	}
	return out, nil
}

// Assertions returns the assertion results of the last run, or nil when
// none were configured.
func (r *Runner) Assertions() *metrics.AssertionResults {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.assertions
}

// Collector exposes the run metrics.
func (r *Runner) Collector() *metrics.Collector {
	return r.collector
}

// Sessions returns the sessions spawned so far.
func (r *Runner) Sessions() []*session.Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*session.Session(nil), r.sessions...)
}

// Run executes the load run and blocks until every user has stopped.
func (r *Runner) Run(ctx context.Context) (metrics.Snapshot, error) {
	if r.running.Swap(true) {
		return metrics.Snapshot{}, ErrAlreadyRunning
	}
	defer r.running.Store(false)
	defer r.client.Close()

	if r.signals {
		var stop context.CancelFunc
		ctx, stop = signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
	}

	if r.exporter != nil {
		if err := r.exporter.Start(); err != nil {
			return metrics.Snapshot{}, err
		}
		r.log.Info("prometheus exporter listening", zap.String("address", r.exporter.Address()))
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			_ = r.exporter.Stop(shutdownCtx)
		}()
	}

	r.printBanner()
	r.collector.Start()

	fmt.Fprintln(r.out, "\n[Phase 1] Loading fixtures...")
	snap := fixture.Load(ctx, r.api, r.log.Named("fixture"))
	fmt.Fprintf(r.out, "  dishes: %d, reviews: %d\n", len(snap.DishIDs()), len(snap.ReviewIDs()))
	if snap.Empty() {
		r.log.Warn("no fixtures loaded, dish and review tasks will mostly idle")
	}

	runCtx, cancel := r.runContext(ctx)
	defer cancel()

	fmt.Fprintf(r.out, "\n[Phase 2] Spawning %d users at %.1f/s...\n", r.cfg.Users, r.cfg.SpawnRate)
	reporterDone := r.startProgressReporter(runCtx)

	err := r.spawn(runCtx, snap)

	cancel()
	<-reporterDone
	r.collector.Stop()

	switch {
	case ctx.Err() != nil:
		fmt.Fprintln(r.out, "\n  Interrupted, all users stopped")
	default:
		fmt.Fprintln(r.out, "\n  Test duration reached, all users stopped")
	}

	result := r.collector.Snapshot()
	r.printFinalReport(result)

	assertions := r.checkAssertions(result)
	if assertions != nil && r.validator.ExitOnFailure() {
		err = errors.Join(err, assertions.Err())
	}
	if path := r.cfg.Output.JSONFile; path != "" {
		err = errors.Join(err, r.writeJSONReport(result, assertions, path))
	}
	return result, err
}

// checkAssertions evaluates the configured thresholds and prints the
// outcome. It returns nil when nothing is configured.
func (r *Runner) checkAssertions(s metrics.Snapshot) *metrics.AssertionResults {
	if !r.validator.HasAssertions() {
		return nil
	}
	results := r.validator.Validate(s)
	r.mu.Lock()
	r.assertions = results
	r.mu.Unlock()

	fmt.Fprintln(r.out)
	metrics.FormatResults(r.out, results, r.cfg.Output.Verbose)
	fields := []zap.Field{
		zap.Int("passed", results.PassedCount),
		zap.Int("failed", results.FailedCount),
	}
	if results.AllPassed {
		r.log.Info("assertions passed", fields...)
	} else {
		for _, f := range results.FailedResults() {
			r.log.Warn("assertion failed",
				zap.String("assertion", f.Name),
				zap.String("expected", f.Expected),
				zap.String("actual", f.Actual))
		}
		r.log.Warn("assertions failed", fields...)
	}
	return results
}

func (r *Runner) writeJSONReport(s metrics.Snapshot, assertions *metrics.AssertionResults, path string) error {
	report := metrics.NewJSONReport(s, metrics.ReportConfiguration{
		Name:          r.cfg.Name,
		TargetBaseURL: r.client.BaseURL(),
		Duration:      metrics.Duration{Duration: r.cfg.Duration},
		Users:         r.cfg.Users,
		SpawnRate:     r.cfg.SpawnRate,
		Seed:          r.cfg.Seed,
		RateLimitQPS:  r.cfg.RateLimit.QPS,
		TaskWeights: map[string]int{
			session.TaskDishes:  r.cfg.Tasks.Dishes,
			session.TaskReviews: r.cfg.Tasks.Reviews,
			session.TaskSocial:  r.cfg.Tasks.Social,
			session.TaskProfile: r.cfg.Tasks.Profile,
		},
	}, assertions)

	written, err := metrics.WriteJSONReport(report, path)
	if err != nil {
		r.log.Error("writing JSON report failed", zap.String("path", path), zap.Error(err))
		return err
	}
	fmt.Fprintf(r.out, "JSON report: %s\n", written)
	return nil
}

// runContext bounds the active phase by the configured duration.
func (r *Runner) runContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.cfg.Duration > 0 {
		return context.WithTimeout(ctx, r.cfg.Duration)
	}
	return context.WithCancel(ctx)
}

// spawn starts users at the spawn rate and waits for all of them to stop.
// If a user cannot be built, the users already running are stopped.
func (r *Runner) spawn(ctx context.Context, snap fixture.Snapshot) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	limiter := rate.NewLimiter(rate.Limit(r.cfg.SpawnRate), 1)
	var g errgroup.Group

	for i := range r.cfg.Users {
		if err := limiter.Wait(ctx); err != nil {
			r.log.Info("spawning interrupted", zap.Int("spawned", i))
			break
		}

		s, err := r.spawnSession(i, snap)
		if err != nil {
			cancel()
			_ = g.Wait()
			return err
		}

		g.Go(func() error {
			err := s.Run(ctx)
			if errors.Is(err, session.ErrRegistrationFailed) {
				return nil
			}
			return err
		})
	}

	return g.Wait()
}

func (r *Runner) newSession(i int, snap fixture.Snapshot) (*session.Session, error) {
	var seed uint64
	if r.cfg.Seed != 0 {
		seed = r.cfg.Seed + uint64(i)
	}

	s, err := session.New(session.Deps{
		API:      r.api,
		Faker:    generator.NewFaker(seed),
		Rand:     selector.NewRand(seed),
		Logger:   r.log.Named("session"),
		Config:   r.cfg,
		Observer: r.recorder,
	}, snap)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.sessions = append(r.sessions, s)
	r.mu.Unlock()
	return s, nil
}

// startProgressReporter logs a progress line every report interval until
// ctx is done. The returned channel is closed when it has exited.
func (r *Runner) startProgressReporter(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		if r.cfg.Output.ReportInterval <= 0 {
			<-ctx.Done()
			return
		}
		ticker := time.NewTicker(r.cfg.Output.ReportInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.logProgress()
			}
		}
	}()
	return done
}

func (r *Runner) logProgress() {
	s := r.collector.Snapshot()
	r.log.Info("progress",
		zap.Duration("elapsed", s.Duration.Truncate(time.Second)),
		zap.Int64("active_users", s.ActiveSessions()),
		zap.Int64("requests", s.Requests),
		zap.Float64("qps", s.QPS),
		zap.Float64("success_rate", s.SuccessRate),
		zap.Int64("reviews_created", s.ReviewsCreated),
	)
}

func (r *Runner) printBanner() {
	line := strings.Repeat("=", 60)
	fmt.Fprintln(r.out, line)
	fmt.Fprintf(r.out, "  Load test: %s\n", r.cfg.Name)
	fmt.Fprintf(r.out, "  Target:    %s\n", r.client.BaseURL())
	duration := "until interrupted"
	if r.cfg.Duration > 0 {
		duration = r.cfg.Duration.String()
	}
	fmt.Fprintf(r.out, "  Users:     %d (%.1f/s), duration %s\n", r.cfg.Users, r.cfg.SpawnRate, duration)
	fmt.Fprintln(r.out, line)
}

func (r *Runner) printFinalReport(s metrics.Snapshot) {
	fmt.Fprintln(r.out)
	metrics.Report(r.out, s, metrics.ReportOptions{
		Title:     "Final report: " + r.cfg.Name,
		Endpoints: r.cfg.Output.Verbose,
	})
	fmt.Fprintf(r.out, "Reviews created: %d\n", s.ReviewsCreated)
}
