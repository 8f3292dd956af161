// Package contract verifies the observable behavior of the restaurant
// service: status codes, payload shapes and the like/dislike rules. Each
// scenario creates its own data and the suite deletes every entity of the
// touched resource kinds afterwards.
package contract

import (
	"context"
	"fmt"
	"regexp"
	"runtime"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/restarate/loadgen/internal/api"
)

// TestingT is the subset of *testing.T scenarios use. It satisfies the
// testify assert and require interfaces.
type TestingT interface {
	Errorf(format string, args ...any)
	FailNow()
	Skipf(format string, args ...any)
}

// Scenario is one independent check.
type Scenario struct {
	// Name is "group/case", e.g. "dishes/delete".
	Name string
	// Resources are purged after the scenario, whatever its outcome.
	Resources []api.Resource
	Run       func(ctx context.Context, t TestingT, a *api.API)
}

// Outcome of one scenario.
type Outcome int

const (
	Passed Outcome = iota
	Failed
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Passed:
		return "PASS"
	case Failed:
		return "FAIL"
	case Skipped:
		return "SKIP"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Result is the outcome of one scenario.
type Result struct {
	Name     string
	Outcome  Outcome
	Messages []string
	Duration time.Duration
	// TeardownErr is set when purging a resource failed. It does not change
	// the outcome.
	TeardownErr error
}

// Report collects the results of a suite run.
type Report struct {
	Results  []Result
	Duration time.Duration
}

func (r Report) count(o Outcome) int {
	n := 0
	for _, res := range r.Results {
		if res.Outcome == o {
			n++
		}
	}
	return n
}

// Passed returns the number of passed scenarios.
func (r Report) Passed() int { return r.count(Passed) }

// Failed returns the number of failed scenarios.
func (r Report) Failed() int { return r.count(Failed) }

// Skipped returns the number of skipped scenarios.
func (r Report) Skipped() int { return r.count(Skipped) }

// OK reports whether no scenario failed.
func (r Report) OK() bool { return r.Failed() == 0 }

// Suite runs scenarios one after another against one service.
type Suite struct {
	api       *api.API
	log       *zap.Logger
	scenarios []Scenario
	filter    *regexp.Regexp
}

// Option configures a Suite.
type Option func(*Suite)

// WithScenarios replaces the default scenario list.
func WithScenarios(scenarios ...Scenario) Option {
	return func(s *Suite) { s.scenarios = scenarios }
}

// WithFilter keeps only scenarios whose name matches re.
func WithFilter(re *regexp.Regexp) Option {
	return func(s *Suite) { s.filter = re }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Suite) { s.log = log }
}

// NewSuite returns a suite of every known scenario.
func NewSuite(a *api.API, opts ...Option) *Suite {
	s := &Suite{api: a, log: zap.NewNop(), scenarios: All()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Scenarios returns the scenarios the suite will run, after filtering.
func (s *Suite) Scenarios() []Scenario {
	if s.filter == nil {
		return s.scenarios
	}
	var out []Scenario
	for _, sc := range s.scenarios {
		if s.filter.MatchString(sc.Name) {
			out = append(out, sc)
		}
	}
	return out
}

// Run executes every scenario followed by its teardown. It stops early only
// when ctx is done; remaining scenarios are then not reported.
func (s *Suite) Run(ctx context.Context) Report {
	start := time.Now()
	var report Report
	for _, sc := range s.Scenarios() {
		if ctx.Err() != nil {
			s.log.Warn("suite interrupted", zap.Error(ctx.Err()))
			break
		}
		res := s.runOne(ctx, sc)
		report.Results = append(report.Results, res)

		log := s.log.With(zap.String("scenario", sc.Name), zap.Duration("duration", res.Duration))
		switch res.Outcome {
		case Failed:
			log.Error("scenario failed", zap.Strings("messages", res.Messages))
		case Skipped:
			log.Info("scenario skipped", zap.Strings("messages", res.Messages))
		default:
			log.Info("scenario passed")
		}
	}
	report.Duration = time.Since(start)
	return report
}

func (s *Suite) runOne(ctx context.Context, sc Scenario) Result {
	start := time.Now()
	rec := &recorder{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				rec.Errorf("panic: %v", p)
			}
		}()
		sc.Run(ctx, rec, s.api)
	}()
	<-done

	res := Result{
		Name:     sc.Name,
		Outcome:  rec.outcome(),
		Messages: rec.messages,
	}
	res.TeardownErr = s.teardown(ctx, sc)
	res.Duration = time.Since(start)
	return res
}

// teardown purges every resource of sc, continuing past failures. An empty
// collection is not an error.
func (s *Suite) teardown(ctx context.Context, sc Scenario) error {
	var first error
	for _, r := range sc.Resources {
		n, err := s.api.Purge(ctx, r)
		if err != nil {
			s.log.Warn("teardown failed",
				zap.String("scenario", sc.Name),
				zap.String("resource", string(r)),
				zap.Error(err),
			)
			if first == nil {
				first = fmt.Errorf("purging %s: %w", r, err)
			}
			continue
		}
		s.log.Debug("teardown", zap.String("resource", string(r)), zap.Int("deleted", n))
	}
	return first
}

// recorder is the TestingT of a suite run. FailNow and Skipf end the
// scenario goroutine the way the testing package does.
type recorder struct {
	mu       sync.Mutex
	failed   bool
	skipped  bool
	messages []string
}

func (r *recorder) Errorf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failed = true
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
}

func (r *recorder) FailNow() {
	r.mu.Lock()
	r.failed = true
	r.mu.Unlock()
	runtime.Goexit()
}

func (r *recorder) Skipf(format string, args ...any) {
	r.mu.Lock()
	r.skipped = true
	r.messages = append(r.messages, fmt.Sprintf(format, args...))
	r.mu.Unlock()
	runtime.Goexit()
}

func (r *recorder) outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.failed:
		return Failed
	case r.skipped:
		return Skipped
	default:
		return Passed
	}
}
