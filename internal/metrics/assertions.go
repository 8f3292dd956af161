package metrics

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
)

// Exit codes for assertion results.
const (
	// ExitCodeSuccess indicates all assertions passed.
	ExitCodeSuccess = 0
	// ExitCodeAssertionFailure indicates one or more assertions failed.
	ExitCodeAssertionFailure = 2
)

// ErrAssertionFailed is returned when a finished run misses a threshold.
var ErrAssertionFailed = errors.New("assertion failed")

// Thresholds are the SLO limits for one endpoint. Nil pointers and zero
// values disable a check.
type Thresholds struct {
	MaxErrorRate   *float64 // percent
	MinSuccessRate *float64 // percent
	MaxP50Latency  time.Duration
	MaxP95Latency  time.Duration
	MaxP99Latency  time.Duration
	MaxAvgLatency  time.Duration
	MinThroughput  *float64 // requests per second
	MinRequests    int64
	Disabled       bool
}

// GlobalThresholds are the SLO limits for the whole run.
type GlobalThresholds struct {
	MaxErrorRate       *float64
	MinSuccessRate     *float64
	MaxP50Latency      time.Duration
	MaxP95Latency      time.Duration
	MaxP99Latency      time.Duration
	MaxAvgLatency      time.Duration
	MinThroughput      *float64
	MinRequests        int64
	MinReviewsCreated  int64
	MaxSessionsAborted *int64
}

func (g GlobalThresholds) request() Thresholds {
	return Thresholds{
		MaxErrorRate:   g.MaxErrorRate,
		MinSuccessRate: g.MinSuccessRate,
		MaxP50Latency:  g.MaxP50Latency,
		MaxP95Latency:  g.MaxP95Latency,
		MaxP99Latency:  g.MaxP99Latency,
		MaxAvgLatency:  g.MaxAvgLatency,
		MinThroughput:  g.MinThroughput,
		MinRequests:    g.MinRequests,
	}
}

func (t Thresholds) empty() bool {
	return t.MaxErrorRate == nil && t.MinSuccessRate == nil &&
		t.MaxP50Latency <= 0 && t.MaxP95Latency <= 0 && t.MaxP99Latency <= 0 && t.MaxAvgLatency <= 0 &&
		t.MinThroughput == nil && t.MinRequests <= 0
}

// AssertionConfig is what a run is checked against. Endpoints is keyed by
// the endpoint label, e.g. "POST /reviews".
type AssertionConfig struct {
	Global    *GlobalThresholds
	Endpoints map[string]Thresholds

	// ExitOnFailure makes a failed assertion fail the run.
	// Default: true
	ExitOnFailure *bool
}

// AssertionResult is the outcome of one check.
type AssertionResult struct {
	// Name is e.g. "global.maxP95Latency" or "endpoint:POST /reviews.minSuccessRate".
	Name        string `json:"name"`
	Description string `json:"description"`
	Passed      bool   `json:"passed"`
	Expected    string `json:"expected"`
	Actual      string `json:"actual"`
	// Endpoint is empty for global assertions.
	Endpoint string `json:"endpoint,omitempty"`
}

// AssertionResults holds every check of one validation.
type AssertionResults struct {
	Results     []AssertionResult `json:"results"`
	PassedCount int               `json:"passed"`
	FailedCount int               `json:"failed"`
	TotalCount  int               `json:"total"`
	AllPassed   bool              `json:"allPassed"`
}

// FailedResults returns only the failed assertion results.
func (r *AssertionResults) FailedResults() []AssertionResult {
	return slices.DeleteFunc(slices.Clone(r.Results), func(a AssertionResult) bool { return a.Passed })
}

// PassedResults returns only the passed assertion results.
func (r *AssertionResults) PassedResults() []AssertionResult {
	return slices.DeleteFunc(slices.Clone(r.Results), func(a AssertionResult) bool { return !a.Passed })
}

// Summary returns e.g. "Assertions: 3/4 passed (1 FAILED)".
func (r *AssertionResults) Summary() string {
	if r.TotalCount == 0 {
		return "No assertions configured"
	}
	s := fmt.Sprintf("Assertions: %d/%d passed", r.PassedCount, r.TotalCount)
	if r.FailedCount > 0 {
		s += fmt.Sprintf(" (%d FAILED)", r.FailedCount)
	}
	return s
}

// Err returns nil when every assertion passed and an error wrapping
// ErrAssertionFailed otherwise.
func (r *AssertionResults) Err() error {
	if r.FailedCount == 0 {
		return nil
	}
	names := make([]string, 0, r.FailedCount)
	for _, f := range r.FailedResults() {
		names = append(names, f.Name)
	}
	return fmt.Errorf("%w: %d of %d (%v)", ErrAssertionFailed, r.FailedCount, r.TotalCount, names)
}

func (r *AssertionResults) add(res AssertionResult) {
	r.Results = append(r.Results, res)
	r.TotalCount++
	if res.Passed {
		r.PassedCount++
	} else {
		r.FailedCount++
	}
	r.AllPassed = r.FailedCount == 0
}

// AssertionValidator checks snapshots against an AssertionConfig.
type AssertionValidator struct {
	config AssertionConfig
}

// NewAssertionValidator creates a new assertion validator.
func NewAssertionValidator(config AssertionConfig) *AssertionValidator {
	return &AssertionValidator{config: config}
}

// Config returns the assertion configuration.
func (v *AssertionValidator) Config() AssertionConfig {
	return v.config
}

// ExitOnFailure reports whether a failed assertion should fail the run.
func (v *AssertionValidator) ExitOnFailure() bool {
	return v.config.ExitOnFailure == nil || *v.config.ExitOnFailure
}

// HasAssertions returns true if any check is configured.
func (v *AssertionValidator) HasAssertions() bool {
	if g := v.config.Global; g != nil {
		if !g.request().empty() || g.MinReviewsCreated > 0 || g.MaxSessionsAborted != nil {
			return true
		}
	}
	for _, t := range v.config.Endpoints {
		if !t.Disabled && !t.empty() {
			return true
		}
	}
	return false
}

// measurement is the part of a snapshot the request checks look at.
type measurement struct {
	requests    int64
	successRate float64
	qps         float64
	latency     LatencyStats
}

func (m measurement) errorRate() float64 {
	if m.requests == 0 {
		return 0
	}
	return 100 - m.successRate
}

// Validate evaluates all assertions against s. Global checks come first,
// then endpoints in name order.
func (v *AssertionValidator) Validate(s Snapshot) *AssertionResults {
	results := &AssertionResults{AllPassed: true}

	if g := v.config.Global; g != nil {
		run := measurement{requests: s.Requests, successRate: s.SuccessRate, qps: s.QPS, latency: s.Latency}
		checkRequests(results, "global", "", g.request(), run)

		if g.MinReviewsCreated > 0 {
			results.add(AssertionResult{
				Name:        "global.minReviewsCreated",
				Description: "Minimum reviews created",
				Passed:      s.ReviewsCreated >= g.MinReviewsCreated,
				Expected:    fmt.Sprintf(">= %d", g.MinReviewsCreated),
				Actual:      fmt.Sprintf("%d", s.ReviewsCreated),
			})
		}
		if g.MaxSessionsAborted != nil {
			results.add(AssertionResult{
				Name:        "global.maxSessionsAborted",
				Description: "Maximum users that failed to register",
				Passed:      s.SessionsAborted <= *g.MaxSessionsAborted,
				Expected:    fmt.Sprintf("<= %d", *g.MaxSessionsAborted),
				Actual:      fmt.Sprintf("%d", s.SessionsAborted),
			})
		}
	}

	for _, name := range sortedKeys(v.config.Endpoints) {
		t := v.config.Endpoints[name]
		if t.Disabled {
			continue
		}
		ep, ok := s.Endpoints[name]
		if !ok {
			// Never called: only a request minimum can fail.
			if t.MinRequests > 0 {
				checkRequests(results, "endpoint:"+name, name, Thresholds{MinRequests: t.MinRequests}, measurement{})
			}
			continue
		}
		checkRequests(results, "endpoint:"+name, name, t,
			measurement{requests: ep.Requests, successRate: ep.SuccessRate, qps: ep.QPS, latency: ep.Latency})
	}
	return results
}

func checkRequests(results *AssertionResults, prefix, endpoint string, t Thresholds, m measurement) {
	subject := ""
	if endpoint != "" {
		subject = " for " + endpoint
	}
	add := func(key, desc string, passed bool, expected, actual string) {
		results.add(AssertionResult{
			Name:        prefix + "." + key,
			Description: desc + subject,
			Passed:      passed,
			Expected:    expected,
			Actual:      actual,
			Endpoint:    endpoint,
		})
	}

	if t.MinRequests > 0 {
		add("minRequests", "Minimum requests", m.requests >= t.MinRequests,
			fmt.Sprintf(">= %d", t.MinRequests), fmt.Sprintf("%d", m.requests))
	}
	if t.MaxErrorRate != nil {
		add("maxErrorRate", "Maximum error rate", m.errorRate() <= *t.MaxErrorRate,
			fmt.Sprintf("<= %.2f%%", *t.MaxErrorRate), fmt.Sprintf("%.2f%%", m.errorRate()))
	}
	if t.MinSuccessRate != nil {
		add("minSuccessRate", "Minimum success rate", m.successRate >= *t.MinSuccessRate,
			fmt.Sprintf(">= %.2f%%", *t.MinSuccessRate), fmt.Sprintf("%.2f%%", m.successRate))
	}

	latencies := []struct {
		key, desc string
		limit     time.Duration
		actual    time.Duration
	}{
		{"maxP50Latency", "Maximum P50 latency", t.MaxP50Latency, m.latency.P50},
		{"maxP95Latency", "Maximum P95 latency", t.MaxP95Latency, m.latency.P95},
		{"maxP99Latency", "Maximum P99 latency", t.MaxP99Latency, m.latency.P99},
		{"maxAvgLatency", "Maximum average latency", t.MaxAvgLatency, m.latency.Avg},
	}
	for _, l := range latencies {
		if l.limit > 0 {
			add(l.key, l.desc, l.actual <= l.limit, "<= "+formatLatency(l.limit), formatLatency(l.actual))
		}
	}

	if t.MinThroughput != nil {
		add("minThroughput", "Minimum throughput (QPS)", m.qps >= *t.MinThroughput,
			fmt.Sprintf(">= %.2f req/s", *t.MinThroughput), fmt.Sprintf("%.2f req/s", m.qps))
	}
}

// FormatResults writes the assertion table. Passed checks are listed only
// when verbose is set.
func FormatResults(w io.Writer, results *AssertionResults, verbose bool) {
	if results.TotalCount == 0 {
		fmt.Fprintln(w, "No assertions configured")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	if results.AllPassed {
		t.SetTitle(fmt.Sprintf("All %d assertions PASSED", results.TotalCount))
	} else {
		t.SetTitle(fmt.Sprintf("%d/%d assertions FAILED", results.FailedCount, results.TotalCount))
	}
	t.AppendHeader(table.Row{"", "Assertion", "Expected", "Actual"})
	for _, r := range results.FailedResults() {
		t.AppendRow(table.Row{"FAIL", r.Name, r.Expected, r.Actual})
	}
	if verbose {
		for _, r := range results.PassedResults() {
			t.AppendRow(table.Row{"ok", r.Name, r.Expected, r.Actual})
		}
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
