// Package metrics aggregates what a load run did: request outcomes and
// latencies per endpoint, reviews created, session lifecycle events and
// task executions. It can export the same figures to Prometheus and print
// a final report.
package metrics

import (
	"maps"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/example/restarate/loadgen/internal/client"
)

// Recorder receives everything the collector and the exporter count.
// It is satisfied by *Collector, *PrometheusExporter and Tee.
type Recorder interface {
	Observe(r client.Result)
	SessionStarted()
	SessionAborted()
	SessionStopped()
	TaskExecuted(name string)
}

// Tee fans events out to several recorders.
type Tee []Recorder

func (t Tee) Observe(r client.Result) {
	for _, rec := range t {
		rec.Observe(r)
	}
}

func (t Tee) SessionStarted() {
	for _, rec := range t {
		rec.SessionStarted()
	}
}

func (t Tee) SessionAborted() {
	for _, rec := range t {
		rec.SessionAborted()
	}
}

func (t Tee) SessionStopped() {
	for _, rec := range t {
		rec.SessionStopped()
	}
}

func (t Tee) TaskExecuted(name string) {
	for _, rec := range t {
		rec.TaskExecuted(name)
	}
}

// IsReviewCreation reports whether r is a successful POST /reviews.
func IsReviewCreation(r client.Result) bool {
	return r.Method == http.MethodPost && r.Path == "/reviews" && r.Success()
}

const (
	defaultMaxLatencies         = 100000
	defaultEndpointMaxLatencies = 10000
)

// window keeps recent latency samples. When full it drops the older half,
// so percentiles describe recent behavior rather than the whole run.
type window struct {
	mu      sync.Mutex
	samples []int64
	max     int
}

func newWindow(max int) *window {
	return &window{samples: make([]int64, 0, min(max, 1024)), max: max}
}

func (w *window) add(ns int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.samples) >= w.max {
		w.samples = slices.Clone(w.samples[len(w.samples)-w.max/2:])
	}
	w.samples = append(w.samples, ns)
}

func (w *window) stats() LatencyStats {
	w.mu.Lock()
	sorted := slices.Clone(w.samples)
	w.mu.Unlock()

	if len(sorted) == 0 {
		return LatencyStats{}
	}
	slices.Sort(sorted)

	var sum int64
	for _, v := range sorted {
		sum += v
	}
	n := len(sorted)
	return LatencyStats{
		Min: time.Duration(sorted[0]),
		Avg: time.Duration(sum / int64(n)),
		P50: time.Duration(sorted[percentileIndex(n, 0.50)]),
		P95: time.Duration(sorted[percentileIndex(n, 0.95)]),
		P99: time.Duration(sorted[percentileIndex(n, 0.99)]),
		Max: time.Duration(sorted[n-1]),
	}
}

// percentileIndex returns the index for a given percentile.
func percentileIndex(n int, percentile float64) int {
	idx := int(float64(n) * percentile)
	if idx >= n {
		idx = n - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// LatencyStats summarizes a latency distribution.
type LatencyStats struct {
	Min time.Duration
	Avg time.Duration
	P50 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration
}

type endpointStats struct {
	requests  atomic.Int64
	failures  atomic.Int64
	bytes     atomic.Int64
	latencies *window
}

// EndpointSnapshot is the per-endpoint part of a Snapshot.
type EndpointSnapshot struct {
	Name        string
	Requests    int64
	Failures    int64
	Bytes       int64
	Latency     LatencyStats
	SuccessRate float64
	QPS         float64
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	Requests        int64
	Successes       int64
	Failures        int64
	TransportErrors int64
	Bytes           int64
	Latency         LatencyStats
	SuccessRate     float64 // 0-100
	QPS             float64

	ReviewsCreated  int64
	SessionsStarted int64
	SessionsAborted int64
	SessionsStopped int64

	StatusCodes map[int]int64
	Tasks       map[string]int64
	Endpoints   map[string]EndpointSnapshot
}

// ActiveSessions is the number of sessions registered and not yet stopped.
func (s Snapshot) ActiveSessions() int64 {
	return s.SessionsStarted - s.SessionsStopped
}

// Collector counts everything a run does. Observe is meant to be installed
// as a client hook; the session methods make it a session observer.
// Safe for concurrent use.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	endTime   time.Time

	requests        atomic.Int64
	successes       atomic.Int64
	transportErrors atomic.Int64
	bytes           atomic.Int64
	reviewsCreated  atomic.Int64
	sessionsStarted atomic.Int64
	sessionsAborted atomic.Int64
	sessionsStopped atomic.Int64

	latencies *window

	endpointsMu sync.Mutex
	endpoints   map[string]*endpointStats

	statusMu    sync.Mutex
	statusCodes map[int]int64

	tasksMu sync.Mutex
	tasks   map[string]int64
}

// NewCollector returns an empty collector.
func NewCollector() *Collector {
	return &Collector{
		latencies:   newWindow(defaultMaxLatencies),
		endpoints:   make(map[string]*endpointStats),
		statusCodes: make(map[int]int64),
		tasks:       make(map[string]int64),
	}
}

// Start marks the beginning of the run.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.startTime = time.Now()
	c.endTime = time.Time{}
}

// Stop marks the end of the run.
func (c *Collector) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.endTime = time.Now()
}

// Observe records one finished call.
func (c *Collector) Observe(r client.Result) {
	c.requests.Add(1)
	if r.Success() {
		c.successes.Add(1)
	}
	if r.Err != nil {
		c.transportErrors.Add(1)
	}
	c.bytes.Add(r.ResponseSize)
	c.latencies.add(r.Latency.Nanoseconds())

	if r.StatusCode > 0 {
		c.statusMu.Lock()
		c.statusCodes[r.StatusCode]++
		c.statusMu.Unlock()
	}

	if IsReviewCreation(r) {
		c.reviewsCreated.Add(1)
	}

	if r.Endpoint != "" {
		ep := c.endpoint(r.Endpoint)
		ep.requests.Add(1)
		if !r.Success() {
			ep.failures.Add(1)
		}
		ep.bytes.Add(r.ResponseSize)
		ep.latencies.add(r.Latency.Nanoseconds())
	}
}

func (c *Collector) endpoint(name string) *endpointStats {
	c.endpointsMu.Lock()
	defer c.endpointsMu.Unlock()
	ep, ok := c.endpoints[name]
	if !ok {
		ep = &endpointStats{latencies: newWindow(defaultEndpointMaxLatencies)}
		c.endpoints[name] = ep
	}
	return ep
}

func (c *Collector) SessionStarted() { c.sessionsStarted.Add(1) }
func (c *Collector) SessionAborted() { c.sessionsAborted.Add(1) }
func (c *Collector) SessionStopped() { c.sessionsStopped.Add(1) }

func (c *Collector) TaskExecuted(name string) {
	c.tasksMu.Lock()
	defer c.tasksMu.Unlock()
	c.tasks[name]++
}

// ReviewsCreated returns the number of reviews the service accepted.
func (c *Collector) ReviewsCreated() int64 {
	return c.reviewsCreated.Load()
}

// Duration returns the elapsed time since Start, or the run length after Stop.
func (c *Collector) Duration() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	switch {
	case c.startTime.IsZero():
		return 0
	case c.endTime.IsZero():
		return time.Since(c.startTime)
	default:
		return c.endTime.Sub(c.startTime)
	}
}

// Snapshot copies the current state.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	start, end := c.startTime, c.endTime
	c.mu.RUnlock()

	s := Snapshot{
		StartTime:       start,
		EndTime:         end,
		Duration:        c.Duration(),
		Requests:        c.requests.Load(),
		Successes:       c.successes.Load(),
		TransportErrors: c.transportErrors.Load(),
		Bytes:           c.bytes.Load(),
		Latency:         c.latencies.stats(),
		ReviewsCreated:  c.reviewsCreated.Load(),
		SessionsStarted: c.sessionsStarted.Load(),
		SessionsAborted: c.sessionsAborted.Load(),
		SessionsStopped: c.sessionsStopped.Load(),
	}
	s.Failures = s.Requests - s.Successes
	if s.Requests > 0 {
		s.SuccessRate = float64(s.Successes) / float64(s.Requests) * 100
	}
	if s.Duration > 0 {
		s.QPS = float64(s.Requests) / s.Duration.Seconds()
	}

	c.statusMu.Lock()
	s.StatusCodes = maps.Clone(c.statusCodes)
	c.statusMu.Unlock()

	c.tasksMu.Lock()
	s.Tasks = maps.Clone(c.tasks)
	c.tasksMu.Unlock()

	c.endpointsMu.Lock()
	eps := maps.Clone(c.endpoints)
	c.endpointsMu.Unlock()

	s.Endpoints = make(map[string]EndpointSnapshot, len(eps))
	for name, ep := range eps {
		snap := EndpointSnapshot{
			Name:     name,
			Requests: ep.requests.Load(),
			Failures: ep.failures.Load(),
			Bytes:    ep.bytes.Load(),
			Latency:  ep.latencies.stats(),
		}
		if snap.Requests > 0 {
			snap.SuccessRate = float64(snap.Requests-snap.Failures) / float64(snap.Requests) * 100
		}
		if s.Duration > 0 {
			snap.QPS = float64(snap.Requests) / s.Duration.Seconds()
		}
		s.Endpoints[name] = snap
	}
	return s
}
