package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"

	"github.com/example/restarate/loadgen/internal/client"
)

// Prometheus metric names, without namespace.
const (
	MetricRequestsTotal          = "requests_total"
	MetricRequestDurationSeconds = "request_duration_seconds"
	MetricResponseBytesTotal     = "response_bytes_total"
	MetricReviewsCreatedTotal    = "reviews_created_total"
	MetricSessionsTotal          = "sessions_total"
	MetricActiveSessions         = "active_sessions"
	MetricTasksTotal             = "tasks_total"
)

// PrometheusExporterConfig holds configuration for the Prometheus exporter.
type PrometheusExporterConfig struct {
	// Port is the HTTP port for the metrics endpoint.
	// Default: 9090
	Port int

	// Addr overrides Port with a full listen address such as "127.0.0.1:0".
	Addr string

	// Path is the URL path for the metrics endpoint.
	// Default: /metrics
	Path string

	// Namespace prefixes every metric.
	// Default: "restarate_loadgen"
	Namespace string

	// HistogramBuckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	HistogramBuckets []float64
}

// PrometheusExporter serves run metrics for scraping. It implements Recorder.
// Safe for concurrent use.
type PrometheusExporter struct {
	mu     sync.RWMutex
	config PrometheusExporterConfig

	registry *prometheus.Registry

	requests       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	responseBytes  prometheus.Counter
	reviewsCreated prometheus.Counter
	sessions       *prometheus.CounterVec
	activeSessions prometheus.Gauge
	tasks          *prometheus.CounterVec

	server    *http.Server
	ln        net.Listener
	running   bool
	lastError error
}

// NewPrometheusExporter creates an exporter with its own registry.
func NewPrometheusExporter(config PrometheusExporterConfig) *PrometheusExporter {
	if config.Port == 0 {
		config.Port = 9090
	}
	if config.Path == "" {
		config.Path = "/metrics"
	}
	if config.Namespace == "" {
		config.Namespace = "restarate_loadgen"
	}
	if len(config.HistogramBuckets) == 0 {
		config.HistogramBuckets = prometheus.DefBuckets
	}

	e := &PrometheusExporter{config: config, registry: prometheus.NewRegistry()}
	ns := config.Namespace

	e.requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      MetricRequestsTotal,
		Help:      "Calls made against the restaurant service, by endpoint and status (0 = no response).",
	}, []string{"endpoint", "status"})
	e.duration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: ns,
		Name:      MetricRequestDurationSeconds,
		Help:      "Call latency in seconds.",
		Buckets:   config.HistogramBuckets,
	}, []string{"endpoint"})
	e.responseBytes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      MetricResponseBytesTotal,
		Help:      "Response bytes received.",
	})
	e.reviewsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns,
		Name:      MetricReviewsCreatedTotal,
		Help:      "Reviews accepted by POST /reviews.",
	})
	e.sessions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      MetricSessionsTotal,
		Help:      "Virtual user lifecycle events.",
	}, []string{"event"})
	e.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns,
		Name:      MetricActiveSessions,
		Help:      "Registered virtual users not yet stopped.",
	})
	e.tasks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns,
		Name:      MetricTasksTotal,
		Help:      "Executed virtual user tasks.",
	}, []string{"task"})

	e.registry.MustRegister(
		e.requests,
		e.duration,
		e.responseBytes,
		e.reviewsCreated,
		e.sessions,
		e.activeSessions,
		e.tasks,
	)
	return e
}

// Observe records one finished call.
func (e *PrometheusExporter) Observe(r client.Result) {
	e.requests.WithLabelValues(r.Endpoint, strconv.Itoa(r.StatusCode)).Inc()
	e.duration.WithLabelValues(r.Endpoint).Observe(r.Latency.Seconds())
	e.responseBytes.Add(float64(r.ResponseSize))
	if IsReviewCreation(r) {
		e.reviewsCreated.Inc()
	}
}

func (e *PrometheusExporter) SessionStarted() {
	e.sessions.WithLabelValues("started").Inc()
	e.activeSessions.Inc()
}

func (e *PrometheusExporter) SessionAborted() {
	e.sessions.WithLabelValues("aborted").Inc()
}

func (e *PrometheusExporter) SessionStopped() {
	e.sessions.WithLabelValues("stopped").Inc()
	e.activeSessions.Dec()
}

func (e *PrometheusExporter) TaskExecuted(name string) {
	e.tasks.WithLabelValues(name).Inc()
}

// Start serves the metrics endpoint and /health. Starting twice is a no-op.
func (e *PrometheusExporter) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return nil
	}

	addr := e.config.Addr
	if addr == "" {
		addr = fmt.Sprintf(":%d", e.config.Port)
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("starting Prometheus exporter: %w", err)
	}
	e.ln = ln

	mux := http.NewServeMux()
	mux.Handle(e.config.Path, promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	e.server = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srv := e.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			e.mu.Lock()
			e.lastError = err
			e.mu.Unlock()
		}
	}()

	e.running = true
	return nil
}

// Stop shuts the HTTP server down.
func (e *PrometheusExporter) Stop(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return nil
	}
	e.running = false
	return e.server.Shutdown(ctx)
}

// Address returns the URL of the metrics endpoint.
func (e *PrometheusExporter) Address() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.ln != nil {
		if tcp, ok := e.ln.Addr().(*net.TCPAddr); ok {
			return fmt.Sprintf("http://localhost:%d%s", tcp.Port, e.config.Path)
		}
	}
	return fmt.Sprintf("http://localhost:%d%s", e.config.Port, e.config.Path)
}

// IsRunning returns whether the exporter is serving.
func (e *PrometheusExporter) IsRunning() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.running
}

// LastError returns the last error from the HTTP server, if any.
func (e *PrometheusExporter) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastError
}

// Gather collects all metric families.
func (e *PrometheusExporter) Gather() ([]*dto.MetricFamily, error) {
	return e.registry.Gather()
}
