package metrics

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// JSONReportVersion is bumped whenever a field changes meaning.
const JSONReportVersion = "1.0.0"

// JSONReport is the machine-readable summary of a run.
type JSONReport struct {
	Metadata      ReportMetadata      `json:"metadata"`
	Configuration ReportConfiguration `json:"configuration"`
	Summary       ReportSummary       `json:"summary"`
	Sessions      SessionReport       `json:"sessions"`
	Endpoints     []EndpointReport    `json:"endpoints"`
	StatusCodes   map[string]int64    `json:"statusCodes"`
	Tasks         map[string]int64    `json:"tasks"`
	Assertions    *AssertionResults   `json:"assertions,omitempty"`
}

// ReportMetadata contains metadata about the report.
type ReportMetadata struct {
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generatedAt"`
	Generator   string    `json:"generator"`
}

// ReportConfiguration captures the settings the run used.
type ReportConfiguration struct {
	Name          string         `json:"name"`
	TargetBaseURL string         `json:"targetBaseURL"`
	Duration      Duration       `json:"duration"`
	Users         int            `json:"users"`
	SpawnRate     float64        `json:"spawnRate"`
	Seed          uint64         `json:"seed,omitempty"`
	RateLimitQPS  float64        `json:"rateLimitQPS,omitempty"`
	TaskWeights   map[string]int `json:"taskWeights,omitempty"`
}

// Duration renders as {"seconds": 1.5, "display": "1.5s"}.
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]any{
		"seconds": d.Seconds(),
		"display": formatDuration(d.Duration),
	})
}

// ReportSummary contains overall request statistics.
type ReportSummary struct {
	StartTime time.Time `json:"startTime"`
	EndTime   time.Time `json:"endTime"`
	Duration  Duration  `json:"duration"`

	TotalRequests   int64 `json:"totalRequests"`
	SuccessRequests int64 `json:"successRequests"`
	FailedRequests  int64 `json:"failedRequests"`
	TransportErrors int64 `json:"transportErrors"`
	TotalBytes      int64 `json:"totalBytes"`

	SuccessRate float64 `json:"successRate"`
	QPS         float64 `json:"qps"`
	BytesPerSec float64 `json:"bytesPerSecond"`

	Latency LatencyReport `json:"latency"`
}

// SessionReport counts virtual users and what they created.
type SessionReport struct {
	Started        int64 `json:"started"`
	Aborted        int64 `json:"aborted"`
	Stopped        int64 `json:"stopped"`
	ReviewsCreated int64 `json:"reviewsCreated"`
}

// LatencyReport holds latencies in milliseconds.
type LatencyReport struct {
	MinMs float64 `json:"minMs"`
	AvgMs float64 `json:"avgMs"`
	P50Ms float64 `json:"p50Ms"`
	P95Ms float64 `json:"p95Ms"`
	P99Ms float64 `json:"p99Ms"`
	MaxMs float64 `json:"maxMs"`
}

// EndpointReport contains statistics for a single endpoint.
type EndpointReport struct {
	Name            string        `json:"name"`
	TotalRequests   int64         `json:"totalRequests"`
	SuccessRequests int64         `json:"successRequests"`
	FailedRequests  int64         `json:"failedRequests"`
	TotalBytes      int64         `json:"totalBytes"`
	SuccessRate     float64       `json:"successRate"`
	QPS             float64       `json:"qps"`
	Latency         LatencyReport `json:"latency"`
}

// NewJSONReport builds a report from a final snapshot. assertions may be nil.
func NewJSONReport(s Snapshot, cfg ReportConfiguration, assertions *AssertionResults) *JSONReport {
	report := &JSONReport{
		Metadata: ReportMetadata{
			Version:     JSONReportVersion,
			GeneratedAt: time.Now().UTC(),
			Generator:   "loadgen",
		},
		Configuration: cfg,
		Summary: ReportSummary{
			StartTime:       s.StartTime,
			EndTime:         s.EndTime,
			Duration:        Duration{s.Duration},
			TotalRequests:   s.Requests,
			SuccessRequests: s.Successes,
			FailedRequests:  s.Failures,
			TransportErrors: s.TransportErrors,
			TotalBytes:      s.Bytes,
			SuccessRate:     s.SuccessRate,
			QPS:             s.QPS,
			Latency:         latencyReport(s.Latency),
		},
		Sessions: SessionReport{
			Started:        s.SessionsStarted,
			Aborted:        s.SessionsAborted,
			Stopped:        s.SessionsStopped,
			ReviewsCreated: s.ReviewsCreated,
		},
		Endpoints:   make([]EndpointReport, 0, len(s.Endpoints)),
		StatusCodes: make(map[string]int64, len(s.StatusCodes)),
		Tasks:       make(map[string]int64, len(s.Tasks)),
		Assertions:  assertions,
	}
	if s.Duration > 0 {
		report.Summary.BytesPerSec = float64(s.Bytes) / s.Duration.Seconds()
	}
	for code, n := range s.StatusCodes {
		report.StatusCodes[strconv.Itoa(code)] = n
	}
	for name, n := range s.Tasks {
		report.Tasks[name] = n
	}
	for _, name := range sortedKeys(s.Endpoints) {
		ep := s.Endpoints[name]
		report.Endpoints = append(report.Endpoints, EndpointReport{
			Name:            name,
			TotalRequests:   ep.Requests,
			SuccessRequests: ep.Requests - ep.Failures,
			FailedRequests:  ep.Failures,
			TotalBytes:      ep.Bytes,
			SuccessRate:     ep.SuccessRate,
			QPS:             ep.QPS,
			Latency:         latencyReport(ep.Latency),
		})
	}
	return report
}

func latencyReport(l LatencyStats) LatencyReport {
	ms := func(d time.Duration) float64 { return float64(d.Nanoseconds()) / 1e6 }
	return LatencyReport{
		MinMs: ms(l.Min),
		AvgMs: ms(l.Avg),
		P50Ms: ms(l.P50),
		P95Ms: ms(l.P95),
		P99Ms: ms(l.P99),
		MaxMs: ms(l.Max),
	}
}

// WriteJSONReport writes report to path, creating parent directories.
// The path may contain {{.Timestamp}} (20060102-150405), {{.Date}} and
// {{.Time}}. It returns the expanded path.
func WriteJSONReport(report *JSONReport, path string) (string, error) {
	expanded := filepath.Clean(expandPathTemplate(path, time.Now()))
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return "", fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(expanded, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	return expanded, nil
}

func expandPathTemplate(path string, now time.Time) string {
	return strings.NewReplacer(
		"{{.Timestamp}}", now.Format("20060102-150405"),
		"{{.Date}}", now.Format("2006-01-02"),
		"{{.Time}}", now.Format("150405"),
	).Replace(path)
}
