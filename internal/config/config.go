// Package config provides configuration structures for the load generator.
// Values come from built-in defaults, an optional YAML file, environment
// variables and command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/example/restarate/loadgen/internal/logger"
)

// Errors returned by the config package.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("config: invalid configuration")
	// ErrConfigNotFound is returned when the config file is not found.
	ErrConfigNotFound = errors.New("config: configuration file not found")
)

// DefaultBaseURL is used when neither the file nor API_HOST names a target.
const DefaultBaseURL = "http://localhost:8080"

// Config is the root configuration structure for the load generator.
type Config struct {
	// Name is a descriptive name for this run.
	Name string `yaml:"name" json:"name"`

	// Target describes the restaurant service under test.
	Target TargetConfig `yaml:"target" json:"target"`

	// Duration is how long users stay active. Zero runs until interrupted.
	Duration time.Duration `yaml:"duration" json:"duration"`

	// Users is the number of virtual users to spawn.
	// Default: 10
	Users int `yaml:"users" json:"users"`

	// SpawnRate is how many users are started per second.
	// Default: 1
	SpawnRate float64 `yaml:"spawnRate" json:"spawnRate"`

	// WaitTime bounds the pause between two tasks of one user.
	WaitTime WaitTimeConfig `yaml:"waitTime" json:"waitTime"`

	// Seed makes user randomness reproducible. Zero seeds from crypto/rand.
	Seed uint64 `yaml:"seed,omitempty" json:"seed,omitempty"`

	// Tasks holds the relative weight of each user behavior.
	Tasks TaskWeights `yaml:"tasks" json:"tasks"`

	// Behavior holds the probabilities used inside the behaviors.
	Behavior BehaviorConfig `yaml:"behavior" json:"behavior"`

	// Registration configures the user registration step.
	Registration RegistrationConfig `yaml:"registration" json:"registration"`

	// RateLimit caps the aggregate request rate across all users.
	RateLimit RateLimitConfig `yaml:"rateLimit,omitempty" json:"rateLimit,omitempty"`

	// Log configures logging.
	Log logger.Config `yaml:"log" json:"log"`

	// Output configures progress reporting and metrics export.
	Output OutputConfig `yaml:"output,omitempty" json:"output,omitempty"`

	// Assertions are SLO thresholds checked once the run is over.
	Assertions AssertionsConfig `yaml:"assertions,omitempty" json:"assertions,omitempty"`
}

// TargetConfig holds target system configuration.
type TargetConfig struct {
	// BaseURL is the service root (e.g., "http://localhost:8080").
	// Default: API_HOST or http://localhost:8080
	BaseURL string `yaml:"baseURL" json:"baseURL"`

	// Timeout bounds every single call.
	// Default: 5s
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`

	// TLSSkipVerify skips TLS certificate verification (for testing only).
	TLSSkipVerify bool `yaml:"tlsSkipVerify,omitempty" json:"tlsSkipVerify,omitempty"`

	// Headers are additional headers to include in all requests.
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// WaitTimeConfig is the uniform think-time range.
type WaitTimeConfig struct {
	// Default: 500ms
	Min time.Duration `yaml:"min" json:"min"`
	// Default: 2.5s
	Max time.Duration `yaml:"max" json:"max"`
}

// TaskWeights are the relative frequencies of the four behaviors.
// A zero weight disables the behavior.
type TaskWeights struct {
	Dishes  int `yaml:"dishes" json:"dishes"`
	Reviews int `yaml:"reviews" json:"reviews"`
	Social  int `yaml:"social" json:"social"`
	Profile int `yaml:"profile" json:"profile"`
}

// Total returns the sum of all weights.
func (w TaskWeights) Total() int {
	return w.Dishes + w.Reviews + w.Social + w.Profile
}

// BehaviorConfig holds the sub-action probabilities. Each "un" probability
// is drawn only after the corresponding positive action was not taken.
type BehaviorConfig struct {
	LikeDish      float64 `yaml:"likeDish" json:"likeDish"`
	UnlikeDish    float64 `yaml:"unlikeDish" json:"unlikeDish"`
	CreateReview  float64 `yaml:"createReview" json:"createReview"`
	LikeReview    float64 `yaml:"likeReview" json:"likeReview"`
	UnlikeReview  float64 `yaml:"unlikeReview" json:"unlikeReview"`
	AddFriend     float64 `yaml:"addFriend" json:"addFriend"`
	RemoveFriend  float64 `yaml:"removeFriend" json:"removeFriend"`
	UpdateProfile float64 `yaml:"updateProfile" json:"updateProfile"`
}

// RegistrationConfig configures user registration.
type RegistrationConfig struct {
	// Attempts is the number of POST /users tries before a user aborts.
	// Default: 2
	Attempts int `yaml:"attempts" json:"attempts"`
}

// RateLimitConfig configures the shared token bucket. QPS zero disables it.
type RateLimitConfig struct {
	QPS   float64 `yaml:"qps" json:"qps"`
	Burst int     `yaml:"burst,omitempty" json:"burst,omitempty"`
}

// OutputConfig configures output and reporting.
type OutputConfig struct {
	// ReportInterval is how often progress is logged.
	// Default: 10s
	ReportInterval time.Duration `yaml:"reportInterval,omitempty" json:"reportInterval,omitempty"`

	// Verbose enables per-endpoint rows in the final report.
	Verbose bool `yaml:"verbose,omitempty" json:"verbose,omitempty"`

	// Prometheus configures the optional metrics endpoint.
	Prometheus PrometheusConfig `yaml:"prometheus,omitempty" json:"prometheus,omitempty"`

	// JSONFile is where the JSON report is written. Empty disables it.
	// Supports {{.Timestamp}}, {{.Date}} and {{.Time}}.
	JSONFile string `yaml:"jsonFile,omitempty" json:"jsonFile,omitempty"`
}

// PrometheusConfig configures the metrics exporter.
type PrometheusConfig struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	// Default: 9090
	Port int `yaml:"port,omitempty" json:"port,omitempty"`
	// Default: /metrics
	Path string `yaml:"path,omitempty" json:"path,omitempty"`
}

// AssertionsConfig holds the thresholds a finished run must meet.
type AssertionsConfig struct {
	Global *GlobalAssertions `yaml:"global,omitempty" json:"global,omitempty"`

	// Endpoints is keyed by endpoint label, e.g. "POST /reviews".
	Endpoints map[string]EndpointAssertions `yaml:"endpoints,omitempty" json:"endpoints,omitempty"`

	// ExitOnFailure fails the run when an assertion fails.
	// Default: true
	ExitOnFailure *bool `yaml:"exitOnFailure,omitempty" json:"exitOnFailure,omitempty"`
}

// GlobalAssertions are checked against the whole run. Field order and types
// match metrics.GlobalThresholds.
type GlobalAssertions struct {
	MaxErrorRate       *float64      `yaml:"maxErrorRate,omitempty" json:"maxErrorRate,omitempty"`
	MinSuccessRate     *float64      `yaml:"minSuccessRate,omitempty" json:"minSuccessRate,omitempty"`
	MaxP50Latency      time.Duration `yaml:"maxP50Latency,omitempty" json:"maxP50Latency,omitempty"`
	MaxP95Latency      time.Duration `yaml:"maxP95Latency,omitempty" json:"maxP95Latency,omitempty"`
	MaxP99Latency      time.Duration `yaml:"maxP99Latency,omitempty" json:"maxP99Latency,omitempty"`
	MaxAvgLatency      time.Duration `yaml:"maxAvgLatency,omitempty" json:"maxAvgLatency,omitempty"`
	MinThroughput      *float64      `yaml:"minThroughput,omitempty" json:"minThroughput,omitempty"`
	MinRequests        int64         `yaml:"minRequests,omitempty" json:"minRequests,omitempty"`
	MinReviewsCreated  int64         `yaml:"minReviewsCreated,omitempty" json:"minReviewsCreated,omitempty"`
	MaxSessionsAborted *int64        `yaml:"maxSessionsAborted,omitempty" json:"maxSessionsAborted,omitempty"`
}

// EndpointAssertions are checked against one endpoint. Field order and
// types match metrics.Thresholds.
type EndpointAssertions struct {
	MaxErrorRate   *float64      `yaml:"maxErrorRate,omitempty" json:"maxErrorRate,omitempty"`
	MinSuccessRate *float64      `yaml:"minSuccessRate,omitempty" json:"minSuccessRate,omitempty"`
	MaxP50Latency  time.Duration `yaml:"maxP50Latency,omitempty" json:"maxP50Latency,omitempty"`
	MaxP95Latency  time.Duration `yaml:"maxP95Latency,omitempty" json:"maxP95Latency,omitempty"`
	MaxP99Latency  time.Duration `yaml:"maxP99Latency,omitempty" json:"maxP99Latency,omitempty"`
	MaxAvgLatency  time.Duration `yaml:"maxAvgLatency,omitempty" json:"maxAvgLatency,omitempty"`
	MinThroughput  *float64      `yaml:"minThroughput,omitempty" json:"minThroughput,omitempty"`
	MinRequests    int64         `yaml:"minRequests,omitempty" json:"minRequests,omitempty"`
	Disabled       bool          `yaml:"disabled,omitempty" json:"disabled,omitempty"`
}

// Default returns the configuration of a stock run against localhost.
func Default() *Config {
	return &Config{
		Name: "restarate",
		Target: TargetConfig{
			BaseURL: DefaultBaseURL,
			Timeout: 5 * time.Second,
		},
		Users:     10,
		SpawnRate: 1,
		WaitTime: WaitTimeConfig{
			Min: 500 * time.Millisecond,
			Max: 2500 * time.Millisecond,
		},
		Tasks: TaskWeights{Dishes: 4, Reviews: 3, Social: 2, Profile: 1},
		Behavior: BehaviorConfig{
			LikeDish:      0.3,
			UnlikeDish:    0.1,
			CreateReview:  0.2,
			LikeReview:    0.25,
			UnlikeReview:  0.1,
			AddFriend:     0.15,
			RemoveFriend:  0.05,
			UpdateProfile: 0.1,
		},
		Registration: RegistrationConfig{Attempts: 2},
		Log:          logger.DefaultConfig(),
		Output: OutputConfig{
			ReportInterval: 10 * time.Second,
			Prometheus:     PrometheusConfig{Port: 9090, Path: "/metrics"},
		},
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes. Keys missing from the
// document keep their default values.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Target.BaseURL == "" {
		return fmt.Errorf("%w: target.baseURL is required", ErrInvalidConfig)
	}
	u, err := url.Parse(c.Target.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w: target.baseURL must be an http(s) URL: %q", ErrInvalidConfig, c.Target.BaseURL)
	}
	if c.Target.Timeout < 0 {
		return fmt.Errorf("%w: target.timeout must not be negative", ErrInvalidConfig)
	}
	if c.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidConfig)
	}
	if c.Users < 1 {
		return fmt.Errorf("%w: users must be at least 1", ErrInvalidConfig)
	}
	if c.SpawnRate <= 0 {
		return fmt.Errorf("%w: spawnRate must be positive", ErrInvalidConfig)
	}
	if c.WaitTime.Min < 0 || c.WaitTime.Max < c.WaitTime.Min {
		return fmt.Errorf("%w: waitTime needs 0 <= min <= max", ErrInvalidConfig)
	}

	weights := map[string]int{
		"dishes":  c.Tasks.Dishes,
		"reviews": c.Tasks.Reviews,
		"social":  c.Tasks.Social,
		"profile": c.Tasks.Profile,
	}
	for name, w := range weights {
		if w < 0 {
			return fmt.Errorf("%w: tasks.%s must not be negative", ErrInvalidConfig, name)
		}
	}
	if c.Tasks.Total() == 0 {
		return fmt.Errorf("%w: at least one task needs a positive weight", ErrInvalidConfig)
	}

	probabilities := map[string]float64{
		"likeDish":      c.Behavior.LikeDish,
		"unlikeDish":    c.Behavior.UnlikeDish,
		"createReview":  c.Behavior.CreateReview,
		"likeReview":    c.Behavior.LikeReview,
		"unlikeReview":  c.Behavior.UnlikeReview,
		"addFriend":     c.Behavior.AddFriend,
		"removeFriend":  c.Behavior.RemoveFriend,
		"updateProfile": c.Behavior.UpdateProfile,
	}
	for name, p := range probabilities {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: behavior.%s must be within [0, 1]", ErrInvalidConfig, name)
		}
	}

	if c.Registration.Attempts < 1 {
		return fmt.Errorf("%w: registration.attempts must be at least 1", ErrInvalidConfig)
	}
	if c.RateLimit.QPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rateLimit values must not be negative", ErrInvalidConfig)
	}
	if p := c.Output.Prometheus.Port; p < 0 || p > 65535 {
		return fmt.Errorf("%w: output.prometheus.port out of range", ErrInvalidConfig)
	}
	return c.Assertions.validate()
}

func (a AssertionsConfig) validate() error {
	if g := a.Global; g != nil {
		if err := checkThresholds("assertions.global", g.MaxErrorRate, g.MinSuccessRate, g.MinThroughput,
			g.MinRequests, g.MaxP50Latency, g.MaxP95Latency, g.MaxP99Latency, g.MaxAvgLatency); err != nil {
			return err
		}
		if g.MinReviewsCreated < 0 || (g.MaxSessionsAborted != nil && *g.MaxSessionsAborted < 0) {
			return fmt.Errorf("%w: assertions.global counts must not be negative", ErrInvalidConfig)
		}
	}
	for name, e := range a.Endpoints {
		if err := checkThresholds("assertions.endpoints."+name, e.MaxErrorRate, e.MinSuccessRate, e.MinThroughput,
			e.MinRequests, e.MaxP50Latency, e.MaxP95Latency, e.MaxP99Latency, e.MaxAvgLatency); err != nil {
			return err
		}
	}
	return nil
}

func checkThresholds(path string, maxErrorRate, minSuccessRate, minThroughput *float64, minRequests int64, latencies ...time.Duration) error {
	for name, pct := range map[string]*float64{"maxErrorRate": maxErrorRate, "minSuccessRate": minSuccessRate} {
		if pct != nil && (*pct < 0 || *pct > 100) {
			return fmt.Errorf("%w: %s.%s must be within [0, 100]", ErrInvalidConfig, path, name)
		}
	}
	if minThroughput != nil && *minThroughput < 0 {
		return fmt.Errorf("%w: %s.minThroughput must not be negative", ErrInvalidConfig, path)
	}
	if minRequests < 0 {
		return fmt.Errorf("%w: %s.minRequests must not be negative", ErrInvalidConfig, path)
	}
	for _, l := range latencies {
		if l < 0 {
			return fmt.Errorf("%w: %s latency limits must not be negative", ErrInvalidConfig, path)
		}
	}
	return nil
}

// ApplyDefaults fills fields whose zero value is never meaningful.
func (c *Config) ApplyDefaults() {
	if c.Name == "" {
		c.Name = "restarate"
	}
	if c.Target.BaseURL == "" {
		c.Target.BaseURL = DefaultBaseURL
	}
	if c.Target.Timeout == 0 {
		c.Target.Timeout = 5 * time.Second
	}
	if c.Registration.Attempts == 0 {
		c.Registration.Attempts = 2
	}
	if c.RateLimit.QPS > 0 && c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = 1
	}
	if c.Output.ReportInterval == 0 {
		c.Output.ReportInterval = 10 * time.Second
	}
	if c.Output.Prometheus.Port == 0 {
		c.Output.Prometheus.Port = 9090
	}
	if c.Output.Prometheus.Path == "" {
		c.Output.Prometheus.Path = "/metrics"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
