package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Keys understood by Overlay. Each is read from LOADGEN_<KEY> (dots become
// underscores) and may additionally be bound to a command-line flag.
const (
	KeyHost              = "host"
	KeyTimeout           = "timeout"
	KeyUsers             = "users"
	KeySpawnRate         = "spawn_rate"
	KeyDuration          = "duration"
	KeySeed              = "seed"
	KeyRateLimitQPS      = "rate_limit.qps"
	KeyLogLevel          = "log.level"
	KeyLogFormat         = "log.format"
	KeyPrometheusEnabled = "prometheus.enabled"
	KeyPrometheusPort    = "prometheus.port"
	KeyVerbose           = "verbose"
	KeyReportJSON        = "report.json"
)

// HostEnv is the environment variable that names the service root.
const HostEnv = "API_HOST"

// NewViper returns a viper instance wired to the environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("LOADGEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv(KeyHost, HostEnv, "LOADGEN_HOST")
	for _, key := range []string{
		KeyTimeout, KeyUsers, KeySpawnRate, KeyDuration, KeySeed, KeyRateLimitQPS,
		KeyLogLevel, KeyLogFormat, KeyPrometheusEnabled, KeyPrometheusPort, KeyVerbose, KeyReportJSON,
	} {
		_ = v.BindEnv(key)
	}
	return v
}

// Overlay copies every key set in v onto c and re-validates the result.
func (c *Config) Overlay(v *viper.Viper) error {
	if v.IsSet(KeyHost) {
		if host := strings.TrimSpace(v.GetString(KeyHost)); host != "" {
			c.Target.BaseURL = strings.TrimRight(host, "/")
		}
	}
	if v.IsSet(KeyTimeout) {
		c.Target.Timeout = v.GetDuration(KeyTimeout)
	}
	if v.IsSet(KeyUsers) {
		c.Users = v.GetInt(KeyUsers)
	}
	if v.IsSet(KeySpawnRate) {
		c.SpawnRate = v.GetFloat64(KeySpawnRate)
	}
	if v.IsSet(KeyDuration) {
		c.Duration = v.GetDuration(KeyDuration)
	}
	if v.IsSet(KeySeed) {
		c.Seed = v.GetUint64(KeySeed)
	}
	if v.IsSet(KeyRateLimitQPS) {
		c.RateLimit.QPS = v.GetFloat64(KeyRateLimitQPS)
	}
	if v.IsSet(KeyLogLevel) {
		c.Log.Level = v.GetString(KeyLogLevel)
	}
	if v.IsSet(KeyLogFormat) {
		c.Log.Format = v.GetString(KeyLogFormat)
	}
	if v.IsSet(KeyPrometheusEnabled) {
		c.Output.Prometheus.Enabled = v.GetBool(KeyPrometheusEnabled)
	}
	if v.IsSet(KeyPrometheusPort) {
		c.Output.Prometheus.Port = v.GetInt(KeyPrometheusPort)
	}
	if v.IsSet(KeyVerbose) {
		c.Output.Verbose = v.GetBool(KeyVerbose)
	}
	if v.IsSet(KeyReportJSON) {
		c.Output.JSONFile = v.GetString(KeyReportJSON)
	}

	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return fmt.Errorf("after environment overrides: %w", err)
	}
	return nil
}

// Load builds the effective configuration: defaults, then the optional YAML
// file at path, then whatever v carries.
func Load(path string, v *viper.Viper) (*Config, error) {
	cfg := Default()
	if path != "" {
		loaded, err := LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if v == nil {
		v = NewViper()
	}
	if err := cfg.Overlay(v); err != nil {
		return nil, err
	}
	return cfg, nil
}
