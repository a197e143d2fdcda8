// Package config loads the signup server configuration from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/nomis52/signup/activities"
)

const (
	defaultListenAddr    = ":8080"
	defaultRedisAddr     = "localhost:6379"
	defaultRedisPrefix   = "signup"
	defaultMetricsPrefix = "signup"
	defaultJobName       = "signup"

	defaultLogLevel  = "info"
	defaultLogFormat = "json"
	defaultLogOutput = "stderr"

	// BackendMemory keeps rosters in process memory.
	BackendMemory = "memory"
	// BackendRedis keeps rosters in Redis.
	BackendRedis = "redis"

	redacted = "REDACTED"
)

// ServerConfig represents the complete server configuration.
type ServerConfig struct {
	Listener   ListenerConfig   `yaml:"listener"`
	Logging    LoggingConfig    `yaml:"logging"`
	Store      StoreConfig      `yaml:"store"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
	// ResetSchedule is an optional 5 field cron spec. When set, every roster
	// is restored to its seeded participants on that schedule.
	ResetSchedule string `yaml:"reset_schedule"`
	// Activities replaces the default catalog when non-empty.
	Activities []activities.Definition `yaml:"activities"`
}

// ListenerConfig holds HTTP listener settings.
type ListenerConfig struct {
	// The listen address, defaults to :8080
	Addr string `yaml:"addr"`
	// TLSCert and TLSKey enable HTTPS. Both or neither must be set.
	TLSCert string `yaml:"tls_cert"`
	TLSKey  string `yaml:"tls_key"`
}

// LoggingConfig defines logging behavior settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	Format    string `yaml:"format"`
	Output    string `yaml:"output"`
	AddSource bool   `yaml:"add_source"`
}

// StoreConfig selects where rosters are kept.
type StoreConfig struct {
	// Backend is "memory" (default) or "redis".
	Backend string      `yaml:"backend"`
	Redis   RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis connection settings for the redis backend.
type RedisConfig struct {
	Addr      string `yaml:"addr"`
	Password  string `yaml:"password"`
	DB        int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// MonitoringConfig holds metrics settings.
type MonitoringConfig struct {
	// RemoteWriteURL switches metrics to push mode. When empty metrics are
	// served on /metrics.
	RemoteWriteURL string `yaml:"remote_write_url"`
	MetricsPrefix  string `yaml:"metrics_prefix"`
	JobName        string `yaml:"job_name"`
}

// Default returns the configuration used when no config file is given.
func Default() *ServerConfig {
	cfg := &ServerConfig{}
	cfg.SetDefaults()
	return cfg
}

// LoadConfig reads the YAML config file at the given path, applies defaults
// and validates the result.
func LoadConfig(path string) (*ServerConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()

	var cfg ServerConfig
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	// An empty file is a valid config that uses every default.
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode YAML config: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// SetDefaults sets reasonable default values for optional fields.
func (c *ServerConfig) SetDefaults() {
	if c.Listener.Addr == "" {
		c.Listener.Addr = defaultListenAddr
	}
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	if c.Logging.Output == "" {
		c.Logging.Output = defaultLogOutput
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendMemory
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = defaultRedisAddr
	}
	if c.Store.Redis.KeyPrefix == "" {
		c.Store.Redis.KeyPrefix = defaultRedisPrefix
	}
	if c.Monitoring.MetricsPrefix == "" {
		c.Monitoring.MetricsPrefix = defaultMetricsPrefix
	}
	if c.Monitoring.JobName == "" {
		c.Monitoring.JobName = defaultJobName
	}
	if len(c.Activities) == 0 {
		c.Activities = activities.DefaultCatalog()
	}
}

// Validate performs basic validation on the configuration.
func (c *ServerConfig) Validate() error {
	var errs []error

	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend must be %q or %q, got %q", BackendMemory, BackendRedis, c.Store.Backend))
	}

	if (c.Listener.TLSCert == "") != (c.Listener.TLSKey == "") {
		errs = append(errs, errors.New("listener.tls_cert and listener.tls_key must be set together"))
	}

	if c.ResetSchedule != "" {
		if _, err := cron.ParseStandard(c.ResetSchedule); err != nil {
			errs = append(errs, fmt.Errorf("reset_schedule: %w", err))
		}
	}

	if err := activities.ValidateCatalog(c.Activities); err != nil {
		errs = append(errs, fmt.Errorf("activities: %w", err))
	}

	return errors.Join(errs...)
}

// TLSEnabled reports whether the listener serves HTTPS.
func (c *ServerConfig) TLSEnabled() bool {
	return c.Listener.TLSCert != ""
}

// Redacted returns a copy of the configuration with secrets replaced.
func (c *ServerConfig) Redacted() *ServerConfig {
	out := *c
	if out.Store.Redis.Password != "" {
		out.Store.Redis.Password = redacted
	}
	return &out
}
