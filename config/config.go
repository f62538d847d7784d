package config

import (
	"time"

	"github.com/fsn-capital/gocommon/observe"
	"github.com/fsn-capital/gocommon/resilience"
)

// Config is the root configuration.
type Config struct {
	Service   string          `yaml:"service"`
	Version   string          `yaml:"version,omitempty"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry"`
}

// LoggingConfig configures the process logger.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	Enabled   bool    `yaml:"enabled"`
	Exporter  string  `yaml:"exporter"`
	SamplePct float64 `yaml:"sample_pct"`
}

// MetricsConfig configures metric export. Listen is the address serving
// /metrics and the health endpoints.
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"`
	Listen   string `yaml:"listen"`
}

// RateLimitConfig configures the windowed rate limiter.
type RateLimitConfig struct {
	Enabled        bool          `yaml:"enabled"`
	Calls          int           `yaml:"calls"`
	Period         time.Duration `yaml:"period"`
	Wake           string        `yaml:"wake"`
	AllowOvershoot bool          `yaml:"allow_overshoot"`
}

// RetryConfig configures the retrier.
type RetryConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Kind     string        `yaml:"kind"`
	WaitGen  string        `yaml:"wait_gen"`
	Base     time.Duration `yaml:"base"`
	Factor   float64       `yaml:"factor"`
	MaxValue time.Duration `yaml:"max_value"`
	MaxTries int           `yaml:"max_tries"`
	MaxTime  time.Duration `yaml:"max_time"`
	Jitter   string        `yaml:"jitter"`
}

// Default returns the configuration of the remote clients: 15 calls per
// 15 minute window, and up to eight exponential attempts with full jitter.
func Default() *Config {
	retry := resilience.DefaultRetrierConfig()
	return &Config{
		Service: "callguard",
		Logging: LoggingConfig{
			Level:  "info",
			Format: observe.FormatJSON,
		},
		Tracing: TracingConfig{
			Exporter:  "none",
			SamplePct: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Exporter: "prometheus",
			Listen:   ":9464",
		},
		RateLimit: RateLimitConfig{
			Enabled: true,
			Calls:   15,
			Period:  900 * time.Second,
			Wake:    resilience.WakeBounded.String(),
		},
		Retry: RetryConfig{
			Enabled:  true,
			Kind:     string(retry.Kind),
			WaitGen:  retry.WaitGen,
			Base:     retry.Base,
			Factor:   retry.Factor,
			MaxTries: retry.MaxTries,
			Jitter:   "full",
		},
	}
}
