package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GOCOMMON_"

// DotEnvFile is loaded into the environment by Load when it exists.
// Variables already set in the environment take precedence.
var DotEnvFile = ".env"

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), and GOCOMMON_* environment variables, then validates it.
func Load(path string) (*Config, error) {
	if err := loadDotEnv(DotEnvFile); err != nil {
		return nil, err
	}

	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded, err := ExpandEnvStrict(string(data))
	if err != nil {
		return fmt.Errorf("config: expand %s: %w", path, err)
	}

	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

// applyEnv overlays GOCOMMON_* variables. Unparsable values are collected
// and reported together.
func (c *Config) applyEnv() error {
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q", ErrInvalidEnv, EnvPrefix, key, v))
				return
			}
			*dst = b
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			i, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q", ErrInvalidEnv, EnvPrefix, key, v))
				return
			}
			*dst = i
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q", ErrInvalidEnv, EnvPrefix, key, v))
				return
			}
			*dst = f
		}
	}
	duration := func(key string, dst *time.Duration) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s%s=%q", ErrInvalidEnv, EnvPrefix, key, v))
				return
			}
			*dst = d
		}
	}

	str("SERVICE", &c.Service)
	str("LOG_LEVEL", &c.Logging.Level)
	str("LOG_FORMAT", &c.Logging.Format)

	boolean("TRACING_ENABLED", &c.Tracing.Enabled)
	str("TRACING_EXPORTER", &c.Tracing.Exporter)
	float("TRACING_SAMPLE_PCT", &c.Tracing.SamplePct)

	boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	str("METRICS_EXPORTER", &c.Metrics.Exporter)
	str("METRICS_LISTEN", &c.Metrics.Listen)

	boolean("RATE_LIMIT_ENABLED", &c.RateLimit.Enabled)
	integer("RATE_LIMIT_CALLS", &c.RateLimit.Calls)
	duration("RATE_LIMIT_PERIOD", &c.RateLimit.Period)
	str("RATE_LIMIT_WAKE", &c.RateLimit.Wake)
	boolean("RATE_LIMIT_ALLOW_OVERSHOOT", &c.RateLimit.AllowOvershoot)

	boolean("RETRY_ENABLED", &c.Retry.Enabled)
	str("RETRY_KIND", &c.Retry.Kind)
	str("RETRY_WAIT_GEN", &c.Retry.WaitGen)
	duration("RETRY_BASE", &c.Retry.Base)
	float("RETRY_FACTOR", &c.Retry.Factor)
	duration("RETRY_MAX_VALUE", &c.Retry.MaxValue)
	integer("RETRY_MAX_TRIES", &c.Retry.MaxTries)
	duration("RETRY_MAX_TIME", &c.Retry.MaxTime)
	str("RETRY_JITTER", &c.Retry.Jitter)

	return errors.Join(errs...)
}
