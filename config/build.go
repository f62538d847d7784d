package config

import (
	"fmt"
	"io"

	"github.com/fsn-capital/gocommon/observe"
	"github.com/fsn-capital/gocommon/resilience"
)

// Options returns the limiter configuration. Hooks, clock and logger are
// left for the caller.
func (r RateLimitConfig) Options() (resilience.RateLimiterConfig, error) {
	wake, err := resilience.ParseWakePolicy(r.Wake)
	if err != nil {
		return resilience.RateLimiterConfig{}, fmt.Errorf("%w: rate_limit.wake: %w", ErrInvalid, err)
	}
	return resilience.RateLimiterConfig{
		MaxCalls:       r.Calls,
		Period:         r.Period,
		Wake:           wake,
		AllowOvershoot: r.AllowOvershoot,
	}, nil
}

// Options returns the retrier configuration. Hooks, predicates, clock and
// logger are left for the caller.
func (r RetryConfig) Options() (resilience.RetrierConfig, error) {
	jitter, err := resilience.JitterByName(r.Jitter)
	if err != nil {
		return resilience.RetrierConfig{}, fmt.Errorf("%w: retry.jitter: %w", ErrInvalid, err)
	}
	return resilience.RetrierConfig{
		Kind:     resilience.Kind(r.Kind),
		WaitGen:  r.WaitGen,
		Base:     r.Base,
		Factor:   r.Factor,
		MaxValue: r.MaxValue,
		MaxTries: r.MaxTries,
		MaxTime:  r.MaxTime,
		Jitter:   jitter,
	}, nil
}

// Observe maps the telemetry sections onto an observe.Config that logs to w.
func (c *Config) Observe(w io.Writer) observe.Config {
	return observe.Config{
		ServiceName: c.Service,
		Version:     c.Version,
		Tracing: observe.TracingConfig{
			Enabled:   c.Tracing.Enabled,
			Exporter:  c.Tracing.Exporter,
			SamplePct: c.Tracing.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  c.Metrics.Enabled,
			Exporter: c.Metrics.Exporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   c.Logging.Level,
			Format:  c.Logging.Format,
			Writer:  w,
		},
	}
}
