package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fsn-capital/gocommon/observe"
	"github.com/fsn-capital/gocommon/resilience"
)

// Validate reports every invalid field, joined with errors.Join. Each
// element is a FieldError.
func (c *Config) Validate() error {
	var errs []error
	add := func(field, format string, args ...any) {
		errs = append(errs, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if c.Service == "" {
		add("service", "is required")
	}

	if !slices.Contains(observe.ValidLogLevels, c.Logging.Level) {
		add("logging.level", "unknown level %q", c.Logging.Level)
	}
	if !slices.Contains(observe.ValidLogFormats, c.Logging.Format) {
		add("logging.format", "unknown format %q", c.Logging.Format)
	}

	if !slices.Contains(observe.ValidTracingExporters, c.Tracing.Exporter) {
		add("tracing.exporter", "unknown exporter %q", c.Tracing.Exporter)
	}
	if c.Tracing.SamplePct < observe.MinSamplePct || c.Tracing.SamplePct > observe.MaxSamplePct {
		add("tracing.sample_pct", "must be between %.1f and %.1f, got %g", observe.MinSamplePct, observe.MaxSamplePct, c.Tracing.SamplePct)
	}

	if !slices.Contains(observe.ValidMetricsExporters, c.Metrics.Exporter) {
		add("metrics.exporter", "unknown exporter %q", c.Metrics.Exporter)
	}
	if c.Metrics.Enabled && c.Metrics.Exporter == "prometheus" && c.Metrics.Listen == "" {
		add("metrics.listen", "is required for the prometheus exporter")
	}

	if c.RateLimit.Calls < 1 {
		add("rate_limit.calls", "must be at least 1, got %d", c.RateLimit.Calls)
	}
	if c.RateLimit.Period <= 0 {
		add("rate_limit.period", "must be positive, got %s", c.RateLimit.Period)
	}
	if _, err := resilience.ParseWakePolicy(c.RateLimit.Wake); err != nil {
		add("rate_limit.wake", "unknown policy %q", c.RateLimit.Wake)
	}

	switch resilience.Kind(c.Retry.Kind) {
	case resilience.KindOnException, resilience.KindOnPredicate:
	default:
		add("retry.kind", "unknown kind %q", c.Retry.Kind)
	}
	if _, err := resilience.ScheduleByName(c.Retry.WaitGen, c.Retry.Base, c.Retry.Factor); err != nil {
		add("retry.wait_gen", "unknown wait generator %q", c.Retry.WaitGen)
	}
	if c.Retry.Base <= 0 {
		add("retry.base", "must be positive, got %s", c.Retry.Base)
	}
	if c.Retry.Factor < 1 {
		add("retry.factor", "must be at least 1, got %g", c.Retry.Factor)
	}
	if c.Retry.MaxValue < 0 {
		add("retry.max_value", "must not be negative")
	}
	if c.Retry.MaxTries < 0 {
		add("retry.max_tries", "must not be negative, got %d", c.Retry.MaxTries)
	}
	if c.Retry.MaxTime < 0 {
		add("retry.max_time", "must not be negative")
	}
	if _, err := resilience.JitterByName(c.Retry.Jitter); err != nil {
		add("retry.jitter", "unknown jitter %q", c.Retry.Jitter)
	}

	return errors.Join(errs...)
}
