// Package exporters builds the OpenTelemetry span exporters and metric
// readers selected by name in observe.Config.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	promclient "github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrEndpointNotConfigured indicates a required endpoint environment variable is not set.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")

	// ErrUnknownExporter indicates an exporter name this package does not build.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")
)

// requireEndpoint succeeds when any of vars is set.
func requireEndpoint(vars ...string) error {
	for _, v := range vars {
		if os.Getenv(v) != "" {
			return nil
		}
	}
	return fmt.Errorf("%w: set %s", ErrEndpointNotConfigured, strings.Join(vars, " or "))
}

// NewTracingExporter returns the span exporter for name: stdout, otlp,
// jaeger (over OTLP), or none. It returns a nil exporter for none.
func NewTracingExporter(ctx context.Context, name string) (sdktrace.SpanExporter, error) {
	switch name {
	case "stdout":
		return stdouttrace.New(stdouttrace.WithWriter(os.Stdout))
	case "otlp":
		if err := requireEndpoint("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	case "jaeger":
		if err := requireEndpoint("OTEL_EXPORTER_JAEGER_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: tracing %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader returns the metric reader for name: stdout, otlp,
// prometheus, or none. It returns a nil reader for none.
//
// The prometheus reader registers its collector with reg, or with the
// client_golang default registerer when reg is nil.
func NewMetricsReader(ctx context.Context, name string, reg promclient.Registerer) (sdkmetric.Reader, error) {
	switch name {
	case "stdout":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(os.Stdout))
		if err != nil {
			return nil, fmt.Errorf("stdout metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "otlp":
		if err := requireEndpoint("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_METRICS_ENDPOINT"); err != nil {
			return nil, err
		}
		exp, err := otlpmetricgrpc.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("otlp metrics exporter: %w", err)
		}
		return sdkmetric.NewPeriodicReader(exp), nil
	case "prometheus":
		var opts []prometheus.Option
		if reg != nil {
			opts = append(opts, prometheus.WithRegisterer(reg))
		}
		exp, err := prometheus.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil
	case "none", "":
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknownExporter, name)
	}
}
