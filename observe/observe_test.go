package observe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfigValidate_Valid(t *testing.T) {
	cfg := Config{
		ServiceName: "test-service",
		Version:     "1.0.0",
		Tracing: TracingConfig{
			Enabled:   true,
			Exporter:  "stdout",
			SamplePct: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled:  true,
			Exporter: "prometheus",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			Format:  FormatConsole,
		},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected nil error, got: %v", err)
	}
}

func TestConfigValidate_Invalid(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{
			name: "missing service name",
			cfg:  Config{},
			want: ErrMissingServiceName,
		},
		{
			name: "unknown tracing exporter",
			cfg:  Config{ServiceName: "svc", Tracing: TracingConfig{Enabled: true, Exporter: "zipkin"}},
			want: ErrInvalidTracingExporter,
		},
		{
			name: "sample pct above range",
			cfg:  Config{ServiceName: "svc", Tracing: TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.5}},
			want: ErrInvalidSamplePct,
		},
		{
			name: "sample pct negative",
			cfg:  Config{ServiceName: "svc", Tracing: TracingConfig{Enabled: true, Exporter: "none", SamplePct: -0.1}},
			want: ErrInvalidSamplePct,
		},
		{
			name: "unknown metrics exporter",
			cfg:  Config{ServiceName: "svc", Metrics: MetricsConfig{Enabled: true, Exporter: "statsd"}},
			want: ErrInvalidMetricsExporter,
		},
		{
			name: "unknown log level",
			cfg:  Config{ServiceName: "svc", Logging: LoggingConfig{Enabled: true, Level: "trace"}},
			want: ErrInvalidLogLevel,
		},
		{
			name: "unknown log format",
			cfg:  Config{ServiceName: "svc", Logging: LoggingConfig{Enabled: true, Format: "logfmt"}},
			want: ErrInvalidLogFormat,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if !errors.Is(err, tt.want) {
				t.Errorf("Validate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestConfigValidate_DisabledSectionsIgnored(t *testing.T) {
	cfg := Config{
		ServiceName: "svc",
		Tracing:     TracingConfig{Enabled: false, Exporter: "zipkin"},
		Metrics:     MetricsConfig{Enabled: false, Exporter: "statsd"},
		Logging:     LoggingConfig{Enabled: false, Level: "trace"},
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestNewObserver_DisabledNoop(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "svc"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer obs.Shutdown(context.Background())

	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("expected non-nil tracer, meter and logger")
	}

	rec := httptest.NewRecorder()
	obs.MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("MetricsHandler() status = %d, want 404", rec.Code)
	}
}

func TestNewObserver_InvalidConfigReturnsError(t *testing.T) {
	_, err := NewObserver(context.Background(), Config{})
	if !errors.Is(err, ErrMissingServiceName) {
		t.Errorf("NewObserver() error = %v, want ErrMissingServiceName", err)
	}
}

func TestNewObserver_LoggingToWriter(t *testing.T) {
	var buf bytes.Buffer
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "svc",
		Logging:     LoggingConfig{Enabled: true, Level: "debug", Writer: &buf},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	obs.Logger().Debug(context.Background(), "hello")
	if !strings.Contains(buf.String(), `"message":"hello"`) {
		t.Errorf("log output = %q, want message hello", buf.String())
	}

	if Zerolog(obs.Logger()).GetLevel().String() != "debug" {
		t.Errorf("Zerolog() level = %v, want debug", Zerolog(obs.Logger()).GetLevel())
	}
}

func TestNewObserver_PrometheusHandler(t *testing.T) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "svc",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer obs.Shutdown(ctx)

	m, err := NewMetrics(obs.Meter())
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}
	m.RecordExecution(ctx, OperationMeta{Client: "gcs", Name: "upload"}, 0, nil)

	srv := httptest.NewServer(obs.MetricsHandler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET /metrics error = %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "resilience_call") {
		t.Errorf("metrics output missing resilience_call series:\n%s", body)
	}
}

func TestObserver_ShutdownGracefully(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "svc",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none", SamplePct: 1.0},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}

	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}
