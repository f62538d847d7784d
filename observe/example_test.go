package observe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fsn-capital/gocommon/observe"
	"github.com/fsn-capital/gocommon/resilience"
)

func ExampleNewObserver() {
	cfg := observe.Config{
		ServiceName: "example-service",
		Version:     "1.0.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: false},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "info"},
	}

	ctx := context.Background()
	obs, err := observe.NewObserver(ctx, cfg)
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	fmt.Println("Observer created successfully")
	// Output:
	// Observer created successfully
}

func ExampleNewObserver_validation() {
	_, err := observe.NewObserver(context.Background(), observe.Config{})
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleOperationMeta_SpanName() {
	fmt.Println(observe.OperationMeta{Client: "gcs", Name: "upload"}.SpanName())
	fmt.Println(observe.OperationMeta{Name: "upload"}.SpanName())
	// Output:
	// resilience.call.gcs.upload
	// resilience.call.upload
}

func ExampleLogger_WithOperation() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	opLogger := logger.WithOperation(observe.OperationMeta{Client: "tweepy", Name: "search"})
	opLogger.Info(context.Background(), "call started")

	fmt.Println("Contains operation.client:", bytes.Contains(buf.Bytes(), []byte(`"operation.client":"tweepy"`)))
	// Output:
	// Contains operation.client: true
}

func ExampleMiddleware_Wrap() {
	ctx := context.Background()

	obs, _ := observe.NewObserver(ctx, observe.Config{
		ServiceName: "example",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "none"},
	})
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	mw, _ := observe.MiddlewareFromObserver(obs)
	executor := resilience.NewExecutor()

	call := mw.Wrap(observe.OperationMeta{Client: "gcs", Name: "list"}, func(ctx context.Context) error {
		return nil
	})

	fmt.Println("Error:", executor.Execute(ctx, call))
	// Output:
	// Error: <nil>
}

func ExampleRetryInstrumentation_Apply() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("debug", &buf)

	obs, _ := observe.NewObserver(context.Background(), observe.Config{ServiceName: "example"})
	inst, _ := observe.NewRetryInstrumentation(obs.Meter(), logger)

	cfg := resilience.RetrierConfig{
		WaitGen:  resilience.WaitConstant,
		Base:     time.Millisecond,
		MaxTries: 2,
	}
	inst.Apply(&cfg)
	retrier, _ := resilience.NewSimpleRetrier(cfg)

	_ = retrier.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("unavailable")
	})

	fmt.Println("Logged backoff:", bytes.Contains(buf.Bytes(), []byte("backing off")))
	// Output:
	// Logged backoff: true
}

func ExampleParseLogLevel() {
	levels := []string{"debug", "info", "warn", "error", "unknown"}
	for _, s := range levels {
		level := observe.ParseLogLevel(s)
		fmt.Printf("%s -> %s\n", s, level)
	}
	// Output:
	// debug -> debug
	// info -> info
	// warn -> warn
	// error -> error
	// unknown -> info
}
