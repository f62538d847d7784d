package observe

import (
	"context"
	"time"
)

// Middleware wraps outbound operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap returns a function safe for concurrent use.
//   - Context: the span is propagated to the wrapped function through ctx.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// Wrap returns fn instrumented for meta. The result plugs into
// resilience.Executor.Execute, so one span covers admission, every attempt
// and every backoff of the call.
func (m *Middleware) Wrap(meta OperationMeta, fn func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		err := fn(ctx)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordExecution(ctx, meta, duration, err)

		opLogger := m.logger.WithOperation(meta)
		fields := []Field{
			{Key: "duration_ms", Value: float64(duration.Milliseconds())},
		}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			opLogger.Error(ctx, "call failed", fields...)
		} else {
			opLogger.Debug(ctx, "call completed", fields...)
		}

		return err
	}
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}

	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}
