package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OperationMeta describes an outbound operation for telemetry purposes.
type OperationMeta struct {
	Client  string   // Logical client the call goes through (may be empty)
	Name    string   // Operation name (required)
	Version string   // Client version (optional)
	Tags    []string // Free-form tags (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: resilience.call.<client>.<name> or resilience.call.<name>
func (m OperationMeta) SpanName() string {
	if m.Client != "" {
		return "resilience.call." + m.Client + "." + m.Name
	}
	return "resilience.call." + m.Name
}

// OperationID returns the fully qualified operation identifier.
func (m OperationMeta) OperationID() string {
	if m.Client != "" {
		return m.Client + "." + m.Name
	}
	return m.Name
}

func (m OperationMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String("operation.id", m.OperationID()),
		attribute.String("operation.name", m.Name),
	}
	if m.Client != "" {
		attrs = append(attrs, attribute.String("operation.client", m.Client))
	}
	return attrs
}

// Tracer wraps OpenTelemetry tracing with per-operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an outbound operation.
	StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("operation.error", false))

	if meta.Version != "" {
		attrs = append(attrs, attribute.String("operation.version", meta.Version))
	}
	if len(meta.Tags) > 0 {
		attrs = append(attrs, attribute.StringSlice("operation.tags", meta.Tags))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("operation.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OperationMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
