package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// Operation names recorded by the cache package.
const (
	OpGet     = "get"
	OpPut     = "put"
	OpCompute = "compute"
	OpScan    = "scan"
)

// OpMeta identifies a cache operation for telemetry purposes.
type OpMeta struct {
	Namespace string // Memoized function namespace (may be empty)
	Op        string // Operation name (required)
}

// SpanName returns the deterministic span name for this operation.
// Format: memo.<op>.<namespace> or memo.<op>
func (m OpMeta) SpanName() string {
	if m.Namespace != "" {
		return "memo." + m.Op + "." + m.Namespace
	}
	return "memo." + m.Op
}

// Tracer wraps OpenTelemetry tracing with operation span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for an operation.
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

// StartSpan starts a new span with operation metadata as attributes.
func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("memo.op", meta.Op),
		attribute.Bool("memo.error", false),
	}
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("memo.namespace", meta.Namespace))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpan ends the span and records the error status if present.
func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("memo.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

// NewNoopTracer creates a tracer that records nothing.
func NewNoopTracer() Tracer {
	return &noopTracer{
		noop: tracenoop.NewTracerProvider().Tracer("noop"),
	}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
