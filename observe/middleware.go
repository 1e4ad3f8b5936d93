package observe

import (
	"context"
	"time"
)

// ExecuteFunc is the signature of an instrumented computation.
type ExecuteFunc func(ctx context.Context, op OpMeta, input any) (any, error)

// Middleware instruments computations: one span, one duration sample and
// one log line per call.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe ExecuteFunc.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
//   - Ownership: input and result are passed through untouched and never logged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from its telemetry components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware using obs's tracer, meter and
// logger.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Wrap returns fn instrumented with tracing, metrics and logging. The span
// context is passed on to fn.
func (m *Middleware) Wrap(fn ExecuteFunc) ExecuteFunc {
	return func(ctx context.Context, op OpMeta, input any) (any, error) {
		spanCtx, span := m.tracer.StartSpan(ctx, op)
		start := time.Now()
		result, err := fn(spanCtx, op, input)
		elapsed := time.Since(start)

		m.tracer.EndSpan(span, err)
		m.metrics.RecordCompute(spanCtx, op, elapsed, err)
		m.logOutcome(spanCtx, op, elapsed, err)
		return result, err
	}
}

func (m *Middleware) logOutcome(ctx context.Context, op OpMeta, elapsed time.Duration, err error) {
	log := m.logger.WithOp(op)
	duration := Field{Key: "duration_ms", Value: float64(elapsed.Milliseconds())}
	if err != nil {
		log.Error(ctx, "computation failed", duration, Field{Key: "error", Value: err.Error()})
		return
	}
	log.Info(ctx, "computation completed", duration)
}
