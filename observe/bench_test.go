package observe

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"
)

// BenchmarkLogger_Info measures logging throughput.
func BenchmarkLogger_Info(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Info(ctx, "benchmark message", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_WithOp_ThenLog measures the full pattern of scoping a
// logger to an operation and logging.
func BenchmarkLogger_WithOp_ThenLog(b *testing.B) {
	logger := NewLoggerWithWriter("info", io.Discard)
	ctx := context.Background()
	meta := OpMeta{Namespace: "ns", Op: OpGet}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.WithOp(meta).Info(ctx, "cache hit", Field{Key: "iteration", Value: i})
	}
}

// BenchmarkLogger_LevelFiltering measures overhead of level filtering.
func BenchmarkLogger_LevelFiltering(b *testing.B) {
	logger := NewLoggerWithWriter("error", io.Discard)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		logger.Debug(ctx, "filtered debug")
		logger.Info(ctx, "filtered info")
		logger.Warn(ctx, "filtered warn")
	}
}

// BenchmarkOpMeta_SpanName measures span name generation.
func BenchmarkOpMeta_SpanName(b *testing.B) {
	meta := OpMeta{Namespace: "reports", Op: OpCompute}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = meta.SpanName()
	}
}

// BenchmarkTracer_StartEndSpan measures tracer span lifecycle (noop).
func BenchmarkTracer_StartEndSpan(b *testing.B) {
	tracer := NewNoopTracer()
	ctx := context.Background()
	meta := OpMeta{Namespace: "ns", Op: OpCompute}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, span := tracer.StartSpan(ctx, meta)
		tracer.EndSpan(span, nil)
	}
}

// BenchmarkMetrics_RecordLookup measures metrics recording.
func BenchmarkMetrics_RecordLookup(b *testing.B) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "bench",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		b.Fatalf("failed to create observer: %v", err)
	}
	defer obs.Shutdown(ctx)

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		b.Fatalf("failed to create metrics: %v", err)
	}
	meta := OpMeta{Namespace: "ns", Op: OpGet}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordLookup(ctx, meta, i%2 == 0, nil)
	}
}

// BenchmarkMiddleware_Wrap measures full middleware wrapping.
func BenchmarkMiddleware_Wrap(b *testing.B) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "bench",
		Tracing:     TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
		Logging:     LoggingConfig{Enabled: false},
	})
	if err != nil {
		b.Fatalf("failed to create observer: %v", err)
	}
	defer obs.Shutdown(ctx)

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		b.Fatalf("failed to create middleware: %v", err)
	}

	wrapped := mw.Wrap(func(ctx context.Context, op OpMeta, input any) (any, error) {
		return "result", nil
	})
	meta := OpMeta{Namespace: "ns", Op: OpCompute}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = wrapped(ctx, meta, nil)
	}
}

// BenchmarkConcurrent_Middleware measures concurrent middleware execution.
func BenchmarkConcurrent_Middleware(b *testing.B) {
	mw := NewMiddleware(NewNoopTracer(), NewNoopMetrics(), NewLoggerWithWriter("info", io.Discard))
	wrapped := mw.Wrap(func(ctx context.Context, op OpMeta, input any) (any, error) {
		return "result", nil
	})
	ctx := context.Background()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			meta := OpMeta{Namespace: fmt.Sprintf("ns_%d", i%10), Op: OpCompute}
			_, _ = wrapped(ctx, meta, nil)
			i++
		}
	})
}

// BenchmarkMetrics_RecordCompute_WithError measures metrics with error.
func BenchmarkMetrics_RecordCompute_WithError(b *testing.B) {
	ctx := context.Background()
	obs, err := NewObserver(ctx, Config{
		ServiceName: "bench",
		Metrics:     MetricsConfig{Enabled: true, Exporter: "none"},
	})
	if err != nil {
		b.Fatalf("failed to create observer: %v", err)
	}
	defer obs.Shutdown(ctx)

	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		b.Fatalf("failed to create metrics: %v", err)
	}
	meta := OpMeta{Namespace: "ns", Op: OpCompute}
	computeErr := fmt.Errorf("benchmark error")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		metrics.RecordCompute(ctx, meta, 100*time.Millisecond, computeErr)
	}
}

// BenchmarkConfig_Validate measures configuration validation.
func BenchmarkConfig_Validate(b *testing.B) {
	cfg := Config{
		ServiceName: "bench-service",
		Version:     "1.0.0",
		Tracing:     TracingConfig{Enabled: true, Exporter: "otlp", SamplePct: 0.5},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "prometheus"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = cfg.Validate()
	}
}
