package observe

import (
	"context"
	"io"
	"testing"
	"time"
)

func TestObserverContract_Noops(t *testing.T) {
	cfg := Config{
		ServiceName: "observe-test",
		Tracing: TracingConfig{
			Enabled:  false,
			Exporter: "none",
		},
		Metrics: MetricsConfig{
			Enabled:  false,
			Exporter: "none",
		},
		Logging: LoggingConfig{
			Enabled: false,
			Level:   "info",
		},
	}

	obs, err := NewObserver(context.Background(), cfg)
	if err != nil {
		t.Fatalf("NewObserver failed: %v", err)
	}

	if obs.Tracer() == nil {
		t.Fatalf("expected non-nil tracer")
	}
	if obs.Meter() == nil {
		t.Fatalf("expected non-nil meter")
	}
	if obs.Logger() == nil {
		t.Fatalf("expected non-nil logger")
	}
}

func TestLoggerContract_WithOp(t *testing.T) {
	for _, logger := range []Logger{NewNoopLogger(), NewLoggerWithWriter("info", io.Discard)} {
		if logger.WithOp(OpMeta{Op: OpGet}) == nil {
			t.Fatalf("WithOp should return non-nil logger")
		}
	}
}

func TestMetricsContract_NoPanic(t *testing.T) {
	metrics := NewNoopMetrics()
	metrics.RecordCompute(context.Background(), OpMeta{Op: OpCompute}, 10*time.Millisecond, nil)
}

func TestTracerContract_NoPanic(t *testing.T) {
	tracer := NewNoopTracer()
	_, span := tracer.StartSpan(context.Background(), OpMeta{Op: OpCompute})
	tracer.EndSpan(span, nil)
}
