package observe

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/jonwraymond/diskmemo/observe/exporters"
)

// Observer provides access to telemetry primitives.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Context: Shutdown must honor cancellation/deadlines.
// - Errors: Shutdown flushes every provider and joins their errors.
type Observer interface {
	Tracer() trace.Tracer
	Meter() metric.Meter
	Logger() Logger

	// Shutdown flushes and stops the telemetry providers.
	Shutdown(ctx context.Context) error
}

// Logger is a minimal structured logging interface.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: logging must be best-effort and must not panic.
type Logger interface {
	Info(ctx context.Context, msg string, fields ...Field)
	Warn(ctx context.Context, msg string, fields ...Field)
	Error(ctx context.Context, msg string, fields ...Field)
	Debug(ctx context.Context, msg string, fields ...Field)
	WithOp(meta OpMeta) Logger
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value any
}

type observer struct {
	tracer trace.Tracer
	meter  metric.Meter
	logger Logger

	mu        sync.Mutex
	shutdowns []func(context.Context) error
}

// NewObserver builds the providers enabled in cfg. Disabled subsystems get
// no-op implementations. Enabled providers are also installed as the otel
// globals.
func NewObserver(ctx context.Context, cfg Config) (Observer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.Version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	obs := &observer{
		tracer: tracenoop.NewTracerProvider().Tracer(cfg.ServiceName),
		meter:  noop.NewMeterProvider().Meter(cfg.ServiceName),
		logger: NewNoopLogger(),
	}

	if cfg.Tracing.Enabled {
		exp, err := exporters.NewTracingExporter(ctx, cfg.Tracing.Exporter, cfg.Output)
		if err != nil {
			return nil, fmt.Errorf("failed to setup tracing: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithResource(res),
			sdktrace.WithSampler(samplerFor(cfg.Tracing.SamplePct)),
			sdktrace.WithBatcher(exp),
		)
		otel.SetTracerProvider(tp)
		obs.tracer = tp.Tracer(cfg.ServiceName)
		obs.shutdowns = append(obs.shutdowns, tp.Shutdown)
	}

	if cfg.Metrics.Enabled {
		reader, err := exporters.NewMetricsReader(ctx, cfg.Metrics.Exporter, cfg.Output)
		if err != nil {
			_ = obs.Shutdown(ctx)
			return nil, fmt.Errorf("failed to setup metrics: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(reader),
		)
		otel.SetMeterProvider(mp)
		obs.meter = mp.Meter(cfg.ServiceName)
		obs.shutdowns = append(obs.shutdowns, mp.Shutdown)
	}

	if cfg.Logging.Enabled {
		if cfg.Output != nil {
			obs.logger = NewLoggerWithWriter(cfg.Logging.Level, cfg.Output)
		} else {
			obs.logger = NewLogger(cfg.Logging.Level)
		}
	}

	return obs, nil
}

func samplerFor(pct float64) sdktrace.Sampler {
	switch {
	case pct >= 1.0:
		return sdktrace.AlwaysSample()
	case pct <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(pct)
	}
}

func (o *observer) Tracer() trace.Tracer { return o.tracer }
func (o *observer) Meter() metric.Meter  { return o.meter }
func (o *observer) Logger() Logger       { return o.logger }

// Shutdown stops providers in reverse order of creation.
func (o *observer) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	var errs []error
	for i := len(o.shutdowns) - 1; i >= 0; i-- {
		if err := o.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	o.shutdowns = nil
	return errors.Join(errs...)
}

type noopLogger struct{}

// NewNoopLogger returns a Logger that discards everything.
func NewNoopLogger() Logger {
	return noopLogger{}
}

func (noopLogger) Info(context.Context, string, ...Field)  {}
func (noopLogger) Warn(context.Context, string, ...Field)  {}
func (noopLogger) Error(context.Context, string, ...Field) {}
func (noopLogger) Debug(context.Context, string, ...Field) {}
func (l noopLogger) WithOp(OpMeta) Logger                  { return l }
