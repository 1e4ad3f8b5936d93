// Package exporters builds the OpenTelemetry span exporters and metric
// readers selected by name in observe.Config.
package exporters

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

var (
	// ErrUnknownExporter indicates an exporter name with no factory.
	ErrUnknownExporter = errors.New("exporters: unknown exporter")

	// ErrEndpointNotConfigured indicates a network exporter was selected
	// without its endpoint environment variable.
	ErrEndpointNotConfigured = errors.New("exporters: endpoint not configured")
)

// firstEnv returns the first non-empty value among the named variables.
func firstEnv(names ...string) (string, bool) {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v, true
		}
	}
	return "", false
}

func requireEndpoint(names ...string) error {
	if _, ok := firstEnv(names...); !ok {
		return fmt.Errorf("%w: set one of %v", ErrEndpointNotConfigured, names)
	}
	return nil
}

// NewTracingExporter creates a span exporter.
// Supported names: stdout, otlp, jaeger, none. stdout writes to w, or
// os.Stdout when w is nil.
func NewTracingExporter(ctx context.Context, name string, w io.Writer) (sdktrace.SpanExporter, error) {
	switch name {
	case "stdout":
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w))

	case "otlp":
		if err := requireEndpoint("OTEL_EXPORTER_OTLP_ENDPOINT", "OTEL_EXPORTER_OTLP_TRACES_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)

	case "jaeger":
		// Jaeger ingests OTLP
		if err := requireEndpoint("OTEL_EXPORTER_JAEGER_ENDPOINT"); err != nil {
			return nil, err
		}
		return otlptracegrpc.New(ctx)

	case "none", "":
		return stdouttrace.New(stdouttrace.WithWriter(io.Discard))

	default:
		return nil, fmt.Errorf("%w: tracing %q", ErrUnknownExporter, name)
	}
}

// NewMetricsReader creates a metric reader.
// Supported names: stdout, otlp, prometheus, none. stdout writes to w, or
// os.Stdout when w is nil.
func NewMetricsReader(ctx context.Context, name string, w io.Writer) (sdkmetric.Reader, error) {
	switch name {
	case "stdout":
		if w == nil {
			w = os.Stdout
		}
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
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
		exp, err := prometheus.New()
		if err != nil {
			return nil, fmt.Errorf("prometheus exporter: %w", err)
		}
		return exp, nil

	case "none", "":
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(io.Discard))
		if err != nil {
			return nil, err
		}
		return sdkmetric.NewPeriodicReader(exp), nil

	default:
		return nil, fmt.Errorf("%w: metrics %q", ErrUnknownExporter, name)
	}
}
