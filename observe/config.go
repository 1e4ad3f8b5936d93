package observe

import (
	"fmt"
	"io"
	"slices"
)

// Config holds all configuration for the Observer.
//
// Metrics produced by the Observer's meter are memo.lookup.total,
// memo.lookup.hits, memo.store.total, memo.errors and
// memo.compute.duration_ms.
type Config struct {
	ServiceName string
	Version     string
	Tracing     TracingConfig
	Metrics     MetricsConfig
	Logging     LoggingConfig

	// Output receives stdout exporter and log output. Defaults to os.Stdout
	// for exporters and os.Stderr for logs.
	Output io.Writer
}

// TracingConfig configures the tracing subsystem.
type TracingConfig struct {
	Enabled   bool
	Exporter  string  // otlp|jaeger|stdout|none
	SamplePct float64 // 0.0-1.0
}

// MetricsConfig configures the metrics subsystem.
type MetricsConfig struct {
	Enabled  bool
	Exporter string // otlp|prometheus|stdout|none
}

// LoggingConfig configures the logging subsystem.
type LoggingConfig struct {
	Enabled bool
	Level   string // debug|info|warn|error
}

// Validate checks the configuration. Settings of disabled subsystems are
// not checked.
func (c *Config) Validate() error {
	if c.ServiceName == "" {
		return ErrMissingServiceName
	}

	names := []struct {
		enabled bool
		value   string
		valid   []string
		err     error
	}{
		{c.Tracing.Enabled, c.Tracing.Exporter, ValidTracingExporters, ErrInvalidTracingExporter},
		{c.Metrics.Enabled, c.Metrics.Exporter, ValidMetricsExporters, ErrInvalidMetricsExporter},
		{c.Logging.Enabled, c.Logging.Level, ValidLogLevels, ErrInvalidLogLevel},
	}
	for _, n := range names {
		if n.enabled && !slices.Contains(n.valid, n.value) {
			return fmt.Errorf("%w: %q", n.err, n.value)
		}
	}

	if c.Tracing.Enabled && (c.Tracing.SamplePct < 0 || c.Tracing.SamplePct > 1.0) {
		return fmt.Errorf("%w, got: %f", ErrInvalidSamplePct, c.Tracing.SamplePct)
	}
	return nil
}
