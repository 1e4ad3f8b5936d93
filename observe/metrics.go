package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric names.
const (
	MetricLookupTotal     = "memo.lookup.total"
	MetricLookupHits      = "memo.lookup.hits"
	MetricStoreTotal      = "memo.store.total"
	MetricErrors          = "memo.errors"
	MetricComputeDuration = "memo.compute.duration_ms"
)

// Metrics records cache and computation metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordLookup records an index lookup and whether it hit.
	RecordLookup(ctx context.Context, meta OpMeta, hit bool, err error)

	// RecordStore records an entry write.
	RecordStore(ctx context.Context, meta OpMeta, err error)

	// RecordCompute records one invocation of a wrapped computation.
	RecordCompute(ctx context.Context, meta OpMeta, duration time.Duration, err error)
}

type metricsImpl struct {
	lookupTotal  metric.Int64Counter
	lookupHits   metric.Int64Counter
	storeTotal   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
}

// NewMetrics creates Metrics backed by the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	lookupTotal, err := meter.Int64Counter(
		MetricLookupTotal,
		metric.WithDescription("Total number of cache lookups"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	lookupHits, err := meter.Int64Counter(
		MetricLookupHits,
		metric.WithDescription("Number of cache lookups served from storage"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	storeTotal, err := meter.Int64Counter(
		MetricStoreTotal,
		metric.WithDescription("Total number of entries written"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		MetricErrors,
		metric.WithDescription("Total number of failed cache operations and computations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		MetricComputeDuration,
		metric.WithDescription("Computation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		lookupTotal:  lookupTotal,
		lookupHits:   lookupHits,
		storeTotal:   storeTotal,
		errorCount:   errorCount,
		durationHist: durationHist,
	}, nil
}

func attrsFor(meta OpMeta) metric.MeasurementOption {
	attrs := []attribute.KeyValue{
		attribute.String("memo.op", meta.Op),
	}
	if meta.Namespace != "" {
		attrs = append(attrs, attribute.String("memo.namespace", meta.Namespace))
	}
	return metric.WithAttributes(attrs...)
}

func (m *metricsImpl) RecordLookup(ctx context.Context, meta OpMeta, hit bool, err error) {
	opt := attrsFor(meta)
	m.lookupTotal.Add(ctx, 1, opt)
	if hit {
		m.lookupHits.Add(ctx, 1, opt)
	}
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
}

func (m *metricsImpl) RecordStore(ctx context.Context, meta OpMeta, err error) {
	opt := attrsFor(meta)
	m.storeTotal.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
}

func (m *metricsImpl) RecordCompute(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := attrsFor(meta)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

type noopMetrics struct{}

// NewNoopMetrics returns Metrics that record nothing.
func NewNoopMetrics() Metrics {
	return noopMetrics{}
}

func (noopMetrics) RecordLookup(context.Context, OpMeta, bool, error)           {}
func (noopMetrics) RecordStore(context.Context, OpMeta, error)                  {}
func (noopMetrics) RecordCompute(context.Context, OpMeta, time.Duration, error) {}
