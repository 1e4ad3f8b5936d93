package cache

import "github.com/jonwraymond/diskmemo/observe"

// Option configures a Manager or a Memoized wrapper.
type Option func(*options)

type options struct {
	config     Config
	namespace  string
	logger     observe.Logger
	metrics    observe.Metrics
	middleware *observe.Middleware
}

func applyOptions(opts []Option) options {
	o := options{
		config:  DefaultConfig(),
		logger:  observe.NewNoopLogger(),
		metrics: observe.NewNoopMetrics(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l observe.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the metrics recorder for cache lookups and stores.
// Defaults to no-op metrics.
func WithMetrics(m observe.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithConfig sets the configuration of the Manager that Memoize creates
// when none is passed. Applies to Memoize only.
func WithConfig(cfg Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithNamespace separates a wrapper's keys from those of other functions
// sharing a storage directory. Applies to Memoize only.
func WithNamespace(ns string) Option {
	return func(o *options) { o.namespace = ns }
}

// WithMiddleware instruments each invocation of the wrapped function.
// Applies to Memoize only.
func WithMiddleware(mw *observe.Middleware) Option {
	return func(o *options) { o.middleware = mw }
}
