// Package observe provides logging, metrics and tracing for memoized
// computations and the cache operations around them.
//
// It is a pure instrumentation library: no caching and no I/O beyond
// exporter setup. The cache package takes a Logger and Metrics, and a
// Middleware to wrap computations.
package observe
