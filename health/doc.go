// Package health reports whether the storage behind a cache is usable.
//
// A Checker reports a Result with a Status of Healthy, Degraded, or
// Unhealthy. StorageChecker probes a storage directory by writing and
// removing a file; CheckAll runs several checkers with a deadline and
// Overall folds their results into one Status.
//
//	results := health.CheckAll(ctx, 5*time.Second,
//	    health.NewStorageChecker(health.StorageCheckerConfig{Dir: dir}),
//	)
//	if health.Overall(results) == health.StatusUnhealthy {
//	    ...
//	}
package health
