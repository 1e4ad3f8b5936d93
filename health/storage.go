package health

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

// DefaultEntrySuffix is the file suffix StorageChecker counts as entries.
const DefaultEntrySuffix = ".memo"

// StorageCheckerConfig configures a StorageChecker.
type StorageCheckerConfig struct {
	// Dir is the storage directory to probe.
	Dir string

	// EntrySuffix selects the files reported as entries.
	// Default: ".memo"
	EntrySuffix string
}

// StorageChecker checks that a storage directory exists and is writable.
type StorageChecker struct {
	config StorageCheckerConfig
}

// NewStorageChecker creates a storage checker.
func NewStorageChecker(config StorageCheckerConfig) *StorageChecker {
	if config.EntrySuffix == "" {
		config.EntrySuffix = DefaultEntrySuffix
	}
	return &StorageChecker{config: config}
}

// Name returns the name of this checker.
func (c *StorageChecker) Name() string {
	return "storage"
}

// Check creates and removes a probe file in the directory. A directory that
// is missing or unwritable is unhealthy. A probe file that cannot be
// removed degrades the result.
func (c *StorageChecker) Check(ctx context.Context) Result {
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return Unhealthy("check canceled", fmt.Errorf("%w: %w", ErrCheckFailed, err)).
			WithDuration(time.Since(start))
	}

	info, err := os.Stat(c.config.Dir)
	if err != nil {
		return Unhealthy("storage directory unavailable", fmt.Errorf("%w: %w", ErrCheckFailed, err)).
			WithDuration(time.Since(start))
	}
	if !info.IsDir() {
		return Unhealthy("storage path is not a directory", fmt.Errorf("%w: %s", ErrCheckFailed, c.config.Dir)).
			WithDuration(time.Since(start))
	}

	probe, err := os.CreateTemp(c.config.Dir, ".health-probe-*")
	if err != nil {
		return Unhealthy("storage directory not writable", fmt.Errorf("%w: %w", ErrCheckFailed, err)).
			WithDuration(time.Since(start))
	}
	probe.Close()

	entries, bytes := c.usage()
	details := map[string]any{
		"dir":     c.config.Dir,
		"entries": entries,
		"bytes":   bytes,
	}

	if err := os.Remove(probe.Name()); err != nil {
		return Degraded("probe file left behind").
			WithDetails(details).
			WithDuration(time.Since(start))
	}

	return Healthy("storage writable").
		WithDetails(details).
		WithDuration(time.Since(start))
}

// usage counts entry files and their total size. Unreadable entries are
// skipped.
func (c *StorageChecker) usage() (int, int64) {
	dirEntries, err := os.ReadDir(c.config.Dir)
	if err != nil {
		return 0, 0
	}

	var count int
	var total int64
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), c.config.EntrySuffix) {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		count++
		total += info.Size()
	}
	return count, total
}

// Ensure StorageChecker implements Checker
var _ Checker = (*StorageChecker)(nil)
