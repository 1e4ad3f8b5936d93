package cache

import (
	"context"
	"errors"
)

// EntrySuffix is the file suffix that marks a file as a cache entry.
const EntrySuffix = ".memo"

// Sentinel errors for cache operations.
var (
	ErrStorageRead   = errors.New("cache: storage read failed")
	ErrStorageWrite  = errors.New("cache: storage write failed")
	ErrInvalidKey    = errors.New("cache: key is invalid")
	ErrInvalidConfig = errors.New("cache: invalid configuration")
	ErrNilFunc       = errors.New("cache: function is nil")
)

// Store is the key/value contract Memoized relies on.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Get returns (zero, false, nil) on miss; a non-nil error means a
//   stored entry exists but could not be read.
type Store[T any] interface {
	// Get retrieves a stored value.
	Get(ctx context.Context, key Key) (T, bool, error)

	// Put stores value under key, replacing any previous entry.
	Put(ctx context.Context, key Key, value T) error
}

// Ensure Manager implements Store
var _ Store[any] = (*Manager[any])(nil)
