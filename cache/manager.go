package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jonwraymond/diskmemo/observe"
)

// Manager is a disk-backed key/value store with an in-memory index.
//
// The index is rebuilt from the entry files in the storage directory when
// the Manager is created, so values stored by an earlier process are found
// again. Entries are never evicted and superseded files are never removed.
//
// Contract:
// - Concurrency: safe for concurrent use within one process. Processes
//   sharing a directory are not coordinated; each keeps its own index.
// - Errors: Get fails only when an indexed entry cannot be read back.
type Manager[T any] struct {
	mu      sync.RWMutex
	index   map[string]*entry[T]
	dir     string
	lazy    bool
	maxSize int
	logger  observe.Logger
	metrics observe.Metrics
}

// NewManager creates a Manager over cfg's storage directory, creating the
// directory if needed and indexing every entry file it holds. Entry files
// that cannot be decoded are logged and skipped.
//
// WithLogger and WithMetrics apply; other options are ignored.
func NewManager[T any](cfg Config, opts ...Option) (*Manager[T], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	dir, err := cfg.Dir()
	if err != nil {
		return nil, err
	}

	o := applyOptions(opts)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create storage directory: %w", ErrStorageWrite, err)
	}

	m := &Manager[T]{
		index:   make(map[string]*entry[T]),
		dir:     dir,
		lazy:    cfg.Lazy,
		maxSize: cfg.MaxSize,
		logger:  o.logger,
		metrics: o.metrics,
	}
	if err := m.scan(context.Background()); err != nil {
		return nil, err
	}
	return m, nil
}

// scan indexes every entry file in the storage directory. When two files
// carry the same key, the most recently modified one wins.
func (m *Manager[T]) scan(ctx context.Context) error {
	log := m.logger.WithOp(observe.OpMeta{Op: observe.OpScan})

	dirEntries, err := os.ReadDir(m.dir)
	if err != nil {
		return fmt.Errorf("%w: list storage directory: %w", ErrStorageRead, err)
	}

	modTimes := make(map[string]time.Time)
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), EntrySuffix) {
			continue
		}
		path := filepath.Join(m.dir, de.Name())

		id, e, err := m.loadEntry(path)
		if err != nil {
			log.Warn(ctx, "skipping unreadable entry",
				observe.Field{Key: "path", Value: path},
				observe.Field{Key: "error", Value: err.Error()},
			)
			continue
		}

		var modTime time.Time
		if info, err := de.Info(); err == nil {
			modTime = info.ModTime()
		}
		if prev, ok := modTimes[id]; ok && prev.After(modTime) {
			continue
		}
		modTimes[id] = modTime
		m.index[id] = e

		log.Debug(ctx, "loaded entry",
			observe.Field{Key: "path", Value: path},
			observe.Field{Key: "key", Value: e.key.String()},
		)
	}

	log.Info(ctx, "storage scanned",
		observe.Field{Key: "dir", Value: m.dir},
		observe.Field{Key: "entries", Value: len(m.index)},
		observe.Field{Key: "lazy", Value: m.lazy},
	)
	return nil
}

// loadEntry reads the key record of the file at path and binds its value
// accessor. Each accessor captures its own path or value.
func (m *Manager[T]) loadEntry(path string) (string, *entry[T], error) {
	f, dec, raw, err := readKeyRecord(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	key, err := decodeKey(raw)
	if err != nil {
		return "", nil, fmt.Errorf("decode key: %w", err)
	}

	e := &entry[T]{path: path, key: key}
	if m.lazy {
		e.value = func() (T, error) {
			return readValue[T](path)
		}
	} else {
		var v T
		if err := dec.Decode(&v); err != nil {
			return "", nil, fmt.Errorf("decode value record: %w", err)
		}
		e.value = func() (T, error) {
			return v, nil
		}
	}
	return string(raw), e, nil
}

// Get returns the value stored under key. On a miss it returns
// (zero, false, nil) without touching the disk. Reading an indexed entry
// that is missing or corrupt returns an error wrapping ErrStorageRead.
//
// Values held in memory, from an eager scan or a Put, are returned as is to
// every caller: callers must not modify a returned map, slice or pointer.
// Lazy entries decode a fresh value on every call.
func (m *Manager[T]) Get(ctx context.Context, key Key) (T, bool, error) {
	meta := observe.OpMeta{Namespace: key.Namespace, Op: observe.OpGet}

	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	id, err := key.Canonical()
	if err != nil {
		var zero T
		m.metrics.RecordLookup(ctx, meta, false, err)
		return zero, false, err
	}
	return m.get(ctx, meta, string(id))
}

// GetEntry returns the value of an entry listed by Entries. It finds the
// entry by the key record it was indexed under, so entries whose arguments
// decode to a different Go shape than they were stored with are still
// found. It otherwise behaves like Get.
func (m *Manager[T]) GetEntry(ctx context.Context, info EntryInfo) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	return m.get(ctx, observe.OpMeta{Namespace: info.Key.Namespace, Op: observe.OpGet}, info.id)
}

func (m *Manager[T]) get(ctx context.Context, meta observe.OpMeta, id string) (T, bool, error) {
	var zero T

	m.mu.RLock()
	e, ok := m.index[id]
	m.mu.RUnlock()

	if !ok {
		m.metrics.RecordLookup(ctx, meta, false, nil)
		m.logger.WithOp(meta).Debug(ctx, "cache miss",
			observe.Field{Key: "key", Value: fingerprint([]byte(id))},
		)
		return zero, false, nil
	}

	v, err := e.value()
	m.metrics.RecordLookup(ctx, meta, err == nil, err)
	if err != nil {
		m.logger.WithOp(meta).Error(ctx, "entry unreadable",
			observe.Field{Key: "path", Value: e.path},
			observe.Field{Key: "error", Value: err.Error()},
		)
		return zero, false, err
	}

	m.logger.WithOp(meta).Debug(ctx, "cache hit",
		observe.Field{Key: "key", Value: fingerprint([]byte(id))},
		observe.Field{Key: "path", Value: e.path},
	)
	return v, true, nil
}

// Put writes key and value to a new entry file and indexes it. The entry
// then serves value from memory, so value must not be modified afterwards.
// A previous entry for key is replaced in the index but its file is left on
// disk. Write failures wrap ErrStorageWrite; a partially written file is not
// removed.
func (m *Manager[T]) Put(ctx context.Context, key Key, value T) error {
	meta := observe.OpMeta{Namespace: key.Namespace, Op: observe.OpPut}

	err := m.put(ctx, key, value)
	m.metrics.RecordStore(ctx, meta, err)
	if err != nil {
		m.logger.WithOp(meta).Error(ctx, "store failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return err
}

func (m *Manager[T]) put(ctx context.Context, key Key, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id, err := key.Canonical()
	if err != nil {
		return err
	}

	f, err := createEntryFile(m.dir)
	if err != nil {
		return err
	}
	path := f.Name()

	if err := writeEntry(f, id, value); err != nil {
		f.Close()
		return fmt.Errorf("%w: %s: %w", ErrStorageWrite, path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrStorageWrite, path, err)
	}

	m.mu.Lock()
	m.index[string(id)] = &entry[T]{
		path: path,
		key:  key,
		value: func() (T, error) {
			return value, nil
		},
	}
	m.mu.Unlock()

	m.logger.WithOp(observe.OpMeta{Namespace: key.Namespace, Op: observe.OpPut}).Debug(ctx, "entry stored",
		observe.Field{Key: "key", Value: fingerprint(id)},
		observe.Field{Key: "path", Value: path},
	)
	return nil
}

// Len returns the number of indexed entries.
func (m *Manager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.index)
}

// Dir returns the storage directory.
func (m *Manager[T]) Dir() string {
	return m.dir
}

// Lazy reports whether values are re-read from disk on every Get.
func (m *Manager[T]) Lazy() bool {
	return m.lazy
}

// MaxSize returns the configured maximum size. It is not enforced.
func (m *Manager[T]) MaxSize() int {
	return m.maxSize
}

// Entries describes every indexed entry, sorted by path.
func (m *Manager[T]) Entries() []EntryInfo {
	m.mu.RLock()
	infos := make([]EntryInfo, 0, len(m.index))
	for id, e := range m.index {
		infos = append(infos, EntryInfo{
			Path:        e.path,
			Key:         e.key,
			Fingerprint: fingerprint([]byte(id)),
			id:          id,
		})
	}
	m.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Path < infos[j].Path
	})
	return infos
}
