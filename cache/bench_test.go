package cache

import (
	"context"
	"fmt"
	"testing"
)

func benchManager(b *testing.B, lazy bool) *Manager[[]int] {
	b.Helper()
	cfg := DefaultConfig()
	cfg.StoragePath = b.TempDir()
	cfg.Lazy = lazy
	m, err := NewManager[[]int](cfg)
	if err != nil {
		b.Fatalf("NewManager() error = %v", err)
	}
	return m
}

// BenchmarkKey_Canonical measures key encoding.
func BenchmarkKey_Canonical(b *testing.B) {
	key := NewKey("bench", Args{
		Positional: []any{"dataset", 42},
		Keyword: map[string]any{
			"window":  30,
			"filters": map[string]any{"region": "eu", "active": true},
		},
	})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = key.Canonical()
	}
}

// BenchmarkManager_Get_Hit measures in-memory hits after Put.
func BenchmarkManager_Get_Hit(b *testing.B) {
	m := benchManager(b, true)
	ctx := context.Background()
	key := NewKey("", Args{Positional: []any{"key"}})
	_ = m.Put(ctx, key, []int{1, 2, 3})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.Get(ctx, key)
	}
}

// BenchmarkManager_Get_LazyDisk measures hits that re-read the entry file.
func BenchmarkManager_Get_LazyDisk(b *testing.B) {
	dir := b.TempDir()
	ctx := context.Background()
	key := NewKey("", Args{Positional: []any{"key"}})
	value := make([]int, 1024)

	cfg := DefaultConfig()
	cfg.StoragePath = dir
	writer, _ := NewManager[[]int](cfg)
	_ = writer.Put(ctx, key, value)
	m, _ := NewManager[[]int](cfg)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.Get(ctx, key)
	}
}

// BenchmarkManager_Get_Miss measures miss performance.
func BenchmarkManager_Get_Miss(b *testing.B) {
	m := benchManager(b, true)
	ctx := context.Background()
	key := NewKey("", Args{Positional: []any{"missing"}})

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, _ = m.Get(ctx, key)
	}
}

// BenchmarkManager_Put measures write performance.
func BenchmarkManager_Put(b *testing.B) {
	m := benchManager(b, true)
	ctx := context.Background()
	value := []int{1, 2, 3}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.Put(ctx, NewKey("", Args{Positional: []any{fmt.Sprintf("key-%d", i)}}), value)
	}
}

// BenchmarkMemoized_Call_Hit measures the wrapper's hit path.
func BenchmarkMemoized_Call_Hit(b *testing.B) {
	m := benchManager(b, false)
	fn := func(context.Context, Args) ([]int, error) { return []int{1}, nil }
	mem, _ := Memoize(fn, m)
	ctx := context.Background()
	args := Args{Positional: []any{"key"}}
	_, _ = mem.Call(ctx, args)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = mem.Call(ctx, args)
	}
}
