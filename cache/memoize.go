package cache

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/diskmemo/observe"
)

// Func is the signature of a computation that can be memoized.
//
// It must be a pure function of args: results may be served from an
// earlier process run, and nothing checks that they are still correct.
type Func[T any] func(ctx context.Context, args Args) (T, error)

// Memoized is a memoizing wrapper around a Func.
type Memoized[T any] struct {
	store     Store[T]
	namespace string
	logger    observe.Logger
	call      observe.ExecuteFunc
	group     singleflight.Group
}

// Memoize wraps fn so that calls with the same arguments are served from
// manager. If manager is nil, a new Manager is created for this wrapper from
// the WithConfig configuration, or DefaultConfig() if unset. Managers are
// never shared implicitly.
func Memoize[T any](fn Func[T], manager *Manager[T], opts ...Option) (*Memoized[T], error) {
	if fn == nil {
		return nil, ErrNilFunc
	}

	o := applyOptions(opts)
	if manager == nil {
		m, err := NewManager[T](o.config, opts...)
		if err != nil {
			return nil, err
		}
		manager = m
	}

	call := func(ctx context.Context, _ observe.OpMeta, input any) (any, error) {
		return fn(ctx, input.(Args))
	}
	if o.middleware != nil {
		call = o.middleware.Wrap(call)
	}

	return &Memoized[T]{
		store:     manager,
		namespace: o.namespace,
		logger:    o.logger,
		call:      call,
	}, nil
}

// Call invokes the wrapped function through the cache.
//
// If args.Keyword[NoMemoizeArg] is true, the cache is neither read nor
// written. NoMemoizeArg is never forwarded to the wrapped function.
// Errors from the wrapped function are returned unchanged and not cached.
// If the result cannot be stored, it is returned together with an error
// wrapping ErrStorageWrite.
//
// Concurrent misses on one key share a single computation, which runs
// detached from the cancellation of the call that started it. A caller whose
// ctx ends first stops waiting and gets ctx.Err(); the others still receive
// the result. Results served from memory are shared; see Manager.Get.
func (m *Memoized[T]) Call(ctx context.Context, args Args) (T, error) {
	args, bypass := splitControl(args)
	if bypass {
		return m.invoke(ctx, args)
	}

	key := NewKey(m.namespace, args)
	id, err := key.Canonical()
	if err != nil {
		m.logger.WithOp(m.op(observe.OpGet)).Warn(ctx, "key derivation failed, computing without cache",
			observe.Field{Key: "error", Value: err.Error()},
		)
		return m.invoke(ctx, args)
	}

	v, ok, err := m.store.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if ok {
		return v, nil
	}

	shared := m.group.DoChan(string(id), func() (any, error) {
		ctx := context.WithoutCancel(ctx)
		v, err := m.invoke(ctx, args)
		if err != nil {
			return v, err
		}
		if err := m.store.Put(ctx, key, v); err != nil {
			if !errors.Is(err, ErrStorageWrite) {
				err = fmt.Errorf("%w: %w", ErrStorageWrite, err)
			}
			return v, err
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-shared:
		v, _ = res.Val.(T)
		return v, res.Err
	}
}

// Func returns the memoized computation with the same signature as the
// wrapped one.
func (m *Memoized[T]) Func() Func[T] {
	return m.Call
}

func (m *Memoized[T]) invoke(ctx context.Context, args Args) (T, error) {
	out, err := m.call(ctx, m.op(observe.OpCompute), args)
	v, _ := out.(T)
	return v, err
}

func (m *Memoized[T]) op(name string) observe.OpMeta {
	return observe.OpMeta{Namespace: m.namespace, Op: name}
}

// splitControl removes NoMemoizeArg from args and reports whether it asked
// for the cache to be bypassed. Only the boolean true bypasses.
func splitControl(args Args) (Args, bool) {
	flag, ok := args.Keyword[NoMemoizeArg]
	if !ok {
		return args, false
	}

	keyword := make(map[string]any, len(args.Keyword)-1)
	for k, v := range args.Keyword {
		if k != NoMemoizeArg {
			keyword[k] = v
		}
	}
	bypass, _ := flag.(bool)
	return Args{Positional: args.Positional, Keyword: keyword}, bypass
}
