// Package appctx publishes shared backend handles into the request-scoped
// context so deep call chains can reach them without parameter threading.
// Handles are attached once per request, before any handler code runs;
// reading them outside request scope is an error, never a silent nil.
package appctx

import (
	"context"
	"errors"

	"github.com/yashika/lyanna/internal/cache"
	"github.com/yashika/lyanna/internal/kv"
)

type ctxKey int

const (
	cacheKey ctxKey = iota
	kvKey
)

// ErrNotAttached is returned when a backend handle is requested from a
// context that never went through WithBackends.
var ErrNotAttached = errors.New("appctx: backends not attached (outside request scope?)")

// WithBackends returns a context carrying the memory-cache and key-value
// store handles. The context holds references only; ownership stays with
// the lifecycle manager.
func WithBackends(ctx context.Context, c cache.Cache, s kv.Store) context.Context {
	ctx = context.WithValue(ctx, cacheKey, c)
	ctx = context.WithValue(ctx, kvKey, s)
	return ctx
}

// CacheFrom returns the memory-cache handle attached to ctx.
func CacheFrom(ctx context.Context) (cache.Cache, error) {
	c, ok := ctx.Value(cacheKey).(cache.Cache)
	if !ok || c == nil {
		return nil, ErrNotAttached
	}
	return c, nil
}

// KVFrom returns the key-value store handle attached to ctx.
func KVFrom(ctx context.Context) (kv.Store, error) {
	s, ok := ctx.Value(kvKey).(kv.Store)
	if !ok || s == nil {
		return nil, ErrNotAttached
	}
	return s, nil
}
