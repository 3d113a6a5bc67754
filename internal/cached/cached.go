// Package cached implements the generic memoizing wrapper that guards
// expensive computations with the memory cache.
package cached

import (
	"context"
	"errors"

	"github.com/yashika/lyanna/internal/appctx"
	"github.com/yashika/lyanna/internal/cache"
	"github.com/yashika/lyanna/internal/logging"
	"github.com/yashika/lyanna/internal/metrics"
)

// ComputeFunc is a computation whose result is worth memoizing.
type ComputeFunc func(ctx context.Context) ([]byte, error)

// Wrap memoizes fn under key in the memory cache attached to the calling
// context. A cache-backend failure never fails the call: the wrapper
// degrades to recomputing every time and records the failure as a warning
// and a metric.
func Wrap(key string, log *logging.Logger, fn ComputeFunc) ComputeFunc {
	return func(ctx context.Context) ([]byte, error) {
		c, err := appctx.CacheFrom(ctx)
		if err != nil {
			// No cache in scope; compute uncached.
			return fn(ctx)
		}

		value, err := c.Get(ctx, key)
		switch {
		case err == nil:
			metrics.RecordCacheHit(key)
			return value, nil
		case errors.Is(err, cache.ErrMiss):
			metrics.RecordCacheMiss(key)
		default:
			metrics.RecordCacheError(key)
			log.WithContext(ctx).WithError(err).Warnf("cache lookup failed for %q, recomputing", key)
		}

		value, err = fn(ctx)
		if err != nil {
			return nil, err
		}

		// No explicit expiry; the backend's policy governs eviction.
		if err := c.Set(ctx, key, value, 0); err != nil {
			metrics.RecordCacheError(key)
			log.WithContext(ctx).WithError(err).Warnf("cache store failed for %q", key)
		}
		return value, nil
	}
}

// Invalidate removes key from c so the next wrapped invocation recomputes.
// This is the surface external content-change triggers call.
func Invalidate(ctx context.Context, c cache.Cache, key string) error {
	return c.Delete(ctx, key)
}

// InvalidateContext removes key using the cache attached to ctx.
func InvalidateContext(ctx context.Context, key string) error {
	c, err := appctx.CacheFrom(ctx)
	if err != nil {
		return err
	}
	return Invalidate(ctx, c, key)
}
