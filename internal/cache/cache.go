// Package cache provides the distributed memory-cache handle used for
// memoized computations and session data.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/yashika/lyanna/internal/apperr"
)

// ErrMiss is returned by Get when the key is not present.
var ErrMiss = errors.New("cache: miss")

// Cache is the minimal operation set the application needs from the memory
// cache. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Memcached is the production Cache backed by a memcached server. The client
// connects lazily, so construction never fails; connection problems surface
// on the first operation as typed unavailable errors.
type Memcached struct {
	client *memcache.Client
}

// NewMemcached creates a handle for the memcached server at addr.
func NewMemcached(addr string) *Memcached {
	return &Memcached{client: memcache.New(addr)}
}

func (m *Memcached) Get(_ context.Context, key string) ([]byte, error) {
	item, err := m.client.Get(key)
	if err != nil {
		return nil, classify(err)
	}
	return item.Value, nil
}

func (m *Memcached) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := &memcache.Item{Key: key, Value: value}
	if ttl > 0 {
		item.Expiration = int32(ttl / time.Second)
	}
	if err := m.client.Set(item); err != nil {
		return classify(err)
	}
	return nil
}

func (m *Memcached) Delete(_ context.Context, key string) error {
	err := m.client.Delete(key)
	if err != nil && !errors.Is(err, memcache.ErrCacheMiss) {
		return classify(err)
	}
	return nil
}

func (m *Memcached) Close() error {
	return m.client.Close()
}

// classify maps client errors to the application's typed categories. A miss
// stays a miss; anything else from the wire is an unavailable backend.
func classify(err error) error {
	if errors.Is(err, memcache.ErrCacheMiss) {
		return ErrMiss
	}
	return apperr.Unavailable("memcached", err)
}
