// Package kv provides the Redis-backed key-value store and the lazily
// constructed process-wide connection pool.
package kv

import (
	"context"
	"errors"
	"sync"

	"github.com/go-redis/redis/v8"

	"github.com/yashika/lyanna/internal/apperr"
	"github.com/yashika/lyanna/internal/config"
)

// ErrNoKey is returned by Get when the key does not exist.
var ErrNoKey = errors.New("kv: key not found")

// Store is the minimal operation set the application needs from the
// key-value store. Implementations must be safe for concurrent use.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

type redisStore struct {
	client *redis.Client
}

// Open connects a Redis client with the configured pool bounds and verifies
// the connection with a ping.
func Open(ctx context.Context, cfg config.RedisConfig) (Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = cfg.PoolMaxSize
	opts.MinIdleConns = cfg.PoolMinSize

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, apperr.Unavailable("redis", err)
	}
	return &redisStore{client: client}, nil
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNoKey
		}
		return "", apperr.Unavailable("redis", err)
	}
	return val, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, key, value, 0).Err(); err != nil {
		return apperr.Unavailable("redis", err)
	}
	return nil
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return apperr.Unavailable("redis", err)
	}
	return nil
}

func (s *redisStore) Close() error {
	return s.client.Close()
}

// Pool owns the process-wide Store singleton. The store is constructed on
// first Acquire, never again for the life of the process, even under
// concurrent first requests. A failed construction leaves the pool empty so
// a later request can retry.
type Pool struct {
	open func(context.Context) (Store, error)

	mu    sync.Mutex
	store Store
}

// NewPool creates a pool that constructs its store with open on first use.
func NewPool(open func(context.Context) (Store, error)) *Pool {
	return &Pool{open: open}
}

// NewConfigPool creates a pool bound to the configured Redis backend.
func NewConfigPool(cfg config.RedisConfig) *Pool {
	return NewPool(func(ctx context.Context) (Store, error) {
		return Open(ctx, cfg)
	})
}

// Acquire returns the shared store, constructing it if this is the first
// call to observe the pool.
func (p *Pool) Acquire(ctx context.Context) (Store, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store != nil {
		return p.store, nil
	}
	store, err := p.open(ctx)
	if err != nil {
		return nil, err
	}
	p.store = store
	return store, nil
}

// Close releases the underlying store if it was ever constructed.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.store == nil {
		return nil
	}
	err := p.store.Close()
	p.store = nil
	return err
}
