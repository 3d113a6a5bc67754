package appctx

import (
	"context"
	"errors"
	"testing"

	"github.com/yashika/lyanna/internal/cache"
)

func TestWithBackendsRoundTrip(t *testing.T) {
	c := cache.NewMemory()
	ctx := WithBackends(context.Background(), c, nil)

	got, err := CacheFrom(ctx)
	if err != nil {
		t.Fatalf("CacheFrom: %v", err)
	}
	if got != cache.Cache(c) {
		t.Error("expected the same cache handle back")
	}
}

func TestAccessorsFailOutsideRequestScope(t *testing.T) {
	ctx := context.Background()

	if _, err := CacheFrom(ctx); !errors.Is(err, ErrNotAttached) {
		t.Errorf("CacheFrom on bare context: got %v, want ErrNotAttached", err)
	}
	if _, err := KVFrom(ctx); !errors.Is(err, ErrNotAttached) {
		t.Errorf("KVFrom on bare context: got %v, want ErrNotAttached", err)
	}
}

func TestNilHandleIsNotAttached(t *testing.T) {
	ctx := WithBackends(context.Background(), nil, nil)
	if _, err := CacheFrom(ctx); !errors.Is(err, ErrNotAttached) {
		t.Errorf("nil cache handle should read as not attached, got %v", err)
	}
}
