// Package session stores cookie-addressed session data in the memory cache.
// The store is bound to the cache handle during startup, before the server
// accepts traffic.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/yashika/lyanna/internal/cache"
)

const (
	cookieName = "sid"
	keyPrefix  = "session_"
)

// Session is one visitor's mutable state.
type Session struct {
	ID     string
	Values map[string]string

	fresh bool
}

// Store reads and writes sessions through the memory cache.
type Store struct {
	cache  cache.Cache
	maxAge time.Duration
}

// NewStore binds a session store to the given cache handle.
func NewStore(c cache.Cache, maxAge time.Duration) *Store {
	return &Store{cache: c, maxAge: maxAge}
}

// Load returns the session identified by the request's cookie, or a fresh
// one when no valid cookie is present.
func (s *Store) Load(r *http.Request) (*Session, error) {
	cookie, err := r.Cookie(cookieName)
	if err != nil || cookie.Value == "" {
		return newSession(), nil
	}

	raw, err := s.cache.Get(r.Context(), keyPrefix+cookie.Value)
	if err != nil {
		if errors.Is(err, cache.ErrMiss) {
			return newSession(), nil
		}
		return nil, err
	}

	var values map[string]string
	if err := json.Unmarshal(raw, &values); err != nil {
		return newSession(), nil
	}
	return &Session{ID: cookie.Value, Values: values}, nil
}

// Save writes the session back to the cache and sets the cookie on fresh
// sessions.
func (s *Store) Save(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	raw, err := json.Marshal(sess.Values)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.cache.Set(ctx, keyPrefix+sess.ID, raw, s.maxAge); err != nil {
		return err
	}

	if sess.fresh {
		http.SetCookie(w, &http.Cookie{
			Name:     cookieName,
			Value:    sess.ID,
			Path:     "/",
			HttpOnly: true,
			MaxAge:   int(s.maxAge / time.Second),
		})
		sess.fresh = false
	}
	return nil
}

// Destroy removes the session from the cache and expires the cookie.
func (s *Store) Destroy(ctx context.Context, w http.ResponseWriter, sess *Session) error {
	if err := s.cache.Delete(ctx, keyPrefix+sess.ID); err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{Name: cookieName, Value: "", Path: "/", MaxAge: -1})
	return nil
}

func newSession() *Session {
	return &Session{
		ID:     uuid.NewString(),
		Values: make(map[string]string),
		fresh:  true,
	}
}
