// Package auth holds the token bridge the JWT layer calls into and the JWT
// issuance/validation built on top of it. The bridge is a pure adapter over
// application state; no credential checking happens in it.
package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/yashika/lyanna/internal/database"
	"github.com/yashika/lyanna/internal/kv"
)

// ErrNoToken indicates no refresh token has ever been stored for the user.
var ErrNoToken = errors.New("auth: no refresh token stored")

// Bridge adapts application state to the token layer's contract.
type Bridge struct {
	db   *database.DB
	pool *kv.Pool
}

// NewBridge creates a bridge over the relational store and the key-value
// pool.
func NewBridge(db *database.DB, pool *kv.Pool) *Bridge {
	return &Bridge{db: db, pool: pool}
}

func refreshTokenKey(userID int64) string {
	return fmt.Sprintf("refresh_token_%d", userID)
}

// ResolveIdentity maps a decoded token payload to a user. A payload without
// a user_id field resolves to no identity without error; a user_id that does
// not exist is a typed not-found failure.
func (b *Bridge) ResolveIdentity(ctx context.Context, payload []byte) (*database.User, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	userID := gjson.GetBytes(payload, "user_id")
	if !userID.Exists() {
		return nil, nil
	}
	return b.db.GetUser(ctx, userID.Int())
}

// StoreRefreshToken persists token for the user, overwriting any previous
// value. Expiry is delegated to the store.
func (b *Bridge) StoreRefreshToken(ctx context.Context, userID int64, token string) error {
	store, err := b.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	return store.Set(ctx, refreshTokenKey(userID), token)
}

// RetrieveRefreshToken returns the stored token for the user, or ErrNoToken
// if none was ever stored.
func (b *Bridge) RetrieveRefreshToken(ctx context.Context, userID int64) (string, error) {
	store, err := b.pool.Acquire(ctx)
	if err != nil {
		return "", err
	}
	token, err := store.Get(ctx, refreshTokenKey(userID))
	if err != nil {
		if errors.Is(err, kv.ErrNoKey) {
			return "", ErrNoToken
		}
		return "", err
	}
	return token, nil
}
