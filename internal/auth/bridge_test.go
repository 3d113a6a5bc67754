package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"

	"github.com/yashika/lyanna/internal/apperr"
	"github.com/yashika/lyanna/internal/config"
	"github.com/yashika/lyanna/internal/database"
	"github.com/yashika/lyanna/internal/kv"
)

func testDB(t *testing.T) (*database.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	return database.NewFromConn(sqlx.NewDb(raw, "sqlmock")), mock
}

func testPool(t *testing.T) *kv.Pool {
	t.Helper()
	srv := miniredis.RunT(t)
	return kv.NewConfigPool(config.RedisConfig{
		URL:         fmt.Sprintf("redis://%s/0", srv.Addr()),
		PoolMinSize: 1,
		PoolMaxSize: 4,
	})
}

func userRows(id int64, name string) *sqlmock.Rows {
	return userRowsWithHash(id, name, "$2a$10$hash")
}

func userRowsWithHash(id int64, name, hash string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "password_hash", "active", "created_at"}).
		AddRow(id, name, name+"@example.com", hash, true, time.Now())
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	db, _ := testDB(t)
	bridge := NewBridge(db, testPool(t))
	ctx := context.Background()

	if err := bridge.StoreRefreshToken(ctx, 42, "abc"); err != nil {
		t.Fatalf("store: %v", err)
	}
	got, err := bridge.RetrieveRefreshToken(ctx, 42)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got != "abc" {
		t.Errorf("got %q, want abc", got)
	}
}

func TestRefreshTokenOverwrite(t *testing.T) {
	db, _ := testDB(t)
	bridge := NewBridge(db, testPool(t))
	ctx := context.Background()

	if err := bridge.StoreRefreshToken(ctx, 42, "old"); err != nil {
		t.Fatalf("store old: %v", err)
	}
	if err := bridge.StoreRefreshToken(ctx, 42, "new"); err != nil {
		t.Fatalf("store new: %v", err)
	}
	got, err := bridge.RetrieveRefreshToken(ctx, 42)
	if err != nil {
		t.Fatalf("retrieve: %v", err)
	}
	if got != "new" {
		t.Errorf("got %q, want new", got)
	}
}

func TestRetrieveRefreshTokenNeverStored(t *testing.T) {
	db, _ := testDB(t)
	bridge := NewBridge(db, testPool(t))

	if _, err := bridge.RetrieveRefreshToken(context.Background(), 999); !errors.Is(err, ErrNoToken) {
		t.Errorf("got %v, want ErrNoToken", err)
	}
}

func TestResolveIdentityFound(t *testing.T) {
	db, mock := testDB(t)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(7)).
		WillReturnRows(userRows(7, "dorothea"))

	bridge := NewBridge(db, testPool(t))
	user, err := bridge.ResolveIdentity(context.Background(), []byte(`{"user_id": 7}`))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if user == nil || user.ID != 7 {
		t.Fatalf("got %+v, want user 7", user)
	}
}

func TestResolveIdentityUnknownUser(t *testing.T) {
	db, mock := testDB(t)
	mock.ExpectQuery("SELECT (.+) FROM users WHERE id").
		WithArgs(int64(99999)).
		WillReturnError(sql.ErrNoRows)

	bridge := NewBridge(db, testPool(t))
	_, err := bridge.ResolveIdentity(context.Background(), []byte(`{"user_id": 99999}`))
	if !apperr.IsNotFound(err) {
		t.Errorf("got %v, want typed not-found", err)
	}
}

func TestResolveIdentityNoUserID(t *testing.T) {
	db, _ := testDB(t)
	bridge := NewBridge(db, testPool(t))

	user, err := bridge.ResolveIdentity(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("empty payload should not error: %v", err)
	}
	if user != nil {
		t.Errorf("got %+v, want nil identity", user)
	}

	user, err = bridge.ResolveIdentity(context.Background(), nil)
	if err != nil || user != nil {
		t.Errorf("nil payload: got (%+v, %v), want (nil, nil)", user, err)
	}
}
