package auth

import (
	"context"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/yashika/lyanna/internal/apperr"
	"github.com/yashika/lyanna/internal/config"
	"github.com/yashika/lyanna/internal/logging"
)

func testAuthenticator(t *testing.T) (*Authenticator, *Bridge) {
	t.Helper()
	db, mock := testDB(t)
	_ = mock
	bridge := NewBridge(db, testPool(t))
	a := NewAuthenticator(config.AuthConfig{
		JWTSecret:       "test-secret",
		ExpirationDelta: time.Hour,
	}, bridge, logging.NewNop())
	return a, bridge
}

func TestIssueAndValidateToken(t *testing.T) {
	a, _ := testAuthenticator(t)

	pair, err := a.issuePair(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatal("expected both tokens to be set")
	}

	claims, err := a.ValidateToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("user_id = %d, want 7", claims.UserID)
	}
}

func TestValidateGarbageToken(t *testing.T) {
	a, _ := testAuthenticator(t)
	if _, err := a.ValidateToken("not.a.token"); !apperr.IsUnauthorized(err) {
		t.Errorf("got %v, want unauthorized", err)
	}
}

func TestValidateWrongSecret(t *testing.T) {
	a, bridge := testAuthenticator(t)
	pair, err := a.issuePair(context.Background(), 7)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewAuthenticator(config.AuthConfig{
		JWTSecret:       "different-secret",
		ExpirationDelta: time.Hour,
	}, bridge, logging.NewNop())
	if _, err := other.ValidateToken(pair.AccessToken); !apperr.IsUnauthorized(err) {
		t.Errorf("got %v, want unauthorized", err)
	}
}

func TestLoginVerifiesPassword(t *testing.T) {
	db, mock := testDB(t)
	a := NewAuthenticator(config.AuthConfig{
		JWTSecret:       "test-secret",
		ExpirationDelta: time.Hour,
	}, NewBridge(db, testPool(t)), logging.NewNop())

	hash, err := bcrypt.GenerateFromPassword([]byte("sekrit"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	mock.ExpectQuery("SELECT (.+) FROM users WHERE name").
		WithArgs("dorothea").
		WillReturnRows(userRowsWithHash(7, "dorothea", string(hash)))

	pair, err := a.Login(context.Background(), "dorothea", "sekrit")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if pair.AccessToken == "" {
		t.Error("expected access token")
	}

	mock.ExpectQuery("SELECT (.+) FROM users WHERE name").
		WithArgs("dorothea").
		WillReturnRows(userRowsWithHash(7, "dorothea", string(hash)))

	if _, err := a.Login(context.Background(), "dorothea", "wrong"); !apperr.IsUnauthorized(err) {
		t.Errorf("wrong password: got %v, want unauthorized", err)
	}
}

func TestRefreshRejectsMismatch(t *testing.T) {
	a, bridge := testAuthenticator(t)
	ctx := context.Background()

	if err := bridge.StoreRefreshToken(ctx, 7, "the-real-one"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := a.Refresh(ctx, 7, "forged"); !apperr.IsUnauthorized(err) {
		t.Errorf("got %v, want unauthorized", err)
	}
	if _, err := a.Refresh(ctx, 12345, "anything"); !apperr.IsUnauthorized(err) {
		t.Errorf("unknown user: got %v, want unauthorized", err)
	}
}
