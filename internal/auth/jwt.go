package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/yashika/lyanna/internal/apperr"
	"github.com/yashika/lyanna/internal/config"
	"github.com/yashika/lyanna/internal/database"
	"github.com/yashika/lyanna/internal/logging"
)

type identityCtxKey struct{}

// Claims carries the token payload.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenPair is what a successful login or refresh returns.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Authenticator issues and validates access tokens, delegating identity and
// refresh-token persistence to the Bridge.
type Authenticator struct {
	secret     []byte
	expiration time.Duration
	bridge     *Bridge
	log        *logging.Logger
}

// NewAuthenticator creates an authenticator from process configuration.
func NewAuthenticator(cfg config.AuthConfig, bridge *Bridge, log *logging.Logger) *Authenticator {
	return &Authenticator{
		secret:     []byte(cfg.JWTSecret),
		expiration: cfg.ExpirationDelta,
		bridge:     bridge,
		log:        log,
	}
}

// Login verifies credentials and returns a fresh token pair. The refresh
// token is persisted through the bridge.
func (a *Authenticator) Login(ctx context.Context, name, password string) (*TokenPair, error) {
	user, err := a.bridge.db.GetUserByName(ctx, name)
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.Unauthorized("unknown user or wrong password")
		}
		return nil, err
	}
	if !user.Active {
		return nil, apperr.Unauthorized("account disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.Unauthorized("unknown user or wrong password")
	}
	return a.issuePair(ctx, user.ID)
}

// Refresh exchanges a stored refresh token for a new token pair.
func (a *Authenticator) Refresh(ctx context.Context, userID int64, refreshToken string) (*TokenPair, error) {
	stored, err := a.bridge.RetrieveRefreshToken(ctx, userID)
	if err != nil {
		if err == ErrNoToken {
			return nil, apperr.Unauthorized("no refresh token on record")
		}
		return nil, err
	}
	if stored != refreshToken {
		return nil, apperr.Unauthorized("refresh token mismatch")
	}
	return a.issuePair(ctx, userID)
}

func (a *Authenticator) issuePair(ctx context.Context, userID int64) (*TokenPair, error) {
	now := time.Now()
	claims := &Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiration)),
		},
	}
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := a.bridge.StoreRefreshToken(ctx, userID, refresh); err != nil {
		return nil, err
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

func newRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// ValidateToken parses and verifies an access token, returning its claims.
func (a *Authenticator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperr.Unauthorized("invalid token")
	}
	return claims, nil
}

// Middleware validates Bearer tokens and resolves the caller's identity
// through the bridge before the protected handler runs.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			a.deny(w, "Missing Authorization header")
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			a.deny(w, "Invalid Authorization header format")
			return
		}

		claims, err := a.ValidateToken(parts[1])
		if err != nil {
			a.log.WithContext(r.Context()).WithError(err).Warn("token validation failed")
			a.deny(w, "Invalid or expired token")
			return
		}

		payload, _ := json.Marshal(map[string]int64{"user_id": claims.UserID})
		user, err := a.bridge.ResolveIdentity(r.Context(), payload)
		if err != nil || user == nil {
			status := http.StatusUnauthorized
			if apperr.IsNotFound(err) {
				status = http.StatusNotFound
			}
			http.Error(w, "Unknown identity", status)
			return
		}

		ctx := context.WithValue(r.Context(), identityCtxKey{}, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Authenticator) deny(w http.ResponseWriter, msg string) {
	http.Error(w, msg, http.StatusUnauthorized)
}

// IdentityFrom returns the authenticated user attached by Middleware, if
// any.
func IdentityFrom(ctx context.Context) (*database.User, bool) {
	u, ok := ctx.Value(identityCtxKey{}).(*database.User)
	return u, ok
}
