package httpapi

import (
	"database/sql"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"

	"github.com/yashika/lyanna/internal/auth"
	"github.com/yashika/lyanna/internal/cache"
	"github.com/yashika/lyanna/internal/config"
	"github.com/yashika/lyanna/internal/database"
	"github.com/yashika/lyanna/internal/kv"
	"github.com/yashika/lyanna/internal/logging"
	"github.com/yashika/lyanna/internal/session"
)

type fixture struct {
	handler *Handler
	mock    sqlmock.Sqlmock
	cache   *cache.Memory
}

func newFixture(t *testing.T, cfg *config.Config) *fixture {
	t.Helper()

	raw, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { raw.Close() })
	db := database.NewFromConn(sqlx.NewDb(raw, "sqlmock"))

	srv := miniredis.RunT(t)
	pool := kv.NewConfigPool(config.RedisConfig{
		URL:         fmt.Sprintf("redis://%s/0", srv.Addr()),
		PoolMinSize: 1,
		PoolMaxSize: 4,
	})

	if cfg == nil {
		cfg = &config.Config{}
	}
	log := logging.NewNop()
	mem := cache.NewMemory()
	bridge := auth.NewBridge(db, pool)
	authenticator := auth.NewAuthenticator(config.AuthConfig{
		JWTSecret:       "test",
		ExpirationDelta: time.Hour,
	}, bridge, log)
	sessions := session.NewStore(mem, time.Hour)

	return &fixture{
		handler: New(cfg, log, db, authenticator, mem, pool, sessions),
		mock:    mock,
		cache:   mem,
	}
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, path, nil)
	f.handler.Router().ServeHTTP(w, r)
	return w
}

func expectSitemapQueries(mock sqlmock.Sqlmock) {
	created := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM posts WHERE published").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "author_id", "published", "created_at"}).
			AddRow(1, "hello", 1, true, created))
	mock.ExpectQuery("SELECT (.+) FROM tags").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))
}

func TestSitemapRoute(t *testing.T) {
	f := newFixture(t, nil)
	expectSitemapQueries(f.mock)

	w := f.get("/sitemap.xml")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/xml" {
		t.Errorf("content-type = %q, want text/xml", ct)
	}
	body := w.Body.String()
	if !strings.Contains(body, "<loc>/post/1/</loc>") {
		t.Errorf("missing post entry in %s", body)
	}
	if strings.Contains(body, "/admin") {
		t.Error("admin routes leaked into sitemap")
	}
	if strings.Contains(body, "/j/health") {
		t.Error("internal-job routes leaked into sitemap")
	}

	// Second request is served from the cache: no further DB expectations
	// were registered, so a recompute would fail the request.
	w2 := f.get("/sitemap.xml")
	if w2.Code != http.StatusOK {
		t.Fatalf("cached status = %d, want 200 (body: %s)", w2.Code, w2.Body.String())
	}
	if w2.Body.String() != body {
		t.Error("cached payload differs from the first build")
	}
}

func TestNotFoundResponse(t *testing.T) {
	f := newFixture(t, nil)

	w := f.get("/no/such/page")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := w.Body.String(); got != "Oops, That page couldn't found." {
		t.Errorf("body = %q", got)
	}
}

func TestPostNotFound(t *testing.T) {
	f := newFixture(t, nil)
	f.mock.ExpectQuery("SELECT (.+) FROM posts WHERE id").
		WillReturnError(sql.ErrNoRows)

	w := f.get("/post/12345/")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if got := w.Body.String(); got != "Oops, That page couldn't found." {
		t.Errorf("body = %q", got)
	}
}

func TestHealthRoute(t *testing.T) {
	f := newFixture(t, nil)

	w := f.get("/j/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body: %s)", w.Code, w.Body.String())
	}
}

func TestAdminRequiresToken(t *testing.T) {
	f := newFixture(t, nil)

	w := f.get("/admin/whoami")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestURLForCDNRewrite(t *testing.T) {
	f := newFixture(t, &config.Config{CDNDomain: "https://cdn.example.com", Debug: false})

	cases := map[string]string{
		"/static/css/app.css": "https://cdn.example.com/static/css/app.css",
		"/static/img/a.png":   "https://cdn.example.com/static/img/a.png",
		"/post/1/":            "/post/1/",
		"/static/readme.txt":  "/static/readme.txt",
	}
	for in, want := range cases {
		if got := f.handler.URLFor(in); got != want {
			t.Errorf("URLFor(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestURLForDebugMode(t *testing.T) {
	f := newFixture(t, &config.Config{CDNDomain: "https://cdn.example.com", Debug: true})
	if got := f.handler.URLFor("/static/css/app.css"); got != "/static/css/app.css" {
		t.Errorf("debug mode must not rewrite, got %q", got)
	}
}
