// Package app owns the application lifecycle: ordered startup of the shared
// backends, the HTTP server's run loop, and graceful teardown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync/atomic"
	"time"

	"github.com/yashika/lyanna/internal/auth"
	"github.com/yashika/lyanna/internal/cache"
	"github.com/yashika/lyanna/internal/config"
	"github.com/yashika/lyanna/internal/database"
	"github.com/yashika/lyanna/internal/httpapi"
	"github.com/yashika/lyanna/internal/jobs"
	"github.com/yashika/lyanna/internal/kv"
	"github.com/yashika/lyanna/internal/logging"
	"github.com/yashika/lyanna/internal/session"
)

// Application wires core dependencies and manages the server lifecycle. It
// exclusively owns the backend handles; everything else holds references.
type Application struct {
	cfg *config.Config
	log *logging.Logger

	db         *database.DB
	cache      cache.Cache
	kvPool     *kv.Pool
	httpClient *http.Client
	sessions   *session.Store
	handler    *httpapi.Handler
	jobs       *jobs.Runner
	server     *http.Server

	started atomic.Bool
	stopped atomic.Bool
}

// New creates an application from loaded configuration. No connections are
// opened here; Startup does that.
func New(cfg *config.Config, log *logging.Logger) *Application {
	return &Application{cfg: cfg, log: log}
}

// Startup brings up the shared backends in order: the relational store
// first (fatal on failure), then the memory-cache handle, the session store
// bound to it, the outbound HTTP client, and the upload directory. It must
// complete before the server accepts traffic. Calling it twice is an error,
// not corruption.
func (a *Application) Startup(ctx context.Context) error {
	if !a.started.CompareAndSwap(false, true) {
		return errors.New("startup already ran")
	}

	db, err := database.Open(ctx, a.cfg.Database)
	if err != nil {
		return fmt.Errorf("database startup: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return fmt.Errorf("database migrate: %w", err)
	}
	a.db = db

	// Construction never blocks; memcached failures surface on first use
	// as typed unavailable errors.
	a.cache = cache.NewMemcached(a.cfg.Cache.Addr)

	a.sessions = session.NewStore(a.cache, 24*time.Hour)

	a.httpClient = &http.Client{Timeout: 30 * time.Second}

	if err := os.MkdirAll(a.cfg.UploadFolder, 0o755); err != nil {
		return fmt.Errorf("create upload folder: %w", err)
	}

	a.kvPool = kv.NewConfigPool(a.cfg.Redis)

	bridge := auth.NewBridge(a.db, a.kvPool)
	authenticator := auth.NewAuthenticator(a.cfg.Auth, bridge, a.log)
	a.handler = httpapi.New(a.cfg, a.log, a.db, authenticator, a.cache, a.kvPool, a.sessions)

	a.jobs = jobs.New(a.cache, a.kvPool, a.handler.SitemapFunc(), a.log)
	if err := a.jobs.Start(); err != nil {
		return fmt.Errorf("start jobs: %w", err)
	}

	a.server = &http.Server{
		Addr:              a.cfg.Server.Addr(),
		Handler:           a.handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return nil
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the server fails.
func (a *Application) Run(ctx context.Context) error {
	if !a.started.Load() {
		return errors.New("run before startup")
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("HTTP server listening on %s", a.cfg.Server.Addr())
		if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown tears everything down after the server stops accepting
// connections. Closing the outbound HTTP client is required; the rest is
// best-effort and order-independent. A second call is a no-op.
func (a *Application) Shutdown(ctx context.Context) error {
	if !a.stopped.CompareAndSwap(false, true) {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.log.WithError(err).Warn("http server shutdown")
		}
	}

	if a.jobs != nil {
		a.jobs.Stop()
	}

	if a.httpClient != nil {
		a.httpClient.CloseIdleConnections()
	}

	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.log.WithError(err).Warn("error closing cache connection")
		}
	}
	if a.kvPool != nil {
		if err := a.kvPool.Close(); err != nil {
			a.log.WithError(err).Warn("error closing key-value pool")
		}
	}

	return nil
}

// HTTPClient exposes the shared outbound client for handlers that call
// external services.
func (a *Application) HTTPClient() *http.Client { return a.httpClient }

// Jobs exposes the background runner, for content-change hooks that need to
// invalidate the sitemap.
func (a *Application) Jobs() *jobs.Runner { return a.jobs }
