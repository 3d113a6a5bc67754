// Package jobs runs the background schedule: periodic sitemap cache refresh.
// It is also the surface content-change triggers call to invalidate the
// cached sitemap outside of any request.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"

	"github.com/yashika/lyanna/internal/appctx"
	"github.com/yashika/lyanna/internal/cache"
	"github.com/yashika/lyanna/internal/cached"
	"github.com/yashika/lyanna/internal/kv"
	"github.com/yashika/lyanna/internal/logging"
	"github.com/yashika/lyanna/internal/sitemap"
)

// Runner owns the cron schedule.
type Runner struct {
	cron  *cron.Cron
	cache cache.Cache
	pool  *kv.Pool
	build cached.ComputeFunc
	log   *logging.Logger
}

// New creates a runner that refreshes the sitemap with build, which must be
// the same wrapped computation the sitemap route serves.
func New(c cache.Cache, pool *kv.Pool, build cached.ComputeFunc, log *logging.Logger) *Runner {
	return &Runner{
		cron:  cron.New(),
		cache: c,
		pool:  pool,
		build: build,
		log:   log,
	}
}

// Start schedules the hourly sitemap refresh and begins running jobs.
func (r *Runner) Start() error {
	if _, err := r.cron.AddFunc("@hourly", r.refreshSitemap); err != nil {
		return err
	}
	r.cron.Start()
	return nil
}

// Stop halts the schedule and waits for a running job to finish.
func (r *Runner) Stop() {
	<-r.cron.Stop().Done()
}

// InvalidateSitemap drops the cached sitemap so the next request rebuilds
// it. Content-change hooks call this.
func (r *Runner) InvalidateSitemap(ctx context.Context) error {
	return cached.Invalidate(ctx, r.cache, sitemap.CacheKey)
}

// refreshSitemap invalidates and rebuilds the cached sitemap. Jobs run
// outside request scope, so the backends are attached here explicitly.
func (r *Runner) refreshSitemap() {
	ctx := context.Background()

	store, err := r.pool.Acquire(ctx)
	if err != nil {
		r.log.WithError(err).Warn("sitemap refresh skipped: key-value store unavailable")
		return
	}
	ctx = appctx.WithBackends(ctx, r.cache, store)

	if err := r.InvalidateSitemap(ctx); err != nil {
		r.log.WithError(err).Warn("sitemap invalidation failed")
	}
	if _, err := r.build(ctx); err != nil {
		r.log.WithError(err).Warn("sitemap rebuild failed")
		return
	}
	r.log.Debug("sitemap cache refreshed")
}
