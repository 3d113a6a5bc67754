package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "lyanna",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lyanna",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lyanna",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	cacheOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lyanna",
			Subsystem: "cache",
			Name:      "ops_total",
			Help:      "Memoizing cache outcomes by key.",
		},
		[]string{"key", "outcome"}, // hit, miss, error
	)

	sitemapBuilds = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lyanna",
			Subsystem: "sitemap",
			Name:      "builds_total",
			Help:      "Number of full sitemap recomputations.",
		},
	)
)

func init() {
	Registry.MustRegister(httpInFlight, httpRequests, httpDuration, cacheOps, sitemapBuilds)
}

// IncrementInFlight bumps the in-flight request gauge.
func IncrementInFlight() { httpInFlight.Inc() }

// DecrementInFlight drops the in-flight request gauge.
func DecrementInFlight() { httpInFlight.Dec() }

// RecordHTTPRequest records one completed HTTP request.
func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequests.WithLabelValues(method, path, status).Inc()
	httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCacheHit notes a memoized result served for key.
func RecordCacheHit(key string) { cacheOps.WithLabelValues(key, "hit").Inc() }

// RecordCacheMiss notes a recomputation for key.
func RecordCacheMiss(key string) { cacheOps.WithLabelValues(key, "miss").Inc() }

// RecordCacheError notes a cache-backend failure observed while serving key.
func RecordCacheError(key string) { cacheOps.WithLabelValues(key, "error").Inc() }

// RecordSitemapBuild notes one full sitemap build.
func RecordSitemapBuild() { sitemapBuilds.Inc() }

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
