// Package httpapi wires the route handlers, the central error responder, and
// the middleware chain onto the router.
package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/yashika/lyanna/internal/apperr"
	"github.com/yashika/lyanna/internal/appctx"
	"github.com/yashika/lyanna/internal/auth"
	"github.com/yashika/lyanna/internal/cache"
	"github.com/yashika/lyanna/internal/cached"
	"github.com/yashika/lyanna/internal/config"
	"github.com/yashika/lyanna/internal/database"
	"github.com/yashika/lyanna/internal/kv"
	"github.com/yashika/lyanna/internal/logging"
	"github.com/yashika/lyanna/internal/metrics"
	"github.com/yashika/lyanna/internal/middleware"
	"github.com/yashika/lyanna/internal/session"
	"github.com/yashika/lyanna/internal/sitemap"
)

// Extensions the CDN serves; URLs for these are rewritten outside debug
// mode.
var staticFileTypes = map[string]bool{
	"css": true, "js": true, "png": true, "jpg": true, "jpeg": true,
	"gif": true, "ico": true, "svg": true, "woff": true, "woff2": true,
}

// Handler holds everything the routes need.
type Handler struct {
	cfg      *config.Config
	log      *logging.Logger
	db       *database.DB
	auth     *auth.Authenticator
	builder  *sitemap.Builder
	sessions *session.Store

	router     *mux.Router
	sitemapFn  cached.ComputeFunc
	loginLimit *middleware.RateLimiter
}

// New assembles the handler and its router. The middleware chain attaches
// backend handles before any route code runs.
func New(cfg *config.Config, log *logging.Logger, db *database.DB, a *auth.Authenticator,
	c cache.Cache, pool *kv.Pool, sessions *session.Store) *Handler {

	h := &Handler{
		cfg:        cfg,
		log:        log,
		db:         db,
		auth:       a,
		builder:    sitemap.NewBuilder(db),
		sessions:   sessions,
		loginLimit: middleware.NewRateLimiter(5, 10, log),
	}

	r := mux.NewRouter()
	r.Use(middleware.Logging(log))
	r.Use(middleware.Metrics())
	r.Use(middleware.Attach(c, pool, log))

	r.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/post/{id:[0-9]+}/", h.handlePost).Methods(http.MethodGet)
	r.HandleFunc("/sitemap.xml", h.handleSitemap).Methods(http.MethodGet)
	r.Handle("/auth/login", h.loginLimit.Handler(http.HandlerFunc(h.handleLogin))).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh", h.handleRefresh).Methods(http.MethodPost)
	r.HandleFunc("/j/health", h.handleHealth).Methods(http.MethodGet)
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.Dir("static"))))
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	admin := r.PathPrefix("/admin").Subrouter()
	admin.Use(mux.MiddlewareFunc(a.Middleware))
	admin.HandleFunc("/whoami", h.handleWhoAmI).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(h.handleNotFound)

	h.router = r
	h.sitemapFn = cached.Wrap(sitemap.CacheKey, log, func(ctx context.Context) ([]byte, error) {
		return h.builder.Build(ctx, sitemap.RoutesFromMux(h.router))
	})
	return h
}

// Router exposes the assembled router.
func (h *Handler) Router() *mux.Router { return h.router }

// SitemapFunc exposes the wrapped sitemap computation so background jobs
// can warm the same cache entry the route serves.
func (h *Handler) SitemapFunc() cached.ComputeFunc { return h.sitemapFn }

// URLFor rewrites a static-asset path onto the CDN domain outside debug
// mode, mirroring how generated pages reference assets.
func (h *Handler) URLFor(path string) string {
	if h.cfg.CDNDomain == "" || h.cfg.Debug {
		return path
	}
	dot := strings.LastIndex(path, ".")
	if dot < 0 || !staticFileTypes[path[dot+1:]] {
		return path
	}
	return h.cfg.CDNDomain + path
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	posts, err := h.db.ListPublishedPosts(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	// Session errors are not worth failing the page for.
	if sess, err := h.sessions.Load(r); err == nil {
		visits, _ := strconv.Atoi(sess.Values["visits"])
		sess.Values["visits"] = strconv.Itoa(visits + 1)
		if err := h.sessions.Save(r.Context(), w, sess); err != nil {
			h.log.WithContext(r.Context()).WithError(err).Warn("session save failed")
		}
	}

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>lyanna</title>")
	fmt.Fprintf(&b, `<link rel="stylesheet" href=%q>`, h.URLFor("/static/css/app.css"))
	b.WriteString("</head><body><ul>")
	for _, p := range posts {
		fmt.Fprintf(&b, `<li><a href=%q>%s</a></li>`, p.URL(), htmlEscape(p.Title))
	}
	b.WriteString("</ul></body></html>")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(b.String()))
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		h.respondError(w, r, apperr.NewNotFoundError("post", mux.Vars(r)["id"]))
		return
	}
	post, err := h.db.GetPost(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, "<!DOCTYPE html><html><head><title>%s</title></head><body><h1>%s</h1></body></html>",
		htmlEscape(post.Title), htmlEscape(post.Title))
}

func (h *Handler) handleSitemap(w http.ResponseWriter, r *http.Request) {
	body, err := h.sitemapFn(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pair, err := h.auth.Login(r.Context(), req.Name, req.Password)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID       int64  `json:"user_id"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	pair, err := h.auth.Refresh(r.Context(), req.UserID, req.RefreshToken)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	h.respondJSON(w, http.StatusOK, pair)
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.IdentityFrom(r.Context())
	if !ok {
		h.respondError(w, r, apperr.Unauthorized("no identity"))
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id": user.ID,
		"name":    user.Name,
	})
}

// handleHealth probes the backend handles attached to the request context.
// Lives under /j so it never leaks into the sitemap.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	status := map[string]string{"cache": "ok", "kv": "ok"}

	c, err := appctx.CacheFrom(ctx)
	if err != nil {
		status["cache"] = err.Error()
	} else if err := c.Set(ctx, "health_probe", []byte("1"), time.Minute); err != nil {
		status["cache"] = "unavailable"
	}

	store, err := appctx.KVFrom(ctx)
	if err != nil {
		status["kv"] = err.Error()
	} else if err := store.Set(ctx, "health_probe", "1"); err != nil {
		status["kv"] = "unavailable"
	}

	code := http.StatusOK
	if status["cache"] != "ok" || status["kv"] != "ok" {
		code = http.StatusServiceUnavailable
	}
	h.respondJSON(w, code, status)
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("Oops, That page couldn't found."))
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Warn("encode response failed")
	}
}

// respondError maps typed error kinds to user-facing responses. Internal
// detail never reaches the client; the full error goes to the log.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	switch {
	case apperr.IsNotFound(err):
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("Oops, That page couldn't found."))
	case apperr.IsUnavailable(err):
		h.log.WithContext(r.Context()).WithError(err).Error("backend unavailable")
		w.WriteHeader(status)
		_, _ = w.Write([]byte("Please confirm that memcached is running!"))
	case apperr.IsUnauthorized(err):
		w.WriteHeader(status)
		_, _ = w.Write([]byte("Unauthorized"))
	default:
		h.log.WithContext(r.Context()).WithError(err).Error("unhandled error")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("Oops, Server Error! Please contact the blog owner"))
	}
}

func htmlEscape(s string) string {
	replacer := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return replacer.Replace(s)
}
