// Package sitemap aggregates content URLs and live route URLs into a single
// XML document. The build is expensive relative to serving it, so callers
// wrap Build with the memoizing cache under CacheKey.
package sitemap

import (
	"context"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/yashika/lyanna/internal/database"
	"github.com/yashika/lyanna/internal/metrics"
)

// CacheKey is the single well-known key shared between the builder and any
// invalidation trigger.
const CacheKey = "sitemap"

// URL-prefix groups that never appear in the sitemap.
var excludedPrefixes = []string{"/admin", "/j", "/api"}

// RouteDescriptor describes one registered route. It is read-only input;
// how routes are discovered is the router's business.
type RouteDescriptor struct {
	Path    string
	Methods []string
}

// HasParams reports whether the route takes positional parameters.
func (r RouteDescriptor) HasParams() bool {
	return strings.Contains(r.Path, "{")
}

func (r RouteDescriptor) allowsGet() bool {
	for _, m := range r.Methods {
		if m == "GET" {
			return true
		}
	}
	return false
}

func (r RouteDescriptor) excluded() bool {
	for _, prefix := range excludedPrefixes {
		if strings.HasPrefix(r.Path, prefix) {
			return true
		}
	}
	return false
}

// RoutesFromMux enumerates the descriptors of every route registered on the
// router.
func RoutesFromMux(router *mux.Router) []RouteDescriptor {
	var routes []RouteDescriptor
	_ = router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		path, err := route.GetPathTemplate()
		if err != nil {
			return nil
		}
		methods, err := route.GetMethods()
		if err != nil {
			// No explicit method restriction means the route answers GET.
			methods = []string{"GET"}
		}
		routes = append(routes, RouteDescriptor{Path: path, Methods: methods})
		return nil
	})
	return routes
}

// FilterRoutes keeps only parameterless GET routes outside the excluded
// prefix groups.
func FilterRoutes(routes []RouteDescriptor) []RouteDescriptor {
	var kept []RouteDescriptor
	for _, r := range routes {
		if !r.allowsGet() || r.HasParams() || r.excluded() {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}

// Entry is one <url> element of the document.
type Entry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod"`
}

type urlset struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr"`
	URLs    []Entry  `xml:"url"`
}

// Builder assembles the sitemap from the content store and a route list.
type Builder struct {
	db  *database.DB
	now func() time.Time
}

// NewBuilder creates a builder over the content store.
func NewBuilder(db *database.DB) *Builder {
	return &Builder{db: db, now: time.Now}
}

// Build produces the rendered XML payload. Routes without a natural
// timestamp are stamped ten days before now.
func (b *Builder) Build(ctx context.Context, routes []RouteDescriptor) ([]byte, error) {
	posts, err := b.db.ListPublishedPosts(ctx)
	if err != nil {
		return nil, err
	}
	tags, err := b.db.ListTags(ctx)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	for _, p := range posts {
		entries = append(entries, Entry{Loc: p.URL(), LastMod: p.CreatedAt.Format("2006-01-02")})
	}
	for _, t := range tags {
		entries = append(entries, Entry{Loc: t.URL(), LastMod: t.CreatedAt.Format("2006-01-02")})
	}

	tenDaysAgo := b.now().AddDate(0, 0, -10).Format("2006-01-02")
	for _, r := range FilterRoutes(routes) {
		entries = append(entries, Entry{Loc: r.Path, LastMod: tenDaysAgo})
	}

	doc := urlset{
		Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  entries,
	}
	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render sitemap: %w", err)
	}

	metrics.RecordSitemapBuild()
	return append([]byte(xml.Header), body...), nil
}
