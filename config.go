package spacetraveling

import (
	"log/slog"
	"net/http"
	"time"
)

// SiteConfig holds all configuration for a spacetraveling site.
type SiteConfig struct {
	Name        string // Site name, used as the title suffix (default "spacetraveling")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Author name for the feed

	Addr string // Listen address (default ":3000")

	ContentAPI  string        // Required: Prismic API endpoint, e.g. https://repo.cdn.prismic.io/api/v2
	AccessToken string        // Prismic access token for private repositories
	APITimeout  time.Duration // Content API request timeout (default 10s)
	PageSize    int           // Posts per listing page (default 1)

	Locale   string // Date locale (default "pt-BR")
	TimeZone string // IANA zone for displayed dates (default "UTC")

	OutputDir        string // Generated site (default "out")
	ManifestPath     string // SQLite build manifest (default "data/manifest.db")
	BuildConcurrency int    // Concurrent post fetches during a build (default 4)
	OptimizeBanners  bool   // Download, resize and re-encode banners during a build

	SessionSecret string // Enables preview mode when set
	CookieSecure  bool   // Set true for HTTPS

	HTMXSrc            string        // htmx script URL
	MoreRateLimit      int           // Load-more requests per minute per IP (default 30)
	FallbackRetryAfter time.Duration // How long a failed on-demand post fails fast (default 30s, negative disables)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "spacetraveling"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.APITimeout == 0 {
		c.APITimeout = 10 * time.Second
	}
	if c.PageSize <= 0 {
		c.PageSize = 1
	}
	if c.Locale == "" {
		c.Locale = "pt-BR"
	}
	if c.TimeZone == "" {
		c.TimeZone = "UTC"
	}
	if c.OutputDir == "" {
		c.OutputDir = "out"
	}
	if c.ManifestPath == "" {
		c.ManifestPath = "data/manifest.db"
	}
	if c.BuildConcurrency <= 0 {
		c.BuildConcurrency = 4
	}
	if c.HTMXSrc == "" {
		c.HTMXSrc = "https://unpkg.com/htmx.org@1.9.12/dist/htmx.min.js"
	}
	if c.MoreRateLimit <= 0 {
		c.MoreRateLimit = 30
	}
	if c.FallbackRetryAfter == 0 {
		c.FallbackRetryAfter = 30 * time.Second
	}
}

// PreviewEnabled reports whether /preview is served.
func (c SiteConfig) PreviewEnabled() bool {
	return c.SessionSecret != ""
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default
// "public"). Its contents are served under /public and copied into every build.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger sets the logger used for build and fallback progress.
func WithLogger(l *slog.Logger) Option {
	return func(a *App) {
		a.log = l
	}
}

// WithHTTPClient sets the client used for the content API and banner downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(a *App) {
		a.httpClient = hc
	}
}
