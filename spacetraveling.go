// Package spacetraveling is a statically generated blog backed by a Prismic
// repository, built with Go, Echo, and templ.
//
// A build renders the home page, every post, the sitemap and the feed into
// an output directory. The server serves that directory and fills in what
// the build did not produce: further listing pages through htmx, posts
// published after the build through a loading fallback, and previews of
// unpublished content.
package spacetraveling

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/posts"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/views"
)

// App is the central spacetraveling application. It wires together the
// content client, the build manifest, handlers, and middleware.
type App struct {
	Config   SiteConfig
	Echo     *echo.Echo
	Content  *prismic.Client
	Posts    *posts.Service
	Manifest *Manifest

	log          *slog.Logger
	httpClient   *http.Client
	fallback     *Fallback
	moreLimiter  *RateLimiter
	customRoutes []func(*App)
	staticDir    string
	opened       bool
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		log:       slog.Default(),
		staticDir: "public",
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// open validates the configuration and initializes the content client, the
// post service and the manifest. It is shared by Setup and Build.
func (a *App) open() error {
	if a.opened {
		return nil
	}
	if a.Config.ContentAPI == "" {
		return fmt.Errorf("spacetraveling: ContentAPI is required")
	}
	dates, err := posts.ParseDateFormatter(a.Config.Locale, a.Config.TimeZone)
	if err != nil {
		return fmt.Errorf("spacetraveling: %w", err)
	}

	clientOpts := []prismic.Option{prismic.WithAccessToken(a.Config.AccessToken)}
	if a.httpClient != nil {
		clientOpts = append(clientOpts, prismic.WithHTTPClient(a.httpClient))
	} else {
		clientOpts = append(clientOpts, prismic.WithTimeout(a.Config.APITimeout))
	}
	a.Content = prismic.New(a.Config.ContentAPI, clientOpts...)
	a.Posts = posts.NewService(a.Content, dates, a.Config.PageSize)

	manifest, err := OpenManifest(a.Config.ManifestPath)
	if err != nil {
		return fmt.Errorf("spacetraveling: open manifest: %w", err)
	}
	a.Manifest = manifest
	a.fallback = NewFallback(a.Posts, a.persistFallback, a.Config.FallbackRetryAfter, a.log)
	a.opened = true
	return nil
}

// Setup initializes the app and registers middleware and routes without
// starting a listener. Tests drive a.Echo directly after Setup.
func (a *App) Setup() error {
	if err := a.open(); err != nil {
		return err
	}
	a.moreLimiter = NewRateLimiter(a.Config.MoreRateLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// Start sets up the app and serves until the server is shut down.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	if err := a.Echo.Start(a.Config.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.Echo

	// Framework assets are served from the binary; the user's static dir
	// and then the build output fill in the rest of /public.
	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/styles.css", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))
	e.GET("/public/*", a.handlePublic)

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/posts/more/", a.handleMore)
	e.GET("/post/:slug/", a.handlePost)

	if a.Config.PreviewEnabled() {
		e.GET("/preview", a.handlePreview)
		e.GET("/preview/exit", a.handlePreviewExit)
	}
}

// SiteView returns the values every template needs.
func (a *App) SiteView() views.SiteConfig {
	return views.SiteConfig{
		Name:        a.Config.Name,
		URL:         a.Config.URL,
		Description: a.Config.Description,
		Author:      a.Config.Author,
		HTMXSrc:     a.Config.HTMXSrc,
	}
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.moreLimiter != nil {
		a.moreLimiter.Stop()
	}
	if a.Manifest != nil {
		return a.Manifest.Close()
	}
	return nil
}
