package spacetraveling

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// previewMaxAge bounds how long a preview ref stays in the session cookie.
const previewMaxAge = 60 * 60

func (a *App) setupMiddleware() {
	e := a.Echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			kind := "page"
			if isHTMX(c) {
				kind = "partial"
			}
			c.Logger().Infof("%s %s -> %d (%s, %s)", v.Method, v.URI, v.Status, v.Latency, kind)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.GzipWithConfig(middleware.GzipConfig{
		Level: 5,
		Skipper: func(c echo.Context) bool {
			return strings.HasPrefix(c.Request().URL.Path, "/public/")
		},
	}))

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: contentSecurityPolicy(a.Config.HTMXSrc),
		HSTSMaxAge:            31536000,
		HSTSExcludeSubdomains: false,
	}))

	e.Use(middleware.AddTrailingSlashWithConfig(middleware.TrailingSlashConfig{
		RedirectCode: http.StatusMovedPermanently,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return strings.HasPrefix(path, "/public") ||
				strings.HasPrefix(path, "/preview") ||
				path == "/sitemap.xml" || path == "/feed.xml"
		},
	}))

	e.Use(cacheControlMiddleware)

	if a.Config.PreviewEnabled() {
		e.Use(session.Middleware(a.newSessionStore()))
		e.Use(previewMiddleware)
	}
}

// contentSecurityPolicy allows scripts from the site and from the origin
// htmx is loaded from.
func contentSecurityPolicy(htmxSrc string) string {
	scripts := "'self' 'unsafe-inline'"
	if u, err := url.Parse(htmxSrc); err == nil && u.Scheme != "" && u.Host != "" {
		scripts += " " + u.Scheme + "://" + u.Host
	}
	return "default-src 'self'; script-src " + scripts + "; style-src 'self' 'unsafe-inline'; img-src 'self' https: data:; font-src 'self'; connect-src 'self'; frame-src https:; media-src 'self' https:"
}

func cacheControlMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", cacheControlFor(c.Request().URL.Path))
		return next(c)
	}
}

// cacheControlFor returns the Cache-Control value for a request path.
func cacheControlFor(path string) string {
	switch {
	case path == "/public/styles.css":
		return "public, max-age=3600"
	case strings.HasPrefix(path, "/public/banners/"):
		return "public, max-age=86400"
	case strings.HasPrefix(path, "/public/"):
		return "public, max-age=31536000, immutable"
	case path == "/sitemap.xml" || path == "/feed.xml":
		return "public, max-age=86400"
	case strings.HasPrefix(path, "/preview"):
		return "no-store"
	case strings.HasPrefix(path, "/posts/more/"):
		return "no-cache"
	default:
		return "public, max-age=3600"
	}
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.Config.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   previewMaxAge,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.Config.CookieSecure,
	}
	return store
}
