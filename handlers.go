package spacetraveling

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/posts"
	"github.com/eringen/spacetraveling/views"
)

func (a *App) handleHome(c echo.Context) error {
	if !inPreview(c) {
		if ok, err := a.serveBuilt(c, "/"); ok || err != nil {
			return err
		}
	}
	page := a.Posts.NewPage()
	if _, err := page.LoadInitialPage(c.Request().Context()); err != nil {
		return err
	}
	return Render(c, views.Home(a.SiteView(), views.Listing{
		Posts:   page.Posts(),
		MoreURL: views.MoreURL(page.Cursor(), page.CurrentPage()),
	}))
}

func (a *App) handleMore(c echo.Context) error {
	if !a.moreLimiter.Allow(c.RealIP()) {
		return c.String(http.StatusTooManyRequests, "Too many requests")
	}
	current, _ := strconv.Atoi(c.QueryParam("page"))
	page, err := a.Posts.ResumePage(c.QueryParam("cursor"), current)
	if err != nil {
		if errors.Is(err, posts.ErrForeignCursor) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid cursor")
		}
		return err
	}
	added, err := page.LoadNextPage(c.Request().Context())
	if err != nil {
		return err
	}
	return Render(c, views.MorePosts(views.Listing{
		Posts:   added,
		MoreURL: views.MoreURL(page.Cursor(), page.CurrentPage()),
	}))
}

func (a *App) handlePost(c echo.Context) error {
	slug := c.Param("slug")
	if !validSlug(slug) {
		return RenderStatus(c, http.StatusNotFound, views.NotFound(a.SiteView()))
	}
	if inPreview(c) {
		return a.renderLivePost(c, slug)
	}

	route := views.PostPath(slug)
	file, ok, err := a.builtFile(c.Request().Context(), route)
	if err != nil {
		return err
	}
	if ok {
		if isHTMX(c) {
			// A stale loading page asked for a post that now exists.
			c.Response().Header().Set("HX-Refresh", "true")
			return c.NoContent(http.StatusOK)
		}
		return c.File(file)
	}

	c.Response().Header().Set("Cache-Control", "no-store")
	if isHTMX(c) {
		return a.resolveFallback(c, slug)
	}
	if a.fallback.RecentlyFailed(slug) {
		return RenderStatus(c, http.StatusInternalServerError, views.ServerError(a.SiteView()))
	}
	return Render(c, views.Loading(a.SiteView(), route))
}

func (a *App) renderLivePost(c echo.Context, slug string) error {
	d, err := a.Posts.LoadPostBySlug(c.Request().Context(), slug)
	if err != nil {
		return err
	}
	return Render(c, views.Post(a.SiteView(), a.postView(d, true)))
}

func (a *App) resolveFallback(c echo.Context, slug string) error {
	d, err := a.fallback.Resolve(c.Request().Context(), slug)
	switch {
	case errors.Is(err, posts.ErrNotFound):
		return RenderStatus(c, http.StatusNotFound, views.NotFoundPartial(a.SiteView()))
	case err != nil:
		return RenderStatus(c, http.StatusInternalServerError, views.ServerErrorPartial(a.SiteView()))
	}
	return Render(c, views.PostPartial(a.SiteView(), a.postView(d, false)))
}

// persistFallback writes a post fetched on demand into the output tree and
// records it, so the next request is served statically.
func (a *App) persistFallback(ctx context.Context, d posts.Detail) error {
	file := postFile(d.Slug)
	if err := RenderToFile(ctx, filepath.Join(a.Config.OutputDir, file), views.Post(a.SiteView(), a.postView(d, false))); err != nil {
		return err
	}
	buildID := ""
	if b, err := a.Manifest.LatestBuild(ctx); err == nil {
		buildID = b.ID
	}
	return a.Manifest.RecordPage(ctx, PageRecord{
		Route:   views.PostPath(d.Slug),
		File:    file,
		BuildID: buildID,
		Source:  SourceFallback,
	})
}

func (a *App) postView(d posts.Detail, preview bool) views.PostView {
	dates := a.Posts.Dates()
	p := views.PostView{
		Detail:      d,
		Date:        dates.Format(d.FirstPublicationDate),
		ReadingTime: posts.ReadingTime(d),
		Preview:     preview,
	}
	if d.FirstPublicationDate != nil && d.LastPublicationDate != nil && d.LastPublicationDate.After(*d.FirstPublicationDate) {
		p.EditedDate = dates.Format(d.LastPublicationDate)
	}
	return p
}

func (a *App) handleSitemap(c echo.Context) error {
	if ok, err := a.serveBuilt(c, "/sitemap.xml"); ok || err != nil {
		return err
	}
	summaries, err := a.Posts.ListAllSummaries(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, summaries)
}

func (a *App) handleFeed(c echo.Context) error {
	if ok, err := a.serveBuilt(c, "/feed.xml"); ok || err != nil {
		return err
	}
	summaries, err := a.Posts.ListAllSummaries(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, summaries)
}

// handlePublic serves /public/* from the user's static dir, then from the
// build output (optimized banners).
func (a *App) handlePublic(c echo.Context) error {
	name := path.Clean("/" + c.Param("*"))
	for _, root := range []string{a.staticDir, filepath.Join(a.Config.OutputDir, "public")} {
		p := filepath.Join(root, filepath.FromSlash(name))
		if fi, err := os.Stat(p); err == nil && !fi.IsDir() {
			return c.File(p)
		}
	}
	return echo.ErrNotFound
}

// builtFile returns the generated file serving route, if the manifest knows
// one and it is still on disk.
func (a *App) builtFile(ctx context.Context, route string) (string, bool, error) {
	rec, ok, err := a.Manifest.LookupPage(ctx, route)
	if err != nil || !ok {
		return "", false, err
	}
	file := filepath.Join(a.Config.OutputDir, rec.File)
	if _, err := os.Stat(file); err != nil {
		return "", false, nil
	}
	return file, true, nil
}

func (a *App) serveBuilt(c echo.Context, route string) (bool, error) {
	file, ok, err := a.builtFile(c.Request().Context(), route)
	if err != nil || !ok {
		return false, err
	}
	return true, c.File(file)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	if errors.Is(err, posts.ErrNotFound) || errors.Is(err, posts.ErrInvalidSlug) {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.SiteView()))
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.SiteView()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
		_ = RenderStatus(c, code, views.ServerError(a.SiteView()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}
