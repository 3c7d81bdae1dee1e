package spacetraveling

import (
	"errors"
	"net/http"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/spacetraveling/posts"
	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/views"
)

const (
	previewSession = "preview_session"
	previewKey     = "preview"
)

// handlePreview starts a preview session for the ref in ?token= and
// redirects to the previewed document when ?documentId= names a post.
func (a *App) handlePreview(c echo.Context) error {
	ref := c.QueryParam("token")
	if ref == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "missing preview token")
	}
	if err := setPreviewRef(c, ref); err != nil {
		return err
	}

	target := "/"
	if id := c.QueryParam("documentId"); id != "" {
		doc, err := a.Content.GetByID(c.Request().Context(), id, prismic.QueryOptions{Ref: ref})
		switch {
		case errors.Is(err, prismic.ErrNotFound):
		case err != nil:
			return err
		case doc.Type == posts.DocumentType && validSlug(doc.UID):
			target = views.PostPath(doc.UID)
		}
	}
	return c.Redirect(http.StatusSeeOther, target)
}

func (a *App) handlePreviewExit(c echo.Context) error {
	if err := clearPreviewRef(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}

// previewMiddleware puts the session's preview ref on the request context,
// where the content client picks it up for every query.
func previewMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if ref := previewRef(c); ref != "" {
			req := c.Request()
			c.SetRequest(req.WithContext(prismic.ContextWithRef(req.Context(), ref)))
			c.Set(previewKey, true)
			c.Response().Header().Set("Cache-Control", "no-store")
		}
		return next(c)
	}
}

func inPreview(c echo.Context) bool {
	v, _ := c.Get(previewKey).(bool)
	return v
}

func previewRef(c echo.Context) string {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return ""
	}
	ref, _ := sess.Values["ref"].(string)
	return ref
}

func setPreviewRef(c echo.Context, ref string) error {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return err
	}
	sess.Values["ref"] = ref
	return sess.Save(c.Request(), c.Response())
}

func clearPreviewRef(c echo.Context) error {
	sess, err := session.Get(previewSession, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}
