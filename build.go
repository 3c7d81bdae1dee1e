package spacetraveling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/a-h/templ"
	"golang.org/x/sync/errgroup"

	"github.com/eringen/spacetraveling/posts"
	"github.com/eringen/spacetraveling/views"
)

// BuildResult summarizes a finished build.
type BuildResult struct {
	ID       string
	Pages    int
	Posts    int
	Duration time.Duration
}

// Build regenerates the whole site into Config.OutputDir: the first listing
// page, every post, the sitemap, the feed and a 404 page. Posts are fetched
// concurrently; the first error aborts the build.
func (a *App) Build(ctx context.Context) (BuildResult, error) {
	if err := a.open(); err != nil {
		return BuildResult{}, err
	}
	out := filepath.Clean(a.Config.OutputDir)
	if out == "." || out == string(filepath.Separator) {
		return BuildResult{}, fmt.Errorf("spacetraveling: refusing to build into %q", a.Config.OutputDir)
	}

	start := time.Now()
	b, err := a.Manifest.BeginBuild(ctx)
	if err != nil {
		return BuildResult{}, fmt.Errorf("spacetraveling: %w", err)
	}
	bd := &builder{app: a, id: b.ID, out: out, log: a.log.With("build", b.ID)}
	bd.log.Info("build started", "output", out)

	err = bd.run(ctx)
	res := BuildResult{
		ID:       b.ID,
		Pages:    int(bd.pages.Load()),
		Posts:    int(bd.posts.Load()),
		Duration: time.Since(start),
	}
	if ferr := a.Manifest.FinishBuild(context.WithoutCancel(ctx), b.ID, res.Pages, err); ferr != nil {
		err = errors.Join(err, ferr)
	}
	if err != nil {
		bd.log.Error("build failed", "error", err)
		return res, fmt.Errorf("spacetraveling: build: %w", err)
	}
	bd.log.Info("build finished", "pages", res.Pages, "posts", res.Posts, "duration", res.Duration)
	return res, nil
}

type builder struct {
	app   *App
	id    string
	out   string
	log   *slog.Logger
	pages atomic.Int64
	posts atomic.Int64
}

func (bd *builder) run(ctx context.Context) error {
	if err := os.RemoveAll(bd.out); err != nil {
		return fmt.Errorf("clean output dir: %w", err)
	}
	if err := os.MkdirAll(bd.out, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	if err := bd.copyAssets(); err != nil {
		return err
	}
	if err := bd.home(ctx); err != nil {
		return err
	}
	if err := bd.allPosts(ctx); err != nil {
		return err
	}
	if err := bd.feeds(ctx); err != nil {
		return err
	}
	return bd.writePage(ctx, "", "404.html", views.NotFound(bd.app.SiteView()))
}

// copyAssets copies the user's static dir to public/ and adds the embedded
// stylesheet unless the user ships their own.
func (bd *builder) copyAssets() error {
	public := filepath.Join(bd.out, "public")
	if fi, err := os.Stat(bd.app.staticDir); err == nil && fi.IsDir() {
		if err := os.CopyFS(public, os.DirFS(bd.app.staticDir)); err != nil {
			return fmt.Errorf("copy static assets: %w", err)
		}
	}
	dst := filepath.Join(public, "styles.css")
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	css, err := fs.ReadFile(EmbeddedAssets, "embedded/styles.css")
	if err != nil {
		return err
	}
	return writeFile(dst, css)
}

func (bd *builder) home(ctx context.Context) error {
	page := bd.app.Posts.NewPage()
	if _, err := page.LoadInitialPage(ctx); err != nil {
		return err
	}
	return bd.writePage(ctx, "/", "index.html", views.Home(bd.app.SiteView(), views.Listing{
		Posts:   page.Posts(),
		MoreURL: views.MoreURL(page.Cursor(), page.CurrentPage()),
	}))
}

func (bd *builder) allPosts(ctx context.Context) error {
	slugs, err := bd.app.Posts.ListAllSlugs(ctx)
	if err != nil {
		return err
	}
	bd.log.Info("generating posts", "count", len(slugs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bd.app.Config.BuildConcurrency)
	for _, slug := range slugs {
		if !validSlug(slug) {
			bd.log.Warn("skipping post with unusable slug", "slug", slug)
			continue
		}
		g.Go(func() error {
			return bd.post(gctx, slug)
		})
	}
	return g.Wait()
}

func (bd *builder) post(ctx context.Context, slug string) error {
	d, err := bd.app.Posts.LoadPostBySlug(ctx, slug)
	if err != nil {
		return err
	}
	if bd.app.Config.OptimizeBanners && d.BannerURL != "" {
		if local, err := bd.app.optimizeBanner(ctx, slug, d.BannerURL); err != nil {
			bd.log.Warn("banner kept as is", "slug", slug, "error", err)
		} else {
			d.BannerURL = local
		}
	}
	if err := bd.writePage(ctx, views.PostPath(slug), postFile(slug), views.Post(bd.app.SiteView(), bd.app.postView(d, false))); err != nil {
		return err
	}
	bd.posts.Add(1)
	return nil
}

func (bd *builder) feeds(ctx context.Context) error {
	summaries, err := bd.app.Posts.ListAllSummaries(ctx)
	if err != nil {
		return err
	}
	if err := bd.writeXML(ctx, "/sitemap.xml", "sitemap.xml", summaries, bd.app.writeSitemap); err != nil {
		return err
	}
	return bd.writeXML(ctx, "/feed.xml", "feed.xml", summaries, bd.app.writeRSS)
}

func (bd *builder) writeXML(ctx context.Context, route, rel string, summaries []posts.Summary, write func(io.Writer, []posts.Summary) error) error {
	var buf bytes.Buffer
	if err := write(&buf, summaries); err != nil {
		return fmt.Errorf("render %s: %w", rel, err)
	}
	if err := writeFile(filepath.Join(bd.out, rel), buf.Bytes()); err != nil {
		return err
	}
	return bd.record(ctx, route, rel)
}

// writePage renders cmp to rel and records it under route. An empty route
// writes the file without recording it.
func (bd *builder) writePage(ctx context.Context, route, rel string, cmp templ.Component) error {
	if err := RenderToFile(ctx, filepath.Join(bd.out, rel), cmp); err != nil {
		return fmt.Errorf("render %s: %w", rel, err)
	}
	return bd.record(ctx, route, rel)
}

func (bd *builder) record(ctx context.Context, route, rel string) error {
	bd.pages.Add(1)
	if route == "" {
		return nil
	}
	return bd.app.Manifest.RecordPage(ctx, PageRecord{
		Route:   route,
		File:    rel,
		BuildID: bd.id,
		Source:  SourceBuild,
	})
}
