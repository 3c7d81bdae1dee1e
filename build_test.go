package spacetraveling

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/prismic"
)

func readFile(t *testing.T, path string) string {
	t.Helper()
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(b)
}

func TestBuildWritesSite(t *testing.T) {
	a := newTestApp(t, newTestServer(t, testPost(1), testPost(2), testPost(3)))
	ctx := context.Background()

	res, err := a.Build(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Posts)
	assert.Equal(t, 7, res.Pages) // home, 3 posts, sitemap, feed, 404

	out := a.Config.OutputDir
	home := readFile(t, filepath.Join(out, "index.html"))
	assert.Contains(t, home, `href="/post/post-1/"`)
	assert.NotContains(t, home, `href="/post/post-2/"`)
	assert.Contains(t, home, "Carregar mais posts")

	for _, slug := range []string{"post-1", "post-2", "post-3"} {
		page := readFile(t, filepath.Join(out, "post", slug, "index.html"))
		assert.Contains(t, page, "1 min")
	}
	assert.Contains(t, readFile(t, filepath.Join(out, "sitemap.xml")), "<loc>https://blog.example.com/post/post-3/</loc>")
	assert.Contains(t, readFile(t, filepath.Join(out, "feed.xml")), "<title>Post 2</title>")
	assert.Contains(t, readFile(t, filepath.Join(out, "404.html")), "404")
	assert.Contains(t, readFile(t, filepath.Join(out, "public", "styles.css")), "--highlight")

	b, err := a.Manifest.LatestBuild(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.ID, b.ID)
	assert.Equal(t, BuildFinished, b.Status)
	assert.Equal(t, 7, b.Pages)

	pages, err := a.Manifest.Pages(ctx)
	require.NoError(t, err)
	assert.Len(t, pages, 6)
	for _, p := range pages {
		assert.Equal(t, res.ID, p.BuildID)
		assert.Equal(t, SourceBuild, p.Source)
	}
}

func TestBuildCopiesStaticDir(t *testing.T) {
	a := newTestApp(t, newTestServer(t, testPost(1)))
	require.NoError(t, os.MkdirAll(filepath.Join(a.staticDir, "img"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(a.staticDir, "img", "logo.svg"), []byte("<svg/>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(a.staticDir, "styles.css"), []byte("body{}"), 0o644))

	_, err := a.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "<svg/>", readFile(t, filepath.Join(a.Config.OutputDir, "public", "img", "logo.svg")))
	assert.Equal(t, "body{}", readFile(t, filepath.Join(a.Config.OutputDir, "public", "styles.css")))
}

func TestBuildCleansOutputDir(t *testing.T) {
	a := newTestApp(t, newTestServer(t, testPost(1)))
	stale := filepath.Join(a.Config.OutputDir, "post", "gone", "index.html")
	require.NoError(t, writeFile(stale, []byte("old")))

	_, err := a.Build(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}

func TestBuildFailureIsRecorded(t *testing.T) {
	srv := newTestServer(t, testPost(1))
	a := newTestApp(t, srv)
	srv.FailWith(http.StatusServiceUnavailable)

	_, err := a.Build(context.Background())
	require.Error(t, err)
	var statusErr *prismic.StatusError
	assert.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)

	b, err := a.Manifest.LatestBuild(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BuildFailed, b.Status)
	assert.NotEmpty(t, b.Error)
}

func TestBuildDecodeErrorAborts(t *testing.T) {
	broken := testPost(2)
	broken.Data = []byte(`{"title":"No author","content":[]}`)
	a := newTestApp(t, newTestServer(t, testPost(1), broken))

	_, err := a.Build(context.Background())
	var decodeErr *prismic.DecodeError
	require.True(t, errors.As(err, &decodeErr), "got %v", err)
	assert.Equal(t, "data.author", decodeErr.Field)
}

func TestBuildRefusesCurrentDir(t *testing.T) {
	a := New(SiteConfig{ContentAPI: "http://127.0.0.1:1/api/v2", OutputDir: ".", ManifestPath: filepath.Join(t.TempDir(), "m.db")}, WithLogger(quietLogger))
	defer a.Close()

	_, err := a.Build(context.Background())
	assert.ErrorContains(t, err, "refusing to build")
}

func TestBuildRequiresContentAPI(t *testing.T) {
	a := New(SiteConfig{}, WithLogger(quietLogger))
	_, err := a.Build(context.Background())
	assert.ErrorContains(t, err, "ContentAPI is required")
}
