package spacetraveling

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/prismic/prismictest"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// newTestApp returns a set-up App reading from srv and writing into a
// temporary directory.
func newTestApp(t *testing.T, srv *prismictest.Server, configure ...func(*SiteConfig)) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := SiteConfig{
		URL:          "https://blog.example.com",
		ContentAPI:   srv.Endpoint(),
		OutputDir:    filepath.Join(dir, "out"),
		ManifestPath: filepath.Join(dir, "data", "manifest.db"),
	}
	for _, fn := range configure {
		fn(&cfg)
	}
	a := New(cfg, WithStaticDir(filepath.Join(dir, "public")), WithLogger(quietLogger))
	require.NoError(t, a.Setup())
	t.Cleanup(func() { a.Close() })
	return a
}

func newTestServer(t *testing.T, docs ...prismic.Document) *prismictest.Server {
	t.Helper()
	srv := prismictest.NewServer(docs...)
	t.Cleanup(srv.Close)
	return srv
}

// testPost is post number n: id "dn", slug "post-n", published on March n 2021.
func testPost(n int) prismic.Document {
	return prismictest.Post(
		fmt.Sprintf("d%d", n),
		fmt.Sprintf("post-%d", n),
		fmt.Sprintf("2021-03-%02dT10:00:00+0000", n),
		fmt.Sprintf("Post %d", n),
		fmt.Sprintf("Subtitle %d", n),
		"Joseph Oliveira",
		[]string{"Intro", "um dois três"},
	)
}

func get(a *App, target string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	return rec
}

func htmx(a *App, target string) *httptest.ResponseRecorder {
	return get(a, target, "HX-Request", "true")
}
