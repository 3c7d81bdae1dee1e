package views

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/posts"
	"github.com/eringen/spacetraveling/richtext"
)

var testSite = SiteConfig{
	Name:    "spacetraveling",
	URL:     "https://blog.example.com",
	HTMXSrc: "/public/htmx.min.js",
}

func renderString(t *testing.T, c templ.Component) string {
	t.Helper()
	var sb strings.Builder
	if err := c.Render(context.Background(), &sb); err != nil {
		t.Fatalf("render: %v", err)
	}
	return sb.String()
}

func TestMoreURL(t *testing.T) {
	if got := MoreURL("", 3); got != "" {
		t.Errorf("MoreURL with no cursor = %q, want empty", got)
	}
	got := MoreURL("https://repo.cdn.prismic.io/api/v2/documents/search?page=2&pageSize=1", 1)
	want := "/posts/more/?cursor=https%3A%2F%2Frepo.cdn.prismic.io%2Fapi%2Fv2%2Fdocuments%2Fsearch%3Fpage%3D2%26pageSize%3D1&page=1"
	if got != want {
		t.Errorf("MoreURL = %q, want %q", got, want)
	}
}

func TestPostPath(t *testing.T) {
	tests := map[string]string{
		"hello-world": "/post/hello-world/",
		"a b":         "/post/a%20b/",
	}
	for slug, want := range tests {
		if got := PostPath(slug); got != want {
			t.Errorf("PostPath(%q) = %q, want %q", slug, got, want)
		}
	}
}

func TestTitle(t *testing.T) {
	if got := Title(testSite, "Home"); got != "Home | spacetraveling" {
		t.Errorf("got %q", got)
	}
	if got := Title(testSite, ""); got != "spacetraveling" {
		t.Errorf("got %q", got)
	}
}

func TestHomeRendersSummariesAndLoadMore(t *testing.T) {
	ts := time.Date(2021, 3, 15, 10, 0, 0, 0, time.UTC)
	l := Listing{
		Posts: []posts.Summary{{
			Slug:                 "como-utilizar-hooks",
			FirstPublicationDate: &ts,
			Title:                "Como utilizar Hooks",
			Subtitle:             "Pensando em sincronização",
			Author:               "Joseph Oliveira",
			Date:                 "15 mar 2021",
		}},
		MoreURL: MoreURL("https://repo.cdn.prismic.io/api/v2/documents/search?page=2", 1),
	}
	html := renderString(t, Home(testSite, l))

	for _, want := range []string{
		"<title>Home | spacetraveling</title>",
		`href="/post/como-utilizar-hooks/"`,
		"Como utilizar Hooks",
		"Pensando em sincronização",
		`<time datetime="2021-03-15">15 mar 2021</time>`,
		"Joseph Oliveira",
		"Carregar mais posts",
		`hx-sync="this:drop"`,
		`"@type":"WebSite"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("home page missing %q", want)
		}
	}
}

func TestHomeWithoutCursorHasNoButton(t *testing.T) {
	html := renderString(t, Home(testSite, Listing{}))
	if strings.Contains(html, "Carregar mais posts") {
		t.Error("load-more control rendered without a cursor")
	}
	if !strings.Contains(html, `<div id="load-more"></div>`) {
		t.Error("expected an empty load-more container")
	}
}

func TestMorePostsSwapsControlOutOfBand(t *testing.T) {
	html := renderString(t, MorePosts(Listing{Posts: []posts.Summary{{Slug: "b", Title: "B", Author: "Ana"}}}))
	if !strings.Contains(html, `href="/post/b/"`) {
		t.Error("missing appended summary")
	}
	if !strings.Contains(html, `<div id="load-more" hx-swap-oob="true"></div>`) {
		t.Errorf("expected out-of-band empty control, got:\n%s", html)
	}
	if strings.Contains(html, "<html") {
		t.Error("partial must not contain a full document")
	}
}

func TestPostRendersDetail(t *testing.T) {
	first := time.Date(2021, 3, 25, 19, 25, 0, 0, time.UTC)
	p := PostView{
		Detail: posts.Detail{
			Slug:                 "hello",
			FirstPublicationDate: &first,
			Title:                "Hello <world>",
			Author:               "Ana",
			BannerURL:            "https://images.example.com/hello.png",
			Content: []posts.ContentBlock{{
				Header: "Intro",
				Body:   []richtext.Segment{{Type: "paragraph", Text: "Olá"}},
			}},
		},
		Date:        "25 mar 2021",
		EditedDate:  "26 mar 2021",
		ReadingTime: 4,
	}
	html := renderString(t, Post(testSite, p))

	for _, want := range []string{
		"<title>Hello &lt;world&gt; | spacetraveling</title>",
		"<h1>Hello &lt;world&gt;</h1>",
		"4 min",
		"25 mar 2021",
		"* editado em 26 mar 2021",
		`<img class="banner" src="https://images.example.com/hello.png" alt="">`,
		"<h2>Intro</h2>",
		"<p>Olá</p>",
		`"@type":"BlogPosting"`,
		`"datePublished":"2021-03-25"`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("post page missing %q", want)
		}
	}
	if strings.Contains(html, "preview-banner") {
		t.Error("preview banner rendered outside preview")
	}
}

func TestPostPartialAndPreview(t *testing.T) {
	p := PostView{Detail: posts.Detail{Slug: "x", Title: "X", Author: "Ana"}, ReadingTime: 1, Preview: true}
	html := renderString(t, PostPartial(testSite, p))
	if !strings.HasPrefix(html, "<title>X | spacetraveling</title>") {
		t.Errorf("partial should start with its title, got:\n%s", html)
	}
	if strings.Contains(html, "<!DOCTYPE") {
		t.Error("partial must not contain a full document")
	}
	if !strings.Contains(html, "preview-banner") {
		t.Error("missing preview banner")
	}
}

func TestLoadingPage(t *testing.T) {
	html := renderString(t, Loading(testSite, "/post/x/"))
	if !strings.Contains(html, "Carregando...") {
		t.Error("missing loading text")
	}
	if !strings.Contains(html, `hx-get="/post/x/" hx-trigger="load"`) {
		t.Errorf("loading page does not fetch the post:\n%s", html)
	}
}

func TestErrorPages(t *testing.T) {
	if html := renderString(t, NotFound(testSite)); !strings.Contains(html, "404") || !strings.Contains(html, "<!DOCTYPE html>") {
		t.Error("not found page incomplete")
	}
	if html := renderString(t, ServerErrorPartial(testSite)); !strings.Contains(html, "500") || strings.Contains(html, "<!DOCTYPE html>") {
		t.Error("server error partial incomplete")
	}
}
