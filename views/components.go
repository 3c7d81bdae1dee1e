package views

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/a-h/templ"

	"github.com/eringen/spacetraveling/richtext"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("views").Funcs(template.FuncMap{
	"postPath":   PostPath,
	"jsonld":     WebsiteJsonLD,
	"postJsonld": BlogPostingJsonLD,
	"richtext":   richText,
	"isoDate":    isoDate,
}).ParseFS(templateFS, "templates/*.html"))

// render executes a named template into a buffer first, so a failing
// template never leaves a half-written page behind.
func render(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
			return err
		}
		_, err := w.Write(buf.Bytes())
		return err
	})
}

func richText(segs []richtext.Segment) template.HTML {
	return template.HTML(richtext.AsHTML(segs, richtext.DefaultLinkResolver))
}

func isoDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02")
}

// Home is the full listing page.
func Home(cfg SiteConfig, l Listing) templ.Component {
	return render("home", page{
		Site: cfg,
		Meta: PageMeta{
			Title:       Title(cfg, "Home"),
			Description: cfg.Description,
			URL:         buildURL(cfg.URL),
			OGType:      "website",
		},
		Data: l,
	})
}

// MorePosts is the load-more response: the appended summaries and an
// out-of-band replacement for the load-more control.
func MorePosts(l Listing) templ.Component {
	return render("more", l)
}

func postPage(cfg SiteConfig, p PostView) page {
	return page{
		Site: cfg,
		Meta: PageMeta{
			Title:       Title(cfg, p.Title),
			Description: p.Subtitle,
			URL:         buildURL(cfg.URL, "post", p.Slug),
			OGType:      "article",
			Image:       p.BannerURL,
		},
		Data: p,
	}
}

// Post is the full post detail page.
func Post(cfg SiteConfig, p PostView) templ.Component {
	return render("post", postPage(cfg, p))
}

// PostPartial replaces a loading page's content once the post is fetched.
func PostPartial(cfg SiteConfig, p PostView) templ.Component {
	return render("post-partial", postPage(cfg, p))
}

// Loading is shown for a post that has not been generated yet. It fetches
// contentURL as soon as htmx loads.
func Loading(cfg SiteConfig, contentURL string) templ.Component {
	return render("loading", page{
		Site: cfg,
		Meta: PageMeta{Title: Title(cfg, "Carregando..."), OGType: "website"},
		Data: contentURL,
	})
}

// NotFound is the full 404 page.
func NotFound(cfg SiteConfig) templ.Component {
	return render("not-found", errorPage(cfg, "Página não encontrada"))
}

// NotFoundPartial replaces a loading page's content when the post does not exist.
func NotFoundPartial(cfg SiteConfig) templ.Component {
	return render("not-found-partial", errorPage(cfg, "Página não encontrada"))
}

// ServerError is the full 500 page.
func ServerError(cfg SiteConfig) templ.Component {
	return render("server-error", errorPage(cfg, "Erro"))
}

// ServerErrorPartial replaces a loading page's content when the fetch fails.
func ServerErrorPartial(cfg SiteConfig) templ.Component {
	return render("server-error-partial", errorPage(cfg, "Erro"))
}

func errorPage(cfg SiteConfig, title string) page {
	return page{Site: cfg, Meta: PageMeta{Title: Title(cfg, title), OGType: "website"}}
}
