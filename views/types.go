package views

import (
	"github.com/eringen/spacetraveling/posts"
)

// SiteConfig holds the site-wide values every page needs. The App fills it
// from its own configuration so nothing is hardcoded in templates.
type SiteConfig struct {
	Name        string // title suffix, "spacetraveling" by default
	URL         string // canonical base URL
	Description string
	Author      string
	HTMXSrc     string // script URL for htmx
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	Image       string
}

// Listing is a rendered slice of the home page list. MoreURL is empty when
// there is nothing left to load.
type Listing struct {
	Posts   []posts.Summary
	MoreURL string
}

// PostView is a post detail ready to render.
type PostView struct {
	posts.Detail
	Date        string // formatted first publication date
	EditedDate  string // formatted last publication date, empty if never edited
	ReadingTime int    // minutes
	Preview     bool
}

type page struct {
	Site SiteConfig
	Meta PageMeta
	Data any
}
