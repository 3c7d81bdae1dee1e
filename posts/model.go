// Package posts implements the listing and detail flows of the blog: paging
// through post summaries, loading a post by slug, and the derived fields
// (display dates, reading time) the views show.
package posts

import (
	"time"

	"github.com/eringen/spacetraveling/richtext"
)

// DocumentType is the content type holding blog posts.
const DocumentType = "posts"

// Summary is the projection of a post used in listings.
type Summary struct {
	Slug                 string
	FirstPublicationDate *time.Time
	Title                string
	Subtitle             string
	Author               string

	// Date is FirstPublicationDate formatted for display. It is filled when
	// the summary is accumulated into a Page.
	Date string
}

// Detail is the full projection of a post.
type Detail struct {
	Slug                 string
	FirstPublicationDate *time.Time
	LastPublicationDate  *time.Time
	Title                string
	Subtitle             string
	Author               string
	BannerURL            string
	Content              []ContentBlock
}

// ContentBlock is a header followed by rich-text body segments.
type ContentBlock struct {
	Header string
	Body   []richtext.Segment
}

// Pagination is one page of summaries plus the cursor to the next page.
// NextPage is empty on the last page.
type Pagination struct {
	NextPage string
	Page     int
	Results  []Summary
}
