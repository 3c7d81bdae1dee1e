package posts

import (
	"context"
	"fmt"
	"sync"

	"github.com/eringen/spacetraveling/prismic"
)

// Source is the part of the content API the flows depend on.
// *prismic.Client implements it.
type Source interface {
	Query(ctx context.Context, predicates []prismic.Predicate, opts prismic.QueryOptions) (*prismic.SearchResponse, error)
	GetByUID(ctx context.Context, docType, uid string, opts prismic.QueryOptions) (*prismic.Document, error)
	FetchPage(ctx context.Context, rawURL string) (*prismic.SearchResponse, error)
	Owns(rawURL string) bool
}

// DefaultPageSize is the number of summaries per listing page.
const DefaultPageSize = 1

// Page is the state of one rendered listing: the accumulated summaries, the
// cursor to the next page and the current page number. It only changes
// through LoadInitialPage and LoadNextPage; summaries are only ever
// appended.
type Page struct {
	src      Source
	dates    DateFormatter
	pageSize int

	mu      sync.Mutex
	loaded  bool
	posts   []Summary
	cursor  string
	current int
}

// PageOption configures a Page.
type PageOption func(*Page)

// WithPageSize sets the page size used by LoadInitialPage.
func WithPageSize(n int) PageOption {
	return func(p *Page) {
		if n > 0 {
			p.pageSize = n
		}
	}
}

// WithDateFormatter sets how summary dates are formatted.
func WithDateFormatter(f DateFormatter) PageOption {
	return func(p *Page) {
		p.dates = f
	}
}

// NewPage returns an empty listing backed by src.
func NewPage(src Source, opts ...PageOption) *Page {
	p := &Page{
		src:      src,
		dates:    DefaultDateFormatter,
		pageSize: DefaultPageSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ResumePage returns a listing positioned at cursor with no accumulated
// summaries, as a browser's "load more" request describes it. The cursor
// must point at the content API.
func ResumePage(src Source, cursor string, current int, opts ...PageOption) (*Page, error) {
	if cursor != "" && !src.Owns(cursor) {
		return nil, ErrForeignCursor
	}
	p := NewPage(src, opts...)
	p.loaded = true
	p.cursor = cursor
	p.current = current
	return p, nil
}

// LoadInitialPage fetches the first page of posts and initializes the
// listing with it. Errors are returned as is; there is no retry.
func (p *Page) LoadInitialPage(ctx context.Context) (Pagination, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.loaded {
		return Pagination{}, ErrPageLoaded
	}
	resp, err := p.src.Query(ctx, []prismic.Predicate{prismic.At("document.type", DocumentType)}, prismic.QueryOptions{
		PageSize: p.pageSize,
		Page:     1,
	})
	if err != nil {
		return Pagination{}, fmt.Errorf("load initial page: %w", err)
	}
	pg, err := p.project(resp)
	if err != nil {
		return Pagination{}, err
	}
	p.loaded = true
	p.posts = append(p.posts, pg.Results...)
	p.cursor = pg.NextPage
	p.current = pg.Page
	return pg, nil
}

// LoadNextPage fetches the page at the current cursor and appends its
// summaries. Without a cursor it does nothing and returns nil. Calls are
// serialized, so overlapping callers append pages in call order.
func (p *Page) LoadNextPage(ctx context.Context) ([]Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cursor == "" {
		return nil, nil
	}
	resp, err := p.src.FetchPage(ctx, p.cursor)
	if err != nil {
		return nil, fmt.Errorf("load next page: %w", err)
	}
	pg, err := p.project(resp)
	if err != nil {
		return nil, err
	}
	p.posts = append(p.posts, pg.Results...)
	p.cursor = pg.NextPage
	p.current = pg.Page
	return pg.Results, nil
}

// LoadAll keeps calling LoadNextPage until the last page is consumed.
func (p *Page) LoadAll(ctx context.Context) error {
	for p.HasMore() {
		if _, err := p.LoadNextPage(ctx); err != nil {
			return err
		}
	}
	return nil
}

// project decodes resp and formats each summary's date.
func (p *Page) project(resp *prismic.SearchResponse) (Pagination, error) {
	results := make([]Summary, 0, len(resp.Results))
	for _, doc := range resp.Results {
		s, err := DecodeSummary(doc)
		if err != nil {
			return Pagination{}, err
		}
		s.Date = p.dates.Format(s.FirstPublicationDate)
		results = append(results, s)
	}
	return Pagination{NextPage: resp.Next(), Page: resp.Page, Results: results}, nil
}

// Posts returns a copy of the accumulated summaries.
func (p *Page) Posts() []Summary {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Summary(nil), p.posts...)
}

// Cursor returns the next page URL, or "" when the last page is loaded.
func (p *Page) Cursor() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cursor
}

// CurrentPage returns the number of the last page loaded.
func (p *Page) CurrentPage() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// HasMore reports whether a "load more" control should be shown.
func (p *Page) HasMore() bool {
	return p.Cursor() != ""
}
