package posts

import (
	"context"
	"errors"
	"fmt"

	"github.com/eringen/spacetraveling/prismic"
)

// enumeratePageSize is the largest page size the API accepts.
const enumeratePageSize = 100

// Service loads posts from a Source.
type Service struct {
	src      Source
	dates    DateFormatter
	pageSize int
}

// NewService returns a Service. pageSize is the listing page size; zero
// means DefaultPageSize.
func NewService(src Source, dates DateFormatter, pageSize int) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{src: src, dates: dates, pageSize: pageSize}
}

// Dates returns the formatter used for display dates.
func (s *Service) Dates() DateFormatter {
	return s.dates
}

// NewPage returns an empty listing using the service's page size and dates.
func (s *Service) NewPage() *Page {
	return NewPage(s.src, WithPageSize(s.pageSize), WithDateFormatter(s.dates))
}

// ResumePage returns a listing positioned at a browser-supplied cursor.
func (s *Service) ResumePage(cursor string, current int) (*Page, error) {
	return ResumePage(s.src, cursor, current, WithDateFormatter(s.dates))
}

// ListAllSlugs returns the slug of every post, in API order, walking all
// result pages.
func (s *Service) ListAllSlugs(ctx context.Context) ([]string, error) {
	resp, err := s.src.Query(ctx, []prismic.Predicate{prismic.At("document.type", DocumentType)}, prismic.QueryOptions{
		PageSize: enumeratePageSize,
		Page:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("list slugs: %w", err)
	}
	var slugs []string
	for {
		for _, doc := range resp.Results {
			if doc.UID == "" {
				return nil, &prismic.DecodeError{DocumentID: doc.ID, Field: "uid", Err: fmt.Errorf("missing")}
			}
			slugs = append(slugs, doc.UID)
		}
		next := resp.Next()
		if next == "" {
			return slugs, nil
		}
		resp, err = s.src.FetchPage(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("list slugs: %w", err)
		}
	}
}

// ListAllSummaries returns every post summary by paging a listing through
// to its last page.
func (s *Service) ListAllSummaries(ctx context.Context) ([]Summary, error) {
	p := NewPage(s.src, WithPageSize(enumeratePageSize), WithDateFormatter(s.dates))
	if _, err := p.LoadInitialPage(ctx); err != nil {
		return nil, err
	}
	if err := p.LoadAll(ctx); err != nil {
		return nil, err
	}
	return p.Posts(), nil
}

// LoadPostBySlug returns the post with the given slug. A slug that matches
// nothing yields ErrNotFound; a document that does not decode yields a
// *prismic.DecodeError.
func (s *Service) LoadPostBySlug(ctx context.Context, slug string) (Detail, error) {
	if slug == "" {
		return Detail{}, ErrInvalidSlug
	}
	doc, err := s.src.GetByUID(ctx, DocumentType, slug, prismic.QueryOptions{})
	if err != nil {
		if errors.Is(err, prismic.ErrNotFound) {
			return Detail{}, fmt.Errorf("%w: %s", ErrNotFound, slug)
		}
		return Detail{}, fmt.Errorf("load post %s: %w", slug, err)
	}
	return DecodeDetail(*doc)
}
