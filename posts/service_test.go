package posts

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/prismic/prismictest"
)

func TestListAllSlugsWalksEveryPage(t *testing.T) {
	_, client := newTestSource(t, 105)
	svc := NewService(client, DefaultDateFormatter, 1)

	slugs, err := svc.ListAllSlugs(context.Background())
	require.NoError(t, err)
	require.Len(t, slugs, 105)
	assert.Equal(t, "post-1", slugs[0])
	assert.Equal(t, "post-105", slugs[104])
}

func TestListAllSummaries(t *testing.T) {
	_, client := newTestSource(t, 3)
	svc := NewService(client, DefaultDateFormatter, 1)

	all, err := svc.ListAllSummaries(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"post-1", "post-2", "post-3"}, slugsOf(all))
	assert.Equal(t, "03 mar 2021", all[2].Date)
}

func TestLoadPostBySlug(t *testing.T) {
	srv := prismictest.NewServer(prismictest.Post("d1", "hello", "2021-03-15T10:00:00+0000", "Hello", "Sub", "Ana",
		[]string{"Hello world", "one two three four five"},
	))
	defer srv.Close()
	svc := NewService(prismic.New(srv.Endpoint()), DefaultDateFormatter, 1)

	d, err := svc.LoadPostBySlug(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", d.Slug)
	assert.Equal(t, "Hello", d.Title)
	assert.Equal(t, "Ana", d.Author)
	assert.Equal(t, "https://images.example.com/hello.png", d.BannerURL)
	require.Len(t, d.Content, 1)
	assert.Equal(t, "Hello world", d.Content[0].Header)
	require.Len(t, d.Content[0].Body, 1)
	assert.Equal(t, "one two three four five", d.Content[0].Body[0].Text)
	assert.Equal(t, "15 mar 2021", svc.Dates().Format(d.FirstPublicationDate))
	assert.Equal(t, 1, ReadingTime(d))
}

func TestLoadPostBySlugNotFound(t *testing.T) {
	_, client := newTestSource(t, 2)
	svc := NewService(client, DefaultDateFormatter, 1)

	_, err := svc.LoadPostBySlug(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "nonexistent")
}

func TestLoadPostBySlugEmpty(t *testing.T) {
	svc := NewService(&fakeSource{}, DefaultDateFormatter, 1)
	_, err := svc.LoadPostBySlug(context.Background(), "")
	assert.ErrorIs(t, err, ErrInvalidSlug)
}

func TestLoadPostBySlugTransportError(t *testing.T) {
	srv, client := newTestSource(t, 1)
	srv.FailWith(502)
	svc := NewService(client, DefaultDateFormatter, 1)

	_, err := svc.LoadPostBySlug(context.Background(), "post-1")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	var statusErr *prismic.StatusError
	assert.True(t, errors.As(err, &statusErr))
}

func TestDecodeDetailValidation(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		field string
	}{
		{"no title", `{"author":"a","content":[]}`, "data.title"},
		{"no author", `{"title":"t","content":[]}`, "data.author"},
		{"no content", `{"title":"t","author":"a"}`, "data.content"},
		{"block without header", `{"title":"t","author":"a","content":[{"body":[]}]}`, "data.content[0].header"},
		{"wrong type", `{"title":1,"author":"a","content":[]}`, "data"},
	}
	for _, tt := range tests {
		doc := prismic.Document{ID: "x", UID: "x", Type: DocumentType, Data: []byte(tt.data)}
		_, err := DecodeDetail(doc)
		var decodeErr *prismic.DecodeError
		if !errors.As(err, &decodeErr) {
			t.Errorf("%s: expected DecodeError, got %v", tt.name, err)
			continue
		}
		assert.Equal(t, tt.field, decodeErr.Field, tt.name)
	}
}

func TestDecodeDetailOptionalFields(t *testing.T) {
	doc := prismic.Document{ID: "x", UID: "x", Type: DocumentType, Data: []byte(`{"title":"t","author":"a","subtitle":null,"content":[]}`)}
	d, err := DecodeDetail(doc)
	require.NoError(t, err)
	assert.Equal(t, "", d.Subtitle)
	assert.Equal(t, "", d.BannerURL)
	assert.Nil(t, d.FirstPublicationDate)
}

func TestDecodeSummaryBadTimestamp(t *testing.T) {
	ts := "not a date"
	doc := prismic.Document{ID: "x", UID: "x", Type: DocumentType, FirstPublicationDate: &ts, Data: []byte(`{"title":"t","author":"a"}`)}
	_, err := DecodeSummary(doc)
	var decodeErr *prismic.DecodeError
	require.True(t, errors.As(err, &decodeErr), fmt.Sprint(err))
	assert.Equal(t, "first_publication_date", decodeErr.Field)
}
