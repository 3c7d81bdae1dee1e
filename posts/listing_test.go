package posts

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/spacetraveling/prismic"
	"github.com/eringen/spacetraveling/prismic/prismictest"
)

func newTestSource(t *testing.T, n int) (*prismictest.Server, *prismic.Client) {
	t.Helper()
	srv := prismictest.NewServer()
	for i := 1; i <= n; i++ {
		srv.Add(prismictest.Post(
			fmt.Sprintf("d%d", i),
			fmt.Sprintf("post-%d", i),
			fmt.Sprintf("2021-03-%02dT10:00:00+0000", i),
			fmt.Sprintf("Post %d", i),
			fmt.Sprintf("Subtitle %d", i),
			"Ana",
		))
	}
	t.Cleanup(srv.Close)
	return srv, prismic.New(srv.Endpoint())
}

func slugsOf(ss []Summary) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = s.Slug
	}
	return out
}

func TestLoadInitialPage(t *testing.T) {
	_, client := newTestSource(t, 3)
	p := NewPage(client)

	pg, err := p.LoadInitialPage(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, pg.Page)
	require.Len(t, pg.Results, 1)
	assert.Equal(t, "post-1", pg.Results[0].Slug)
	assert.Equal(t, "Subtitle 1", pg.Results[0].Subtitle)
	assert.Equal(t, "01 mar 2021", pg.Results[0].Date)
	assert.NotEmpty(t, pg.NextPage)

	assert.Equal(t, []string{"post-1"}, slugsOf(p.Posts()))
	assert.Equal(t, pg.NextPage, p.Cursor())
	assert.Equal(t, 1, p.CurrentPage())
	assert.True(t, p.HasMore())
}

func TestLoadInitialPageTwice(t *testing.T) {
	_, client := newTestSource(t, 2)
	p := NewPage(client)

	_, err := p.LoadInitialPage(context.Background())
	require.NoError(t, err)
	_, err = p.LoadInitialPage(context.Background())
	assert.ErrorIs(t, err, ErrPageLoaded)
	assert.Len(t, p.Posts(), 1)
}

func TestLoadNextPageAppendsInOrder(t *testing.T) {
	_, client := newTestSource(t, 4)
	ctx := context.Background()
	p := NewPage(client)

	_, err := p.LoadInitialPage(ctx)
	require.NoError(t, err)

	want := []string{"post-1"}
	fetched := 1
	for p.HasMore() {
		before := p.Posts()
		added, err := p.LoadNextPage(ctx)
		require.NoError(t, err)
		fetched += len(added)

		after := p.Posts()
		require.Len(t, after, fetched)
		assert.Equal(t, slugsOf(before), slugsOf(after[:len(before)]), "existing entries must not move")
		want = append(want, slugsOf(added)...)
	}

	assert.Equal(t, []string{"post-1", "post-2", "post-3", "post-4"}, want)
	assert.Equal(t, want, slugsOf(p.Posts()))
	assert.Equal(t, 4, p.CurrentPage())
}

func TestLoadNextPageFormatsDates(t *testing.T) {
	_, client := newTestSource(t, 2)
	ctx := context.Background()
	p := NewPage(client)

	_, err := p.LoadInitialPage(ctx)
	require.NoError(t, err)
	added, err := p.LoadNextPage(ctx)
	require.NoError(t, err)
	require.Len(t, added, 1)
	assert.Equal(t, "02 mar 2021", added[0].Date)
}

func TestCursorTermination(t *testing.T) {
	srv, client := newTestSource(t, 2)
	ctx := context.Background()
	p := NewPage(client)

	_, err := p.LoadInitialPage(ctx)
	require.NoError(t, err)
	_, err = p.LoadNextPage(ctx)
	require.NoError(t, err)
	require.False(t, p.HasMore())

	searches := srv.Searches()
	added, err := p.LoadNextPage(ctx)
	require.NoError(t, err)
	assert.Nil(t, added)
	assert.Equal(t, searches, srv.Searches(), "no request after the last page")
	assert.Len(t, p.Posts(), 2)
	assert.Equal(t, 2, p.CurrentPage())
}

func TestLoadNextPageWithoutCursorIsNoop(t *testing.T) {
	src := &fakeSource{}
	p := NewPage(src)

	added, err := p.LoadNextPage(context.Background())
	require.NoError(t, err)
	assert.Nil(t, added)
	assert.Empty(t, p.Posts())
	assert.Equal(t, 0, p.CurrentPage())
	assert.Equal(t, 0, src.calls)
}

func TestLoadNextPageErrorLeavesStateUntouched(t *testing.T) {
	srv, client := newTestSource(t, 3)
	ctx := context.Background()
	p := NewPage(client)

	_, err := p.LoadInitialPage(ctx)
	require.NoError(t, err)
	cursor := p.Cursor()

	srv.FailWith(500)
	_, err = p.LoadNextPage(ctx)
	var statusErr *prismic.StatusError
	assert.True(t, errors.As(err, &statusErr), "got %v", err)
	assert.Equal(t, cursor, p.Cursor())
	assert.Len(t, p.Posts(), 1)
}

func TestConcurrentLoadNextPageAppendsWholePages(t *testing.T) {
	_, client := newTestSource(t, 6)
	ctx := context.Background()
	p := NewPage(client)
	_, err := p.LoadInitialPage(ctx)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = p.LoadNextPage(ctx)
		}()
	}
	wg.Wait()

	assert.Equal(t, []string{"post-1", "post-2", "post-3", "post-4", "post-5", "post-6"}, slugsOf(p.Posts()))
	assert.False(t, p.HasMore())
}

func TestResumePage(t *testing.T) {
	_, client := newTestSource(t, 3)
	ctx := context.Background()

	first := NewPage(client)
	_, err := first.LoadInitialPage(ctx)
	require.NoError(t, err)

	p, err := ResumePage(client, first.Cursor(), first.CurrentPage())
	require.NoError(t, err)
	added, err := p.LoadNextPage(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"post-2"}, slugsOf(added))
	assert.Equal(t, 2, p.CurrentPage())

	_, err = p.LoadInitialPage(ctx)
	assert.ErrorIs(t, err, ErrPageLoaded)
}

func TestResumePageRejectsForeignCursor(t *testing.T) {
	_, client := newTestSource(t, 1)

	_, err := ResumePage(client, "https://evil.example.com/api/v2/documents/search?page=2", 1)
	assert.ErrorIs(t, err, ErrForeignCursor)
}

func TestLoadInitialPageDecodeError(t *testing.T) {
	srv := prismictest.NewServer(prismic.Document{ID: "broken", UID: "broken", Type: DocumentType, Data: []byte(`{"subtitle":"s"}`)})
	defer srv.Close()

	_, err := NewPage(prismic.New(srv.Endpoint())).LoadInitialPage(context.Background())
	var decodeErr *prismic.DecodeError
	require.True(t, errors.As(err, &decodeErr), "got %v", err)
	assert.Equal(t, "data.title", decodeErr.Field)
}

// fakeSource counts calls and fails them all.
type fakeSource struct {
	calls int
}

func (f *fakeSource) Query(ctx context.Context, _ []prismic.Predicate, _ prismic.QueryOptions) (*prismic.SearchResponse, error) {
	f.calls++
	return nil, errors.New("unexpected query")
}

func (f *fakeSource) GetByUID(ctx context.Context, _, _ string, _ prismic.QueryOptions) (*prismic.Document, error) {
	f.calls++
	return nil, errors.New("unexpected get")
}

func (f *fakeSource) FetchPage(ctx context.Context, _ string) (*prismic.SearchResponse, error) {
	f.calls++
	return nil, errors.New("unexpected fetch")
}

func (f *fakeSource) Owns(string) bool { return true }
