package spacetraveling

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/spacetraveling/posts"
)

// ErrRecentlyFailed is returned by Resolve while a slug is inside its retry
// window after a failed fetch.
var ErrRecentlyFailed = errors.New("spacetraveling: post fetch failed recently")

// maxTrackedFailures caps how many failed slugs are remembered at once.
const maxTrackedFailures = 1024

// FallbackState is where a post that was not generated at build time is in
// its on-demand generation.
type FallbackState int

const (
	// FallbackLoading: a fetch for the post is in flight.
	FallbackLoading FallbackState = iota
	// FallbackReady: the post was fetched and its page written.
	FallbackReady
	// FallbackFailed: the last fetch failed. Nothing was written; requests
	// inside the retry window fail fast and later ones fetch again.
	FallbackFailed
)

func (s FallbackState) String() string {
	switch s {
	case FallbackLoading:
		return "loading"
	case FallbackReady:
		return "ready"
	case FallbackFailed:
		return "failed"
	}
	return "unknown"
}

// PersistFunc stores a fetched post so later requests are served statically.
type PersistFunc func(ctx context.Context, d posts.Detail) error

type fallbackEntry struct {
	state FallbackState
	at    time.Time
}

// Fallback generates posts on first request. Concurrent requests for the
// same slug share one fetch. Only slugs that were actually resolved are
// tracked: in-flight fetches, posts that exist, and recent failures.
type Fallback struct {
	posts      *posts.Service
	persist    PersistFunc
	log        *slog.Logger
	retryAfter time.Duration
	now        func() time.Time
	group      singleflight.Group

	mu     sync.Mutex
	states map[string]fallbackEntry
}

// NewFallback returns a Fallback loading posts from svc. persist may be nil.
// A failed slug is not fetched again for retryAfter; zero retries at once.
func NewFallback(svc *posts.Service, persist PersistFunc, retryAfter time.Duration, log *slog.Logger) *Fallback {
	if log == nil {
		log = slog.Default()
	}
	return &Fallback{
		posts:      svc,
		persist:    persist,
		log:        log,
		retryAfter: retryAfter,
		now:        time.Now,
		states:     make(map[string]fallbackEntry),
	}
}

// State returns the state of slug and whether it is tracked at all.
func (f *Fallback) State(slug string) (FallbackState, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.states[slug]
	return e.state, ok
}

// Tracked returns the number of slugs with a recorded state.
func (f *Fallback) Tracked() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.states)
}

// RecentlyFailed reports whether slug failed inside the retry window.
func (f *Fallback) RecentlyFailed(slug string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.recentlyFailedLocked(slug, f.now())
}

func (f *Fallback) recentlyFailedLocked(slug string, now time.Time) bool {
	e, ok := f.states[slug]
	return ok && e.state == FallbackFailed && now.Sub(e.at) < f.retryAfter
}

func (f *Fallback) set(slug string, s FallbackState) {
	f.mu.Lock()
	f.states[slug] = fallbackEntry{state: s, at: f.now()}
	f.mu.Unlock()
}

func (f *Fallback) forget(slug string) {
	f.mu.Lock()
	delete(f.states, slug)
	f.mu.Unlock()
}

// fail records a failure for slug, first dropping failures whose window has
// passed. It reports false when the cap is reached and slug is left
// untracked.
func (f *Fallback) fail(slug string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	failed := 0
	for s, e := range f.states {
		if e.state != FallbackFailed {
			continue
		}
		if now.Sub(e.at) >= f.retryAfter {
			delete(f.states, s)
			continue
		}
		failed++
	}
	if failed >= maxTrackedFailures || f.retryAfter <= 0 {
		delete(f.states, slug)
		return false
	}
	f.states[slug] = fallbackEntry{state: FallbackFailed, at: now}
	return true
}

// Resolve fetches slug, persists it and moves it to FallbackReady. A slug
// with no post yields posts.ErrNotFound and leaves no state behind; any
// other error moves it to FallbackFailed, and until the retry window passes
// Resolve returns ErrRecentlyFailed without fetching.
func (f *Fallback) Resolve(ctx context.Context, slug string) (posts.Detail, error) {
	if f.RecentlyFailed(slug) {
		return posts.Detail{}, fmt.Errorf("%w: %s", ErrRecentlyFailed, slug)
	}

	// The fetch is shared, so it must outlive the request that started it.
	shared := context.WithoutCancel(ctx)
	v, err, _ := f.group.Do(slug, func() (any, error) {
		f.set(slug, FallbackLoading)
		d, err := f.posts.LoadPostBySlug(shared, slug)
		if err != nil {
			if errors.Is(err, posts.ErrNotFound) || errors.Is(err, posts.ErrInvalidSlug) {
				f.forget(slug)
			} else {
				f.fail(slug)
				f.log.Error("fallback fetch failed", "slug", slug, "error", err)
			}
			return nil, err
		}
		if f.persist != nil {
			if err := f.persist(shared, d); err != nil {
				f.log.Warn("fallback persist failed", "slug", slug, "error", err)
			}
		}
		f.set(slug, FallbackReady)
		f.log.Info("fallback generated", "slug", slug)
		return d, nil
	})
	if err != nil {
		return posts.Detail{}, err
	}
	return v.(posts.Detail), nil
}
