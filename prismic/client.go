// Package prismic is a small read-only client for the Prismic REST API v2.
//
// It covers what a rendering layer needs: resolving the master ref, running
// predicate queries with pagination, fetching a document by UID or ID, and
// following next_page cursors.
package prismic

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client talks to a single Prismic repository.
type Client struct {
	endpoint    string
	accessToken string
	httpClient  *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAccessToken sets the token sent as access_token on every request.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = token
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets a request timeout on the current HTTP client, keeping a
// client passed to WithHTTPClient. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := http.Client{}
		if c.httpClient != nil {
			hc = *c.httpClient
		}
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// New returns a Client for the API root endpoint, e.g.
// "https://my-repo.cdn.prismic.io/api/v2".
func New(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint:   strings.TrimSuffix(endpoint, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the API root this client queries.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Owns reports whether raw is an absolute URL on the same scheme and host as
// the API endpoint. Cursors received from browsers must pass this check
// before they are fetched.
func (c *Client) Owns(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || !u.IsAbs() {
		return false
	}
	base, err := url.Parse(c.endpoint)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Scheme, base.Scheme) && strings.EqualFold(u.Host, base.Host)
}

// QueryOptions controls pagination and the content ref of a query.
type QueryOptions struct {
	PageSize  int
	Page      int
	Ref       string // empty: ref from context, then master
	Orderings string // e.g. "[document.first_publication_date desc]"
}

type apiInfo struct {
	Refs []struct {
		ID          string `json:"id"`
		Ref         string `json:"ref"`
		Label       string `json:"label"`
		IsMasterRef bool   `json:"isMasterRef"`
	} `json:"refs"`
}

// Ref returns the master ref of the repository.
func (c *Client) Ref(ctx context.Context) (string, error) {
	var info apiInfo
	if err := c.getJSON(ctx, c.authorize(c.endpoint), &info); err != nil {
		return "", err
	}
	for _, r := range info.Refs {
		if r.IsMasterRef {
			return r.Ref, nil
		}
	}
	return "", &DecodeError{Field: "refs", Err: fmt.Errorf("no master ref")}
}

// Query runs the predicates and returns one page of results.
func (c *Client) Query(ctx context.Context, predicates []Predicate, opts QueryOptions) (*SearchResponse, error) {
	ref := opts.Ref
	if ref == "" {
		ref = RefFromContext(ctx)
	}
	if ref == "" {
		master, err := c.Ref(ctx)
		if err != nil {
			return nil, fmt.Errorf("resolve ref: %w", err)
		}
		ref = master
	}

	q := url.Values{}
	q.Set("ref", ref)
	if len(predicates) > 0 {
		q.Set("q", joinPredicates(predicates))
	}
	if opts.PageSize > 0 {
		q.Set("pageSize", strconv.Itoa(opts.PageSize))
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Orderings != "" {
		q.Set("orderings", opts.Orderings)
	}
	return c.FetchPage(ctx, c.endpoint+"/documents/search?"+q.Encode())
}

// GetByUID returns the unique document of docType with the given UID.
func (c *Client) GetByUID(ctx context.Context, docType, uid string, opts QueryOptions) (*Document, error) {
	return c.first(ctx, At("my."+docType+".uid", uid), opts)
}

// GetByID returns the document with the given ID.
func (c *Client) GetByID(ctx context.Context, id string, opts QueryOptions) (*Document, error) {
	return c.first(ctx, At("document.id", id), opts)
}

func (c *Client) first(ctx context.Context, p Predicate, opts QueryOptions) (*Document, error) {
	opts.PageSize = 1
	opts.Page = 1
	resp, err := c.Query(ctx, []Predicate{p}, opts)
	if err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, ErrNotFound
	}
	doc := resp.Results[0]
	return &doc, nil
}

// FetchPage GETs a search URL, typically a next_page cursor, and decodes
// the paginated response. The access token is added to URLs on the API host
// and removed from the returned cursors, so cursors can be rendered into
// pages as they are.
func (c *Client) FetchPage(ctx context.Context, rawURL string) (*SearchResponse, error) {
	var resp SearchResponse
	if err := c.getJSON(ctx, c.authorize(rawURL), &resp); err != nil {
		return nil, err
	}
	for _, cursor := range []**string{&resp.NextPage, &resp.PrevPage} {
		if *cursor != nil {
			public := PublicCursor(**cursor)
			*cursor = &public
		}
	}
	return &resp, nil
}

// PublicCursor returns raw without its access_token parameter.
func PublicCursor(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if !q.Has("access_token") {
		return raw
	}
	q.Del("access_token")
	u.RawQuery = q.Encode()
	return u.String()
}

// authorize adds the access token to a URL on the API host that lacks one.
// Other hosts never see the token.
func (c *Client) authorize(raw string) string {
	if c.accessToken == "" || !c.Owns(raw) {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("access_token") {
		return raw
	}
	q.Set("access_token", c.accessToken)
	u.RawQuery = q.Encode()
	return u.String()
}

func (c *Client) getJSON(ctx context.Context, rawURL string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("prismic: create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("prismic: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{StatusCode: resp.StatusCode, URL: redact(rawURL)}
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return &DecodeError{Field: "response", Err: err}
	}
	return nil
}

// redact strips the access token from URLs that end up in errors and logs.
func redact(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("access_token") {
		q.Set("access_token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

type refKey struct{}

// ContextWithRef returns a context whose queries use ref instead of the
// master ref. Preview sessions use this.
func ContextWithRef(ctx context.Context, ref string) context.Context {
	return context.WithValue(ctx, refKey{}, ref)
}

// RefFromContext returns the ref stored by ContextWithRef, if any.
func RefFromContext(ctx context.Context) string {
	ref, _ := ctx.Value(refKey{}).(string)
	return ref
}
