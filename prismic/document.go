package prismic

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Predicate is a single query predicate such as [at(document.type, "posts")].
type Predicate string

// At matches documents whose path equals value.
func At(path, value string) Predicate {
	return Predicate(fmt.Sprintf("[at(%s, %s)]", path, strconv.Quote(value)))
}

func joinPredicates(ps []Predicate) string {
	var b strings.Builder
	b.WriteByte('[')
	for _, p := range ps {
		b.WriteString(string(p))
	}
	b.WriteByte(']')
	return b.String()
}

// SearchResponse is one page of a documents/search call.
type SearchResponse struct {
	Page             int        `json:"page"`
	ResultsPerPage   int        `json:"results_per_page"`
	ResultsSize      int        `json:"results_size"`
	TotalResultsSize int        `json:"total_results_size"`
	TotalPages       int        `json:"total_pages"`
	NextPage         *string    `json:"next_page"`
	PrevPage         *string    `json:"prev_page"`
	Results          []Document `json:"results"`
}

// Next returns the next page cursor, or "" on the last page.
func (r *SearchResponse) Next() string {
	if r.NextPage == nil {
		return ""
	}
	return *r.NextPage
}

// Document is a raw API document. Data stays undecoded until the caller
// maps it onto its own type with DecodeData.
type Document struct {
	ID                   string          `json:"id"`
	UID                  string          `json:"uid"`
	Type                 string          `json:"type"`
	FirstPublicationDate *string         `json:"first_publication_date"`
	LastPublicationDate  *string         `json:"last_publication_date"`
	Data                 json.RawMessage `json:"data"`
}

// DecodeData unmarshals the document's data into v.
func (d Document) DecodeData(v any) error {
	if len(d.Data) == 0 || string(d.Data) == "null" {
		return &DecodeError{DocumentID: d.ID, Field: "data", Err: fmt.Errorf("missing")}
	}
	if err := json.Unmarshal(d.Data, v); err != nil {
		return &DecodeError{DocumentID: d.ID, Field: "data", Err: err}
	}
	return nil
}

// timestampLayouts covers the API's "+0000" offsets and plain RFC 3339.
var timestampLayouts = []string{
	"2006-01-02T15:04:05-0700",
	time.RFC3339,
	time.RFC3339Nano,
}

// ParseTimestamp parses an API timestamp. A nil input yields a nil time.
func ParseTimestamp(s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, *s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp %q", *s)
}
