// Package prismictest provides an in-memory Prismic API for tests.
package prismictest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strconv"
	"sync"

	"github.com/eringen/spacetraveling/prismic"
)

// MasterRef is the ref the fake API advertises as master.
const MasterRef = "master-ref"

var rePredicate = regexp.MustCompile(`\[at\(([^,]+),\s*("(?:[^"\\]|\\.)*")\)\]`)

// Server is an httptest.Server answering /api/v2 and /api/v2/documents/search.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	docs     []prismic.Document
	previews map[string][]prismic.Document
	status   int
	token    string
	searches int
	apiCalls int
}

// NewServer starts a fake API holding docs in the given order.
func NewServer(docs ...prismic.Document) *Server {
	s := &Server{
		docs:     docs,
		previews: make(map[string][]prismic.Document),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2", s.handleAPI)
	mux.HandleFunc("/api/v2/documents/search", s.handleSearch)
	s.Server = httptest.NewServer(mux)
	return s
}

// Endpoint is the API root to pass to prismic.New.
func (s *Server) Endpoint() string {
	return s.URL + "/api/v2"
}

// Add appends documents to the master ref.
func (s *Server) Add(docs ...prismic.Document) {
	s.mu.Lock()
	s.docs = append(s.docs, docs...)
	s.mu.Unlock()
}

// Preview registers a ref under which doc replaces (or adds to) the
// master version with the same ID.
func (s *Server) Preview(ref string, doc prismic.Document) {
	s.mu.Lock()
	s.previews[ref] = append(s.previews[ref], doc)
	s.mu.Unlock()
}

// FailWith makes every search answer with status code. Zero restores
// normal behaviour.
func (s *Server) FailWith(code int) {
	s.mu.Lock()
	s.status = code
	s.mu.Unlock()
}

// RequireToken makes every request without access_token=token fail with 401.
func (s *Server) RequireToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Searches returns the number of documents/search requests served.
func (s *Server) Searches() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.searches
}

func (s *Server) handleAPI(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.apiCalls++
	token := s.token
	s.mu.Unlock()
	if token != "" && r.URL.Query().Get("access_token") != token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{
		"refs": []map[string]any{
			{"id": "master", "ref": MasterRef, "label": "Master", "isMasterRef": true},
		},
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.searches++
	status := s.status
	docs := s.visible(r.URL.Query().Get("ref"))
	token := s.token
	s.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if token != "" && r.URL.Query().Get("access_token") != token {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	if docs == nil {
		http.Error(w, `{"message":"unknown ref"}`, http.StatusBadRequest)
		return
	}

	q := r.URL.Query()
	matched := filter(docs, q.Get("q"))

	pageSize := atoiOr(q.Get("pageSize"), 20)
	page := atoiOr(q.Get("page"), 1)
	totalPages := (len(matched) + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	end := start + pageSize
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	results := matched[start:end]

	var next *string
	if page < totalPages {
		nq := r.URL.Query()
		nq.Set("page", strconv.Itoa(page+1))
		u := s.URL + r.URL.Path + "?" + nq.Encode()
		next = &u
	}

	writeJSON(w, prismic.SearchResponse{
		Page:             page,
		ResultsPerPage:   pageSize,
		ResultsSize:      len(results),
		TotalResultsSize: len(matched),
		TotalPages:       totalPages,
		NextPage:         next,
		Results:          results,
	})
}

// visible returns the documents seen under ref; callers hold s.mu.
func (s *Server) visible(ref string) []prismic.Document {
	if ref == MasterRef {
		return append([]prismic.Document{}, s.docs...)
	}
	overlay, ok := s.previews[ref]
	if !ok {
		return nil
	}
	out := append([]prismic.Document{}, s.docs...)
	for _, p := range overlay {
		replaced := false
		for i := range out {
			if out[i].ID == p.ID {
				out[i] = p
				replaced = true
			}
		}
		if !replaced {
			out = append(out, p)
		}
	}
	return out
}

func filter(docs []prismic.Document, q string) []prismic.Document {
	matches := rePredicate.FindAllStringSubmatch(q, -1)
	out := []prismic.Document{}
	for _, d := range docs {
		ok := true
		for _, m := range matches {
			value, err := strconv.Unquote(m[2])
			if err != nil || !matchPath(d, m[1], value) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, d)
		}
	}
	return out
}

func matchPath(d prismic.Document, path, value string) bool {
	switch path {
	case "document.type":
		return d.Type == value
	case "document.id":
		return d.ID == value
	case "my." + d.Type + ".uid":
		return d.UID == value
	}
	return false
}

func atoiOr(s string, fallback int) int {
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// Post builds a "posts" document. content is a list of blocks, each a
// header followed by paragraph texts.
func Post(id, uid, published, title, subtitle, author string, content ...[]string) prismic.Document {
	blocks := make([]map[string]any, 0, len(content))
	for _, block := range content {
		if len(block) == 0 {
			continue
		}
		body := make([]map[string]any, 0, len(block)-1)
		for _, text := range block[1:] {
			body = append(body, map[string]any{"type": "paragraph", "text": text, "spans": []any{}})
		}
		blocks = append(blocks, map[string]any{"header": block[0], "body": body})
	}
	data, _ := json.Marshal(map[string]any{
		"title":    title,
		"subtitle": subtitle,
		"author":   author,
		"banner":   map[string]any{"url": "https://images.example.com/" + uid + ".png"},
		"content":  blocks,
	})
	var pub *string
	if published != "" {
		pub = &published
	}
	return prismic.Document{
		ID:                   id,
		UID:                  uid,
		Type:                 "posts",
		FirstPublicationDate: pub,
		LastPublicationDate:  pub,
		Data:                 data,
	}
}
