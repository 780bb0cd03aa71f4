package mock

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Server serves the mock site's JSON API:
//
//	GET /api/search?mode=Episode&q=Game+of+Thrones+S05E08
//	GET /api/recent
type Server struct {
	baseURL string

	mu      sync.Mutex
	queries []string
}

// NewServer creates a mock site. baseURL is used to build download links.
func NewServer(baseURL string) *Server {
	return &Server{baseURL: baseURL}
}

// SetBaseURL changes the base used for download links, e.g. once an httptest server has started.
func (s *Server) SetBaseURL(baseURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.baseURL = baseURL
}

// Queries returns every search query received, in order.
func (s *Server) Queries() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queries...)
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	base := s.baseURL
	s.mu.Unlock()

	switch r.URL.Path {
	case "/api/search":
		q := r.URL.Query().Get("q")
		s.mu.Lock()
		s.queries = append(s.queries, q)
		s.mu.Unlock()

		releases := []Release{}
		if q == "" {
			releases = recentReleases(base)
		} else if parsed, ok := parseQuery(q); ok {
			releases = generateReleases(base, parsed)
		}
		writeJSON(w, releases)
	case "/api/recent":
		writeJSON(w, recentReleases(base))
	default:
		http.NotFound(w, r)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
