package mock

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream/providercheck/internal/contract"
	"github.com/slipstream/providercheck/internal/indexer/types"
)

func newTestClient(t *testing.T) (*Client, *Server) {
	t.Helper()
	site := NewServer("")
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	site.SetBaseURL(srv.URL)

	c := NewClient(Config{ID: "mocksite", BaseURL: srv.URL, Capabilities: DefaultCapabilities()})
	c.Configure(types.Session{HTTPClient: srv.Client()})
	return c, site
}

func TestClient_Search(t *testing.T) {
	c, site := newTestClient(t)

	tests := []struct {
		name  string
		req   types.SearchStrings
		count int
	}{
		{"episode", types.SearchStrings{types.ModeEpisode: {"Game of Thrones S05E08"}}, 3},
		{"season", types.SearchStrings{types.ModeSeason: {"Game of Thrones S05"}}, 2},
		{"rss", types.SearchStrings{types.ModeRSS: {""}}, len(mockTVCatalog)},
		{"unknown series", types.SearchStrings{types.ModeEpisode: {"Nothing S01E01"}}, 0},
		{"out of range", types.SearchStrings{types.ModeEpisode: {"Arrow S09E01"}}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := c.Search(context.Background(), tt.req)
			require.NoError(t, err)
			assert.Len(t, results, tt.count)
			for _, r := range results {
				assert.Empty(t, contract.Validate(r), "result %v", r)
				assert.NotZero(t, c.Size(r))
			}
		})
	}

	assert.Contains(t, site.Queries(), "Game of Thrones S05E08")
}

func TestClient_SearchRequiresSingleMode(t *testing.T) {
	c, _ := newTestClient(t)
	_, err := c.Search(context.Background(), types.SearchStrings{
		types.ModeEpisode: {"a"},
		types.ModeSeason:  {"b"},
	})
	assert.Error(t, err)
}

func TestClient_UpdateCache(t *testing.T) {
	c, _ := newTestClient(t)
	require.NoError(t, c.UpdateCache(context.Background()))
	assert.Len(t, c.Cached(), len(mockTVCatalog))
}

func TestClient_Unconfigured(t *testing.T) {
	c := NewClient(Config{ID: "x", BaseURL: "http://127.0.0.1:1"})
	_, err := c.Search(context.Background(), types.SearchStrings{types.ModeEpisode: {"Arrow S01E01"}})
	assert.Error(t, err)
}

func TestServer_NotFound(t *testing.T) {
	srv := httptest.NewServer(NewServer(""))
	defer srv.Close()
	resp, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestParseQuery(t *testing.T) {
	tests := []struct {
		q       string
		ok      bool
		season  int
		episode int
	}{
		{"Game of Thrones S05E08", true, 5, 8},
		{"game of thrones s05", true, 5, 0},
		{"Fairy Tail S2", true, 2, 0},
		{"Game of Thrones", false, 0, 0},
		{"", false, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.q, func(t *testing.T) {
			got, ok := parseQuery(tt.q)
			if ok != tt.ok {
				t.Fatalf("parseQuery(%q) ok = %v, want %v", tt.q, ok, tt.ok)
			}
			if ok && (got.Season != tt.season || got.Episode != tt.episode) {
				t.Errorf("parseQuery(%q) = S%dE%d, want S%dE%d", tt.q, got.Season, got.Episode, tt.season, tt.episode)
			}
		})
	}
}
