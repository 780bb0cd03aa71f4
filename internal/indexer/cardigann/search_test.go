package cardigann

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream/providercheck/internal/contract"
	"github.com/slipstream/providercheck/internal/indexer"
	"github.com/slipstream/providercheck/internal/indexer/types"
	"github.com/slipstream/providercheck/internal/testutil"
)

const htmlDefinition = `
id: htmlsite
name: HTMLSite
type: public
links:
  - %s/
caps:
  backlog: true
  daily: true
  searchparams:
    Season: ["Arrow S01"]
search:
  paths:
    - path: search.php
      modes: [Episode, Season]
  rss:
    path: latest.php
  inputs:
    q: "{{ .Keywords }}"
    cat: tv
  keywordsfilters:
    - name: re_replace
      args: ["\\s+", " "]
  error:
    - selector: div.error
  rows:
    selector: table#results tr
    after: 1
  fields:
    title:
      selector: a.title
    download:
      selector: a.dl
      attribute: href
      optional: true
    infohash:
      selector: td.hash
      optional: true
    size:
      selector: td.size
      filters:
        - name: size
    seeders:
      selector: td.s
    leechers:
      selector: td.l
`

const resultsPage = `<html><body>
<table id="results">
<tr><th>Name</th><th>DL</th><th>Size</th><th>S</th><th>L</th></tr>
<tr><td><a class="title" href="/details/1">Game.of.Thrones.S05E08.720p</a></td><td><a class="dl" href="/dl/1.torrent">dl</a></td><td class="size">1.4 GB</td><td class="s">10</td><td class="l">2</td></tr>
<tr><td><a class="title" href="/details/2">Game.of.Thrones.S05E08.1080p</a></td><td></td><td class="size">2,1 GB</td><td class="s">1,204</td><td class="l">0</td><td class="hash">0123456789ABCDEF0123456789ABCDEF01234567</td></tr>
</table></body></html>`

type site struct {
	*httptest.Server
	mu       sync.Mutex
	requests []string
}

func newSite(t *testing.T, handler http.HandlerFunc) *site {
	t.Helper()
	s := &site{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.URL.RequestURI())
		s.mu.Unlock()
		handler(w, r)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *site) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

func newIndexer(t *testing.T, definition string, s *site) *Indexer {
	t.Helper()
	def, err := ParseDefinition([]byte(fmt.Sprintf(definition, s.URL)))
	require.NoError(t, err)
	ix := New(def, testutil.NopLogger())
	ix.Configure(types.Session{HTTPClient: s.Client()})
	return ix
}

func TestIndexer_SearchHTML(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultsPage)
	})
	ix := newIndexer(t, htmlDefinition, s)

	results, err := ix.Search(context.Background(), types.SearchStrings{types.ModeEpisode: {"Game of  Thrones S05E08"}})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"/search.php?cat=tv&q=Game+of+Thrones+S05E08"}, s.seen())

	first := results[0]
	assert.Equal(t, "Game.of.Thrones.S05E08.720p", first.String(types.FieldTitle))
	assert.Equal(t, s.URL+"/dl/1.torrent", first.String(types.FieldLink))
	assert.Equal(t, "", first.String(types.FieldHash))
	assert.Equal(t, int64(1503238553), ix.Size(first))

	second := results[1]
	assert.Equal(t, "0123456789abcdef0123456789abcdef01234567", second.String(types.FieldHash))
	assert.Equal(t, "magnet:?xt=urn:btih:0123456789abcdef0123456789abcdef01234567&dn=Game.of.Thrones.S05E08.1080p", second.String(types.FieldLink))
	seeders, _ := second.Int(types.FieldSeeders)
	assert.Equal(t, int64(1204), seeders)

	for i, r := range results {
		assert.Empty(t, contract.Validate(r), "result %d", i)
	}
}

func TestIndexer_ModeRouting(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultsPage)
	})
	ix := newIndexer(t, htmlDefinition, s)

	results, err := ix.Search(context.Background(), types.SearchStrings{types.ModeRSS: {""}})
	require.NoError(t, err)
	assert.Empty(t, results, "no path serves RSS searches")
	assert.Empty(t, s.seen())

	assert.Equal(t, types.SearchStrings{types.ModeSeason: {"Arrow S01"}}, ix.SearchParams())
}

func TestIndexer_UpdateCache(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, resultsPage)
	})
	ix := newIndexer(t, htmlDefinition, s)

	require.NoError(t, ix.UpdateCache(context.Background()))
	assert.Equal(t, []string{"/latest.php?cat=tv&q="}, s.seen())
	assert.Len(t, ix.Cached(), 2)
}

func TestIndexer_SiteError(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="error">Search is disabled</div>`)
	})
	ix := newIndexer(t, htmlDefinition, s)

	_, err := ix.Search(context.Background(), types.SearchStrings{types.ModeEpisode: {"x"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, indexer.ErrSearch)
	assert.Contains(t, err.Error(), "Search is disabled")
}

func TestIndexer_HTTPStatus(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	})
	ix := newIndexer(t, htmlDefinition, s)

	_, err := ix.Search(context.Background(), types.SearchStrings{types.ModeEpisode: {"x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 503")
}

func TestIndexer_Unconfigured(t *testing.T) {
	def, err := ParseDefinition([]byte(fmt.Sprintf(htmlDefinition, "http://site.invalid")))
	require.NoError(t, err)

	_, err = New(def, testutil.NopLogger()).Search(context.Background(), types.SearchStrings{types.ModeEpisode: {"x"}})
	assert.ErrorIs(t, err, indexer.ErrConfiguration)
}

const jsonDefinition = `
id: jsonsite
links: ["%s"]
caps:
  backlog: true
search:
  trackers:
    - udp://tracker.example:80
  paths:
    - path: api/v1/search
      response:
        type: json
  inputs:
    query: "{{ .Keywords }}"
  rows:
    selector: data.torrents
  fields:
    title:
      selector: name
    infohash:
      selector: info_hash
    size:
      selector: size_bytes
    seeders:
      selector: stats.seeders
    leechers:
      selector: stats.leechers
`

func TestIndexer_SearchJSON(t *testing.T) {
	s := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":{"torrents":[
			{"name":"The.Expanse.S05.1080p","info_hash":"ABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD","size_bytes":734003200,"stats":{"seeders":7,"leechers":1}},
			{"name":"","info_hash":"ABCDEFABCDEFABCDEFABCDEFABCDEFABCDEFABCD"}
		]}}`)
	})
	ix := newIndexer(t, jsonDefinition, s)
	assert.Equal(t, "jsonsite", ix.Name())

	results, err := ix.Search(context.Background(), types.SearchStrings{types.ModeSeason: {"The Expanse S05"}})
	require.NoError(t, err)
	require.Len(t, results, 1, "rows without a title are dropped")

	r := results[0]
	assert.Equal(t, "magnet:?xt=urn:btih:abcdefabcdefabcdefabcdefabcdefabcdefabcd&dn=The.Expanse.S05.1080p&tr=udp%3A%2F%2Ftracker.example%3A80", r.String(types.FieldLink))
	assert.Equal(t, int64(734003200), ix.Size(r))
	assert.Empty(t, contract.Validate(r))
	assert.Equal(t, []string{"/api/v1/search?query=The+Expanse+S05"}, s.seen())
}

func TestIndexer_DecodesCharset(t *testing.T) {
	def := strings.Replace(htmlDefinition, "type: public", "type: public\nencoding: windows-1252", 1)
	s := newSite(t, func(w http.ResponseWriter, r *http.Request) {
		page := strings.Replace(resultsPage, "Game.of.Thrones.S05E08.720p", "Am\xe9lie.2001.720p", 1)
		_, _ = w.Write([]byte(page))
	})
	ix := newIndexer(t, def, s)

	results, err := ix.Search(context.Background(), types.SearchStrings{types.ModeEpisode: {"x"}})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Amélie.2001.720p", results[0].String(types.FieldTitle))
}

func TestDefinition_Capabilities(t *testing.T) {
	tests := []struct {
		name    string
		extra   string
		want    types.Capabilities
		wantErr bool
	}{
		{
			name:  "public torrent",
			extra: "caps:\n  backlog: true\n  daily: true\n",
			want:  types.Capabilities{Kind: types.KindTorrent, Public: true, SupportsBacklog: true, EnableDaily: true},
		},
		{
			name:  "private",
			extra: "type: private\ncaps:\n  backlog: true\n",
			want:  types.Capabilities{Kind: types.KindTorrent, SupportsBacklog: true},
		},
		{
			name:  "usenet",
			extra: "protocol: usenet\ncaps:\n  backlog: false\n",
			want:  types.Capabilities{Kind: types.KindOther, Public: true},
		},
		{
			name:    "backlog not declared",
			extra:   "caps:\n  daily: true\n",
			wantErr: true,
		},
		{
			name:    "unknown protocol",
			extra:   "protocol: gopher\ncaps:\n  backlog: true\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := ParseDefinition([]byte("id: x\nlinks: [http://x.invalid]\nsearch:\n  paths: [{path: s}]\n" + tt.extra))
			require.NoError(t, err)
			got, err := def.Capabilities()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDefinition_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "id: [\n"},
		{"no id", "links: [http://x.invalid]\nsearch:\n  paths: [{path: s}]\n"},
		{"no links", "id: x\nsearch:\n  paths: [{path: s}]\n"},
		{"no paths", "id: x\nlinks: [http://x.invalid]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "good.yml", "id: good\nlinks: [http://good.invalid]\ncaps:\n  backlog: true\nsearch:\n  paths: [{path: s}]\n")
	testutil.WriteFile(t, dir, "broken.yaml", "id: [\n")
	testutil.WriteFile(t, dir, "renamed.yaml", "id: other\nlinks: [http://x.invalid]\nsearch:\n  paths: [{path: s}]\n")
	testutil.WriteFile(t, dir, "README.md", "not a definition")

	reg, err := LoadDir(dir, testutil.NopLogger())
	require.NoError(t, err)

	ids, err := reg.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"broken", "good", "renamed"}, ids)

	good, err := reg.Lookup("good")
	require.NoError(t, err)
	assert.Equal(t, "good", good.Name())

	for _, id := range []string{"broken", "renamed"} {
		_, err := reg.Lookup(id)
		assert.True(t, indexer.IsMalformed(err), id)
	}
}

func TestLoadDir_Missing(t *testing.T) {
	_, err := LoadDir(t.TempDir()+"/nope", testutil.NopLogger())
	assert.ErrorIs(t, err, indexer.ErrRegistryUnavailable)

	reg, err := LoadDir("", testutil.NopLogger())
	require.NoError(t, err)
	assert.Zero(t, reg.Len())
}
