// Package mock provides a deterministic adapter backed by a small JSON site,
// used to exercise the conformance harness without real indexers.
package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/slipstream/providercheck/internal/indexer"
	"github.com/slipstream/providercheck/internal/indexer/common"
	"github.com/slipstream/providercheck/internal/indexer/types"
)

// Config describes a mock adapter.
type Config struct {
	ID           string
	Name         string
	BaseURL      string
	Capabilities types.Capabilities
	// CapabilitiesErr makes Capabilities fail, marking the entry malformed.
	CapabilitiesErr error
	SearchParams    types.SearchStrings
	// Transform is applied to each result before it is returned.
	Transform func(types.Result) types.Result
	// Panic makes Search panic with this value when non-nil.
	Panic any
}

// Client implements indexer.Adapter against the mock site.
type Client struct {
	cfg Config

	mu      sync.Mutex
	session types.Session
	cache   []types.Result
}

var _ indexer.Adapter = (*Client)(nil)

// NewClient creates a new mock adapter.
func NewClient(cfg Config) *Client {
	if cfg.Name == "" {
		cfg.Name = cfg.ID
	}
	return &Client{cfg: cfg}
}

// DefaultCapabilities are those of an eligible adapter with daily search.
func DefaultCapabilities() types.Capabilities {
	return types.Capabilities{
		Kind:            types.KindTorrent,
		Public:          true,
		SupportsBacklog: true,
		EnableDaily:     true,
	}
}

func (c *Client) ID() string   { return c.cfg.ID }
func (c *Client) Name() string { return c.cfg.Name }

func (c *Client) Capabilities() (types.Capabilities, error) {
	if c.cfg.CapabilitiesErr != nil {
		return types.Capabilities{}, c.cfg.CapabilitiesErr
	}
	return c.cfg.Capabilities, nil
}

func (c *Client) SearchParams() types.SearchStrings {
	return c.cfg.SearchParams.Clone()
}

func (c *Client) Configure(session types.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
}

// Session returns the session injected last.
func (c *Client) Session() types.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *Client) Search(ctx context.Context, req types.SearchStrings) ([]types.Result, error) {
	if c.cfg.Panic != nil {
		panic(c.cfg.Panic)
	}
	mode, queries, err := req.Mode()
	if err != nil {
		return nil, indexer.NewSearchError(c.cfg.ID, err)
	}

	var results []types.Result
	for _, q := range queries {
		params := url.Values{"mode": {string(mode)}, "q": {q}}
		releases, err := c.fetch(ctx, "/api/search?"+params.Encode())
		if err != nil {
			return nil, indexer.NewSearchError(c.cfg.ID, err)
		}
		results = append(results, c.toResults(releases)...)
	}
	return results, nil
}

func (c *Client) UpdateCache(ctx context.Context) error {
	releases, err := c.fetch(ctx, "/api/recent")
	if err != nil {
		return indexer.NewCacheError(c.cfg.ID, err)
	}
	results := c.toResults(releases)

	c.mu.Lock()
	c.cache = results
	c.mu.Unlock()
	return nil
}

// Cached returns the results stored by the last UpdateCache.
func (c *Client) Cached() []types.Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]types.Result(nil), c.cache...)
}

func (c *Client) Size(r types.Result) int64 {
	if n, ok := r.Int(types.FieldSize); ok {
		return n
	}
	return -1
}

func (c *Client) TitleAndLink(r types.Result) (string, string) {
	return r.String(types.FieldTitle), r.String(types.FieldLink)
}

func (c *Client) fetch(ctx context.Context, path string) ([]Release, error) {
	client := c.Session().HTTPClient
	if client == nil {
		return nil, indexer.NewConfigError(c.cfg.ID, "no HTTP client configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.cfg.BaseURL, "/")+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, indexer.NewNetworkError(c.cfg.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var releases []Release
	if err := json.NewDecoder(resp.Body).Decode(&releases); err != nil {
		return nil, indexer.NewParseError(c.cfg.ID, "failed to decode response", err)
	}
	return releases, nil
}

func (c *Client) toResults(releases []Release) []types.Result {
	results := make([]types.Result, 0, len(releases))
	for _, rel := range releases {
		link := rel.Magnet
		if link == "" {
			link = rel.Download
		}
		size, ok := common.ParseSize(rel.Size)
		if !ok {
			size = -1
		}
		r := types.NewResult(rel.Title, link, common.NormalizeInfoHash(rel.InfoHash), rel.Seeders, rel.Leechers, size)
		if c.cfg.Transform != nil {
			r = c.cfg.Transform(r)
		}
		results = append(results, r)
	}
	return results
}
