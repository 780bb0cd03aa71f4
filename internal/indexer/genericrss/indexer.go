// Package genericrss adapts a plain torrent RSS feed. A feed declares backlog
// search only when it accepts a query parameter.
package genericrss

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"

	"github.com/slipstream/providercheck/internal/indexer"
	"github.com/slipstream/providercheck/internal/indexer/types"
)

// maxFeedSize bounds the bytes read from a feed.
const maxFeedSize = 10 * 1024 * 1024

// Feed configures one RSS adapter.
type Feed struct {
	ID     string `mapstructure:"id"`
	Name   string `mapstructure:"name"`
	URL    string `mapstructure:"url"`
	Cookie string `mapstructure:"cookie"`
	// SearchParam is the query parameter carrying keywords, e.g. "q" for
	// TorrentPotato or search-capable feeds. Empty means RSS only.
	SearchParam string `mapstructure:"search_param"`
}

// Client implements indexer.Adapter for a feed.
type Client struct {
	feed Feed

	mu      sync.Mutex
	session types.Session
	cache   []types.Result
}

var _ indexer.Adapter = (*Client)(nil)

// New creates an adapter for feed.
func New(feed Feed) *Client {
	if feed.Name == "" {
		feed.Name = feed.ID
	}
	return &Client{feed: feed}
}

func (c *Client) ID() string   { return c.feed.ID }
func (c *Client) Name() string { return c.feed.Name }

func (c *Client) Capabilities() (types.Capabilities, error) {
	if c.feed.URL == "" {
		return types.Capabilities{}, fmt.Errorf("feed %s has no url", c.feed.ID)
	}
	return types.Capabilities{
		Kind:            types.KindTorrent,
		Public:          true,
		SupportsBacklog: c.feed.SearchParam != "",
		EnableDaily:     true,
	}, nil
}

func (c *Client) SearchParams() types.SearchStrings { return nil }

func (c *Client) Configure(session types.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = session
}

// Search answers RSS requests with the feed and, when the feed takes a search
// parameter, runs one request per query for the other modes.
func (c *Client) Search(ctx context.Context, req types.SearchStrings) ([]types.Result, error) {
	mode, queries, err := req.Mode()
	if err != nil {
		return nil, indexer.NewSearchError(c.feed.ID, err)
	}
	if mode == types.ModeRSS {
		results, err := c.fetchFeed(ctx, "")
		if err != nil {
			return nil, indexer.NewSearchError(c.feed.ID, err)
		}
		return results, nil
	}
	if c.feed.SearchParam == "" {
		return nil, nil
	}

	var all []types.Result
	for _, q := range queries {
		results, err := c.fetchFeed(ctx, q)
		if err != nil {
			return nil, indexer.NewSearchError(c.feed.ID, err)
		}
		all = append(all, results...)
	}
	return all, nil
}

func (c *Client) UpdateCache(ctx context.Context) error {
	results, err := c.fetchFeed(ctx, "")
	if err != nil {
		return indexer.NewCacheError(c.feed.ID, err)
	}
	c.mu.Lock()
	c.cache = results
	c.mu.Unlock()
	return nil
}

// Cached returns the items kept by the last UpdateCache.
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

func (c *Client) fetchFeed(ctx context.Context, query string) ([]types.Result, error) {
	c.mu.Lock()
	client := c.session.HTTPClient
	c.mu.Unlock()
	if client == nil {
		return nil, indexer.NewConfigError(c.feed.ID, "no HTTP client configured")
	}

	target, err := c.feedURL(query)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "providercheck/1.0")
	if c.feed.Cookie != "" {
		req.Header.Set("Cookie", c.feed.Cookie)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, indexer.NewNetworkError(c.feed.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	results, err := ParseFeed(body)
	if err != nil {
		return nil, indexer.NewParseError(c.feed.ID, "failed to parse feed", err)
	}
	return results, nil
}

// feedURL adds the search parameter for a non-empty query.
func (c *Client) feedURL(query string) (string, error) {
	if query == "" || c.feed.SearchParam == "" {
		return c.feed.URL, nil
	}
	u, err := url.Parse(c.feed.URL)
	if err != nil {
		return "", fmt.Errorf("invalid feed url: %w", err)
	}
	values := u.Query()
	values.Set(c.feed.SearchParam, query)
	u.RawQuery = values.Encode()
	return u.String(), nil
}
