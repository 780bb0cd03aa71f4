package cardigann

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/slipstream/providercheck/internal/indexer"
	"github.com/slipstream/providercheck/internal/indexer/common"
	"github.com/slipstream/providercheck/internal/indexer/types"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Indexer is an Adapter driven by a Definition.
type Indexer struct {
	def    *Definition
	engine *TemplateEngine
	logger zerolog.Logger
	now    func() time.Time

	mu      sync.Mutex
	session types.Session
	cache   []types.Result
}

var _ indexer.Adapter = (*Indexer)(nil)

// New creates an adapter for def.
func New(def *Definition, logger zerolog.Logger) *Indexer {
	return &Indexer{
		def:    def,
		engine: NewTemplateEngine(),
		logger: logger.With().Str("component", "cardigann").Str("adapter", def.ID).Logger(),
		now:    time.Now,
	}
}

func (ix *Indexer) ID() string   { return ix.def.ID }
func (ix *Indexer) Name() string { return ix.def.Name }

// Definition returns the parsed definition.
func (ix *Indexer) Definition() *Definition { return ix.def }

func (ix *Indexer) Capabilities() (types.Capabilities, error) {
	return ix.def.Capabilities()
}

func (ix *Indexer) SearchParams() types.SearchStrings {
	return ix.def.Caps.SearchParams.Clone()
}

func (ix *Indexer) Configure(session types.Session) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	ix.session = session
}

// Search runs every query of the request against the paths enabled for its mode.
func (ix *Indexer) Search(ctx context.Context, req types.SearchStrings) ([]types.Result, error) {
	mode, queries, err := req.Mode()
	if err != nil {
		return nil, indexer.NewSearchError(ix.def.ID, err)
	}

	var results []types.Result
	for _, q := range queries {
		found, err := ix.query(ctx, mode, q, ix.pathsFor(mode))
		if err != nil {
			return nil, indexer.NewSearchError(ix.def.ID, err)
		}
		results = append(results, found...)
	}
	return results, nil
}

// UpdateCache fetches the rss path, or the first search path with no keywords,
// and keeps the results.
func (ix *Indexer) UpdateCache(ctx context.Context) error {
	path := ix.def.Search.Paths[0]
	if ix.def.Search.RSS != nil {
		path = *ix.def.Search.RSS
	}
	results, err := ix.query(ctx, types.ModeRSS, "", []SearchPath{path})
	if err != nil {
		return indexer.NewCacheError(ix.def.ID, err)
	}

	ix.mu.Lock()
	ix.cache = results
	ix.mu.Unlock()
	ix.logger.Debug().Int("results", len(results)).Msg("Cache updated")
	return nil
}

// Cached returns the results kept by the last UpdateCache.
func (ix *Indexer) Cached() []types.Result {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]types.Result(nil), ix.cache...)
}

// Size returns the size field, or -1 when the site gave none.
func (ix *Indexer) Size(r types.Result) int64 {
	if n, ok := r.Int(types.FieldSize); ok {
		return n
	}
	return -1
}

func (ix *Indexer) TitleAndLink(r types.Result) (string, string) {
	return r.String(types.FieldTitle), r.String(types.FieldLink)
}

func (ix *Indexer) pathsFor(mode types.SearchMode) []SearchPath {
	var out []SearchPath
	for _, p := range ix.def.Search.Paths {
		if len(p.Modes) == 0 {
			out = append(out, p)
			continue
		}
		for _, m := range p.Modes {
			if m == mode {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func (ix *Indexer) query(ctx context.Context, mode types.SearchMode, q string, paths []SearchPath) ([]types.Result, error) {
	client := ix.client()
	if client == nil {
		return nil, indexer.NewConfigError(ix.def.ID, "no HTTP client configured")
	}

	tctx := NewTemplateContext(ix.now())
	for k, v := range ix.def.settingDefaults() {
		tctx.Config[k] = v
	}
	keywords, err := applyFilters(q, ix.def.Search.KeywordsFilters, ix.engine, tctx.withQuery(mode, q))
	if err != nil {
		return nil, err
	}
	tctx = tctx.withQuery(mode, keywords)

	var results []types.Result
	for _, p := range paths {
		found, err := ix.runPath(ctx, client, p, tctx)
		if err != nil {
			return nil, fmt.Errorf("path %s: %w", p.Path, err)
		}
		results = append(results, found...)
	}
	return results, nil
}

func (ix *Indexer) client() *http.Client {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return ix.session.HTTPClient
}

func (ix *Indexer) runPath(ctx context.Context, client *http.Client, p SearchPath, tctx *TemplateContext) ([]types.Result, error) {
	req, err := ix.buildRequest(ctx, p, tctx)
	if err != nil {
		return nil, err
	}
	ix.logger.Debug().Str("method", req.Method).Str("url", req.URL.String()).Msg("Executing search")

	resp, err := client.Do(req)
	if err != nil {
		return nil, indexer.NewNetworkError(ix.def.ID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("search returned status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, indexer.NewNetworkError(ix.def.ID, err)
	}
	body, err := decodeBody(raw, ix.def.Encoding)
	if err != nil {
		return nil, indexer.NewParseError(ix.def.ID, "failed to decode response", err)
	}

	if p.Response != nil && strings.EqualFold(p.Response.Type, "json") {
		return ix.parseJSON(body, tctx)
	}
	return ix.parseHTML(body, tctx)
}

func (ix *Indexer) buildRequest(ctx context.Context, p SearchPath, tctx *TemplateContext) (*http.Request, error) {
	path, err := ix.engine.Evaluate(p.Path, tctx)
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(ix.def.BaseURL() + "/" + strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, fmt.Errorf("bad search URL: %w", err)
	}

	values := u.Query()
	inputs := make(map[string]string, len(ix.def.Search.Inputs)+len(p.Inputs))
	for k, v := range ix.def.Search.Inputs {
		inputs[k] = v
	}
	for k, v := range p.Inputs {
		inputs[k] = v
	}
	for key, tmpl := range inputs {
		val, err := ix.engine.Evaluate(tmpl, tctx)
		if err != nil {
			return nil, fmt.Errorf("input %s: %w", key, err)
		}
		values.Set(key, val)
	}

	var req *http.Request
	if strings.EqualFold(p.Method, http.MethodPost) {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, u.String(), strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		u.RawQuery = values.Encode()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	for key, val := range ix.def.Search.Headers {
		evaluated, err := ix.engine.Evaluate(string(val), tctx)
		if err != nil {
			ix.logger.Warn().Err(err).Str("header", key).Msg("Failed to evaluate header template")
			continue
		}
		req.Header.Set(key, evaluated)
	}
	return req, nil
}

// decodeBody converts a body in the named charset to UTF-8.
func decodeBody(body []byte, charset string) ([]byte, error) {
	if charset == "" || strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return body, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, fmt.Errorf("unknown encoding %q: %w", charset, err)
	}
	return enc.NewDecoder().Bytes(body)
}

func (ix *Indexer) parseHTML(body []byte, tctx *TemplateContext) ([]types.Result, error) {
	doc, err := parseHTML(body)
	if err != nil {
		return nil, indexer.NewParseError(ix.def.ID, "failed to parse HTML", err)
	}
	if err := htmlError(doc, ix.def.Search.Error); err != nil {
		return nil, err
	}

	rows := htmlRows(doc, ix.def.Search.Rows)
	results := make([]types.Result, 0, len(rows))
	for _, row := range rows {
		extract := func(f Field) (string, bool) { return extractHTMLField(row, f) }
		if r, ok := ix.row(extract, tctx); ok {
			results = append(results, r)
		}
	}
	ix.logger.Debug().Int("rows", len(rows)).Int("results", len(results)).Msg("Parsed HTML rows")
	return results, nil
}

func (ix *Indexer) parseJSON(body []byte, tctx *TemplateContext) ([]types.Result, error) {
	data, err := decodeJSON(body)
	if err != nil {
		return nil, indexer.NewParseError(ix.def.ID, "failed to parse JSON", err)
	}
	rows, err := jsonRows(data, ix.def.Search.Rows)
	if err != nil {
		// An empty answer often omits the row array entirely.
		ix.logger.Debug().Err(err).Msg("No JSON rows")
		return nil, nil
	}

	results := make([]types.Result, 0, len(rows))
	for _, row := range rows {
		extract := func(f Field) (string, bool) { return extractJSONField(row, f) }
		if r, ok := ix.row(extract, tctx); ok {
			results = append(results, r)
		}
	}
	return results, nil
}

// row extracts every field of one row and builds the result. Text fields
// referring to .Result are evaluated after the others.
func (ix *Indexer) row(extract func(Field) (string, bool), tctx *TemplateContext) (types.Result, bool) {
	local := *tctx
	local.Result = make(map[string]string, len(ix.def.Search.Fields))

	for _, late := range []bool{false, true} {
		for name, field := range ix.def.Search.Fields {
			if strings.Contains(field.Text, ".Result") != late {
				continue
			}
			val, err := ix.fieldValue(extract, field, &local)
			if err != nil {
				ix.logger.Debug().Err(err).Str("field", name).Msg("Skipping row")
				return nil, false
			}
			local.Result[name] = val
		}
	}
	return ix.toResult(local.Result)
}

func (ix *Indexer) fieldValue(extract func(Field) (string, bool), field Field, tctx *TemplateContext) (string, error) {
	var value string
	if field.Text != "" {
		v, err := ix.engine.Evaluate(field.Text, tctx)
		if err != nil {
			return "", err
		}
		value = v
	} else {
		v, ok := extract(field)
		if !ok && !field.Optional {
			return "", fmt.Errorf("selector %q matched nothing", field.Selector)
		}
		value = v
	}

	if len(field.Case) > 0 {
		if mapped, ok := field.Case[value]; ok {
			value = mapped
		} else if fallback, ok := field.Case["*"]; ok {
			value = fallback
		}
	}
	value, err := applyFilters(value, field.Filters, ix.engine, tctx)
	if err != nil {
		return "", err
	}
	if value == "" {
		value = field.Default
	}
	return value, nil
}

func (ix *Indexer) toResult(fields map[string]string) (types.Result, bool) {
	title := fields["title"]
	link := ix.resolveURL(fields["download"])
	if link == "" {
		link = fields["magnet"]
	}

	hash := common.NormalizeInfoHash(fields["infohash"])
	if hash == "" && strings.HasPrefix(link, "magnet:") {
		hash = common.InfoHashFromMagnet(link)
	}
	if link == "" && hash != "" {
		link = common.BuildMagnet(hash, title, ix.def.Search.Trackers)
	}
	if title == "" || link == "" {
		return nil, false
	}

	size := int64(-1)
	if raw := strings.TrimSpace(fields["size"]); raw != "" {
		if n, ok := common.ParseSize(raw); ok {
			size = n
		} else if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			size = n
		}
	}

	return types.NewResult(title, link, hash, parseCount(fields["seeders"]), parseCount(fields["leechers"]), size), true
}

// resolveURL makes a site-relative link absolute.
func (ix *Indexer) resolveURL(link string) string {
	switch {
	case link == "":
		return ""
	case strings.HasPrefix(link, "magnet:"), strings.Contains(link, "://"):
		return link
	case strings.HasPrefix(link, "/"):
		return ix.def.BaseURL() + link
	default:
		return ix.def.BaseURL() + "/" + link
	}
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0
	}
	return n
}
