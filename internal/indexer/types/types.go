// Package types contains shared type definitions for indexer packages.
package types

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"sort"
)

// Kind represents the content kind an adapter serves.
type Kind string

const (
	KindTorrent Kind = "torrent"
	KindOther   Kind = "other"
)

// Privacy represents indexer privacy level.
type Privacy string

const (
	PrivacyPublic      Privacy = "public"
	PrivacySemiPrivate Privacy = "semi-private"
	PrivacyPrivate     Privacy = "private"
)

// ParseKind maps a definition or feed kind string to a Kind.
// An empty string is reported as an error so callers can treat the entry as malformed.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "torrent":
		return KindTorrent, nil
	case "usenet", "other":
		return KindOther, nil
	case "":
		return "", errors.New("kind not declared")
	default:
		return "", fmt.Errorf("unknown kind %q", s)
	}
}

// Capabilities holds the flags the suite generator filters on.
type Capabilities struct {
	Kind            Kind `json:"kind"`
	Public          bool `json:"public"`
	SupportsBacklog bool `json:"supportsBacklog"`
	EnableDaily     bool `json:"enableDaily"`
}

// Validate reports a capability set that cannot be used to decide eligibility.
func (c Capabilities) Validate() error {
	switch c.Kind {
	case KindTorrent, KindOther:
		return nil
	case "":
		return errors.New("capabilities: kind is required")
	default:
		return fmt.Errorf("capabilities: unknown kind %q", c.Kind)
	}
}

// Eligible returns true for public torrent adapters with backlog search.
func (c Capabilities) Eligible() bool {
	return c.SupportsBacklog && c.Kind == KindTorrent && c.Public
}

// SearchMode tags a search request.
type SearchMode string

const (
	ModeRSS     SearchMode = "RSS"
	ModeEpisode SearchMode = "Episode"
	ModeSeason  SearchMode = "Season"
)

// Modes lists the search modes in their canonical order.
var Modes = []SearchMode{ModeRSS, ModeEpisode, ModeSeason}

// SearchStrings maps a search mode to an ordered list of query strings.
type SearchStrings map[SearchMode][]string

// Clone returns a deep copy.
func (s SearchStrings) Clone() SearchStrings {
	out := make(SearchStrings, len(s))
	for mode, queries := range s {
		out[mode] = append([]string(nil), queries...)
	}
	return out
}

// Merge returns a copy of s with every mode present in layers replaced,
// later layers taking precedence.
func (s SearchStrings) Merge(layers ...SearchStrings) SearchStrings {
	out := s.Clone()
	for _, layer := range layers {
		for mode, queries := range layer {
			out[mode] = append([]string(nil), queries...)
		}
	}
	return out
}

// Only returns a request holding just the given mode.
func (s SearchStrings) Only(mode SearchMode) SearchStrings {
	return SearchStrings{mode: append([]string(nil), s[mode]...)}
}

// Mode returns the single mode held by a request built with Only.
func (s SearchStrings) Mode() (SearchMode, []string, error) {
	if len(s) != 1 {
		return "", nil, fmt.Errorf("search request must hold exactly one mode, got %d", len(s))
	}
	for mode, queries := range s {
		return mode, queries, nil
	}
	return "", nil, nil
}

// Result field keys.
const (
	FieldTitle    = "title"
	FieldLink     = "link"
	FieldHash     = "hash"
	FieldSeeders  = "seeders"
	FieldLeechers = "leechers"
	FieldSize     = "size"
)

// ResultFields is the exact key set of a Result.
var ResultFields = []string{FieldTitle, FieldLink, FieldHash, FieldSeeders, FieldLeechers, FieldSize}

// Result is one search result as returned by an adapter.
// It is a map so that shape violations stay observable to the validator.
type Result map[string]any

// NewResult builds a well-formed result.
func NewResult(title, link, hash string, seeders, leechers int, size int64) Result {
	return Result{
		FieldTitle:    title,
		FieldLink:     link,
		FieldHash:     hash,
		FieldSeeders:  seeders,
		FieldLeechers: leechers,
		FieldSize:     size,
	}
}

// Keys returns the result keys in sorted order.
func (r Result) Keys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// String returns the string value for key, or "".
func (r Result) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Int returns the integer value for key and whether it was an integer.
// Unsigned values above math.MaxInt64 saturate.
func (r Result) Int(key string) (int64, bool) {
	switch v := r[key].(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return saturate(uint64(v)), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return saturate(v), true
	default:
		return 0, false
	}
}

func saturate(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}

// Session is what the harness injects into an adapter before each case.
type Session struct {
	HTTPClient *http.Client
	Username   string
	Password   string
}
