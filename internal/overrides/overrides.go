// Package overrides holds the per-adapter skip directives and search string overrides.
package overrides

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/slipstream/providercheck/internal/indexer/types"
)

// CaseName names one case of the base suite.
type CaseName string

const (
	CaseRSSSearch     CaseName = "test_rss_search"
	CaseEpisodeSearch CaseName = "test_episode_search"
	CaseSeasonSearch  CaseName = "test_season_search"
	CaseCacheUpdate   CaseName = "test_cache_update"
	CaseResultValues  CaseName = "test_result_values"
)

// AllCases lists every case in execution order.
var AllCases = []CaseName{CaseRSSSearch, CaseEpisodeSearch, CaseSeasonSearch, CaseCacheUpdate, CaseResultValues}

// Valid returns true for a known case name.
func (c CaseName) Valid() bool {
	for _, known := range AllCases {
		if c == known {
			return true
		}
	}
	return false
}

// DefaultSkipReason is used when a directive carries no reason.
const DefaultSkipReason = "disabled for this provider"

// Skip suppresses named cases for one adapter.
type Skip struct {
	Cases  []CaseName `yaml:"cases"`
	Reason string     `yaml:"reason,omitempty"`
}

// Set is the full override configuration, keyed by adapter name.
type Set struct {
	Skips   map[string]Skip                `yaml:"skips"`
	Strings map[string]types.SearchStrings `yaml:"strings"`
}

// Default returns the built-in tables.
func Default() *Set {
	allCases := append([]CaseName(nil), AllCases...)
	searchCases := []CaseName{CaseRSSSearch, CaseEpisodeSearch, CaseSeasonSearch}
	fairyTail := types.SearchStrings{
		types.ModeEpisode: {"Fairy Tail S2"},
		types.ModeSeason:  {"Fairy Tail S2"},
	}

	return &Set{
		Skips: map[string]Skip{
			"Cpasbien":       {Cases: searchCases},
			"TorrentProject": {Cases: allCases, Reason: "api maintenance"},
			"TokyoToshokan":  {Cases: searchCases, Reason: "only answers anime searches"},
			"LimeTorrents":   {Cases: searchCases},
			"Torrentz":       {Cases: allCases},
			"ThePirateBay":   {Cases: allCases},
		},
		Strings: map[string]types.SearchStrings{
			"Cpasbien": {
				types.ModeEpisode: {"The 100 S02E16"},
				types.ModeSeason:  {"The 100 S02"},
			},
			"Torrent9": {
				types.ModeEpisode: {"Arrow S07E06"},
				types.ModeSeason:  {"Arrow S06"},
			},
			"Nyaa":          fairyTail.Clone(),
			"TokyoToshokan": fairyTail.Clone(),
			"HorribleSubs":  fairyTail.Clone(),
		},
	}
}

// Empty returns a set with no overrides.
func Empty() *Set {
	return &Set{Skips: map[string]Skip{}, Strings: map[string]types.SearchStrings{}}
}

// Load reads a YAML override file and merges it over the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Set, error) {
	set := Default()
	if path == "" {
		return set, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return set, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read overrides file: %w", err)
	}

	parsed, err := Parse(data)
	if err != nil {
		return nil, err
	}
	set.Merge(parsed)
	return set, nil
}

// Parse decodes an override file.
func Parse(data []byte) (*Set, error) {
	set := Empty()
	if err := yaml.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("failed to parse overrides YAML: %w", err)
	}
	if set.Skips == nil {
		set.Skips = map[string]Skip{}
	}
	if set.Strings == nil {
		set.Strings = map[string]types.SearchStrings{}
	}
	if err := set.check(); err != nil {
		return nil, err
	}
	return set, nil
}

func (s *Set) check() error {
	for name, skip := range s.Skips {
		for _, c := range skip.Cases {
			if !c.Valid() {
				return fmt.Errorf("overrides: skip for %q names unknown case %q", name, c)
			}
		}
	}
	for name, strs := range s.Strings {
		for mode := range strs {
			switch mode {
			case types.ModeRSS, types.ModeEpisode, types.ModeSeason:
			default:
				return fmt.Errorf("overrides: strings for %q name unknown mode %q", name, mode)
			}
		}
	}
	return nil
}

// Merge copies every entry of other over s, replacing whole adapter entries.
func (s *Set) Merge(other *Set) {
	for name, skip := range other.Skips {
		s.Skips[name] = skip
	}
	for name, strs := range other.Strings {
		s.Strings[name] = strs.Clone()
	}
}

// SkipReason reports whether the case is skipped for the adapter and why.
func (s *Set) SkipReason(adapter string, c CaseName) (string, bool) {
	if s == nil {
		return "", false
	}
	skip, ok := s.Skips[adapter]
	if !ok {
		return "", false
	}
	for _, skipped := range skip.Cases {
		if skipped == c {
			if skip.Reason == "" {
				return DefaultSkipReason, true
			}
			return skip.Reason, true
		}
	}
	return "", false
}

// StringsFor returns the search string overrides for the adapter, or nil.
func (s *Set) StringsFor(adapter string) types.SearchStrings {
	if s == nil {
		return nil
	}
	strs, ok := s.Strings[adapter]
	if !ok {
		return nil
	}
	return strs.Clone()
}

// StaleEntry is an override keyed by a name no registered adapter has.
type StaleEntry struct {
	Table string // skips or strings
	Name  string
}

func (e StaleEntry) String() string {
	return fmt.Sprintf("%s[%s]", e.Table, e.Name)
}

// Unknown returns the entries whose key is not in known, sorted by table then name.
func (s *Set) Unknown(known []string) []StaleEntry {
	idx := make(map[string]struct{}, len(known))
	for _, k := range known {
		idx[k] = struct{}{}
	}

	var out []StaleEntry
	for name := range s.Skips {
		if _, ok := idx[name]; !ok {
			out = append(out, StaleEntry{Table: "skips", Name: name})
		}
	}
	for name := range s.Strings {
		if _, ok := idx[name]; !ok {
			out = append(out, StaleEntry{Table: "strings", Name: name})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return out[i].Name < out[j].Name
	})
	return out
}
