// Package suite generates one conformance suite per eligible adapter and runs it.
package suite

import (
	"strings"
	"unicode"

	"github.com/slipstream/providercheck/internal/indexer"
	"github.com/slipstream/providercheck/internal/indexer/types"
	"github.com/slipstream/providercheck/internal/overrides"
)

// DefaultSearchStrings are the lowest-priority search strings.
func DefaultSearchStrings() types.SearchStrings {
	return types.SearchStrings{
		types.ModeRSS:     {""},
		types.ModeEpisode: {"Game of Thrones S05E08"},
		types.ModeSeason:  {"Game of Thrones S05"},
	}
}

// TLSPolicy decides certificate verification per adapter.
type TLSPolicy struct {
	// Verify enables verification for adapters not on the allowlist.
	Verify bool
	// BrokenCertAllowlist holds lowercase name fragments of adapters whose
	// certificates are known to be broken. They never verify.
	BrokenCertAllowlist []string
}

// DefaultTLSPolicy relaxes verification everywhere and lists the known broken site.
func DefaultTLSPolicy() TLSPolicy {
	return TLSPolicy{BrokenCertAllowlist: []string{"ilcorsaronero"}}
}

// VerifyFor returns whether requests for the named adapter verify certificates.
func (p TLSPolicy) VerifyFor(name string) bool {
	lower := strings.ToLower(name)
	for _, frag := range p.BrokenCertAllowlist {
		if frag != "" && strings.Contains(lower, strings.ToLower(frag)) {
			return false
		}
	}
	return p.Verify
}

// Suite binds the shared case table to one adapter.
type Suite struct {
	Name         string
	Adapter      indexer.Adapter
	Capabilities types.Capabilities
	CassettePath string
	VerifyTLS    bool
	Cases        []Case

	overrides *overrides.Set
}

// ID returns the bound adapter's identifier.
func (s *Suite) ID() string {
	return s.Adapter.ID()
}

// Description returns the case doc with "the provider" replaced by the adapter name.
func (s *Suite) Description(c Case) string {
	return strings.ReplaceAll(c.Doc, "the provider", s.Adapter.Name())
}

// SearchStrings merges defaults, adapter params and overrides, and keeps only mode.
func (s *Suite) SearchStrings(mode types.SearchMode) types.SearchStrings {
	merged := DefaultSearchStrings().Merge(
		s.Adapter.SearchParams(),
		s.overrides.StringsFor(s.Adapter.Name()),
	)
	return merged.Only(mode)
}

// SkipReason reports whether the case is disabled for this suite's adapter.
func (s *Suite) SkipReason(c Case) (string, bool) {
	return s.overrides.SkipReason(s.Adapter.Name(), c.Name)
}

// Case returns the case with the given name.
func (s *Suite) Case(name overrides.CaseName) (Case, bool) {
	for _, c := range s.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return Case{}, false
}

// SuiteName derives the registered suite name from an adapter identifier,
// e.g. "the-pirate-bay" becomes "TestThePirateBay".
func SuiteName(id string) string {
	var b strings.Builder
	b.WriteString("Test")
	upper := true
	for _, r := range id {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			b.WriteRune(unicode.ToUpper(r))
			upper = false
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
