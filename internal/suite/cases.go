package suite

import (
	"context"
	"fmt"

	"github.com/slipstream/providercheck/internal/cassette"
	"github.com/slipstream/providercheck/internal/contract"
	"github.com/slipstream/providercheck/internal/indexer/types"
	"github.com/slipstream/providercheck/internal/overrides"
)

// Case is one entry of the shared case table.
type Case struct {
	Name    overrides.CaseName
	Variant string
	Doc     string
	Run     func(env *Env)
}

// RSS search variants, selected by the adapter's EnableDaily flag.
const (
	VariantDailyChecked   = "daily-checked"
	VariantDailyUnchecked = "daily-unchecked"
)

var (
	rssDailyChecked = Case{
		Name:    overrides.CaseRSSSearch,
		Variant: VariantDailyChecked,
		Doc:     "Check that the provider parses rss search results",
		Run: func(env *Env) {
			results, ok := env.Search(types.ModeRSS)
			if !ok {
				return
			}
			env.RequireInteractions()
			env.RequireResults(results)
			env.RequireCassette()
		},
	}

	rssDailyUnchecked = Case{
		Name:    overrides.CaseRSSSearch,
		Variant: VariantDailyUnchecked,
		Doc:     "Check that the provider parses rss search results",
		Run: func(env *Env) {
			env.Search(types.ModeRSS)
		},
	}

	episodeSearch = Case{
		Name: overrides.CaseEpisodeSearch,
		Doc:  "Check that the provider parses episode search results",
		Run: func(env *Env) {
			results, ok := env.Search(types.ModeEpisode)
			if !ok {
				return
			}
			env.RequireInteractions()
			env.RequireResults(results)
			env.RequireCassette()
		},
	}

	seasonSearch = Case{
		Name: overrides.CaseSeasonSearch,
		Doc:  "Check that the provider parses season search results",
		Run: func(env *Env) {
			results, ok := env.Search(types.ModeSeason)
			if !ok {
				return
			}
			env.RequireInteractions()
			env.RequireResults(results)
			env.RequireCassette()
		},
	}

	cacheUpdate = Case{
		Name: overrides.CaseCacheUpdate,
		Doc:  "Check that the provider's cache parses rss search results",
		Run: func(env *Env) {
			if err := env.suite.Adapter.UpdateCache(env.ctx); err != nil {
				env.Fail(classify(err), "cache update failed: %v", err)
			}
		},
	}

	resultValues = Case{
		Name: overrides.CaseResultValues,
		Doc:  "Check that the provider returns results in proper format",
		Run: func(env *Env) {
			results, ok := env.Search(types.ModeEpisode)
			if !ok {
				return
			}
			for _, msg := range contract.ValidateAll(results).Messages() {
				env.Fail(KindContract, "%s", msg)
			}

			adapter := env.suite.Adapter
			for i, r := range results {
				// -1 is the unknown-size sentinel and counts as extracted.
				if size := adapter.Size(r); size == 0 {
					env.Fail(KindContract, "result %d (%s): size extraction returned 0", i, r.String(types.FieldTitle))
				}
				title, link := adapter.TitleAndLink(r)
				if title == "" || link == "" {
					env.Fail(KindContract, "result %d: title/link extraction returned (%q, %q)", i, title, link)
				}
			}
		},
	}
)

// CasesFor returns the case table for an adapter with the given capabilities.
func CasesFor(caps types.Capabilities) []Case {
	rss := rssDailyUnchecked
	if caps.EnableDaily {
		rss = rssDailyChecked
	}
	return []Case{rss, episodeSearch, seasonSearch, cacheUpdate, resultValues}
}

// Env is the execution context handed to a running case.
type Env struct {
	ctx      context.Context
	suite    *Suite
	rec      *cassette.Recorder
	start    int
	failures []Failure
}

// Fail records a failure and lets the case continue.
func (e *Env) Fail(kind Kind, format string, args ...any) {
	e.failures = append(e.failures, Failure{Kind: kind, Message: fmt.Sprintf(format, args...)})
}

// Failures returns the failures recorded so far.
func (e *Env) Failures() []Failure {
	return e.failures
}

// Interactions returns the number of requests served to this case.
func (e *Env) Interactions() int {
	return e.rec.Requests() - e.start
}

// Search runs the adapter search for one mode. It returns false if the call failed.
func (e *Env) Search(mode types.SearchMode) ([]types.Result, bool) {
	results, err := e.suite.Adapter.Search(e.ctx, e.suite.SearchStrings(mode))
	if err != nil {
		e.Fail(classify(err), "%s search failed: %v", mode, err)
		return nil, false
	}
	return results, true
}

// RequireInteractions fails the case if no request reached the cassette.
func (e *Env) RequireInteractions() {
	if e.Interactions() == 0 {
		e.Fail(KindAssertion, "no network interaction occurred")
	}
}

// RequireResults fails the case if results is empty.
func (e *Env) RequireResults(results []types.Result) {
	if len(results) == 0 {
		e.Fail(KindAssertion, "search returned no results (last request: %s)", e.rec.LastURL())
	}
}

// RequireCassette fails the case if the cassette holds no interactions.
func (e *Env) RequireCassette() {
	if e.rec.Len() == 0 {
		e.Fail(KindAssertion, "cassette %s is empty", e.rec.Path())
	}
}
