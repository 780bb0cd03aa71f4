package suite

import (
	"bytes"
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slipstream/providercheck/internal/cassette"
	"github.com/slipstream/providercheck/internal/indexer"
	"github.com/slipstream/providercheck/internal/indexer/mock"
	"github.com/slipstream/providercheck/internal/indexer/types"
	"github.com/slipstream/providercheck/internal/overrides"
	"github.com/slipstream/providercheck/internal/testutil"
)

type harness struct {
	site *mock.Server
	url  string
	dir  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	site := mock.NewServer("")
	srv := httptest.NewServer(site)
	t.Cleanup(srv.Close)
	site.SetBaseURL(srv.URL)
	return &harness{site: site, url: srv.URL, dir: t.TempDir()}
}

func (h *harness) adapter(id string, mutate func(*mock.Config)) *mock.Client {
	cfg := mock.Config{ID: id, BaseURL: h.url, Capabilities: mock.DefaultCapabilities()}
	if mutate != nil {
		mutate(&cfg)
	}
	return mock.NewClient(cfg)
}

func (h *harness) run(t *testing.T, mode cassette.Mode, set *overrides.Set, adapters ...indexer.Adapter) *Report {
	t.Helper()
	catalog, err := Generate(indexer.NewMemoryRegistry(adapters...), Options{
		CassetteDir: h.dir,
		Overrides:   set,
		Logger:      testutil.NopLogger(),
	})
	require.NoError(t, err)
	runner := NewRunner(RunnerOptions{Mode: mode, Logger: testutil.NopLogger()})
	return runner.Run(context.Background(), catalog)
}

func statuses(s SuiteReport) map[overrides.CaseName]Status {
	out := make(map[overrides.CaseName]Status, len(s.Cases))
	for _, c := range s.Cases {
		out[c.Case] = c.Status
	}
	return out
}

func caseResult(t *testing.T, s SuiteReport, name overrides.CaseName) CaseResult {
	t.Helper()
	for _, c := range s.Cases {
		if c.Case == name {
			return c
		}
	}
	t.Fatalf("case %s not in report", name)
	return CaseResult{}
}

func TestRunner_RecordThenReplay(t *testing.T) {
	h := newHarness(t)

	first := h.run(t, cassette.ModeNewEpisodes, nil, h.adapter("alpha", nil))
	require.Len(t, first.Suites, 1)
	suite := first.Suites[0]
	assert.False(t, first.Failed())
	for _, c := range suite.Cases {
		assert.Equal(t, StatusPass, c.Status, "%s: %v", c.Case, c.Messages)
		assert.Equal(t, 1, c.Interactions, c.Case)
	}
	assert.Equal(t, 1, caseResult(t, suite, overrides.CaseEpisodeSearch).Recorded)
	assert.Equal(t, 0, caseResult(t, suite, overrides.CaseResultValues).Recorded, "episode response is replayed")
	assert.Equal(t, []string{"", "Game of Thrones S05E08", "Game of Thrones S05"}, h.site.Queries())

	path := filepath.Join(h.dir, "alpha.yaml")
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	second := h.run(t, cassette.ModeNewEpisodes, nil, h.adapter("alpha", nil))
	assert.Equal(t, statuses(suite), statuses(second.Suites[0]))
	for _, c := range second.Suites[0].Cases {
		assert.Zero(t, c.Recorded, c.Case)
	}
	assert.Len(t, h.site.Queries(), 3, "second run must not reach the site")

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRunner_SkippedCaseTouchesNoNetwork(t *testing.T) {
	h := newHarness(t)
	set := overrides.Empty()
	set.Skips["alpha"] = overrides.Skip{Cases: []overrides.CaseName{overrides.CaseRSSSearch}, Reason: "flaky"}

	report := h.run(t, cassette.ModeNewEpisodes, set, h.adapter("alpha", nil))
	rss := caseResult(t, report.Suites[0], overrides.CaseRSSSearch)

	assert.Equal(t, StatusSkip, rss.Status)
	assert.Equal(t, []string{"Test is programmatically disabled for provider alpha: flaky"}, rss.Messages)
	assert.Zero(t, rss.Interactions)
	assert.Zero(t, rss.Recorded)
	assert.Equal(t, []string{"Game of Thrones S05E08", "Game of Thrones S05"}, h.site.Queries())

	_, fail, skip := report.Counts()
	assert.Equal(t, 0, fail)
	assert.Equal(t, 1, skip)
}

func TestRunner_OverrideStrings(t *testing.T) {
	h := newHarness(t)
	set := overrides.Empty()
	set.Strings["alpha"] = types.SearchStrings{types.ModeEpisode: {"Breaking Bad S01E01"}}

	report := h.run(t, cassette.ModeNewEpisodes, set, h.adapter("alpha", nil))

	assert.False(t, report.Failed())
	assert.Equal(t, []string{"", "Breaking Bad S01E01", "Game of Thrones S05"}, h.site.Queries())

	c, err := cassette.Load(filepath.Join(h.dir, "alpha.yaml"))
	require.NoError(t, err)
	var urls []string
	for _, in := range c.Interactions {
		urls = append(urls, in.Request.URL)
	}
	assert.Contains(t, urls, h.url+"/api/search?mode=Episode&q=Breaking+Bad+S01E01")
}

func TestRunner_ContractViolations(t *testing.T) {
	h := newHarness(t)
	adapter := h.adapter("alpha", func(c *mock.Config) {
		c.Transform = func(r types.Result) types.Result {
			r[types.FieldHash] = "abc"
			return r
		}
	})

	report := h.run(t, cassette.ModeNewEpisodes, nil, adapter)
	suite := report.Suites[0]

	values := caseResult(t, suite, overrides.CaseResultValues)
	assert.Equal(t, StatusFail, values.Status)
	assert.Equal(t, KindContract, values.Kind)
	require.Len(t, values.Messages, 3, "one message per offending result")
	for _, m := range values.Messages {
		assert.True(t, strings.HasPrefix(m, "[contract] result "), m)
		assert.Contains(t, m, "hash")
	}
	assert.Equal(t, StatusPass, caseResult(t, suite, overrides.CaseEpisodeSearch).Status)
	assert.True(t, report.Failed())
}

func TestRunner_SizeSentinel(t *testing.T) {
	tests := []struct {
		name   string
		size   int64
		status Status
	}{
		{"unknown size passes", -1, StatusPass},
		{"zero size fails", 0, StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			adapter := h.adapter("alpha", func(c *mock.Config) {
				c.Transform = func(r types.Result) types.Result {
					r[types.FieldSize] = tt.size
					return r
				}
			})

			report := h.run(t, cassette.ModeNewEpisodes, nil, adapter)
			values := caseResult(t, report.Suites[0], overrides.CaseResultValues)
			assert.Equal(t, tt.status, values.Status, values.Messages)
			if tt.status == StatusFail {
				require.NotEmpty(t, values.Messages)
				assert.Contains(t, values.Messages[0], "size extraction returned 0")
			}
		})
	}
}

func TestRunner_AdapterPanic(t *testing.T) {
	h := newHarness(t)
	report := h.run(t, cassette.ModeNewEpisodes, nil, h.adapter("alpha", func(c *mock.Config) { c.Panic = "boom" }))
	suite := report.Suites[0]

	for _, name := range []overrides.CaseName{overrides.CaseRSSSearch, overrides.CaseEpisodeSearch, overrides.CaseSeasonSearch, overrides.CaseResultValues} {
		c := caseResult(t, suite, name)
		assert.Equal(t, StatusFail, c.Status, name)
		assert.Equal(t, KindAdapter, c.Kind, name)
		assert.Equal(t, []string{"[adapter] adapter panicked: boom"}, c.Messages, name)
	}
	assert.Equal(t, StatusPass, caseResult(t, suite, overrides.CaseCacheUpdate).Status)
}

func TestRunner_ReplayOnlyMiss(t *testing.T) {
	h := newHarness(t)
	report := h.run(t, cassette.ModeReplayOnly, nil, h.adapter("alpha", nil))

	for _, c := range report.Suites[0].Cases {
		assert.Equal(t, StatusFail, c.Status, c.Case)
		assert.Equal(t, KindCassette, c.Kind, c.Case)
		assert.Zero(t, c.Recorded, c.Case)
	}
	assert.Empty(t, h.site.Queries())
	assert.NoFileExists(t, filepath.Join(h.dir, "alpha.yaml"))
}

func TestRunner_CorruptCassette(t *testing.T) {
	h := newHarness(t)
	testutil.WriteFile(t, h.dir, "alpha.yaml", "version: [\n")

	report := h.run(t, cassette.ModeNewEpisodes, nil, h.adapter("alpha", nil))
	suite := report.Suites[0]
	for _, c := range suite.Cases {
		assert.Equal(t, KindCassette, c.Kind, c.Case)
		assert.Zero(t, c.Interactions, c.Case)
	}
	assert.Empty(t, suite.Error)
	assert.Empty(t, h.site.Queries())
}

func TestRunner_DailyVariants(t *testing.T) {
	nothing := types.SearchStrings{types.ModeRSS: {"Unknown Show S01E01"}}

	t.Run("unchecked passes without results", func(t *testing.T) {
		h := newHarness(t)
		adapter := h.adapter("alpha", func(c *mock.Config) {
			c.Capabilities.EnableDaily = false
			c.SearchParams = nothing
		})
		report := h.run(t, cassette.ModeNewEpisodes, nil, adapter)
		rss := caseResult(t, report.Suites[0], overrides.CaseRSSSearch)
		assert.Equal(t, VariantDailyUnchecked, rss.Variant)
		assert.Equal(t, StatusPass, rss.Status)
	})

	t.Run("checked requires results", func(t *testing.T) {
		h := newHarness(t)
		adapter := h.adapter("alpha", func(c *mock.Config) { c.SearchParams = nothing })
		report := h.run(t, cassette.ModeNewEpisodes, nil, adapter)
		rss := caseResult(t, report.Suites[0], overrides.CaseRSSSearch)
		assert.Equal(t, VariantDailyChecked, rss.Variant)
		assert.Equal(t, StatusFail, rss.Status)
		assert.Equal(t, KindAssertion, rss.Kind)
		require.Len(t, rss.Messages, 1)
		assert.Contains(t, rss.Messages[0], "search returned no results")
		assert.Contains(t, rss.Messages[0], "q=Unknown+Show+S01E01")
	})
}

func TestRunner_InjectsSession(t *testing.T) {
	h := newHarness(t)
	adapter := h.adapter("alpha", nil)
	h.run(t, cassette.ModeNewEpisodes, nil, adapter)

	sess := adapter.Session()
	assert.NotNil(t, sess.HTTPClient)
	assert.Empty(t, sess.Username)
	assert.Empty(t, sess.Password)
	assert.Len(t, adapter.Cached(), 6)
}

type recordingObserver struct {
	results []CaseResult
}

func (o *recordingObserver) ObserveCase(_ *Suite, res CaseResult) {
	o.results = append(o.results, res)
}

func TestRunner_Observer(t *testing.T) {
	h := newHarness(t)
	catalog, err := Generate(indexer.NewMemoryRegistry(h.adapter("alpha", nil), h.adapter("beta", nil)), Options{
		CassetteDir: h.dir,
		Logger:      testutil.NopLogger(),
	})
	require.NoError(t, err)

	obs := &recordingObserver{}
	runner := NewRunner(RunnerOptions{Mode: cassette.ModeNewEpisodes, Observer: obs, Logger: testutil.NopLogger()})
	report := runner.Run(context.Background(), catalog)

	assert.Len(t, obs.results, 10)
	assert.Equal(t, "TestAlpha", report.Suites[0].Name)
	assert.Equal(t, "TestBeta", report.Suites[1].Name)
	assert.FileExists(t, filepath.Join(h.dir, "alpha.yaml"))
	assert.FileExists(t, filepath.Join(h.dir, "beta.yaml"))
}

func TestRunTests(t *testing.T) {
	h := newHarness(t)
	set := overrides.Empty()
	set.Skips["alpha"] = overrides.Skip{Cases: []overrides.CaseName{overrides.CaseSeasonSearch}}

	catalog, err := Generate(indexer.NewMemoryRegistry(h.adapter("alpha", nil)), Options{
		CassetteDir: h.dir,
		Overrides:   set,
		Logger:      testutil.NopLogger(),
	})
	require.NoError(t, err)

	RunTests(t, catalog, NewRunner(RunnerOptions{Mode: cassette.ModeNewEpisodes, Logger: testutil.NopLogger()}))
	assert.FileExists(t, filepath.Join(h.dir, "alpha.yaml"))
}

func TestReport_GoldenJSON(t *testing.T) {
	set := overrides.Empty()
	set.Skips["Golden"] = overrides.Skip{Cases: []overrides.CaseName{overrides.CaseRSSSearch}, Reason: "golden fixture"}

	reg := indexer.NewMemoryRegistry(
		mock.NewClient(mock.Config{ID: "golden", Name: "Golden", BaseURL: "http://mock.invalid", Capabilities: mock.DefaultCapabilities()}),
		mock.NewClient(mock.Config{ID: "golden-private", BaseURL: "http://mock.invalid", Capabilities: types.Capabilities{
			Kind:            types.KindTorrent,
			SupportsBacklog: true,
		}}),
	)
	catalog, err := Generate(reg, Options{
		CassetteDir: filepath.Join("testdata", "cassettes"),
		Overrides:   set,
		Logger:      testutil.NopLogger(),
	})
	require.NoError(t, err)

	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	runner := NewRunner(RunnerOptions{
		Mode:     cassette.ModeReplayOnly,
		Logger:   testutil.NopLogger(),
		Now:      func() time.Time { return fixed },
		NewRunID: func() string { return "00000000-0000-0000-0000-000000000001" },
	})
	report := runner.Run(context.Background(), catalog)

	var buf bytes.Buffer
	require.NoError(t, report.WriteJSON(&buf))

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, "report", buf.Bytes())
}

func TestReport_WriteTable(t *testing.T) {
	var msgs []string
	for i := range 7 {
		msgs = append(msgs, "[contract] violation "+string(rune('a'+i)))
	}
	report := &Report{
		Suites: []SuiteReport{{
			Name: "TestAlpha",
			Cases: []CaseResult{
				{Case: overrides.CaseRSSSearch, Status: StatusPass, Interactions: 1},
				{Case: overrides.CaseResultValues, Status: StatusFail, Kind: KindContract, Messages: msgs, Interactions: 1},
			},
		}},
		Excluded: []Exclusion{{ID: "beta", Reason: "private"}},
	}

	var short bytes.Buffer
	require.NoError(t, report.WriteTable(&short, false))
	out := short.String()
	assert.Contains(t, out, "TestAlpha")
	assert.Contains(t, out, "FAIL")
	assert.Contains(t, out, "violation e")
	assert.NotContains(t, out, "violation f")
	assert.Contains(t, out, "... 2 more")
	assert.Contains(t, out, "1 suites, 1 passed, 1 failed, 0 skipped, 1 excluded")

	var long bytes.Buffer
	require.NoError(t, report.WriteTable(&long, true))
	assert.Contains(t, long.String(), "violation g")
	assert.NotContains(t, long.String(), "more")
}
