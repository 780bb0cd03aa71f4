package suite

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/slipstream/providercheck/internal/cassette"
	"github.com/slipstream/providercheck/internal/indexer/types"
)

// Observer receives every case outcome.
type Observer interface {
	ObserveCase(suite *Suite, result CaseResult)
}

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Mode cassette.Mode
	// Transport performs real requests when recording. Defaults to a clone of http.DefaultTransport.
	Transport http.RoundTripper
	Observer  Observer
	Logger    zerolog.Logger
	Now       func() time.Time
	NewRunID  func() string
}

// Runner executes suites sequentially.
type Runner struct {
	mode      cassette.Mode
	transport http.RoundTripper
	observer  Observer
	logger    zerolog.Logger
	now       func() time.Time
	newRunID  func() string
}

// NewRunner creates a runner.
func NewRunner(opts RunnerOptions) *Runner {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewRunID == nil {
		opts.NewRunID = func() string { return uuid.New().String() }
	}
	return &Runner{
		mode:      opts.Mode,
		transport: opts.Transport,
		observer:  opts.Observer,
		logger:    opts.Logger.With().Str("component", "runner").Logger(),
		now:       opts.Now,
		newRunID:  opts.NewRunID,
	}
}

// Run executes every suite in the catalog.
func (r *Runner) Run(ctx context.Context, catalog *Catalog) *Report {
	started := r.now()
	report := &Report{
		RunID:     r.newRunID(),
		StartedAt: started.UTC(),
		Excluded:  catalog.Excluded(),
	}

	r.logger.Info().
		Str("runId", report.RunID).
		Int("suites", catalog.Len()).
		Str("mode", r.mode.String()).
		Msg("Starting conformance run")

	for _, s := range catalog.Suites() {
		report.Suites = append(report.Suites, r.RunSuite(ctx, s))
	}
	report.Duration = r.now().Sub(started)

	pass, fail, skip := report.Counts()
	r.logger.Info().
		Str("runId", report.RunID).
		Int("passed", pass).
		Int("failed", fail).
		Int("skipped", skip).
		Dur("duration", report.Duration).
		Msg("Conformance run complete")

	return report
}

// RunSuite executes every case of one suite.
func (r *Runner) RunSuite(ctx context.Context, s *Suite) SuiteReport {
	sess := r.Begin(s)
	for _, c := range s.Cases {
		sess.RunCase(ctx, c)
	}
	return sess.End()
}

// Session is one suite's open cassette. Cases run through it share the cassette
// and it is saved once at End.
type Session struct {
	runner  *Runner
	suite   *Suite
	rec     *cassette.Recorder
	openErr error
	report  SuiteReport
	logger  zerolog.Logger
}

// Begin opens the suite's cassette.
func (r *Runner) Begin(s *Suite) *Session {
	logger := r.logger.With().Str("suite", s.Name).Str("adapter", s.ID()).Logger()
	rec, err := cassette.Open(s.CassettePath, r.mode, cassette.Options{
		Transport: r.transport,
		Logger:    logger,
		Now:       r.now,
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to open cassette")
	}
	return &Session{
		runner:  r,
		suite:   s,
		rec:     rec,
		openErr: err,
		logger:  logger,
		report: SuiteReport{
			Name:      s.Name,
			AdapterID: s.ID(),
			Adapter:   s.Adapter.Name(),
			Cassette:  s.CassettePath,
		},
	}
}

// RunCase executes one case and records its result.
func (sess *Session) RunCase(ctx context.Context, c Case) CaseResult {
	s := sess.suite
	started := sess.runner.now()
	res := CaseResult{
		Case:        c.Name,
		Variant:     c.Variant,
		Description: s.Description(c),
	}

	if reason, skip := s.SkipReason(c); skip {
		res.Status = StatusSkip
		res.Messages = []string{fmt.Sprintf("Test is programmatically disabled for provider %s: %s", s.Adapter.Name(), reason)}
		return sess.finish(res, started)
	}

	if sess.openErr != nil {
		res.Status = StatusFail
		res.Kind = KindCassette
		res.Messages = []string{Failure{Kind: KindCassette, Message: sess.openErr.Error()}.String()}
		return sess.finish(res, started)
	}

	restore := sess.rec.SetVerifyTLS(s.VerifyTLS)
	defer restore()

	s.Adapter.Configure(types.Session{
		HTTPClient: sess.rec.Client(),
		Username:   "",
		Password:   "",
	})
	sess.rec.Rewind()

	env := &Env{ctx: ctx, suite: s, rec: sess.rec, start: sess.rec.Requests()}
	appended := sess.rec.Appended()
	runGuarded(env, c)

	res.Interactions = env.Interactions()
	res.Recorded = sess.rec.Appended() - appended
	if failures := env.Failures(); len(failures) > 0 {
		res.Status = StatusFail
		res.Kind = failures[0].Kind
		for _, f := range failures {
			res.Messages = append(res.Messages, f.String())
		}
	} else {
		res.Status = StatusPass
	}
	return sess.finish(res, started)
}

// runGuarded turns an adapter panic into a case failure.
func runGuarded(env *Env, c Case) {
	defer func() {
		if p := recover(); p != nil {
			env.Fail(KindAdapter, "adapter panicked: %v", p)
		}
	}()
	c.Run(env)
}

func (sess *Session) finish(res CaseResult, started time.Time) CaseResult {
	res.Duration = sess.runner.now().Sub(started)
	sess.report.Cases = append(sess.report.Cases, res)

	event := sess.logger.Info()
	if res.Status == StatusFail {
		event = sess.logger.Warn().Strs("messages", res.Messages)
	}
	event.
		Str("case", string(res.Case)).
		Str("status", string(res.Status)).
		Int("interactions", res.Interactions).
		Int("recorded", res.Recorded).
		Dur("duration", res.Duration).
		Msg("Case finished")

	if sess.runner.observer != nil {
		sess.runner.observer.ObserveCase(sess.suite, res)
	}
	return res
}

// End saves the cassette if it changed and returns the suite report.
func (sess *Session) End() SuiteReport {
	if sess.rec != nil {
		if err := sess.rec.Stop(); err != nil {
			sess.logger.Error().Err(err).Msg("Failed to save cassette")
			sess.report.Error = Failure{Kind: KindCassette, Message: err.Error()}.String()
		}
	}
	return sess.report
}
