package cli

import (
	"context"
	"errors"
	"io/fs"

	"github.com/slipstream/providercheck/internal/cassette"
	"github.com/slipstream/providercheck/internal/indexer"
	"github.com/slipstream/providercheck/internal/indexer/cardigann"
	"github.com/slipstream/providercheck/internal/indexer/genericrss"
	"github.com/slipstream/providercheck/internal/metrics"
	"github.com/slipstream/providercheck/internal/overrides"
	"github.com/slipstream/providercheck/internal/suite"
)

// registry chains the definition directory and the configured feeds.
// A missing definition directory contributes no adapters.
func (o *RootOptions) registry() (indexer.Registry, error) {
	log := o.log.WithComponent("registry")

	defs, err := cardigann.LoadDir(o.cfg.Definitions.Dir, log)
	if errors.Is(err, fs.ErrNotExist) {
		log.Warn().Str("dir", o.cfg.Definitions.Dir).Msg("Definitions directory not found")
		defs, err = indexer.NewMemoryRegistry(), nil
	}
	if err != nil {
		return nil, err
	}

	feeds := indexer.NewMemoryRegistry()
	for _, f := range o.cfg.Feeds {
		feeds.Register(genericrss.New(f))
	}
	return indexer.MultiRegistry{defs, feeds}, nil
}

func (o *RootOptions) loadOverrides() (*overrides.Set, error) {
	set, err := overrides.Load(o.cfg.Overrides.File)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load overrides", err)
	}
	return set, nil
}

// catalog generates suites for enabled adapters, or all when enabled is empty.
func (o *RootOptions) catalog(enabled []string) (*suite.Catalog, error) {
	reg, err := o.registry()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load adapters", err)
	}
	set, err := o.loadOverrides()
	if err != nil {
		return nil, err
	}
	if len(enabled) == 0 {
		enabled = o.cfg.Run.Enabled
	}

	catalog, err := suite.Generate(reg, suite.Options{
		CassetteDir: o.cfg.Cassettes.Dir,
		Overrides:   set,
		TLS: suite.TLSPolicy{
			Verify:              o.cfg.TLS.Verify,
			BrokenCertAllowlist: o.cfg.TLS.BrokenCertAllowlist,
		},
		Enabled: enabled,
		Logger:  o.log.Logger,
	})
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to generate suites", err)
	}
	return catalog, nil
}

// conformance runs every suite of a freshly generated catalog once.
func (o *RootOptions) conformance(ctx context.Context, mode string, enabled []string) (*suite.Report, error) {
	if mode == "" {
		mode = o.cfg.Cassettes.Mode
	}
	m, err := cassette.ParseMode(mode)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid --mode", err)
	}
	catalog, err := o.catalog(enabled)
	if err != nil {
		return nil, err
	}

	collector := metrics.New()
	runner := suite.NewRunner(suite.RunnerOptions{
		Mode:     m,
		Observer: collector,
		Logger:   o.log.Logger,
	})
	report := runner.Run(ctx, catalog)
	collector.ObserveReport(report)

	if path := o.cfg.Metrics.Textfile; path != "" {
		if err := collector.WriteTextfile(path); err != nil {
			o.log.Error().Err(err).Str("path", path).Msg("Failed to write metrics textfile")
		}
	}
	return report, nil
}
