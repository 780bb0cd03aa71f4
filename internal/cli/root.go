// Package cli implements the providercheck command line.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/slipstream/providercheck/internal/config"
	"github.com/slipstream/providercheck/internal/logger"
)

// RootOptions holds global flags and the state loaded before every command.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	cfg *config.Config
	log *logger.Logger
}

// NewRootCommand creates the root command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "providercheck",
		Short: "Conformance checks for torrent indexer adapters",
		Long: `providercheck generates one conformance suite per public torrent adapter,
runs it against recorded HTTP cassettes and reports every contract violation.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.log != nil {
				return opts.log.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging and untruncated violations")

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewOverridesCommand(opts))
	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewVersionCommand())

	return cmd
}

func (o *RootOptions) load(cmd *cobra.Command) error {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level := cfg.Logging.Level
	if o.Verbose {
		level = "debug"
	}
	o.cfg = cfg
	o.log = logger.New(logger.Config{
		Level:      level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Output:     cmd.ErrOrStderr(),
	})
	return nil
}
