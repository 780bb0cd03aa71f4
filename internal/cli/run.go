package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/slipstream/providercheck/internal/suite"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Format string
	Only   []string
	Mode   string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the conformance suites once",
		Long: `Run every generated suite against its cassette and print the report.

Example:
  providercheck run
  providercheck run --only eztv,showrss --mode replay-only --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Format, "format", "", "report format (table|json), defaults to run.format")
	cmd.Flags().StringSliceVar(&opts.Only, "only", nil, "adapter IDs to run, defaults to run.enabled")
	cmd.Flags().StringVar(&opts.Mode, "mode", "", "cassette mode (new-episodes|replay-only), defaults to cassettes.mode")

	return cmd
}

func runOnce(opts *RunOptions, cmd *cobra.Command) error {
	format := opts.Format
	if format == "" {
		format = opts.cfg.Run.Format
	}
	if format != "table" && format != "json" {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be table or json", format))
	}

	report, err := opts.conformance(cmd.Context(), opts.Mode, opts.Only)
	if err != nil {
		return err
	}
	if err := writeReport(cmd.OutOrStdout(), report, format, opts.Verbose); err != nil {
		return WrapExitError(ExitCommandError, "failed to write report", err)
	}
	if report.Failed() {
		return NewExitError(ExitFailure, "conformance run failed")
	}
	return nil
}

func writeReport(w io.Writer, report *suite.Report, format string, verbose bool) error {
	if format == "json" {
		return report.WriteJSON(w)
	}
	return report.WriteTable(w, verbose)
}
