package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewOverridesCommand creates the overrides command.
func NewOverridesCommand(opts *RootOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "overrides",
		Short: "Check skip and search string overrides against the registry",
		Long: `List override entries keyed by a name that no registered adapter has.
With --strict any such entry fails the command.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := opts.catalog(nil)
			if err != nil {
				return err
			}
			stale := catalog.Stale()
			out := cmd.OutOrStdout()
			for _, e := range stale {
				fmt.Fprintf(out, "stale: %s\n", e)
			}
			if len(stale) == 0 {
				fmt.Fprintln(out, "overrides ok")
				return nil
			}
			if strict {
				return NewExitError(ExitCommandError, fmt.Sprintf("%d stale override entries", len(stale)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when an override refers to an unregistered adapter")
	return cmd
}
