package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewListCommand creates the list command.
func NewListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List generated suites, their cases and excluded adapters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := opts.catalog(nil)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SUITE\tCASE\tVARIANT\tSKIP")
			for _, s := range catalog.Suites() {
				for _, c := range s.Cases {
					reason, _ := s.SkipReason(c)
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Name, c.Name, c.Variant, reason)
				}
			}
			for _, e := range catalog.Excluded() {
				fmt.Fprintf(tw, "%s\t-\t-\texcluded: %s\n", e.ID, e.Reason)
			}
			return tw.Flush()
		},
	}
}
