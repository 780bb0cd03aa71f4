package cli

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/slipstream/providercheck/internal/config"
)

// NewVersionCommand creates the version command. It needs no configuration.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:                "version",
		Short:              "Print the version",
		Args:               cobra.NoArgs,
		PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
		PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "providercheck %s (%s/%s)\n", config.Version, runtime.GOOS, runtime.GOARCH)
		},
	}
}
