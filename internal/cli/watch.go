package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slipstream/providercheck/internal/scheduler"
)

// NewWatchCommand creates the watch command.
func NewWatchCommand(opts *RootOptions) *cobra.Command {
	var cron string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the conformance suites on a cron schedule",
		Long: `Run the suites once at start and then on every cron tick until interrupted.
Runs never overlap; a tick that fires during a run is rescheduled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cron == "" {
				cron = opts.cfg.Watch.Cron
			}

			sched, err := scheduler.New(opts.log.Logger)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to create scheduler", err)
			}
			err = sched.RegisterTask(scheduler.TaskConfig{
				ID:         "conformance",
				Name:       "Conformance run",
				Cron:       cron,
				RunOnStart: true,
				Func: func(ctx context.Context) error {
					report, err := opts.conformance(ctx, "", nil)
					if err != nil {
						return err
					}
					if err := report.WriteTable(cmd.OutOrStdout(), opts.Verbose); err != nil {
						return err
					}
					if report.Failed() {
						_, fail, _ := report.Counts()
						return fmt.Errorf("%d cases failed", fail)
					}
					return nil
				},
			})
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid --cron", err)
			}

			sched.Start()
			<-cmd.Context().Done()
			return sched.Stop()
		},
	}

	cmd.Flags().StringVar(&cron, "cron", "", "cron expression, defaults to watch.cron")
	return cmd
}
