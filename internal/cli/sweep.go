package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSweepCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Synchronize every active case now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := app.Runtime.Sweep(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"Swept %d case(s) in %s: %d synced, %d changed, %d not found, %d skipped, %d failed\n",
				report.Total, report.Duration.Round(time.Millisecond), report.Synced, report.Changed, report.NotFound, report.Skipped, report.Failed)
			if report.Failed > 0 {
				return fmt.Errorf("%d case(s) failed to synchronize", report.Failed)
			}
			return nil
		},
	}
}
