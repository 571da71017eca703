package cli

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/advwell/pkg/casesync"
	"github.com/Ramsey-B/advwell/pkg/sweep"
)

// Runtime is the application the commands drive.
type Runtime interface {
	Serve(ctx context.Context) error
	MigrateUp(ctx context.Context) error
	MigrateDown(ctx context.Context, steps int) error
	SyncCase(ctx context.Context, companyID, caseID uuid.UUID) (*casesync.SyncResult, error)
	Sweep(ctx context.Context) (*sweep.Report, error)
}

// App holds what the commands need to run.
type App struct {
	Runtime Runtime
}

// NewRootCmd creates the top-level "advwell" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "advwell",
		Short:         "Law firm case management API and DataJud synchronizer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newServeCmd(app),
		newMigrateCmd(app),
		newSyncCmd(app),
		newSweepCmd(app),
	)

	return root
}
