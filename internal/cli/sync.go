package cli

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newSyncCmd(app *App) *cobra.Command {
	var companyFlag string

	cmd := &cobra.Command{
		Use:   "sync <case-id>",
		Short: "Synchronize one case with DataJud",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			caseID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid case id %q", args[0])
			}
			companyID, err := uuid.Parse(companyFlag)
			if err != nil {
				return fmt.Errorf("invalid company id %q", companyFlag)
			}

			result, err := app.Runtime.SyncCase(cmd.Context(), companyID, caseID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if result.Search != nil {
				fmt.Fprintf(out, "Case %s synchronized from %s\n", caseID, result.Search.Tribunal)
			} else {
				fmt.Fprintf(out, "Case %s synchronized\n", caseID)
			}
			fmt.Fprintf(out, "  movements: %d\n", result.MovementCount)
			if result.Skipped > 0 {
				fmt.Fprintf(out, "  skipped:   %d\n", result.Skipped)
			}
			fmt.Fprintf(out, "  changed:   %t\n", result.Changed)
			if result.Case != nil && result.Case.UltimoAndamento != nil {
				fmt.Fprintf(out, "  latest:    %s\n", *result.Case.UltimoAndamento)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&companyFlag, "company", "", "Company (tenant) that owns the case")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}
