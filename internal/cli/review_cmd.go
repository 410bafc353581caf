package cli

import (
	"fmt"

	"github.com/alexanderramin/waypoint/internal/cli/formatter"
	"github.com/alexanderramin/waypoint/internal/trust"
	"github.com/spf13/cobra"
)

func newFlagCmd(app *App) *cobra.Command {
	var kind, note string

	cmd := &cobra.Command{
		Use:   "flag SLOT_ID",
		Short: "Report a slot as wrong for you or as wrong information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := app.Engine.Flag(cmd.Context(), principal(cmd), trust.Report{
				SlotID: args[0],
				Kind:   trust.Kind(kind),
				Note:   note,
			})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatFlag(o))
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", string(trust.WrongForMe), "wrong_for_me or wrong_information")
	cmd.Flags().StringVar(&note, "note", "", "what is wrong, for wrong_information")
	return cmd
}

func newReviewQueueCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "review-queue",
		Short: "List reports and flagged prompts awaiting review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := app.Engine.ReviewQueue(cmd.Context(), principal(cmd))
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatQueue(q, app.Now()))
			return nil
		},
	}
}

func newAuditCmd(app *App) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "audit TRIP_ID",
		Short: "Show a trip's audit trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive")
			}
			records, err := app.Engine.Audit(cmd.Context(), principal(cmd), args[0], limit)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatAudit(records))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum records")
	return cmd
}
