package cli

import (
	"fmt"

	"github.com/alexanderramin/waypoint/internal/cli/formatter"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/spf13/cobra"
)

func newPivotsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "pivots",
		Aliases: []string{"pivot"},
		Short:   "List, inspect and decide pivots",
	}
	cmd.AddCommand(
		newPivotsListCmd(app),
		newPivotsShowCmd(app),
		newPivotsAcceptCmd(app),
		newPivotsRejectCmd(app),
	)
	return cmd
}

func newPivotsListCmd(app *App) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list TRIP_ID",
		Short: "List a trip's pivots, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := domain.PivotStatus(status)
			if st != "" && st != domain.PivotProposed && !st.IsTerminal() {
				return fmt.Errorf("unknown status %q", status)
			}
			ps, err := app.Engine.ListPivots(cmd.Context(), principal(cmd), args[0], st)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPivots(ps, app.Now()))
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status (proposed, accepted, rejected, expired)")
	return cmd
}

func newPivotsShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show PIVOT_ID",
		Short: "Show a pivot's ranked candidates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := app.Engine.Pivot(cmd.Context(), principal(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatCandidates(p))
			return nil
		},
	}
}

func newPivotsAcceptCmd(app *App) *cobra.Command {
	var rank int

	cmd := &cobra.Command{
		Use:   "accept PIVOT_ID",
		Short: "Accept a candidate and apply the cascade",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			p := principal(cmd)

			if rank == 0 {
				if app.IsInteractive == nil || !app.IsInteractive() {
					return fmt.Errorf("--rank is required when not running in a terminal")
				}
				pv, err := app.Engine.Pivot(ctx, p, args[0])
				if err != nil {
					return err
				}
				if rank, err = app.PickRank(ctx, pv); err != nil {
					return err
				}
			}

			d, err := app.Engine.Decide(ctx, p, pivot.DecideRequest{PivotID: args[0], Accept: true, Rank: rank})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDecision(d))
			return nil
		},
	}
	cmd.Flags().IntVar(&rank, "rank", 0, "candidate rank to accept")
	return cmd
}

func newPivotsRejectCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reject PIVOT_ID",
		Short: "Reject every candidate of a pivot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d, err := app.Engine.Decide(cmd.Context(), principal(cmd), pivot.DecideRequest{PivotID: args[0]})
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDecision(d))
			return nil
		},
	}
}
