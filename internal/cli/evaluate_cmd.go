package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/waypoint/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newEvaluateCmd(app *App) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "evaluate [TRIP_ID]",
		Short: "Run trigger detection and propose pivots",
		Long:  "Evaluates one trip as the acting user, or every active trip as the system with --all.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if all {
				if len(args) > 0 {
					return fmt.Errorf("--all does not take a trip id")
				}
				sweep, err := app.Engine.EvaluateActive(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprint(out, formatter.FormatSweep(sweep))
				return nil
			}
			if len(args) == 0 {
				return fmt.Errorf("a trip id or --all is required")
			}
			ev, err := app.Engine.EvaluateTrip(cmd.Context(), principal(cmd), args[0])
			if err != nil {
				return err
			}
			fmt.Fprint(out, formatter.FormatEvaluation(ev))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "evaluate every active trip")
	return cmd
}

func newAskCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "ask TRIP_ID TEXT...",
		Short: "Submit a free-text request such as \"I'm hungry\"",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			o, err := app.Engine.SubmitPrompt(cmd.Context(), principal(cmd), args[0], text)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatPrompt(o))
			return nil
		},
	}
}

func newExpireCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "expire",
		Short: "Expire pivots past their window once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := app.Engine.ExpireDue(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatExpiry(r))
			return nil
		},
	}
}
