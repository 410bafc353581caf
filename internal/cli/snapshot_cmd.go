package cli

import (
	"fmt"

	"github.com/alexanderramin/waypoint/internal/cli/formatter"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/spf13/cobra"
)

// newSnapshotCmd records the signals trigger detection reads. In production
// these arrive from feeds; the commands exist for operators and demos.
func newSnapshotCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Record weather, location or mood signals",
	}
	cmd.AddCommand(newWeatherCmd(app), newLocationCmd(app), newMoodCmd(app))
	return cmd
}

func newWeatherCmd(app *App) *cobra.Command {
	var condition string
	var risk float64

	cmd := &cobra.Command{
		Use:   "weather TRIP_ID",
		Short: "Record the forecast risk for outdoor activities",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.Engine.RecordWeather(cmd.Context(), principal(cmd), domain.WeatherSnapshot{
				TripID:      args[0],
				Condition:   condition,
				OutdoorRisk: risk,
				ObservedAt:  app.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s risk %.2f\n", formatter.StyleGreen.Render("Recorded"), condition, risk)
			return nil
		},
	}
	cmd.Flags().StringVar(&condition, "condition", "rain", "forecast condition")
	cmd.Flags().Float64Var(&risk, "risk", 0, "outdoor risk in [0,1]")
	_ = cmd.MarkFlagRequired("risk")
	return cmd
}

func newLocationCmd(app *App) *cobra.Command {
	var lat, lng float64

	cmd := &cobra.Command{
		Use:   "location TRIP_ID",
		Short: "Record the traveler's position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.Engine.RecordLocation(cmd.Context(), principal(cmd), domain.LocationSnapshot{
				TripID:     args[0],
				Location:   domain.LatLng{Lat: lat, Lng: lng},
				ObservedAt: app.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %.5f,%.5f\n", formatter.StyleGreen.Render("Recorded"), lat, lng)
			return nil
		},
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude")
	cmd.MarkFlagsRequiredTogether("lat", "lng")
	_ = cmd.MarkFlagRequired("lat")
	return cmd
}

func newMoodCmd(app *App) *cobra.Command {
	var score int

	cmd := &cobra.Command{
		Use:   "mood SLOT_ID",
		Short: "Rate the current activity from 1 (worst) to 5",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := app.Engine.RecordMood(cmd.Context(), principal(cmd), domain.MoodReport{
				SlotID:     args[0],
				Score:      score,
				ReportedAt: app.Now(),
			})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s mood %d\n", formatter.StyleGreen.Render("Recorded"), score)
			return nil
		},
	}
	cmd.Flags().IntVar(&score, "score", 0, "rating from 1 to 5")
	_ = cmd.MarkFlagRequired("score")
	return cmd
}
