// Package cli is the operator command line: a cobra tree over the engine
// with lipgloss output and a huh picker for interactive decisions.
package cli

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/importer"
	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/alexanderramin/waypoint/internal/service"
	"github.com/alexanderramin/waypoint/internal/trust"
	"github.com/spf13/cobra"
)

// Engine is the slice of the service layer the commands call.
type Engine interface {
	EvaluateTrip(ctx context.Context, principal domain.Principal, tripID string) (*service.Evaluation, error)
	EvaluateActive(ctx context.Context) (*service.Sweep, error)
	SubmitPrompt(ctx context.Context, principal domain.Principal, tripID, text string) (*service.PromptOutcome, error)
	ListPivots(ctx context.Context, principal domain.Principal, tripID string, status domain.PivotStatus) ([]*domain.PivotEvent, error)
	Pivot(ctx context.Context, principal domain.Principal, pivotID string) (*domain.PivotEvent, error)
	Decide(ctx context.Context, principal domain.Principal, req pivot.DecideRequest) (*pivot.Decision, error)
	ExpireDue(ctx context.Context) (*pivot.ExpiryReport, error)
	Flag(ctx context.Context, principal domain.Principal, rep trust.Report) (*trust.Outcome, error)
	ReviewQueue(ctx context.Context, principal domain.Principal) (*trust.Queue, error)
	Audit(ctx context.Context, principal domain.Principal, tripID string, limit int) ([]*domain.AuditRecord, error)
	RecordWeather(ctx context.Context, principal domain.Principal, w domain.WeatherSnapshot) error
	RecordLocation(ctx context.Context, principal domain.Principal, l domain.LocationSnapshot) error
	RecordMood(ctx context.Context, principal domain.Principal, m domain.MoodReport) error
	ImportTrip(ctx context.Context, principal domain.Principal, f *importer.TripFile) (*importer.Itinerary, error)
}

var _ Engine = (*service.Engine)(nil)

// App holds what the commands need. Server is nil when serving is not
// wired, as in tests.
type App struct {
	Engine Engine
	Server *Server

	// IsInteractive reports whether stdin is a terminal; decisions without
	// --rank open a picker only when it returns true.
	IsInteractive func() bool
	// PickRank asks the operator to choose among a pivot's candidates.
	PickRank func(ctx context.Context, p *domain.PivotEvent) (int, error)
	Now      func() time.Time
}

const defaultScopes = "trip:read,trip:write,slot:flag"

// NewRootCmd creates the top-level "waypoint" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	if app.PickRank == nil {
		app.PickRank = pickRank
	}
	if app.Now == nil {
		app.Now = time.Now
	}

	root := &cobra.Command{
		Use:           "waypoint",
		Short:         "Mid-trip pivot and rescheduling engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("user", envOr("WAYPOINT_USER", "operator"), "acting user id")
	root.PersistentFlags().String("scopes", envOr("WAYPOINT_SCOPES", defaultScopes), "comma-separated scopes")
	root.PersistentFlags().String("trips", os.Getenv("WAYPOINT_TRIPS"), "comma-separated trip ids; empty allows any")

	root.AddCommand(
		newServeCmd(app),
		newImportCmd(app),
		newEvaluateCmd(app),
		newPivotsCmd(app),
		newAskCmd(app),
		newFlagCmd(app),
		newReviewQueueCmd(app),
		newAuditCmd(app),
		newSnapshotCmd(app),
		newExpireCmd(app),
	)
	return root
}

// principal builds the caller from the persistent flags.
func principal(cmd *cobra.Command) domain.Principal {
	user, _ := cmd.Flags().GetString("user")
	scopes, _ := cmd.Flags().GetString("scopes")
	trips, _ := cmd.Flags().GetString("trips")

	p := domain.Principal{UserID: strings.TrimSpace(user)}
	for _, s := range splitList(scopes) {
		p.Scopes = append(p.Scopes, domain.Scope(s))
	}
	p.TripIDs = splitList(trips)
	return p
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
