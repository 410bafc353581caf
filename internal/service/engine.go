// Package service is the engine facade the HTTP API and the CLI call. Each
// use case checks the caller's principal, delegates to the domain packages
// and reports itself to the configured observers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/alexanderramin/waypoint/internal/candidate"
	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/alexanderramin/waypoint/internal/prompt"
	"github.com/alexanderramin/waypoint/internal/repository"
	"github.com/alexanderramin/waypoint/internal/trigger"
	"github.com/alexanderramin/waypoint/internal/trust"
)

type Config struct {
	// Parallelism bounds how many trips EvaluateActive works on at once.
	Parallelism int
	// ExtendMinutes is added to a slot when the traveler asks for more time.
	ExtendMinutes int
	// MoodWindow is how far back mood reports count.
	MoodWindow time.Duration
}

// Deps are the collaborators an Engine drives. A nil Weather or Location
// source means nothing is on record.
type Deps struct {
	UoW       db.UnitOfWork
	Detector  *trigger.Detector
	Parser    *prompt.Parser
	Generator *candidate.Generator
	Machine   *pivot.Machine
	Resolver  *trust.Resolver
	Weather   WeatherSource
	Location  LocationSource
	Metrics   *Metrics
	Logger    *slog.Logger
}

type Engine struct {
	uow       db.UnitOfWork
	detector  *trigger.Detector
	parser    *prompt.Parser
	generator *candidate.Generator
	machine   *pivot.Machine
	resolver  *trust.Resolver
	weather   WeatherSource
	location  LocationSource
	metrics   *Metrics
	observer  UseCaseObserver
	logger    *slog.Logger
	cfg       Config
	now       func() time.Time
}

func NewEngine(deps Deps, cfg Config, observers ...UseCaseObserver) *Engine {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.DiscardHandler)
	}
	if deps.Metrics == nil {
		deps.Metrics = NewMetrics()
	}
	if cfg.Parallelism < 1 {
		cfg.Parallelism = 4
	}
	if cfg.ExtendMinutes <= 0 {
		cfg.ExtendMinutes = 30
	}
	if cfg.MoodWindow <= 0 {
		cfg.MoodWindow = 4 * time.Hour
	}
	return &Engine{
		uow:       deps.UoW,
		detector:  deps.Detector,
		parser:    deps.Parser,
		generator: deps.Generator,
		machine:   deps.Machine,
		resolver:  deps.Resolver,
		weather:   deps.Weather,
		location:  deps.Location,
		metrics:   deps.Metrics,
		observer:  useCaseObserverOrNoop(observers),
		logger:    deps.Logger,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source; used by tests and the CLI.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Metrics exposes the engine's collectors.
func (e *Engine) Metrics() *Metrics {
	return e.metrics
}

// tripState is one consistent read of everything rule evaluation and
// candidate generation need for a trip.
type tripState struct {
	trip     *domain.Trip
	slots    []*domain.ItinerarySlot
	nodes    map[string]*domain.ActivityNode
	moods    []domain.MoodReport
	rejected map[string]bool
	weather  *domain.WeatherSnapshot
	location *domain.LocationSnapshot
}

func (e *Engine) loadTrip(ctx context.Context, tripID string, now time.Time) (*tripState, error) {
	st := &tripState{}
	err := e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		if st.trip, err = repository.NewSQLiteTripRepo(tx).GetByID(ctx, tripID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewNotFoundError("trip "+tripID+" not found", err)
			}
			return err
		}
		slots, err := repository.NewSQLiteSlotRepo(tx).ListByTrip(ctx, tripID)
		if err != nil {
			return err
		}
		st.slots = trigger.DaySorted(slots)

		ids := make([]string, 0, len(st.slots))
		for _, s := range st.slots {
			ids = append(ids, s.ActivityNodeID)
		}
		if st.nodes, err = repository.NewSQLiteActivityRepo(tx).GetByIDs(ctx, ids); err != nil {
			return err
		}
		if st.moods, err = repository.NewSQLiteSnapshotRepo(tx).ListMoodByTripSince(ctx, tripID, now.Add(-e.cfg.MoodWindow)); err != nil {
			return err
		}
		st.rejected, err = repository.NewSQLitePivotRepo(tx).ListRejectedNodeIDs(ctx, tripID)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Snapshot sources may be remote, so they are read outside the tx.
	if e.weather != nil {
		w, err := e.weather.LatestWeather(ctx, tripID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		st.weather = w
	}
	if e.location != nil {
		l, err := e.location.LatestLocation(ctx, tripID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		st.location = l
	}
	return st, nil
}

func (st *tripState) slot(id string) *domain.ItinerarySlot {
	for _, s := range st.slots {
		if s.ID == id {
			return s
		}
	}
	return nil
}

func (st *tripState) day(n int) []*domain.ItinerarySlot {
	var out []*domain.ItinerarySlot
	for _, s := range st.slots {
		if s.DayNumber == n {
			out = append(out, s)
		}
	}
	return out
}

func (st *tripState) snapshot(now time.Time) trigger.Snapshot {
	snap := trigger.Snapshot{
		Trip:    st.trip,
		Slots:   st.slots,
		Nodes:   st.nodes,
		Weather: st.weather,
		Moods:   st.moods,
		Now:     now,
	}
	if st.location != nil {
		loc := st.location.Location
		snap.Location = &loc
	}
	return snap
}
