package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/alexanderramin/waypoint/internal/candidate"
	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/alexanderramin/waypoint/internal/prompt"
	"github.com/alexanderramin/waypoint/internal/repository"
	"golang.org/x/sync/errgroup"
)

// Outcome is what became of one trigger.
type Outcome string

const (
	OutcomeProposed Outcome = "proposed"
	OutcomeNoAction Outcome = "no_action"
	OutcomeConflict Outcome = "conflict"
	OutcomeCapped   Outcome = "depth_capped"
	OutcomeFailed   Outcome = "failed"
)

type TriggerResult struct {
	Trigger domain.Trigger
	Outcome Outcome
	Pivot   *domain.PivotEvent
	Err     string
}

// Evaluation is the result of one pass over a trip.
type Evaluation struct {
	TripID  string
	Results []TriggerResult
}

// Proposed returns the pivots the pass created.
func (ev *Evaluation) Proposed() []*domain.PivotEvent {
	var out []*domain.PivotEvent
	for _, r := range ev.Results {
		if r.Pivot != nil {
			out = append(out, r.Pivot)
		}
	}
	return out
}

// EvaluateTrip runs the trigger rules over a trip and proposes a pivot for
// every trigger that survives its cooldown. One trigger failing does not
// stop the others.
func (e *Engine) EvaluateTrip(ctx context.Context, principal domain.Principal, tripID string) (ev *Evaluation, err error) {
	started := time.Now()
	fields := map[string]any{"trip_id": tripID}
	defer e.observe(ctx, "evaluate_trip", started, fields, &err)

	if err := principal.Require(domain.ScopeTripWrite, tripID); err != nil {
		return nil, err
	}
	now := e.now()
	st, err := e.loadTrip(ctx, tripID, now)
	if err != nil {
		return nil, err
	}
	triggers, err := e.detector.Evaluate(ctx, st.snapshot(now))
	if err != nil {
		return nil, err
	}

	ev = &Evaluation{TripID: tripID}
	for _, t := range triggers {
		e.metrics.Triggers.WithLabelValues(string(t.Type)).Inc()
		cands, cerr := e.candidatesFor(ctx, st, t)
		if cerr != nil {
			e.logger.Error("generating candidates", "trip_id", tripID, "slot_id", t.SlotID, "err", cerr)
			ev.Results = append(ev.Results, TriggerResult{Trigger: t, Outcome: OutcomeFailed, Err: cerr.Error()})
			continue
		}
		ev.Results = append(ev.Results, e.propose(ctx, principal, t, cands))
	}
	fields["triggers"] = len(triggers)
	fields["proposed"] = len(ev.Proposed())
	return ev, nil
}

// propose hands a trigger to the state machine and classifies the result.
func (e *Engine) propose(ctx context.Context, principal domain.Principal, t domain.Trigger, cands []domain.Candidate) TriggerResult {
	res := TriggerResult{Trigger: t}
	p, err := e.machine.Propose(ctx, principal, pivot.ProposeRequest{Trigger: t, Candidates: cands})
	switch {
	case err == nil && p == nil:
		res.Outcome = OutcomeNoAction
	case err == nil:
		res.Outcome = OutcomeProposed
		res.Pivot = p
	case errors.Is(err, domain.ErrCapacity):
		res.Outcome = OutcomeCapped
		e.metrics.DepthCapped.Inc()
	case errors.Is(err, domain.ErrConflict):
		res.Outcome = OutcomeConflict
	default:
		res.Outcome = OutcomeFailed
		res.Err = err.Error()
		e.logger.Error("proposing pivot", "trip_id", t.TripID, "slot_id", t.SlotID, "err", err)
	}
	e.metrics.Pivots.WithLabelValues(string(res.Outcome)).Inc()
	return res
}

// candidatesFor picks the generation mode from the trigger's action.
func (e *Engine) candidatesFor(ctx context.Context, st *tripState, t domain.Trigger) ([]domain.Candidate, error) {
	slot := st.slot(t.SlotID)
	if slot == nil {
		return nil, domain.NewNotFoundError("slot "+t.SlotID+" not found", domain.ErrNotFound)
	}

	switch prompt.Action(t.Action) {
	case prompt.ActionExtend:
		return candidate.Extend(slot, e.cfg.ExtendMinutes), nil
	case prompt.ActionPause:
		req := candidate.MicroStopRequest{
			Anchor:   slot,
			Category: t.Category,
			Exclude:  scheduledNodes(st.day(slot.DayNumber)),
		}
		switch {
		case st.location != nil:
			req.Center = st.location.Location
		case st.nodes[slot.ActivityNodeID] != nil:
			req.Center = st.nodes[slot.ActivityNodeID].Location
		default:
			return nil, nil
		}
		return e.generator.MicroStop(ctx, req)
	}

	origin := st.nodes[slot.ActivityNodeID]
	if origin == nil {
		return nil, domain.NewDataIntegrityError(fmt.Sprintf("slot %s references unknown node %s", slot.ID, slot.ActivityNodeID))
	}
	return e.generator.Swap(ctx, candidate.SwapRequest{
		Slot:        slot,
		Origin:      origin,
		DaySlots:    st.day(slot.DayNumber),
		Rejected:    st.rejected,
		TriggerType: t.Type,
		Category:    t.Category,
		Now:         e.now(),
	})
}

func scheduledNodes(slots []*domain.ItinerarySlot) map[string]bool {
	out := make(map[string]bool, len(slots))
	for _, s := range slots {
		if s.Status != domain.SlotSkipped {
			out[s.ActivityNodeID] = true
		}
	}
	return out
}

// Sweep summarizes one EvaluateActive pass.
type Sweep struct {
	Evaluated int
	Proposed  int
	// Failed maps trip id to the error that stopped its evaluation.
	Failed map[string]string
}

// EvaluateActive evaluates every active trip with bounded parallelism. Trips
// are independent: a failing trip is recorded and the rest carry on.
func (e *Engine) EvaluateActive(ctx context.Context) (sweep *Sweep, err error) {
	started := time.Now()
	fields := map[string]any{}
	defer e.observe(ctx, "evaluate_active", started, fields, &err)

	var trips []*domain.Trip
	err = e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		trips, err = repository.NewSQLiteTripRepo(tx).ListByStatus(ctx, domain.TripActive)
		return err
	})
	if err != nil {
		return nil, err
	}

	sweep = &Sweep{Failed: map[string]string{}}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Parallelism)
	for _, trip := range trips {
		g.Go(func() error {
			ev, err := e.EvaluateTrip(gctx, domain.SystemPrincipal(), trip.ID)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				sweep.Failed[trip.ID] = err.Error()
				e.metrics.TripsEvaluated.WithLabelValues("failed").Inc()
				e.logger.Error("evaluating trip", "trip_id", trip.ID, "err", err)
				return nil
			}
			sweep.Evaluated++
			sweep.Proposed += len(ev.Proposed())
			e.metrics.TripsEvaluated.WithLabelValues("ok").Inc()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	fields["trips"] = len(trips)
	fields["failed"] = len(sweep.Failed)
	return sweep, ctx.Err()
}

// RunEvaluations calls EvaluateActive every interval until ctx is done.
func (e *Engine) RunEvaluations(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := e.EvaluateActive(ctx); err != nil && ctx.Err() == nil {
				e.logger.Error("evaluation sweep failed", "err", err)
			}
		}
	}
}
