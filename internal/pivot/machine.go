// Package pivot owns the lifecycle of pivot events: proposal, the
// traveler's decision, and expiry.
package pivot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alexanderramin/waypoint/internal/candidate"
	"github.com/alexanderramin/waypoint/internal/cascade"
	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/repository"
	"github.com/google/uuid"
)

// Notifier delivers lifecycle notifications. Failures never undo a change.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

type Config struct {
	MaxDepth     int
	Expiry       time.Duration
	ExpiringSoon time.Duration
	Cascade      cascade.Config
}

type Machine struct {
	uow      db.UnitOfWork
	cfg      Config
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewMachine(uow db.UnitOfWork, cfg Config, notifier Notifier, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 3
	}
	return &Machine{uow: uow, cfg: cfg, notifier: notifier, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// WithClock overrides the time source; used by tests and the CLI.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// ProposeRequest carries a detected trigger and its ranked candidates.
type ProposeRequest struct {
	Trigger    domain.Trigger
	Candidates []domain.Candidate
}

type proposeOutcome int

const (
	outcomeCreated proposeOutcome = iota
	outcomeNoAction
	outcomeCapped
)

// Propose records a pivot for the trigger's slot. It returns (nil, nil) when
// there are no candidates, and a CAPACITY error when the causal chain is
// already at the depth cap. Both cases leave an audit record behind.
func (m *Machine) Propose(ctx context.Context, principal domain.Principal, req ProposeRequest) (*domain.PivotEvent, error) {
	t := req.Trigger
	if err := principal.Require(domain.ScopeTripWrite, t.TripID); err != nil {
		return nil, err
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}

	now := m.now()
	var event *domain.PivotEvent
	var outcome proposeOutcome
	var depth int

	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		slots := repository.NewSQLiteSlotRepo(tx)
		pivots := repository.NewSQLitePivotRepo(tx)
		audits := repository.NewSQLiteAuditRepo(tx)

		slot, err := slots.GetByID(ctx, t.SlotID)
		if err != nil {
			return notFound(err, "slot "+t.SlotID)
		}
		if slot.TripID != t.TripID {
			return domain.NewValidationError(fmt.Sprintf("slot %s does not belong to trip %s", slot.ID, t.TripID))
		}
		if slot.Locked {
			return domain.NewValidationError(fmt.Sprintf("slot %s is locked", slot.ID))
		}
		if slot.IsSettled() {
			return domain.NewValidationError(fmt.Sprintf("slot %s is already %s", slot.ID, slot.Status))
		}

		depth = 1
		if t.ParentPivotID != nil {
			parent, err := pivots.GetByID(ctx, *t.ParentPivotID)
			if err != nil {
				return notFound(err, "parent pivot "+*t.ParentPivotID)
			}
			depth = parent.Depth + 1
		}
		if depth > m.cfg.MaxDepth {
			outcome = outcomeCapped
			return audits.Create(ctx, auditRecord(t, domain.AuditDepthCapped, "suppressed", now, map[string]any{
				"depth":        depth,
				"max_depth":    m.cfg.MaxDepth,
				"trigger_type": string(t.Type),
			}))
		}
		if len(req.Candidates) == 0 {
			outcome = outcomeNoAction
			return audits.Create(ctx, auditRecord(t, domain.AuditNoAction, "no_candidates", now, map[string]any{
				"trigger_type": string(t.Type),
				"reason":       t.Reason,
			}))
		}

		if _, err := pivots.GetProposedBySlot(ctx, slot.ID); err == nil {
			return domain.NewConflictError(fmt.Sprintf("a change is already pending for slot %s", slot.ID))
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		event = &domain.PivotEvent{
			ID:            uuid.NewString(),
			TripID:        t.TripID,
			SlotID:        slot.ID,
			TriggerType:   t.Type,
			Depth:         depth,
			ParentPivotID: t.ParentPivotID,
			Status:        domain.PivotProposed,
			Candidates:    renumber(req.Candidates),
			CreatedAt:     now,
		}
		if err := pivots.Create(ctx, event); err != nil {
			return err
		}
		return repository.NewSQLiteSignalRepo(tx).CreateRawEvent(ctx, &domain.RawEvent{
			ID:     uuid.NewString(),
			TripID: t.TripID,
			Kind:   string(domain.NotifyPivotProposed),
			Payload: map[string]any{
				"pivot_id":     event.ID,
				"slot_id":      slot.ID,
				"trigger_type": string(t.Type),
				"reason":       t.Reason,
				"depth":        depth,
				"candidates":   len(event.Candidates),
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	switch outcome {
	case outcomeCapped:
		m.logger.Warn("pivot depth capped", "trip_id", t.TripID, "slot_id", t.SlotID, "depth", depth)
		return nil, domain.NewCapacityError(fmt.Sprintf("pivot depth %d exceeds cap %d", depth, m.cfg.MaxDepth))
	case outcomeNoAction:
		return nil, nil
	}

	m.notify(ctx, domain.Notification{
		Kind:    domain.NotifyPivotProposed,
		TripID:  event.TripID,
		SlotID:  event.SlotID,
		PivotID: event.ID,
		At:      now,
		Detail:  map[string]any{"trigger_type": string(event.TriggerType), "candidates": len(event.Candidates)},
	})
	return event, nil
}

// DecideRequest is the traveler's answer. Rank is 1-based and only read
// when Accept is set.
type DecideRequest struct {
	PivotID string
	Accept  bool
	Rank    int
}

type Decision struct {
	Pivot *domain.PivotEvent
	Plan  *cascade.Plan
	// FollowUps are day-overflow pivots raised after the cascade committed.
	FollowUps []*domain.PivotEvent
}

// Decide resolves a proposed pivot. Acceptance applies the cascade in the
// same transaction as the status change.
func (m *Machine) Decide(ctx context.Context, principal domain.Principal, req DecideRequest) (*Decision, error) {
	if req.PivotID == "" {
		return nil, domain.NewValidationError("pivot id is required")
	}
	if req.Accept && req.Rank < 1 {
		return nil, domain.NewValidationError("accepting requires a candidate rank")
	}

	now := m.now()
	out := &Decision{}
	var trip *domain.Trip
	var stale *domain.PivotEvent

	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		pivots := repository.NewSQLitePivotRepo(tx)
		signals := repository.NewSQLiteSignalRepo(tx)

		p, err := pivots.GetByID(ctx, req.PivotID)
		if err != nil {
			return notFound(err, "pivot "+req.PivotID)
		}
		if err := principal.Require(domain.ScopeTripWrite, p.TripID); err != nil {
			return err
		}
		if p.Status.IsTerminal() {
			return domain.NewConflictError(fmt.Sprintf("pivot %s is already %s", p.ID, p.Status))
		}
		if m.cfg.Expiry > 0 && !p.CreatedAt.Add(m.cfg.Expiry).After(now) {
			stale = p
			return errPastWindow
		}
		out.Pivot = p

		if !req.Accept {
			if err := m.resolve(ctx, pivots, p, domain.PivotRejected, now); err != nil {
				return err
			}
			return signals.CreateBehavioral(ctx, &domain.BehavioralSignal{
				ID:           uuid.NewString(),
				TripID:       p.TripID,
				SlotID:       p.SlotID,
				PivotEventID: &p.ID,
				Kind:         domain.SignalPivotRejected,
				Weight:       domain.WeightRejected,
				CreatedAt:    now,
			})
		}

		chosen, ok := p.CandidateByRank(req.Rank)
		if !ok {
			return domain.NewValidationError(fmt.Sprintf("pivot %s has no candidate ranked %d", p.ID, req.Rank))
		}
		rank := req.Rank
		p.SelectedRank = &rank
		if err := m.resolve(ctx, pivots, p, domain.PivotAccepted, now); err != nil {
			return err
		}

		slots := repository.NewSQLiteSlotRepo(tx)
		if trip, err = repository.NewSQLiteTripRepo(tx).GetByID(ctx, p.TripID); err != nil {
			return notFound(err, "trip "+p.TripID)
		}
		target, err := slots.GetByID(ctx, p.SlotID)
		if err != nil {
			return notFound(err, "slot "+p.SlotID)
		}
		day, err := slots.ListByTripDay(ctx, p.TripID, target.DayNumber)
		if err != nil {
			return err
		}
		plan, err := cascade.Build(m.cfg.Cascade, cascade.Input{
			Trip:      trip,
			PivotID:   p.ID,
			Candidate: chosen,
			Target:    target,
			DaySlots:  day,
			Now:       now,
		})
		if err != nil {
			return err
		}
		if err := cascade.Apply(ctx, slots, plan); err != nil {
			return err
		}
		out.Plan = plan

		nodeID := chosen.ActivityNodeID
		if err := signals.CreateBehavioral(ctx, &domain.BehavioralSignal{
			ID:             uuid.NewString(),
			TripID:         p.TripID,
			SlotID:         p.SlotID,
			PivotEventID:   &p.ID,
			ActivityNodeID: &nodeID,
			Kind:           domain.SignalPivotAccepted,
			Weight:         domain.WeightAccepted,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		return signals.CreateIntention(ctx, &domain.IntentionSignal{
			ID:             uuid.NewString(),
			UserID:         principal.UserID,
			TripID:         p.TripID,
			SlotID:         p.SlotID,
			ActivityNodeID: nodeID,
			Source:         domain.SourceInferred,
			Confidence:     domain.ConfidenceAccepted,
			CreatedAt:      now,
		})
	})
	if errors.Is(err, errPastWindow) {
		return nil, m.expireStale(ctx, stale, now)
	}
	if err != nil {
		return nil, err
	}

	if out.Plan != nil && len(out.Plan.Overflow) > 0 {
		out.FollowUps = m.raiseOverflow(ctx, trip, out.Pivot, out.Plan.Overflow)
	}
	return out, nil
}

var errPastWindow = errors.New("pivot response window has passed")

// expireStale expires a pivot whose window ran out before the scanner got to
// it. The decision itself is always refused.
func (m *Machine) expireStale(ctx context.Context, p *domain.PivotEvent, now time.Time) error {
	won, err := m.expire(ctx, p, now)
	if err != nil {
		return err
	}
	if won {
		m.notify(ctx, domain.Notification{
			Kind:    domain.NotifyPivotExpired,
			TripID:  p.TripID,
			SlotID:  p.SlotID,
			PivotID: p.ID,
			At:      now,
		})
	}
	return domain.NewConflictError(fmt.Sprintf("pivot %s expired before a decision arrived", p.ID))
}

func (m *Machine) resolve(ctx context.Context, pivots *repository.SQLitePivotRepo, p *domain.PivotEvent, status domain.PivotStatus, at time.Time) error {
	if err := p.Resolve(status, at); err != nil {
		return err
	}
	won, err := pivots.Resolve(ctx, p)
	if err != nil {
		return err
	}
	if !won {
		return domain.NewConflictError(fmt.Sprintf("pivot %s was resolved concurrently", p.ID))
	}
	return nil
}

// raiseOverflow proposes a move to the next day for every slot the cascade
// pushed past the day end. Each is its own pivot, one level deeper than the
// accepted one.
func (m *Machine) raiseOverflow(ctx context.Context, trip *domain.Trip, parent *domain.PivotEvent, overflow []*domain.ItinerarySlot) []*domain.PivotEvent {
	var raised []*domain.PivotEvent
	for _, s := range overflow {
		var next []*domain.ItinerarySlot
		err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			var err error
			next, err = repository.NewSQLiteSlotRepo(tx).ListByTripDay(ctx, trip.ID, s.DayNumber+1)
			return err
		})
		if err != nil {
			m.logger.Error("loading next day for overflow", "slot_id", s.ID, "err", err)
			continue
		}
		parentID := parent.ID
		p, err := m.Propose(ctx, domain.SystemPrincipal(), ProposeRequest{
			Trigger: domain.Trigger{
				TripID:        trip.ID,
				SlotID:        s.ID,
				Type:          domain.TriggerDayOverflow,
				Reason:        "pushed past the end of the day",
				ParentPivotID: &parentID,
				DetectedAt:    m.now(),
			},
			Candidates: candidate.MoveDay(candidate.MoveDayRequest{
				Trip:         trip,
				Slot:         s,
				NextDaySlots: next,
				DayEndHour:   m.cfg.Cascade.DayEndHour,
				MinGap:       m.cfg.Cascade.MinGap,
			}),
		})
		if err != nil {
			m.logger.Warn("day overflow pivot not raised", "slot_id", s.ID, "parent_pivot_id", parent.ID, "err", err)
			continue
		}
		if p != nil {
			raised = append(raised, p)
		}
	}
	return raised
}

func (m *Machine) notify(ctx context.Context, n domain.Notification) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, n); err != nil {
		m.logger.Warn("notification failed", "kind", n.Kind, "pivot_id", n.PivotID, "err", err)
	}
}

func auditRecord(t domain.Trigger, kind domain.AuditKind, outcome string, at time.Time, meta map[string]any) *domain.AuditRecord {
	return &domain.AuditRecord{
		ID:        uuid.NewString(),
		TripID:    t.TripID,
		SlotID:    t.SlotID,
		Kind:      kind,
		Outcome:   outcome,
		Metadata:  meta,
		CreatedAt: at,
	}
}

// renumber copies the candidates with ranks 1..n in their given order.
func renumber(cs []domain.Candidate) []domain.Candidate {
	out := make([]domain.Candidate, len(cs))
	for i, c := range cs {
		c.Rank = i + 1
		out[i] = c
	}
	return out
}

func notFound(err error, what string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewNotFoundError(what+" not found", err)
	}
	return err
}
