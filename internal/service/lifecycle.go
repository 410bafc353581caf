package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/alexanderramin/waypoint/internal/repository"
	"github.com/alexanderramin/waypoint/internal/trust"
)

// Decide applies the traveler's answer to a pending pivot.
func (e *Engine) Decide(ctx context.Context, principal domain.Principal, req pivot.DecideRequest) (d *pivot.Decision, err error) {
	started := time.Now()
	fields := map[string]any{"pivot_id": req.PivotID, "accept": req.Accept}
	defer e.observe(ctx, "decide_pivot", started, fields, &err)

	d, err = e.machine.Decide(ctx, principal, req)
	if err != nil {
		return nil, err
	}
	outcome := "rejected"
	if req.Accept {
		outcome = "accepted"
	}
	e.metrics.Pivots.WithLabelValues(outcome).Inc()
	for range d.FollowUps {
		e.metrics.Triggers.WithLabelValues(string(domain.TriggerDayOverflow)).Inc()
		e.metrics.Pivots.WithLabelValues(string(OutcomeProposed)).Inc()
	}
	fields["follow_ups"] = len(d.FollowUps)
	return d, nil
}

func (e *Engine) ListPivots(ctx context.Context, principal domain.Principal, tripID string, status domain.PivotStatus) (ps []*domain.PivotEvent, err error) {
	started := time.Now()
	defer e.observe(ctx, "list_pivots", started, map[string]any{"trip_id": tripID}, &err)
	return e.machine.List(ctx, principal, tripID, status)
}

// Pivot returns one pivot with its full ordered candidate set.
func (e *Engine) Pivot(ctx context.Context, principal domain.Principal, pivotID string) (p *domain.PivotEvent, err error) {
	started := time.Now()
	defer e.observe(ctx, "get_pivot", started, map[string]any{"pivot_id": pivotID}, &err)
	return e.machine.Get(ctx, principal, pivotID)
}

// ExpireDue runs one expiry pass. It satisfies pivot.Expirer so the
// scanner can drive it.
func (e *Engine) ExpireDue(ctx context.Context) (r *pivot.ExpiryReport, err error) {
	started := time.Now()
	fields := map[string]any{}
	defer e.observe(ctx, "expire_due", started, fields, &err)

	r, err = e.machine.ExpireDue(ctx)
	if err != nil {
		return r, err
	}
	e.metrics.Pivots.WithLabelValues("expired").Add(float64(len(r.Expired)))
	fields["expired"] = len(r.Expired)
	fields["expiring_soon"] = len(r.ExpiringSoon)
	return r, nil
}

// Flag records a traveler's report on a slot.
func (e *Engine) Flag(ctx context.Context, principal domain.Principal, rep trust.Report) (o *trust.Outcome, err error) {
	started := time.Now()
	defer e.observe(ctx, "flag_slot", started, map[string]any{"slot_id": rep.SlotID, "kind": string(rep.Kind)}, &err)
	return e.resolver.Resolve(ctx, principal, rep)
}

func (e *Engine) ReviewQueue(ctx context.Context, principal domain.Principal) (q *trust.Queue, err error) {
	started := time.Now()
	defer e.observe(ctx, "review_queue", started, nil, &err)
	return e.resolver.ListReviewQueue(ctx, principal)
}

// Audit lists a trip's audit trail, newest first.
func (e *Engine) Audit(ctx context.Context, principal domain.Principal, tripID string, limit int) (out []*domain.AuditRecord, err error) {
	started := time.Now()
	defer e.observe(ctx, "list_audit", started, map[string]any{"trip_id": tripID}, &err)

	if err := principal.Require(domain.ScopeTripRead, tripID); err != nil {
		return nil, err
	}
	err = e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLiteTripRepo(tx).GetByID(ctx, tripID); err != nil {
			return tripNotFound(err, tripID)
		}
		var err error
		out, err = repository.NewSQLiteAuditRepo(tx).ListByTrip(ctx, tripID, limit)
		return err
	})
	return out, err
}

func (e *Engine) RecordWeather(ctx context.Context, principal domain.Principal, w domain.WeatherSnapshot) (err error) {
	started := time.Now()
	defer e.observe(ctx, "record_weather", started, map[string]any{"trip_id": w.TripID}, &err)

	if err := principal.Require(domain.ScopeTripWrite, w.TripID); err != nil {
		return err
	}
	if w.OutdoorRisk < 0 || w.OutdoorRisk > 1 {
		return domain.NewValidationError(fmt.Sprintf("outdoor risk must be in [0,1], got %v", w.OutdoorRisk))
	}
	if w.ObservedAt.IsZero() {
		w.ObservedAt = e.now()
	}
	return e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLiteTripRepo(tx).GetByID(ctx, w.TripID); err != nil {
			return tripNotFound(err, w.TripID)
		}
		return repository.NewSQLiteSnapshotRepo(tx).RecordWeather(ctx, &w)
	})
}

func (e *Engine) RecordLocation(ctx context.Context, principal domain.Principal, l domain.LocationSnapshot) (err error) {
	started := time.Now()
	defer e.observe(ctx, "record_location", started, map[string]any{"trip_id": l.TripID}, &err)

	if err := principal.Require(domain.ScopeTripWrite, l.TripID); err != nil {
		return err
	}
	if err := l.Location.Validate(); err != nil {
		return err
	}
	if l.ObservedAt.IsZero() {
		l.ObservedAt = e.now()
	}
	return e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if _, err := repository.NewSQLiteTripRepo(tx).GetByID(ctx, l.TripID); err != nil {
			return tripNotFound(err, l.TripID)
		}
		return repository.NewSQLiteSnapshotRepo(tx).RecordLocation(ctx, &l)
	})
}

// RecordMood stores a 1 to 5 satisfaction rating on a slot.
func (e *Engine) RecordMood(ctx context.Context, principal domain.Principal, m domain.MoodReport) (err error) {
	started := time.Now()
	defer e.observe(ctx, "record_mood", started, map[string]any{"slot_id": m.SlotID}, &err)

	if m.Score < 1 || m.Score > 5 {
		return domain.NewValidationError(fmt.Sprintf("mood score must be in [1,5], got %d", m.Score))
	}
	if m.ReportedAt.IsZero() {
		m.ReportedAt = e.now()
	}
	return e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		slot, err := repository.NewSQLiteSlotRepo(tx).GetByID(ctx, m.SlotID)
		if errors.Is(err, domain.ErrNotFound) {
			return domain.NewNotFoundError("slot "+m.SlotID+" not found", err)
		}
		if err != nil {
			return err
		}
		if err := principal.Require(domain.ScopeTripWrite, slot.TripID); err != nil {
			return err
		}
		return repository.NewSQLiteSnapshotRepo(tx).RecordMood(ctx, &m)
	})
}

func tripNotFound(err error, tripID string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewNotFoundError("trip "+tripID+" not found", err)
	}
	return err
}
