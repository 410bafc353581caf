package pivot

import (
	"context"
	"fmt"
	"time"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/repository"
	"github.com/google/uuid"
)

// ExpiryReport summarizes one expiry pass.
type ExpiryReport struct {
	Expired      []string
	ExpiringSoon []string
}

// ExpireDue expires every proposed pivot older than the configured window
// and sends the expiring-soon notice for those close to it. Each pivot is
// resolved in its own transaction; a pivot the traveler answered in the
// meantime is skipped without writing anything.
func (m *Machine) ExpireDue(ctx context.Context) (*ExpiryReport, error) {
	now := m.now()
	report := &ExpiryReport{}

	var due, soon []*domain.PivotEvent
	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		pivots := repository.NewSQLitePivotRepo(tx)
		var err error
		if due, err = pivots.ListProposedCreatedBefore(ctx, now.Add(-m.cfg.Expiry)); err != nil {
			return err
		}
		if m.cfg.ExpiringSoon > 0 && m.cfg.ExpiringSoon < m.cfg.Expiry {
			soon, err = pivots.ListExpiringUnnotified(ctx, now.Add(-(m.cfg.Expiry - m.cfg.ExpiringSoon)))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("listing due pivots: %w", err)
	}

	expired := map[string]bool{}
	for _, p := range due {
		won, err := m.expire(ctx, p, now)
		if err != nil {
			return report, err
		}
		if !won {
			continue
		}
		expired[p.ID] = true
		report.Expired = append(report.Expired, p.ID)
		m.notify(ctx, domain.Notification{
			Kind:    domain.NotifyPivotExpired,
			TripID:  p.TripID,
			SlotID:  p.SlotID,
			PivotID: p.ID,
			At:      now,
		})
	}

	for _, p := range soon {
		if expired[p.ID] {
			continue
		}
		var marked bool
		err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
			var err error
			marked, err = repository.NewSQLitePivotRepo(tx).MarkExpiringNotified(ctx, p.ID, now)
			return err
		})
		if err != nil {
			return report, err
		}
		if !marked {
			continue
		}
		report.ExpiringSoon = append(report.ExpiringSoon, p.ID)
		m.notify(ctx, domain.Notification{
			Kind:    domain.NotifyPivotExpiringSoon,
			TripID:  p.TripID,
			SlotID:  p.SlotID,
			PivotID: p.ID,
			At:      now,
			Detail:  map[string]any{"expires_at": p.CreatedAt.Add(m.cfg.Expiry)},
		})
	}

	if len(report.Expired) > 0 || len(report.ExpiringSoon) > 0 {
		m.logger.Info("expiry pass", "expired", len(report.Expired), "expiring_soon", len(report.ExpiringSoon))
	}
	return report, nil
}

func (m *Machine) expire(ctx context.Context, p *domain.PivotEvent, now time.Time) (bool, error) {
	var won bool
	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		if err := p.Resolve(domain.PivotExpired, now); err != nil {
			return err
		}
		var err error
		if won, err = repository.NewSQLitePivotRepo(tx).Resolve(ctx, p); err != nil || !won {
			return err
		}
		if err := repository.NewSQLiteSignalRepo(tx).CreateBehavioral(ctx, &domain.BehavioralSignal{
			ID:           uuid.NewString(),
			TripID:       p.TripID,
			SlotID:       p.SlotID,
			PivotEventID: &p.ID,
			Kind:         domain.SignalPivotExpired,
			Weight:       domain.WeightExpired,
			CreatedAt:    now,
		}); err != nil {
			return err
		}
		return repository.NewSQLiteAuditRepo(tx).Create(ctx, &domain.AuditRecord{
			ID:      uuid.NewString(),
			TripID:  p.TripID,
			SlotID:  p.SlotID,
			Kind:    domain.AuditPivotExpired,
			Outcome: "expired",
			Metadata: map[string]any{
				"pivot_id":     p.ID,
				"trigger_type": string(p.TriggerType),
				"age_ms":       now.Sub(p.CreatedAt).Milliseconds(),
			},
			CreatedAt: now,
		})
	})
	if err != nil {
		return false, fmt.Errorf("expiring pivot %s: %w", p.ID, err)
	}
	return won, nil
}

// Get loads one pivot with its full candidate set.
func (m *Machine) Get(ctx context.Context, principal domain.Principal, id string) (*domain.PivotEvent, error) {
	var p *domain.PivotEvent
	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		p, err = repository.NewSQLitePivotRepo(tx).GetByID(ctx, id)
		if err != nil {
			return notFound(err, "pivot "+id)
		}
		return principal.Require(domain.ScopeTripRead, p.TripID)
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns the trip's pivots newest first, optionally filtered by status.
func (m *Machine) List(ctx context.Context, principal domain.Principal, tripID string, status domain.PivotStatus) ([]*domain.PivotEvent, error) {
	if err := principal.Require(domain.ScopeTripRead, tripID); err != nil {
		return nil, err
	}
	var out []*domain.PivotEvent
	err := m.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		var err error
		out, err = repository.NewSQLitePivotRepo(tx).ListByTrip(ctx, tripID, status)
		return err
	})
	return out, err
}
