package cascade

import (
	"context"
	"errors"
	"fmt"

	"github.com/alexanderramin/waypoint/internal/domain"
)

// SlotStore is the slot access Apply needs. Pass a tx-scoped repository so
// the whole plan commits or rolls back together.
type SlotStore interface {
	GetByID(ctx context.Context, id string) (*domain.ItinerarySlot, error)
	Create(ctx context.Context, s *domain.ItinerarySlot) error
	Update(ctx context.Context, s *domain.ItinerarySlot) error
}

// Apply writes the plan. Every slot is re-read first; one that was locked
// or settled since planning aborts with a DATA_INTEGRITY error and the
// caller's transaction rolls back.
func Apply(ctx context.Context, slots SlotStore, plan *Plan) error {
	for _, s := range plan.Touched() {
		current, err := slots.GetByID(ctx, s.ID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.NewDataIntegrityError(fmt.Sprintf("slot %s disappeared during cascade", s.ID))
			}
			return fmt.Errorf("reloading slot %s: %w", s.ID, err)
		}
		if current.Locked {
			return domain.NewDataIntegrityError(fmt.Sprintf("slot %s is locked", s.ID))
		}
		if current.IsSettled() {
			return domain.NewDataIntegrityError(fmt.Sprintf("slot %s is already %s", s.ID, current.Status))
		}
	}

	if plan.Target != nil {
		if err := slots.Update(ctx, plan.Target); err != nil {
			return fmt.Errorf("updating target slot: %w", err)
		}
	}
	if plan.Inserted != nil {
		if err := slots.Create(ctx, plan.Inserted); err != nil {
			return fmt.Errorf("inserting micro-stop: %w", err)
		}
	}
	for _, sh := range plan.Shifts {
		if err := slots.Update(ctx, sh.Slot); err != nil {
			return fmt.Errorf("shifting slot %s: %w", sh.Slot.ID, err)
		}
	}
	return nil
}
