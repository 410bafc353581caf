package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/importer"
	"github.com/alexanderramin/waypoint/internal/repository"
)

// ImportTrip validates an itinerary file and stores its trip, places and
// slots in one transaction. An empty owner defaults to the caller.
func (e *Engine) ImportTrip(ctx context.Context, principal domain.Principal, f *importer.TripFile) (it *importer.Itinerary, err error) {
	started := time.Now()
	fields := map[string]any{}
	defer e.observe(ctx, "import_trip", started, fields, &err)

	if err := principal.Require(domain.ScopeTripWrite, ""); err != nil {
		return nil, err
	}
	if f.Trip.OwnerUserID == "" {
		f.Trip.OwnerUserID = principal.UserID
	}
	if errs := importer.Validate(f); len(errs) > 0 {
		return nil, &domain.PivotError{
			Code:    domain.CodeValidation,
			Message: fmt.Sprintf("itinerary file has %d problem(s)", len(errs)),
			Err:     errors.Join(errs...),
		}
	}

	it, err = importer.Convert(f, e.now())
	if err != nil {
		return nil, err
	}

	err = e.uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
		nodes := repository.NewSQLiteActivityRepo(tx)
		for _, n := range it.Nodes {
			if err := nodes.Create(ctx, n); err != nil {
				return fmt.Errorf("creating activity %s: %w", n.Name, err)
			}
		}
		if err := repository.NewSQLiteTripRepo(tx).Create(ctx, it.Trip); err != nil {
			return fmt.Errorf("creating trip: %w", err)
		}
		slots := repository.NewSQLiteSlotRepo(tx)
		for _, s := range it.Slots {
			if err := slots.Create(ctx, s); err != nil {
				return fmt.Errorf("creating slot on day %d: %w", s.DayNumber, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	fields["trip_id"] = it.Trip.ID
	fields["activities"] = len(it.Nodes)
	fields["slots"] = len(it.Slots)
	return it, nil
}
