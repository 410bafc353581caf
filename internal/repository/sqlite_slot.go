package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
)

// SQLiteSlotRepo implements SlotRepo using a SQLite database.
type SQLiteSlotRepo struct {
	db db.DBTX
}

func NewSQLiteSlotRepo(conn db.DBTX) *SQLiteSlotRepo {
	return &SQLiteSlotRepo{db: conn}
}

const slotColumns = `id, trip_id, day_number, start_time, end_time, activity_node_id, status,
	locked, was_swapped, pivot_event_id, flexible, created_at, updated_at`

func (r *SQLiteSlotRepo) Create(ctx context.Context, s *domain.ItinerarySlot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	query := `INSERT INTO itinerary_slots (` + slotColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.TripID,
		s.DayNumber,
		formatTime(s.StartTime),
		formatTime(s.EndTime),
		s.ActivityNodeID,
		string(s.Status),
		boolToInt(s.Locked),
		boolToInt(s.WasSwapped),
		nullableStringToValue(s.PivotEventID),
		boolToInt(s.Flexible),
		formatTime(s.CreatedAt),
		formatTime(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting slot: %w", err)
	}
	return nil
}

func (r *SQLiteSlotRepo) GetByID(ctx context.Context, id string) (*domain.ItinerarySlot, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+slotColumns+` FROM itinerary_slots WHERE id = ?`, id)
	s, err := scanSlot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("slot %s: %w", id, ErrNotFound)
	}
	return s, err
}

func (r *SQLiteSlotRepo) ListByTrip(ctx context.Context, tripID string) ([]*domain.ItinerarySlot, error) {
	return r.list(ctx,
		`SELECT `+slotColumns+` FROM itinerary_slots WHERE trip_id = ? ORDER BY day_number, start_time, id`,
		tripID)
}

func (r *SQLiteSlotRepo) ListByTripDay(ctx context.Context, tripID string, dayNumber int) ([]*domain.ItinerarySlot, error) {
	return r.list(ctx,
		`SELECT `+slotColumns+` FROM itinerary_slots WHERE trip_id = ? AND day_number = ? ORDER BY start_time, id`,
		tripID, dayNumber)
}

// Update writes every mutable column. Locking is enforced by callers; the
// repository persists whatever the domain layer has already validated.
func (r *SQLiteSlotRepo) Update(ctx context.Context, s *domain.ItinerarySlot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	query := `UPDATE itinerary_slots SET day_number = ?, start_time = ?, end_time = ?, activity_node_id = ?,
		status = ?, locked = ?, was_swapped = ?, pivot_event_id = ?, flexible = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		s.DayNumber,
		formatTime(s.StartTime),
		formatTime(s.EndTime),
		s.ActivityNodeID,
		string(s.Status),
		boolToInt(s.Locked),
		boolToInt(s.WasSwapped),
		nullableStringToValue(s.PivotEventID),
		boolToInt(s.Flexible),
		formatTime(s.UpdatedAt),
		s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating slot: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("slot %s: %w", s.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteSlotRepo) list(ctx context.Context, query string, args ...any) ([]*domain.ItinerarySlot, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing slots: %w", err)
	}
	defer rows.Close()

	var slots []*domain.ItinerarySlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating slots: %w", err)
	}
	return slots, nil
}

func scanSlot(sc scanner) (*domain.ItinerarySlot, error) {
	var s domain.ItinerarySlot
	var startStr, endStr, status, createdStr, updatedStr string
	var locked, swapped, flexible int
	var pivotID sql.NullString

	err := sc.Scan(&s.ID, &s.TripID, &s.DayNumber, &startStr, &endStr, &s.ActivityNodeID, &status,
		&locked, &swapped, &pivotID, &flexible, &createdStr, &updatedStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning slot: %w", err)
	}
	s.Status = domain.SlotStatus(status)
	s.Locked = intToBool(locked)
	s.WasSwapped = intToBool(swapped)
	s.Flexible = intToBool(flexible)
	s.PivotEventID = nullStringPtr(pivotID)

	if s.StartTime, err = parseTime(startStr, "start_time"); err != nil {
		return nil, err
	}
	if s.EndTime, err = parseTime(endStr, "end_time"); err != nil {
		return nil, err
	}
	if s.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTime(updatedStr, "updated_at"); err != nil {
		return nil, err
	}
	return &s, nil
}
