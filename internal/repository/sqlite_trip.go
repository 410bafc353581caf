package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
)

// SQLiteTripRepo implements TripRepo using a SQLite database.
type SQLiteTripRepo struct {
	db db.DBTX
}

func NewSQLiteTripRepo(conn db.DBTX) *SQLiteTripRepo {
	return &SQLiteTripRepo{db: conn}
}

const tripColumns = `id, owner_user_id, timezone, status, start_date, end_date, created_at, updated_at`

func (r *SQLiteTripRepo) Create(ctx context.Context, t *domain.Trip) error {
	query := `INSERT INTO trips (` + tripColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.OwnerUserID,
		t.Timezone,
		string(t.Status),
		t.StartDate.Format(dateLayout),
		t.EndDate.Format(dateLayout),
		formatTime(t.CreatedAt),
		formatTime(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting trip: %w", err)
	}
	return nil
}

func (r *SQLiteTripRepo) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+tripColumns+` FROM trips WHERE id = ?`, id)
	t, err := scanTrip(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	return t, err
}

func (r *SQLiteTripRepo) ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+tripColumns+` FROM trips WHERE status = ? ORDER BY start_date, id`, string(status))
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating trips: %w", err)
	}
	return trips, nil
}

func (r *SQLiteTripRepo) UpdateStatus(ctx context.Context, id string, status domain.TripStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE trips SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("updating trip status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trip %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanTrip(s scanner) (*domain.Trip, error) {
	var t domain.Trip
	var status, startStr, endStr, createdStr, updatedStr string
	if err := s.Scan(&t.ID, &t.OwnerUserID, &t.Timezone, &status, &startStr, &endStr, &createdStr, &updatedStr); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning trip: %w", err)
	}
	t.Status = domain.TripStatus(status)

	var err error
	if t.StartDate, err = time.Parse(dateLayout, startStr); err != nil {
		return nil, fmt.Errorf("parsing start_date: %w", err)
	}
	if t.EndDate, err = time.Parse(dateLayout, endStr); err != nil {
		return nil, fmt.Errorf("parsing end_date: %w", err)
	}
	if t.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTime(updatedStr, "updated_at"); err != nil {
		return nil, err
	}
	return &t, nil
}
