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

// SQLiteSnapshotRepo stores the periodic weather/location snapshots and mood
// reports the trigger detector evaluates.
type SQLiteSnapshotRepo struct {
	db db.DBTX
}

func NewSQLiteSnapshotRepo(conn db.DBTX) *SQLiteSnapshotRepo {
	return &SQLiteSnapshotRepo{db: conn}
}

func (r *SQLiteSnapshotRepo) RecordWeather(ctx context.Context, w *domain.WeatherSnapshot) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO weather_snapshots (trip_id, condition, outdoor_risk, observed_at)
		VALUES (?, ?, ?, ?)`, w.TripID, w.Condition, w.OutdoorRisk, formatTime(w.ObservedAt))
	if err != nil {
		return fmt.Errorf("inserting weather snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteSnapshotRepo) LatestWeather(ctx context.Context, tripID string) (*domain.WeatherSnapshot, error) {
	var w domain.WeatherSnapshot
	var observed string
	err := r.db.QueryRowContext(ctx, `SELECT trip_id, condition, outdoor_risk, observed_at FROM weather_snapshots
		WHERE trip_id = ? ORDER BY observed_at DESC LIMIT 1`, tripID).
		Scan(&w.TripID, &w.Condition, &w.OutdoorRisk, &observed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("weather for trip %s: %w", tripID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading weather snapshot: %w", err)
	}
	if w.ObservedAt, err = parseTime(observed, "observed_at"); err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *SQLiteSnapshotRepo) RecordLocation(ctx context.Context, l *domain.LocationSnapshot) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO location_snapshots (trip_id, lat, lng, observed_at)
		VALUES (?, ?, ?, ?)`, l.TripID, l.Location.Lat, l.Location.Lng, formatTime(l.ObservedAt))
	if err != nil {
		return fmt.Errorf("inserting location snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteSnapshotRepo) LatestLocation(ctx context.Context, tripID string) (*domain.LocationSnapshot, error) {
	var l domain.LocationSnapshot
	var observed string
	err := r.db.QueryRowContext(ctx, `SELECT trip_id, lat, lng, observed_at FROM location_snapshots
		WHERE trip_id = ? ORDER BY observed_at DESC LIMIT 1`, tripID).
		Scan(&l.TripID, &l.Location.Lat, &l.Location.Lng, &observed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("location for trip %s: %w", tripID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading location snapshot: %w", err)
	}
	if l.ObservedAt, err = parseTime(observed, "observed_at"); err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *SQLiteSnapshotRepo) RecordMood(ctx context.Context, m *domain.MoodReport) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO mood_reports (slot_id, score, reported_at) VALUES (?, ?, ?)`,
		m.SlotID, m.Score, formatTime(m.ReportedAt))
	if err != nil {
		return fmt.Errorf("inserting mood report: %w", err)
	}
	return nil
}

func (r *SQLiteSnapshotRepo) ListMoodByTripSince(ctx context.Context, tripID string, since time.Time) ([]domain.MoodReport, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT m.slot_id, m.score, m.reported_at FROM mood_reports m
		JOIN itinerary_slots s ON s.id = m.slot_id
		WHERE s.trip_id = ? AND m.reported_at >= ?
		ORDER BY m.reported_at`, tripID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("listing mood reports: %w", err)
	}
	defer rows.Close()

	var out []domain.MoodReport
	for rows.Next() {
		var m domain.MoodReport
		var reported string
		if err := rows.Scan(&m.SlotID, &m.Score, &reported); err != nil {
			return nil, fmt.Errorf("scanning mood report: %w", err)
		}
		if m.ReportedAt, err = parseTime(reported, "reported_at"); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating mood reports: %w", err)
	}
	return out, nil
}
