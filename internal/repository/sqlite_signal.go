package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
)

// SQLiteSignalRepo stores the append-only training tables. It exposes
// inserts and listings only.
type SQLiteSignalRepo struct {
	db db.DBTX
}

func NewSQLiteSignalRepo(conn db.DBTX) *SQLiteSignalRepo {
	return &SQLiteSignalRepo{db: conn}
}

func (r *SQLiteSignalRepo) CreateBehavioral(ctx context.Context, s *domain.BehavioralSignal) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO behavioral_signals
		(id, trip_id, slot_id, pivot_event_id, activity_node_id, kind, weight, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.TripID, s.SlotID,
		nullableStringToValue(s.PivotEventID),
		nullableStringToValue(s.ActivityNodeID),
		string(s.Kind), s.Weight, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting behavioral signal: %w", err)
	}
	return nil
}

func (r *SQLiteSignalRepo) ListBehavioralByTrip(ctx context.Context, tripID string) ([]*domain.BehavioralSignal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, trip_id, slot_id, pivot_event_id, activity_node_id, kind, weight, created_at
		FROM behavioral_signals WHERE trip_id = ? ORDER BY created_at, id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("listing behavioral signals: %w", err)
	}
	defer rows.Close()

	var out []*domain.BehavioralSignal
	for rows.Next() {
		var s domain.BehavioralSignal
		var pivotID, nodeID sql.NullString
		var kind, createdStr string
		if err := rows.Scan(&s.ID, &s.TripID, &s.SlotID, &pivotID, &nodeID, &kind, &s.Weight, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning behavioral signal: %w", err)
		}
		s.PivotEventID = nullStringPtr(pivotID)
		s.ActivityNodeID = nullStringPtr(nodeID)
		s.Kind = domain.SignalKind(kind)
		if s.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating behavioral signals: %w", err)
	}
	return out, nil
}

func (r *SQLiteSignalRepo) CreateIntention(ctx context.Context, s *domain.IntentionSignal) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO intention_signals
		(id, user_id, trip_id, slot_id, activity_node_id, source, confidence, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID, s.TripID, s.SlotID, s.ActivityNodeID,
		string(s.Source), s.Confidence, formatTime(s.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting intention signal: %w", err)
	}
	return nil
}

func (r *SQLiteSignalRepo) ListIntentionByTrip(ctx context.Context, tripID string) ([]*domain.IntentionSignal, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, user_id, trip_id, slot_id, activity_node_id, source, confidence, created_at
		FROM intention_signals WHERE trip_id = ? ORDER BY created_at, id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("listing intention signals: %w", err)
	}
	defer rows.Close()

	var out []*domain.IntentionSignal
	for rows.Next() {
		var s domain.IntentionSignal
		var source, createdStr string
		if err := rows.Scan(&s.ID, &s.UserID, &s.TripID, &s.SlotID, &s.ActivityNodeID, &source, &s.Confidence, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning intention signal: %w", err)
		}
		s.Source = domain.SignalSource(source)
		if s.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating intention signals: %w", err)
	}
	return out, nil
}

func (r *SQLiteSignalRepo) CreateRawEvent(ctx context.Context, e *domain.RawEvent) error {
	payload, err := encodeMetadata(e.Payload)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO raw_events (id, trip_id, kind, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		e.ID, e.TripID, e.Kind, payload, formatTime(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting raw event: %w", err)
	}
	return nil
}

func (r *SQLiteSignalRepo) ListRawEventsByTrip(ctx context.Context, tripID string) ([]*domain.RawEvent, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, trip_id, kind, payload, created_at
		FROM raw_events WHERE trip_id = ? ORDER BY created_at, id`, tripID)
	if err != nil {
		return nil, fmt.Errorf("listing raw events: %w", err)
	}
	defer rows.Close()

	var out []*domain.RawEvent
	for rows.Next() {
		var e domain.RawEvent
		var payload, createdStr string
		if err := rows.Scan(&e.ID, &e.TripID, &e.Kind, &payload, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning raw event: %w", err)
		}
		if e.Payload, err = decodeMetadata(payload); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating raw events: %w", err)
	}
	return out, nil
}
