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

// SQLitePivotRepo implements PivotRepo using a SQLite database. Candidate
// sets live in pivot_candidates and are loaded with every event.
type SQLitePivotRepo struct {
	db db.DBTX
}

func NewSQLitePivotRepo(conn db.DBTX) *SQLitePivotRepo {
	return &SQLitePivotRepo{db: conn}
}

const pivotColumns = `id, trip_id, slot_id, trigger_type, depth, parent_pivot_id, status,
	selected_rank, response_time_ms, expiring_notified_at, created_at, resolved_at`

// Create inserts the event and then its candidates. Callers wanting
// atomicity run it inside a UnitOfWork.
func (r *SQLitePivotRepo) Create(ctx context.Context, p *domain.PivotEvent) error {
	query := `INSERT INTO pivot_events (` + pivotColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.TripID,
		p.SlotID,
		string(p.TriggerType),
		p.Depth,
		nullableStringToValue(p.ParentPivotID),
		string(p.Status),
		nullableIntToValue(p.SelectedRank),
		nullableInt64ToValue(p.ResponseTimeMs),
		nullableTimeToString(p.ExpiringNotifiedAt),
		formatTime(p.CreatedAt),
		nullableTimeToString(p.ResolvedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return &domain.PivotError{
				Code:    domain.CodeConflict,
				Message: fmt.Sprintf("a change is already pending for slot %s", p.SlotID),
				Err:     err,
			}
		}
		return fmt.Errorf("inserting pivot event: %w", err)
	}

	for _, c := range p.Candidates {
		_, err := r.db.ExecContext(ctx, `INSERT INTO pivot_candidates (pivot_event_id, rank, kind, activity_node_id,
			category, score, distance_m, duration_min, start_time, end_time, day_number)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			p.ID, c.Rank, string(c.Kind), c.ActivityNodeID, c.Category, c.Score, c.DistanceM,
			c.DurationMin, formatTime(c.StartTime), formatTime(c.EndTime), c.DayNumber)
		if err != nil {
			return fmt.Errorf("inserting pivot candidate %d: %w", c.Rank, err)
		}
	}
	return nil
}

func (r *SQLitePivotRepo) GetByID(ctx context.Context, id string) (*domain.PivotEvent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+pivotColumns+` FROM pivot_events WHERE id = ?`, id)
	p, err := scanPivot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pivot %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadCandidates(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *SQLitePivotRepo) GetProposedBySlot(ctx context.Context, slotID string) (*domain.PivotEvent, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+pivotColumns+` FROM pivot_events WHERE slot_id = ? AND status = 'proposed'`, slotID)
	p, err := scanPivot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("proposed pivot for slot %s: %w", slotID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	if err := r.loadCandidates(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListByTrip returns the trip's pivots newest first. An empty status lists all.
func (r *SQLitePivotRepo) ListByTrip(ctx context.Context, tripID string, status domain.PivotStatus) ([]*domain.PivotEvent, error) {
	query := `SELECT ` + pivotColumns + ` FROM pivot_events WHERE trip_id = ?`
	args := []any{tripID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id`
	return r.list(ctx, query, args...)
}

func (r *SQLitePivotRepo) Resolve(ctx context.Context, p *domain.PivotEvent) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pivot_events SET status = ?, selected_rank = ?, response_time_ms = ?, resolved_at = ?
		 WHERE id = ? AND status = 'proposed'`,
		string(p.Status),
		nullableIntToValue(p.SelectedRank),
		nullableInt64ToValue(p.ResponseTimeMs),
		nullableTimeToString(p.ResolvedAt),
		p.ID,
	)
	if err != nil {
		return false, fmt.Errorf("resolving pivot: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("resolving pivot: %w", err)
	}
	return n == 1, nil
}

func (r *SQLitePivotRepo) ListProposedCreatedBefore(ctx context.Context, cutoff time.Time) ([]*domain.PivotEvent, error) {
	return r.list(ctx,
		`SELECT `+pivotColumns+` FROM pivot_events WHERE status = 'proposed' AND created_at <= ? ORDER BY created_at, id`,
		formatTime(cutoff))
}

func (r *SQLitePivotRepo) ListExpiringUnnotified(ctx context.Context, cutoff time.Time) ([]*domain.PivotEvent, error) {
	return r.list(ctx,
		`SELECT `+pivotColumns+` FROM pivot_events
		 WHERE status = 'proposed' AND expiring_notified_at IS NULL AND created_at <= ?
		 ORDER BY created_at, id`,
		formatTime(cutoff))
}

func (r *SQLitePivotRepo) MarkExpiringNotified(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE pivot_events SET expiring_notified_at = ?
		 WHERE id = ? AND status = 'proposed' AND expiring_notified_at IS NULL`,
		formatTime(at), id)
	if err != nil {
		return false, fmt.Errorf("marking pivot expiring: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking pivot expiring: %w", err)
	}
	return n == 1, nil
}

// ListRejectedNodeIDs returns every node shown as a candidate in a rejected
// pivot on the trip.
func (r *SQLitePivotRepo) ListRejectedNodeIDs(ctx context.Context, tripID string) (map[string]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT c.activity_node_id FROM pivot_candidates c
		 JOIN pivot_events p ON p.id = c.pivot_event_id
		 WHERE p.trip_id = ? AND p.status = 'rejected'`, tripID)
	if err != nil {
		return nil, fmt.Errorf("listing rejected nodes: %w", err)
	}
	defer rows.Close()

	out := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning rejected node: %w", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rejected nodes: %w", err)
	}
	return out, nil
}

func (r *SQLitePivotRepo) list(ctx context.Context, query string, args ...any) ([]*domain.PivotEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing pivots: %w", err)
	}
	var pivots []*domain.PivotEvent
	for rows.Next() {
		p, err := scanPivot(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		pivots = append(pivots, p)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterating pivots: %w", err)
	}
	// Close before loading candidates: the in-memory database has one connection.
	rows.Close()

	for _, p := range pivots {
		if err := r.loadCandidates(ctx, p); err != nil {
			return nil, err
		}
	}
	return pivots, nil
}

func (r *SQLitePivotRepo) loadCandidates(ctx context.Context, p *domain.PivotEvent) error {
	rows, err := r.db.QueryContext(ctx,
		`SELECT rank, kind, activity_node_id, category, score, distance_m, duration_min, start_time, end_time, day_number
		 FROM pivot_candidates WHERE pivot_event_id = ? ORDER BY rank`, p.ID)
	if err != nil {
		return fmt.Errorf("loading candidates: %w", err)
	}
	defer rows.Close()

	p.Candidates = nil
	for rows.Next() {
		var c domain.Candidate
		var kind, startStr, endStr string
		if err := rows.Scan(&c.Rank, &kind, &c.ActivityNodeID, &c.Category, &c.Score, &c.DistanceM,
			&c.DurationMin, &startStr, &endStr, &c.DayNumber); err != nil {
			return fmt.Errorf("scanning candidate: %w", err)
		}
		c.Kind = domain.CandidateKind(kind)
		if c.StartTime, err = parseTime(startStr, "candidate start_time"); err != nil {
			return err
		}
		if c.EndTime, err = parseTime(endStr, "candidate end_time"); err != nil {
			return err
		}
		p.Candidates = append(p.Candidates, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating candidates: %w", err)
	}
	return nil
}

func scanPivot(s scanner) (*domain.PivotEvent, error) {
	var p domain.PivotEvent
	var trigger, status, createdStr string
	var parentID, notifiedStr, resolvedStr sql.NullString
	var rank sql.NullInt64
	var responseMs sql.NullInt64

	err := s.Scan(&p.ID, &p.TripID, &p.SlotID, &trigger, &p.Depth, &parentID, &status,
		&rank, &responseMs, &notifiedStr, &createdStr, &resolvedStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning pivot: %w", err)
	}
	p.TriggerType = domain.TriggerType(trigger)
	p.Status = domain.PivotStatus(status)
	p.ParentPivotID = nullStringPtr(parentID)
	if rank.Valid {
		v := int(rank.Int64)
		p.SelectedRank = &v
	}
	if responseMs.Valid {
		v := responseMs.Int64
		p.ResponseTimeMs = &v
	}
	p.ExpiringNotifiedAt = parseNullableTime(notifiedStr)
	p.ResolvedAt = parseNullableTime(resolvedStr)
	if p.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
		return nil, err
	}
	return &p, nil
}
