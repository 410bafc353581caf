package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
)

// SQLiteAuditRepo implements AuditRepo using a SQLite database.
type SQLiteAuditRepo struct {
	db db.DBTX
}

func NewSQLiteAuditRepo(conn db.DBTX) *SQLiteAuditRepo {
	return &SQLiteAuditRepo{db: conn}
}

func (r *SQLiteAuditRepo) Create(ctx context.Context, a *domain.AuditRecord) error {
	meta, err := encodeMetadata(a.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO audit_records (id, trip_id, slot_id, kind, outcome, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TripID, a.SlotID, string(a.Kind), a.Outcome, meta, formatTime(a.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting audit record: %w", err)
	}
	return nil
}

// ListByTrip returns the newest records first; limit <= 0 means no limit.
func (r *SQLiteAuditRepo) ListByTrip(ctx context.Context, tripID string, limit int) ([]*domain.AuditRecord, error) {
	return r.list(ctx, `WHERE trip_id = ?`, tripID, limit)
}

func (r *SQLiteAuditRepo) ListByKind(ctx context.Context, kind domain.AuditKind, limit int) ([]*domain.AuditRecord, error) {
	return r.list(ctx, `WHERE kind = ?`, string(kind), limit)
}

func (r *SQLiteAuditRepo) list(ctx context.Context, where string, arg any, limit int) ([]*domain.AuditRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `SELECT id, trip_id, slot_id, kind, outcome, metadata, created_at
		FROM audit_records `+where+` ORDER BY created_at DESC, id LIMIT ?`, arg, limit)
	if err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	defer rows.Close()

	var out []*domain.AuditRecord
	for rows.Next() {
		var a domain.AuditRecord
		var kind, meta, createdStr string
		if err := rows.Scan(&a.ID, &a.TripID, &a.SlotID, &kind, &a.Outcome, &meta, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning audit record: %w", err)
		}
		a.Kind = domain.AuditKind(kind)
		if a.Metadata, err = decodeMetadata(meta); err != nil {
			return nil, err
		}
		if a.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit records: %w", err)
	}
	return out, nil
}
