package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
)

// SQLiteFlagRepo stores injection flags and traveler content reports.
type SQLiteFlagRepo struct {
	db db.DBTX
}

func NewSQLiteFlagRepo(conn db.DBTX) *SQLiteFlagRepo {
	return &SQLiteFlagRepo{db: conn}
}

func (r *SQLiteFlagRepo) CreateInjection(ctx context.Context, f *domain.InjectionFlag) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO injection_flags
		(id, trip_id, user_id, pattern_class, text_length, review_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.TripID, f.UserID, f.PatternClass, f.TextLength, string(f.ReviewStatus), formatTime(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting injection flag: %w", err)
	}
	return nil
}

func (r *SQLiteFlagRepo) ListPendingInjections(ctx context.Context) ([]*domain.InjectionFlag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, trip_id, user_id, pattern_class, text_length, review_status, created_at
		FROM injection_flags WHERE review_status = 'pending' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing injection flags: %w", err)
	}
	defer rows.Close()

	var out []*domain.InjectionFlag
	for rows.Next() {
		var f domain.InjectionFlag
		var review, createdStr string
		if err := rows.Scan(&f.ID, &f.TripID, &f.UserID, &f.PatternClass, &f.TextLength, &review, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning injection flag: %w", err)
		}
		f.ReviewStatus = domain.ReviewStatus(review)
		if f.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating injection flags: %w", err)
	}
	return out, nil
}

func (r *SQLiteFlagRepo) CreateContent(ctx context.Context, f *domain.ContentFlag) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO content_flags
		(id, activity_node_id, slot_id, reporter_user_id, note, review_status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.ID, f.ActivityNodeID, f.SlotID, f.ReporterUserID, f.Note, string(f.ReviewStatus), formatTime(f.CreatedAt))
	if err != nil {
		return fmt.Errorf("inserting content flag: %w", err)
	}
	return nil
}

func (r *SQLiteFlagRepo) ListPendingContent(ctx context.Context) ([]*domain.ContentFlag, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, activity_node_id, slot_id, reporter_user_id, note, review_status, created_at
		FROM content_flags WHERE review_status = 'pending' ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("listing content flags: %w", err)
	}
	defer rows.Close()

	var out []*domain.ContentFlag
	for rows.Next() {
		var f domain.ContentFlag
		var review, createdStr string
		if err := rows.Scan(&f.ID, &f.ActivityNodeID, &f.SlotID, &f.ReporterUserID, &f.Note, &review, &createdStr); err != nil {
			return nil, fmt.Errorf("scanning content flag: %w", err)
		}
		f.ReviewStatus = domain.ReviewStatus(review)
		if f.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating content flags: %w", err)
	}
	return out, nil
}
