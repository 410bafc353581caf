package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alexanderramin/waypoint/internal/db"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/geo"
)

// SQLiteActivityRepo implements ActivityRepo using a SQLite database.
type SQLiteActivityRepo struct {
	db db.DBTX
}

func NewSQLiteActivityRepo(conn db.DBTX) *SQLiteActivityRepo {
	return &SQLiteActivityRepo{db: conn}
}

const activityColumns = `id, name, lat, lng, category, tags, quality_score, typical_duration_min,
	is_active, review_status, created_at, updated_at`

func (r *SQLiteActivityRepo) Create(ctx context.Context, n *domain.ActivityNode) error {
	query := `INSERT INTO activity_nodes (` + activityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		n.ID,
		n.Name,
		n.Location.Lat,
		n.Location.Lng,
		n.Category,
		joinTags(n.Tags),
		n.QualityScore,
		n.TypicalDurationMin,
		boolToInt(n.IsActive),
		string(n.ReviewStatus),
		formatTime(n.CreatedAt),
		formatTime(n.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting activity node: %w", err)
	}
	return nil
}

func (r *SQLiteActivityRepo) GetByID(ctx context.Context, id string) (*domain.ActivityNode, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activity_nodes WHERE id = ?`, id)
	n, err := scanActivity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("activity node %s: %w", id, ErrNotFound)
	}
	return n, err
}

func (r *SQLiteActivityRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*domain.ActivityNode, error) {
	out := make(map[string]*domain.ActivityNode, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	nodes, err := r.list(ctx,
		`SELECT `+activityColumns+` FROM activity_nodes WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		out[n.ID] = n
	}
	return out, nil
}

func (r *SQLiteActivityRepo) ListWithinBox(ctx context.Context, box geo.BoundingBox, activeOnly bool) ([]*domain.ActivityNode, error) {
	query := `SELECT ` + activityColumns + ` FROM activity_nodes
		WHERE lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?`
	if activeOnly {
		query += ` AND is_active = 1`
	}
	query += ` ORDER BY id`
	return r.list(ctx, query, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
}

func (r *SQLiteActivityRepo) Update(ctx context.Context, n *domain.ActivityNode) error {
	query := `UPDATE activity_nodes SET name = ?, lat = ?, lng = ?, category = ?, tags = ?, quality_score = ?,
		typical_duration_min = ?, is_active = ?, review_status = ?, updated_at = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		n.Name,
		n.Location.Lat,
		n.Location.Lng,
		n.Category,
		joinTags(n.Tags),
		n.QualityScore,
		n.TypicalDurationMin,
		boolToInt(n.IsActive),
		string(n.ReviewStatus),
		formatTime(n.UpdatedAt),
		n.ID,
	)
	if err != nil {
		return fmt.Errorf("updating activity node: %w", err)
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return fmt.Errorf("activity node %s: %w", n.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteActivityRepo) SetReviewStatus(ctx context.Context, id string, status domain.ReviewStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE activity_nodes SET review_status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(time.Now()), id)
	if err != nil {
		return fmt.Errorf("setting review status: %w", err)
	}
	if c, _ := res.RowsAffected(); c == 0 {
		return fmt.Errorf("activity node %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *SQLiteActivityRepo) list(ctx context.Context, query string, args ...any) ([]*domain.ActivityNode, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activity nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*domain.ActivityNode
	for rows.Next() {
		n, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity nodes: %w", err)
	}
	return nodes, nil
}

func scanActivity(s scanner) (*domain.ActivityNode, error) {
	var n domain.ActivityNode
	var tags, review, createdStr, updatedStr string
	var active int
	err := s.Scan(&n.ID, &n.Name, &n.Location.Lat, &n.Location.Lng, &n.Category, &tags, &n.QualityScore,
		&n.TypicalDurationMin, &active, &review, &createdStr, &updatedStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning activity node: %w", err)
	}
	n.Tags = splitTags(tags)
	n.IsActive = intToBool(active)
	n.ReviewStatus = domain.ReviewStatus(review)
	if n.CreatedAt, err = parseTime(createdStr, "created_at"); err != nil {
		return nil, err
	}
	if n.UpdatedAt, err = parseTime(updatedStr, "updated_at"); err != nil {
		return nil, err
	}
	return &n, nil
}
