package db

import (
	"database/sql"
	"fmt"
	"strings"
)

// Migrate runs all schema migrations. Statements are idempotent and re-run on
// every open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			// Tolerate "duplicate column name" errors from ALTER TABLE
			// since the migration system re-runs all statements.
			if strings.Contains(err.Error(), "duplicate column name") {
				continue
			}
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS trips (
		id            TEXT PRIMARY KEY,
		owner_user_id TEXT NOT NULL,
		timezone      TEXT NOT NULL DEFAULT 'UTC',
		status        TEXT NOT NULL DEFAULT 'planned'
		              CHECK(status IN ('planned','active','completed','cancelled')),
		start_date    TEXT NOT NULL,
		end_date      TEXT NOT NULL,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_trips_status ON trips(status)`,

	`CREATE TABLE IF NOT EXISTS activity_nodes (
		id                   TEXT PRIMARY KEY,
		name                 TEXT NOT NULL,
		lat                  REAL NOT NULL,
		lng                  REAL NOT NULL,
		category             TEXT NOT NULL DEFAULT '',
		tags                 TEXT NOT NULL DEFAULT '',
		quality_score        REAL NOT NULL DEFAULT 0.5
		                     CHECK(quality_score >= 0 AND quality_score <= 1),
		typical_duration_min INTEGER NOT NULL DEFAULT 60,
		is_active            INTEGER NOT NULL DEFAULT 1,
		review_status        TEXT NOT NULL DEFAULT 'none'
		                     CHECK(review_status IN ('none','pending','resolved')),
		created_at           TEXT NOT NULL,
		updated_at           TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_activity_nodes_lat_lng ON activity_nodes(lat, lng)`,
	`CREATE INDEX IF NOT EXISTS idx_activity_nodes_category ON activity_nodes(category)`,

	`CREATE TABLE IF NOT EXISTS itinerary_slots (
		id               TEXT PRIMARY KEY,
		trip_id          TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		day_number       INTEGER NOT NULL CHECK(day_number >= 1),
		start_time       TEXT NOT NULL,
		end_time         TEXT NOT NULL,
		activity_node_id TEXT NOT NULL REFERENCES activity_nodes(id),
		status           TEXT NOT NULL DEFAULT 'proposed'
		                 CHECK(status IN ('proposed','confirmed','completed','skipped')),
		locked           INTEGER NOT NULL DEFAULT 0,
		was_swapped      INTEGER NOT NULL DEFAULT 0,
		pivot_event_id   TEXT,
		flexible         INTEGER NOT NULL DEFAULT 0,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_slots_trip_day ON itinerary_slots(trip_id, day_number, start_time)`,

	`CREATE TABLE IF NOT EXISTS pivot_events (
		id                   TEXT PRIMARY KEY,
		trip_id              TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		slot_id              TEXT NOT NULL REFERENCES itinerary_slots(id) ON DELETE CASCADE,
		trigger_type         TEXT NOT NULL
		                     CHECK(trigger_type IN ('weather','closure','overrun','mood','free_text','day_overflow')),
		depth                INTEGER NOT NULL CHECK(depth >= 1),
		parent_pivot_id      TEXT REFERENCES pivot_events(id),
		status               TEXT NOT NULL DEFAULT 'proposed'
		                     CHECK(status IN ('proposed','accepted','rejected','expired')),
		selected_rank        INTEGER,
		response_time_ms     INTEGER,
		expiring_notified_at TEXT,
		created_at           TEXT NOT NULL,
		resolved_at          TEXT
	)`,

	// At most one open proposal per slot.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_pivot_events_one_proposed
		ON pivot_events(slot_id) WHERE status = 'proposed'`,
	`CREATE INDEX IF NOT EXISTS idx_pivot_events_trip ON pivot_events(trip_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_pivot_events_status_created ON pivot_events(status, created_at)`,

	`CREATE TABLE IF NOT EXISTS pivot_candidates (
		pivot_event_id   TEXT NOT NULL REFERENCES pivot_events(id) ON DELETE CASCADE,
		rank             INTEGER NOT NULL CHECK(rank >= 1),
		kind             TEXT NOT NULL CHECK(kind IN ('swap','micro_stop','extend','move_day')),
		activity_node_id TEXT NOT NULL REFERENCES activity_nodes(id),
		category         TEXT NOT NULL DEFAULT '',
		score            REAL NOT NULL DEFAULT 0,
		distance_m       REAL NOT NULL DEFAULT 0,
		duration_min     INTEGER NOT NULL,
		start_time       TEXT NOT NULL,
		end_time         TEXT NOT NULL,
		day_number       INTEGER NOT NULL,
		PRIMARY KEY (pivot_event_id, rank)
	)`,

	`CREATE INDEX IF NOT EXISTS idx_pivot_candidates_node ON pivot_candidates(activity_node_id)`,

	`CREATE TABLE IF NOT EXISTS behavioral_signals (
		id               TEXT PRIMARY KEY,
		trip_id          TEXT NOT NULL,
		slot_id          TEXT NOT NULL,
		pivot_event_id   TEXT,
		activity_node_id TEXT,
		kind             TEXT NOT NULL
		                 CHECK(kind IN ('pivot_accepted','pivot_rejected','pivot_expired','wrong_for_me')),
		weight           REAL NOT NULL,
		created_at       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_behavioral_signals_trip ON behavioral_signals(trip_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS intention_signals (
		id               TEXT PRIMARY KEY,
		user_id          TEXT NOT NULL,
		trip_id          TEXT NOT NULL,
		slot_id          TEXT NOT NULL,
		activity_node_id TEXT NOT NULL,
		source           TEXT NOT NULL CHECK(source IN ('explicit','inferred')),
		confidence       REAL NOT NULL,
		created_at       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_intention_signals_trip ON intention_signals(trip_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS raw_events (
		id         TEXT PRIMARY KEY,
		trip_id    TEXT NOT NULL,
		kind       TEXT NOT NULL,
		payload    TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS audit_records (
		id         TEXT PRIMARY KEY,
		trip_id    TEXT NOT NULL DEFAULT '',
		slot_id    TEXT NOT NULL DEFAULT '',
		kind       TEXT NOT NULL,
		outcome    TEXT NOT NULL DEFAULT '',
		metadata   TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_audit_records_trip ON audit_records(trip_id, created_at)`,

	`CREATE TABLE IF NOT EXISTS injection_flags (
		id            TEXT PRIMARY KEY,
		trip_id       TEXT NOT NULL DEFAULT '',
		user_id       TEXT NOT NULL,
		pattern_class TEXT NOT NULL,
		text_length   INTEGER NOT NULL,
		review_status TEXT NOT NULL DEFAULT 'pending'
		              CHECK(review_status IN ('none','pending','resolved')),
		created_at    TEXT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS content_flags (
		id               TEXT PRIMARY KEY,
		activity_node_id TEXT NOT NULL REFERENCES activity_nodes(id),
		slot_id          TEXT NOT NULL,
		reporter_user_id TEXT NOT NULL,
		note             TEXT NOT NULL DEFAULT '',
		review_status    TEXT NOT NULL DEFAULT 'pending'
		                 CHECK(review_status IN ('none','pending','resolved')),
		created_at       TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_content_flags_review ON content_flags(review_status, created_at)`,

	`CREATE TABLE IF NOT EXISTS weather_snapshots (
		trip_id      TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		condition    TEXT NOT NULL,
		outdoor_risk REAL NOT NULL DEFAULT 0,
		observed_at  TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_weather_snapshots_trip ON weather_snapshots(trip_id, observed_at)`,

	`CREATE TABLE IF NOT EXISTS location_snapshots (
		trip_id     TEXT NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
		lat         REAL NOT NULL,
		lng         REAL NOT NULL,
		observed_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_location_snapshots_trip ON location_snapshots(trip_id, observed_at)`,

	`CREATE TABLE IF NOT EXISTS mood_reports (
		slot_id     TEXT NOT NULL REFERENCES itinerary_slots(id) ON DELETE CASCADE,
		score       INTEGER NOT NULL CHECK(score BETWEEN 1 AND 5),
		reported_at TEXT NOT NULL
	)`,

	`CREATE INDEX IF NOT EXISTS idx_mood_reports_slot ON mood_reports(slot_id, reported_at)`,
}
