package db

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, Migrate(db))
	require.NoError(t, Migrate(db))
}

func TestMigrate_CreatesAllTables(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"trips", "activity_nodes", "itinerary_slots", "pivot_events", "pivot_candidates",
		"behavioral_signals", "intention_signals", "raw_events", "audit_records",
		"injection_flags", "content_flags", "weather_snapshots", "location_snapshots", "mood_reports",
	}
	for _, table := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrate_CreatesIndexes(t *testing.T) {
	db := openTestDB(t)

	expected := []string{
		"idx_slots_trip_day",
		"idx_pivot_events_one_proposed",
		"idx_pivot_events_status_created",
		"idx_activity_nodes_lat_lng",
		"idx_content_flags_review",
	}
	for _, idx := range expected {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='index' AND name=?`, idx).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
	}
}

func TestMigrate_ForeignKeysEnabled(t *testing.T) {
	db := openTestDB(t)

	var fk int
	require.NoError(t, db.QueryRow(`PRAGMA foreign_keys`).Scan(&fk))
	assert.Equal(t, 1, fk, "foreign keys should be enabled")
}

func TestMigrate_WALModeRequested(t *testing.T) {
	// In-memory SQLite uses "memory" journal mode; WAL only applies to file DBs.
	db := openTestDB(t)

	var mode string
	require.NoError(t, db.QueryRow(`PRAGMA journal_mode`).Scan(&mode))
	assert.Equal(t, "memory", mode)
}

func TestMigrate_OneProposedPivotPerSlot(t *testing.T) {
	db := openTestDB(t)
	now := "2026-05-02T10:00:00Z"

	mustExec := func(q string, args ...any) {
		t.Helper()
		_, err := db.Exec(q, args...)
		require.NoError(t, err)
	}
	mustExec(`INSERT INTO trips (id, owner_user_id, start_date, end_date, created_at, updated_at) VALUES ('t1','u1','2026-05-01','2026-05-03',?,?)`, now, now)
	mustExec(`INSERT INTO activity_nodes (id, name, lat, lng, created_at, updated_at) VALUES ('n1','Park',38.7,-9.1,?,?)`, now, now)
	mustExec(`INSERT INTO itinerary_slots (id, trip_id, day_number, start_time, end_time, activity_node_id, created_at, updated_at) VALUES ('s1','t1',2,?,?,'n1',?,?)`, now, now, now, now)
	mustExec(`INSERT INTO pivot_events (id, trip_id, slot_id, trigger_type, depth, status, created_at) VALUES ('p1','t1','s1','weather',1,'proposed',?)`, now)

	_, err := db.Exec(`INSERT INTO pivot_events (id, trip_id, slot_id, trigger_type, depth, status, created_at) VALUES ('p2','t1','s1','weather',1,'proposed',?)`, now)
	require.Error(t, err, "second proposed pivot on the same slot must be rejected")
	assert.Contains(t, err.Error(), "UNIQUE")

	// Once the first is resolved, a new proposal is allowed.
	mustExec(`UPDATE pivot_events SET status = 'rejected' WHERE id = 'p1'`)
	mustExec(`INSERT INTO pivot_events (id, trip_id, slot_id, trigger_type, depth, status, created_at) VALUES ('p2','t1','s1','weather',1,'proposed',?)`, now)
}

func TestMigrate_RejectsUnknownTriggerType(t *testing.T) {
	db := openTestDB(t)

	var createSQL string
	require.NoError(t, db.QueryRow(`SELECT sql FROM sqlite_master WHERE type='table' AND name='pivot_events'`).Scan(&createSQL))
	assert.Contains(t, createSQL, "'day_overflow'")
}
