package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/testutil"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

type repoSet struct {
	db      *sql.DB
	trips   *SQLiteTripRepo
	slots   *SQLiteSlotRepo
	nodes   *SQLiteActivityRepo
	pivots  *SQLitePivotRepo
	signals *SQLiteSignalRepo
	audits  *SQLiteAuditRepo
	flags   *SQLiteFlagRepo
	snaps   *SQLiteSnapshotRepo
}

func newRepoSet(t *testing.T) repoSet {
	t.Helper()
	db := testutil.NewTestDB(t)
	return repoSet{
		db:      db,
		trips:   NewSQLiteTripRepo(db),
		slots:   NewSQLiteSlotRepo(db),
		nodes:   NewSQLiteActivityRepo(db),
		pivots:  NewSQLitePivotRepo(db),
		signals: NewSQLiteSignalRepo(db),
		audits:  NewSQLiteAuditRepo(db),
		flags:   NewSQLiteFlagRepo(db),
		snaps:   NewSQLiteSnapshotRepo(db),
	}
}

// seedTripWithSlot creates a 3-day trip, one node and one slot on day 2 at 14:00.
func seedTripWithSlot(t *testing.T, rs repoSet) (*domain.Trip, *domain.ActivityNode, *domain.ItinerarySlot) {
	t.Helper()
	ctx := context.Background()

	trip := testutil.NewTestTrip(day1, 3)
	require.NoError(t, rs.trips.Create(ctx, trip))

	node := testutil.NewTestNode("Jardim", testutil.Lisbon, testutil.WithTags(domain.OutdoorTag))
	require.NoError(t, rs.nodes.Create(ctx, node))

	slot := testutil.NewTestSlot(trip.ID, node.ID, 2, day1.AddDate(0, 0, 1).Add(14*time.Hour), 90*time.Minute)
	require.NoError(t, rs.slots.Create(ctx, slot))
	return trip, node, slot
}
