package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPivotRepo_CreatePersistsCandidates(t *testing.T) {
	rs := newRepoSet(t)
	ctx := context.Background()
	trip, _, slot := seedTripWithSlot(t, rs)

	alt1 := testutil.NewTestNode("Museu A", testutil.Lisbon)
	alt2 := testutil.NewTestNode("Museu B", testutil.Lisbon)
	require.NoError(t, rs.nodes.Create(ctx, alt1))
	require.NoError(t, rs.nodes.Create(ctx, alt2))

	p := testutil.NewTestPivot(trip.ID, slot.ID, domain.TriggerWeather, testutil.WithCandidates(
		testutil.SwapCandidate(1, alt1.ID, slot, 60),
		testutil.SwapCandidate(2, alt2.ID, slot, 75),
	))
	require.NoError(t, rs.pivots.Create(ctx, p))

	got, err := rs.pivots.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PivotProposed, got.Status)
	assert.Equal(t, 1, got.Depth)
	require.Len(t, got.Candidates, 2)
	assert.Equal(t, alt2.ID, got.Candidates[1].ActivityNodeID)
	assert.Equal(t, 75, got.Candidates[1].DurationMin)
	assert.True(t, got.Candidates[0].StartTime.Equal(slot.StartTime))

	open, err := rs.pivots.GetProposedBySlot(ctx, slot.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, open.ID)
}

func TestPivotRepo_SecondProposedOnSlotIsConflict(t *testing.T) {
	rs := newRepoSet(t)
	ctx := context.Background()
	trip, _, slot := seedTripWithSlot(t, rs)

	require.NoError(t, rs.pivots.Create(ctx, testutil.NewTestPivot(trip.ID, slot.ID, domain.TriggerWeather)))
	err := rs.pivots.Create(ctx, testutil.NewTestPivot(trip.ID, slot.ID, domain.TriggerClosure))

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrConflict)
	code, ok := domain.CodeOf(err)
	require.True(t, ok)
	assert.Equal(t, domain.CodeConflict, code)
}

func TestPivotRepo_ResolveIsConditional(t *testing.T) {
	rs := newRepoSet(t)
	ctx := context.Background()
	trip, _, slot := seedTripWithSlot(t, rs)

	p := testutil.NewTestPivot(trip.ID, slot.ID, domain.TriggerWeather)
	require.NoError(t, rs.pivots.Create(ctx, p))

	require.NoError(t, p.Resolve(domain.PivotExpired, time.Now()))
	won, err := rs.pivots.Resolve(ctx, p)
	require.NoError(t, err)
	assert.True(t, won)

	// A competing writer that loaded the row while it was proposed loses.
	stale := *p
	stale.Status = domain.PivotAccepted
	won, err = rs.pivots.Resolve(ctx, &stale)
	require.NoError(t, err)
	assert.False(t, won)

	got, err := rs.pivots.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PivotExpired, got.Status)
	assert.NotNil(t, got.ResolvedAt)
	assert.Nil(t, got.ResponseTimeMs)

	_, err = rs.pivots.GetProposedBySlot(ctx, slot.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPivotRepo_ExpiryQueries(t *testing.T) {
	rs := newRepoSet(t)
	ctx := context.Background()
	trip, node, slot := seedTripWithSlot(t, rs)
	now := time.Now().UTC()

	other := testutil.NewTestSlot(trip.ID, node.ID, 3, slot.StartTime.Add(24*time.Hour), time.Hour)
	require.NoError(t, rs.slots.Create(ctx, other))

	old := testutil.NewTestPivot(trip.ID, slot.ID, domain.TriggerWeather, testutil.WithCreatedAt(now.Add(-30*time.Minute)))
	fresh := testutil.NewTestPivot(trip.ID, other.ID, domain.TriggerWeather, testutil.WithCreatedAt(now.Add(-time.Minute)))
	require.NoError(t, rs.pivots.Create(ctx, old))
	require.NoError(t, rs.pivots.Create(ctx, fresh))

	due, err := rs.pivots.ListProposedCreatedBefore(ctx, now.Add(-20*time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, old.ID, due[0].ID)

	soon, err := rs.pivots.ListExpiringUnnotified(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	require.Len(t, soon, 1)

	marked, err := rs.pivots.MarkExpiringNotified(ctx, old.ID, now)
	require.NoError(t, err)
	assert.True(t, marked)
	marked, err = rs.pivots.MarkExpiringNotified(ctx, old.ID, now)
	require.NoError(t, err)
	assert.False(t, marked, "second notification mark is a no-op")

	soon, err = rs.pivots.ListExpiringUnnotified(ctx, now.Add(-15*time.Minute))
	require.NoError(t, err)
	assert.Empty(t, soon)
}

func TestPivotRepo_ListByTripAndRejectedNodes(t *testing.T) {
	rs := newRepoSet(t)
	ctx := context.Background()
	trip, _, slot := seedTripWithSlot(t, rs)

	shown := testutil.NewTestNode("Shown", testutil.Lisbon)
	require.NoError(t, rs.nodes.Create(ctx, shown))

	p := testutil.NewTestPivot(trip.ID, slot.ID, domain.TriggerWeather,
		testutil.WithCandidates(testutil.SwapCandidate(1, shown.ID, slot, 60)))
	require.NoError(t, rs.pivots.Create(ctx, p))

	rejected, err := rs.pivots.ListRejectedNodeIDs(ctx, trip.ID)
	require.NoError(t, err)
	assert.Empty(t, rejected, "proposed pivots do not exclude nodes")

	require.NoError(t, p.Resolve(domain.PivotRejected, time.Now()))
	_, err = rs.pivots.Resolve(ctx, p)
	require.NoError(t, err)

	rejected, err = rs.pivots.ListRejectedNodeIDs(ctx, trip.ID)
	require.NoError(t, err)
	assert.True(t, rejected[shown.ID])

	all, err := rs.pivots.ListByTrip(ctx, trip.ID, "")
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Len(t, all[0].Candidates, 1, "candidate set is retained after rejection")

	proposed, err := rs.pivots.ListByTrip(ctx, trip.ID, domain.PivotProposed)
	require.NoError(t, err)
	assert.Empty(t, proposed)
}
