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

func TestSignalRepo_AppendAndList(t *testing.T) {
	rs := newRepoSet(t)
	ctx := context.Background()
	trip, node, slot := seedTripWithSlot(t, rs)
	now := time.Now().UTC()

	pivotID := "pivot-1"
	require.NoError(t, rs.signals.CreateBehavioral(ctx, &domain.BehavioralSignal{
		ID: "b1", TripID: trip.ID, SlotID: slot.ID, PivotEventID: &pivotID,
		Kind: domain.SignalPivotRejected, Weight: domain.WeightRejected, CreatedAt: now,
	}))
	require.NoError(t, rs.signals.CreateIntention(ctx, &domain.IntentionSignal{
		ID: "i1", UserID: "user-1", TripID: trip.ID, SlotID: slot.ID, ActivityNodeID: node.ID,
		Source: domain.SourceExplicit, Confidence: 1.0, CreatedAt: now,
	}))
	require.NoError(t, rs.signals.CreateRawEvent(ctx, &domain.RawEvent{
		ID: "r1", TripID: trip.ID, Kind: "pivot_rejected", Payload: map[string]any{"rank_shown": 3}, CreatedAt: now,
	}))

	bs, err := rs.signals.ListBehavioralByTrip(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, bs, 1)
	assert.Equal(t, -1.0, bs[0].Weight)
	require.NotNil(t, bs[0].PivotEventID)
	assert.Nil(t, bs[0].ActivityNodeID)

	is, err := rs.signals.ListIntentionByTrip(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, is, 1)
	assert.Equal(t, domain.SourceExplicit, is[0].Source)

	evs, err := rs.signals.ListRawEventsByTrip(ctx, trip.ID)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, float64(3), evs[0].Payload["rank_shown"])
}

func TestAuditRepo_ListNewestFirst(t *testing.T) {
	rs := newRepoSet(t)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, kind := range []domain.AuditKind{domain.AuditTriggerEvaluated, domain.AuditNoAction, domain.AuditParseAttempt} {
		require.NoError(t, rs.audits.Create(ctx, &domain.AuditRecord{
			ID: string(kind), TripID: "trip-1", Kind: kind, Outcome: "ok",
			Metadata:  map[string]any{"text_length": 12},
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	recs, err := rs.audits.ListByTrip(ctx, "trip-1", 2)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, domain.AuditParseAttempt, recs[0].Kind)
	assert.Equal(t, float64(12), recs[0].Metadata["text_length"])

	byKind, err := rs.audits.ListByKind(ctx, domain.AuditNoAction, 0)
	require.NoError(t, err)
	assert.Len(t, byKind, 1)
}

func TestFlagRepo_PendingQueues(t *testing.T) {
	rs := newRepoSet(t)
	ctx := context.Background()
	_, node, slot := seedTripWithSlot(t, rs)
	now := time.Now().UTC()

	require.NoError(t, rs.flags.CreateInjection(ctx, &domain.InjectionFlag{
		ID: "f1", UserID: "user-1", PatternClass: "role_escalation", TextLength: 40,
		ReviewStatus: domain.ReviewPending, CreatedAt: now,
	}))
	require.NoError(t, rs.flags.CreateContent(ctx, &domain.ContentFlag{
		ID: "c1", ActivityNodeID: node.ID, SlotID: slot.ID, ReporterUserID: "user-1",
		Note: "closed for renovation", ReviewStatus: domain.ReviewPending, CreatedAt: now,
	}))

	inj, err := rs.flags.ListPendingInjections(ctx)
	require.NoError(t, err)
	require.Len(t, inj, 1)
	assert.Equal(t, 40, inj[0].TextLength)

	content, err := rs.flags.ListPendingContent(ctx)
	require.NoError(t, err)
	require.Len(t, content, 1)
	assert.Equal(t, "closed for renovation", content[0].Note)
}

func TestSnapshotRepo_Latest(t *testing.T) {
	rs := newRepoSet(t)
	ctx := context.Background()
	trip, _, slot := seedTripWithSlot(t, rs)
	now := time.Now().UTC()

	_, err := rs.snaps.LatestWeather(ctx, trip.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, rs.snaps.RecordWeather(ctx, &domain.WeatherSnapshot{TripID: trip.ID, Condition: "clear", ObservedAt: now.Add(-time.Hour)}))
	require.NoError(t, rs.snaps.RecordWeather(ctx, &domain.WeatherSnapshot{TripID: trip.ID, Condition: "storm", OutdoorRisk: 0.9, ObservedAt: now}))
	w, err := rs.snaps.LatestWeather(ctx, trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "storm", w.Condition)

	require.NoError(t, rs.snaps.RecordLocation(ctx, &domain.LocationSnapshot{TripID: trip.ID, Location: testutil.Lisbon, ObservedAt: now}))
	l, err := rs.snaps.LatestLocation(ctx, trip.ID)
	require.NoError(t, err)
	assert.InDelta(t, testutil.Lisbon.Lat, l.Location.Lat, 1e-9)

	require.NoError(t, rs.snaps.RecordMood(ctx, &domain.MoodReport{SlotID: slot.ID, Score: 1, ReportedAt: now}))
	require.NoError(t, rs.snaps.RecordMood(ctx, &domain.MoodReport{SlotID: slot.ID, Score: 4, ReportedAt: now.Add(-2 * time.Hour)}))
	moods, err := rs.snaps.ListMoodByTripSince(ctx, trip.ID, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, moods, 1)
	assert.Equal(t, 1, moods[0].Score)
}
