package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSlot(start time.Time, minutes int) *ItinerarySlot {
	return &ItinerarySlot{
		ID:             "slot-1",
		TripID:         "trip-1",
		DayNumber:      1,
		StartTime:      start,
		EndTime:        start.Add(time.Duration(minutes) * time.Minute),
		ActivityNodeID: "node-a",
		Status:         SlotConfirmed,
	}
}

func TestItinerarySlot_ApplySwap(t *testing.T) {
	start := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	s := newSlot(start, 90)
	now := start.Add(-time.Hour)

	require.NoError(t, s.ApplySwap("node-b", "pivot-1", start.Add(60*time.Minute), now))

	assert.Equal(t, "node-b", s.ActivityNodeID)
	assert.True(t, s.WasSwapped)
	require.NotNil(t, s.PivotEventID)
	assert.Equal(t, "pivot-1", *s.PivotEventID)
	assert.Equal(t, 60*time.Minute, s.Duration())
	assert.Equal(t, SlotConfirmed, s.Status)
}

func TestItinerarySlot_ApplySwap_LockedIsDataIntegrityError(t *testing.T) {
	start := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	s := newSlot(start, 90)
	s.Locked = true

	err := s.ApplySwap("node-b", "pivot-1", start.Add(time.Hour), start)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDataIntegrity)
	assert.Equal(t, "node-a", s.ActivityNodeID, "locked slot must be untouched")
	assert.False(t, s.WasSwapped)
}

func TestItinerarySlot_Windows(t *testing.T) {
	start := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)
	s := newSlot(start, 60)

	assert.True(t, s.IsUpcoming(start.Add(-time.Minute)))
	assert.True(t, s.IsCurrent(start))
	assert.True(t, s.IsCurrent(start.Add(59*time.Minute)))
	assert.False(t, s.IsCurrent(start.Add(60*time.Minute)))

	s.Status = SlotCompleted
	assert.False(t, s.Movable())
}

func TestTrip_DayEnd(t *testing.T) {
	trip := &Trip{
		ID:        "t",
		Timezone:  "Europe/Lisbon",
		StartDate: time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, 4, trip.DayCount())

	end := trip.DayEnd(2, 24)
	loc := trip.Location()
	assert.Equal(t, time.Date(2026, 5, 3, 0, 0, 0, 0, loc), end)
	assert.Equal(t, time.Date(2026, 5, 2, 22, 0, 0, 0, loc), trip.DayEnd(2, 22))
}
