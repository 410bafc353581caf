package service

import (
	"context"
	"testing"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/importer"
	"github.com/alexanderramin/waypoint/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itineraryFile() *importer.TripFile {
	return &importer.TripFile{
		Trip: importer.TripImport{Status: "active", StartDate: "2026-05-01", EndDate: "2026-05-02"},
		Activities: []importer.ActivityImport{
			{Ref: "castle", Name: "Castle", Lat: 38.7139, Lng: -9.1335, Category: "landmark", Tags: []string{"outdoor"}},
			{Ref: "lunch", Name: "Tasca", Lat: 38.7120, Lng: -9.1300, Category: "food"},
		},
		Slots: []importer.SlotImport{
			{Day: 1, Start: "10:00", End: "12:00", Activity: "castle"},
			{Day: 1, Start: "12:30", End: "13:30", Activity: "lunch", Locked: true},
		},
	}
}

func TestImportTrip_StoresEverything(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	it, err := h.engine.ImportTrip(ctx, traveler(), itineraryFile())
	require.NoError(t, err)

	trip, err := repository.NewSQLiteTripRepo(h.db).GetByID(ctx, it.Trip.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", trip.OwnerUserID)
	assert.Equal(t, domain.TripActive, trip.Status)

	slots, err := repository.NewSQLiteSlotRepo(h.db).ListByTrip(ctx, it.Trip.ID)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.True(t, slots[1].Locked)

	castle, err := repository.NewSQLiteActivityRepo(h.db).GetByID(ctx, slots[0].ActivityNodeID)
	require.NoError(t, err)
	assert.Equal(t, "Castle", castle.Name)
	assert.True(t, castle.IsOutdoor())

	assert.Contains(t, h.logs.String(), "use_case=import_trip")
}

func TestImportTrip_InvalidFile(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	f := itineraryFile()
	f.Slots[1].Start = "11:00"
	f.Slots[0].Activity = "nowhere"

	_, err := h.engine.ImportTrip(ctx, traveler(), f)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "2 problem(s)")
	assert.Contains(t, err.Error(), "unknown ref")

	active, err := repository.NewSQLiteTripRepo(h.db).ListByStatus(ctx, domain.TripActive)
	require.NoError(t, err)
	assert.Len(t, active, 1, "nothing from the rejected file is stored")
}

func TestImportTrip_RequiresWriteScope(t *testing.T) {
	h := newHarness(t)
	reader := domain.Principal{UserID: "user-1", Scopes: []domain.Scope{domain.ScopeTripRead}}

	_, err := h.engine.ImportTrip(context.Background(), reader, itineraryFile())
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
