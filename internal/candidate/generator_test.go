package candidate

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/geo"
	"github.com/alexanderramin/waypoint/internal/repository"
	"github.com/alexanderramin/waypoint/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day1 = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

type memNodes []*domain.ActivityNode

func (m memNodes) ListWithinBox(_ context.Context, box geo.BoundingBox, activeOnly bool) ([]*domain.ActivityNode, error) {
	var out []*domain.ActivityNode
	for _, n := range m {
		if box.Contains(n.Location) && (!activeOnly || n.IsActive) {
			out = append(out, n)
		}
	}
	return out, nil
}

func testConfig() Config {
	return Config{
		TopK:             3,
		SwapRadiusM:      3000,
		MicroStopRadiusM: 200,
		WeightDistance:   0.4,
		WeightQuality:    0.4,
		WeightTag:        0.2,
	}
}

func anchorSlot() *domain.ItinerarySlot {
	return testutil.NewTestSlot("trip-1", "anchor-node", 2, day1.AddDate(0, 0, 1).Add(14*time.Hour), 90*time.Minute)
}

func TestMicroStop_RadiusIsInclusive(t *testing.T) {
	onEdge := testutil.NewTestNode("Edge", geo.Offset(testutil.Lisbon, 200, 0))
	beyond := testutil.NewTestNode("Beyond", geo.Offset(testutil.Lisbon, 201, 180))
	g := NewGenerator(testConfig(), memNodes{onEdge, beyond})

	got, err := g.MicroStop(context.Background(), MicroStopRequest{Anchor: anchorSlot(), Center: testutil.Lisbon})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, onEdge.ID, got[0].ActivityNodeID)
	assert.InDelta(t, 200, got[0].DistanceM, 0.01)
}

func TestMicroStop_ActiveOnlyAndPlacement(t *testing.T) {
	anchor := anchorSlot()
	closed := testutil.NewTestNode("Closed", geo.Offset(testutil.Lisbon, 50, 45), testutil.Inactive())
	short := testutil.NewTestNode("Kiosk", geo.Offset(testutil.Lisbon, 80, 45), testutil.WithTypicalDuration(5))
	long := testutil.NewTestNode("Viewpoint", geo.Offset(testutil.Lisbon, 120, 45), testutil.WithTypicalDuration(90))
	g := NewGenerator(testConfig(), memNodes{closed, short, long})

	got, err := g.MicroStop(context.Background(), MicroStopRequest{Anchor: anchor, Center: testutil.Lisbon})

	require.NoError(t, err)
	require.Len(t, got, 2)
	byNode := map[string]domain.Candidate{}
	for _, c := range got {
		byNode[c.ActivityNodeID] = c
		assert.Equal(t, domain.CandidateMicroStop, c.Kind)
		assert.Equal(t, anchor.EndTime, c.StartTime)
		assert.Equal(t, 2, c.DayNumber)
	}
	assert.Equal(t, 15, byNode[short.ID].DurationMin)
	assert.Equal(t, 30, byNode[long.ID].DurationMin)
	assert.Equal(t, anchor.EndTime.Add(30*time.Minute), byNode[long.ID].EndTime)
}

func TestMicroStop_NothingNearbyIsEmpty(t *testing.T) {
	far := testutil.NewTestNode("Far", geo.Offset(testutil.Lisbon, 5000, 0))
	got, err := NewGenerator(testConfig(), memNodes{far}).MicroStop(context.Background(), MicroStopRequest{Anchor: anchorSlot(), Center: testutil.Lisbon})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestClampMicroStop(t *testing.T) {
	assert.Equal(t, 15, ClampMicroStop(0))
	assert.Equal(t, 20, ClampMicroStop(20))
	assert.Equal(t, 30, ClampMicroStop(240))
}

func TestSwap_FiltersAndRanks(t *testing.T) {
	origin := testutil.NewTestNode("Jardim", testutil.Lisbon, testutil.WithCategory("park"), testutil.WithTags(domain.OutdoorTag))
	slot := testutil.NewTestSlot("trip-1", origin.ID, 2, day1.AddDate(0, 0, 1).Add(14*time.Hour), 90*time.Minute)

	best := testutil.NewTestNode("Gulbenkian", geo.Offset(testutil.Lisbon, 500, 10), testutil.WithCategory("museum"), testutil.WithQuality(0.9))
	ok := testutil.NewTestNode("MUDE", geo.Offset(testutil.Lisbon, 1500, 10), testutil.WithCategory("museum"), testutil.WithQuality(0.6))
	rejected := testutil.NewTestNode("Rejected", geo.Offset(testutil.Lisbon, 100, 10), testutil.WithQuality(1))
	scheduled := testutil.NewTestNode("Later today", geo.Offset(testutil.Lisbon, 100, 200), testutil.WithQuality(1))
	outdoor := testutil.NewTestNode("Garden", geo.Offset(testutil.Lisbon, 100, 300), testutil.WithTags(domain.OutdoorTag), testutil.WithQuality(1))
	tooFar := testutil.NewTestNode("Sintra", geo.Offset(testutil.Lisbon, 3001, 0), testutil.WithQuality(1))
	later := testutil.NewTestSlot("trip-1", scheduled.ID, 2, slot.EndTime.Add(time.Hour), time.Hour)

	g := NewGenerator(testConfig(), memNodes{origin, best, ok, rejected, scheduled, outdoor, tooFar})
	got, err := g.Swap(context.Background(), SwapRequest{
		Slot:        slot,
		Origin:      origin,
		DaySlots:    []*domain.ItinerarySlot{slot, later},
		Rejected:    map[string]bool{rejected.ID: true},
		TriggerType: domain.TriggerWeather,
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, best.ID, got[0].ActivityNodeID)
	assert.Equal(t, 1, got[0].Rank)
	assert.Equal(t, ok.ID, got[1].ActivityNodeID)
	assert.Equal(t, 2, got[1].Rank)
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Equal(t, domain.CandidateSwap, got[0].Kind)
	assert.Equal(t, slot.StartTime, got[0].StartTime)
	assert.Equal(t, slot.StartTime.Add(60*time.Minute), got[0].EndTime)
}

func TestSwap_CategoryFilterAndTopK(t *testing.T) {
	origin := testutil.NewTestNode("Origin", testutil.Lisbon)
	slot := testutil.NewTestSlot("trip-1", origin.ID, 1, day1.Add(12*time.Hour), time.Hour)
	nodes := memNodes{origin}
	for i := 0; i < 5; i++ {
		nodes = append(nodes, testutil.NewTestNode("Tasca", geo.Offset(testutil.Lisbon, float64(100*(i+1)), 0), testutil.WithCategory("food")))
	}
	nodes = append(nodes, testutil.NewTestNode("Museum", geo.Offset(testutil.Lisbon, 50, 0), testutil.WithCategory("museum")))

	got, err := NewGenerator(testConfig(), nodes).Swap(context.Background(), SwapRequest{
		Slot: slot, Origin: origin, TriggerType: domain.TriggerFreeText, Category: "food",
	})

	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, c := range got {
		assert.Equal(t, "food", c.Category)
		assert.Equal(t, i+1, c.Rank)
	}
	assert.Less(t, got[0].DistanceM, got[1].DistanceM)
}

func TestSwap_TiesBreakByDistanceThenID(t *testing.T) {
	origin := testutil.NewTestNode("Origin", testutil.Lisbon, testutil.WithCategory("x"))
	slot := testutil.NewTestSlot("trip-1", origin.ID, 1, day1.Add(12*time.Hour), time.Hour)
	cfg := testConfig()
	cfg.WeightDistance = 0
	a := testutil.NewTestNode("A", geo.Offset(testutil.Lisbon, 300, 0), testutil.WithNodeID("b-node"))
	b := testutil.NewTestNode("B", geo.Offset(testutil.Lisbon, 300, 0), testutil.WithNodeID("a-node"))
	c := testutil.NewTestNode("C", geo.Offset(testutil.Lisbon, 100, 0), testutil.WithNodeID("c-node"))

	got, err := NewGenerator(cfg, memNodes{origin, a, b, c}).Swap(context.Background(), SwapRequest{Slot: slot, Origin: origin})

	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"c-node", "a-node", "b-node"},
		[]string{got[0].ActivityNodeID, got[1].ActivityNodeID, got[2].ActivityNodeID})
}

func TestSwap_DefaultsDurationToSlot(t *testing.T) {
	origin := testutil.NewTestNode("Origin", testutil.Lisbon)
	slot := testutil.NewTestSlot("trip-1", origin.ID, 1, day1.Add(12*time.Hour), 75*time.Minute)
	alt := testutil.NewTestNode("Alt", geo.Offset(testutil.Lisbon, 100, 0), testutil.WithTypicalDuration(0))

	got, err := NewGenerator(testConfig(), memNodes{origin, alt}).Swap(context.Background(), SwapRequest{Slot: slot, Origin: origin})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 75, got[0].DurationMin)
}

func TestSwap_SlotUnderWayStartsNow(t *testing.T) {
	origin := testutil.NewTestNode("Origin", testutil.Lisbon)
	slot := testutil.NewTestSlot("trip-1", origin.ID, 1, day1.Add(14*time.Hour), 90*time.Minute)
	alt := testutil.NewTestNode("Alt", geo.Offset(testutil.Lisbon, 100, 0), testutil.WithTypicalDuration(45))
	g := NewGenerator(testConfig(), memNodes{origin, alt})

	midway := day1.Add(14*time.Hour + 40*time.Minute)
	got, err := g.Swap(context.Background(), SwapRequest{Slot: slot, Origin: origin, Now: midway})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, midway, got[0].StartTime)
	assert.Equal(t, midway.Add(45*time.Minute), got[0].EndTime)

	before := day1.Add(13 * time.Hour)
	got, err = g.Swap(context.Background(), SwapRequest{Slot: slot, Origin: origin, Now: before})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, slot.StartTime, got[0].StartTime)
}

func TestSwap_RequiresOrigin(t *testing.T) {
	_, err := NewGenerator(testConfig(), memNodes{}).Swap(context.Background(), SwapRequest{Slot: anchorSlot()})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestSwap_AgainstSQLiteIndex(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	nodes := repository.NewSQLiteActivityRepo(db)

	origin := testutil.NewTestNode("Origin", testutil.Lisbon)
	near := testutil.NewTestNode("Near", geo.Offset(testutil.Lisbon, 2999, 45))
	far := testutil.NewTestNode("Far", geo.Offset(testutil.Lisbon, 3500, 45))
	closed := testutil.NewTestNode("Closed", geo.Offset(testutil.Lisbon, 10, 45), testutil.Inactive())
	for _, n := range []*domain.ActivityNode{origin, near, far, closed} {
		require.NoError(t, nodes.Create(ctx, n))
	}
	slot := testutil.NewTestSlot("trip-1", origin.ID, 1, day1.Add(12*time.Hour), time.Hour)

	got, err := NewGenerator(testConfig(), nodes).Swap(ctx, SwapRequest{Slot: slot, Origin: origin})

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, near.ID, got[0].ActivityNodeID)
}
