package geo

import (
	"testing"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDistanceM_KnownPair(t *testing.T) {
	// Lisbon (Praça do Comércio) to Porto (Avenida dos Aliados), ~274 km.
	lisbon := domain.LatLng{Lat: 38.7075, Lng: -9.1364}
	porto := domain.LatLng{Lat: 41.1480, Lng: -8.6110}

	d := DistanceM(lisbon, porto)
	assert.InDelta(t, 274_000, d, 2_000)
	assert.InDelta(t, d, DistanceM(porto, lisbon), 1e-6, "distance is symmetric")
	assert.Zero(t, DistanceM(lisbon, lisbon))
}

func TestOffset_RoundTripsDistance(t *testing.T) {
	origin := domain.LatLng{Lat: 48.8584, Lng: 2.2945}
	for _, bearing := range []float64{0, 45, 90, 180, 270} {
		p := Offset(origin, 200, bearing)
		assert.InDelta(t, 200, DistanceM(origin, p), 0.001, "bearing %v", bearing)
	}
}

func TestWithinRadius_InclusiveBoundary(t *testing.T) {
	origin := domain.LatLng{Lat: 48.8584, Lng: 2.2945}

	assert.True(t, WithinRadius(origin, Offset(origin, 200, 90), 200), "exactly on the radius is included")
	assert.False(t, WithinRadius(origin, Offset(origin, 201, 90), 200), "one meter beyond is excluded")
	assert.True(t, WithinRadius(origin, Offset(origin, 199, 10), 200))
}

func TestBoxAround_ContainsCircle(t *testing.T) {
	origin := domain.LatLng{Lat: 59.3293, Lng: 18.0686}
	box := BoxAround(origin, 500)
	for _, bearing := range []float64{0, 90, 180, 270, 135} {
		assert.True(t, box.Contains(Offset(origin, 500, bearing)), "bearing %v", bearing)
	}
	assert.False(t, box.Contains(Offset(origin, 800, 0)))
}
