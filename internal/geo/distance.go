// Package geo holds the great-circle primitives used by candidate search.
package geo

import (
	"math"

	"github.com/alexanderramin/waypoint/internal/domain"
)

// EarthRadiusM is the mean Earth radius used for haversine distances.
const EarthRadiusM = 6371008.8

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// DistanceM returns the great-circle distance between a and b in meters.
func DistanceM(a, b domain.LatLng) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// WithinRadius reports whether b lies within radiusM of a, inclusive.
// Distances are rounded to the millimeter so a point placed exactly on the
// boundary is not lost to floating point noise.
func WithinRadius(a, b domain.LatLng, radiusM float64) bool {
	d := math.Round(DistanceM(a, b)*1000) / 1000
	return d <= radiusM
}

// Offset returns the point reached by travelling distanceM from origin on
// the given bearing (degrees clockwise from north).
func Offset(origin domain.LatLng, distanceM, bearingDeg float64) domain.LatLng {
	delta := distanceM / EarthRadiusM
	theta := radians(bearingDeg)
	lat1 := radians(origin.Lat)
	lng1 := radians(origin.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)
	return domain.LatLng{Lat: lat2 * 180 / math.Pi, Lng: lng2 * 180 / math.Pi}
}
