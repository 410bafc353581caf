package geo

import (
	"math"

	"github.com/alexanderramin/waypoint/internal/domain"
)

// BoundingBox is a lat/lng rectangle used as a cheap SQL prefilter before
// exact distance checks.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoxAround returns a box that fully contains the circle of radiusM around
// center. It is slightly padded so boundary points survive the prefilter.
func BoxAround(center domain.LatLng, radiusM float64) BoundingBox {
	padded := radiusM * 1.01
	dLat := padded / EarthRadiusM * 180 / math.Pi
	cosLat := math.Cos(radians(center.Lat))
	dLng := 180.0
	if cosLat > 1e-9 {
		dLng = math.Min(180, dLat/cosLat)
	}
	return BoundingBox{
		MinLat: math.Max(-90, center.Lat-dLat),
		MaxLat: math.Min(90, center.Lat+dLat),
		MinLng: center.Lng - dLng,
		MaxLng: center.Lng + dLng,
	}
}

func (b BoundingBox) Contains(p domain.LatLng) bool {
	return p.Lat >= b.MinLat && p.Lat <= b.MaxLat && p.Lng >= b.MinLng && p.Lng <= b.MaxLng
}
