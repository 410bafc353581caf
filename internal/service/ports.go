package service

import (
	"context"

	"github.com/alexanderramin/waypoint/internal/domain"
)

// WeatherSource returns the latest weather for a trip. A source with nothing
// on record returns an error wrapping domain.ErrNotFound.
type WeatherSource interface {
	LatestWeather(ctx context.Context, tripID string) (*domain.WeatherSnapshot, error)
}

// LocationSource returns the traveler's last known position, with the same
// not-found contract as WeatherSource.
type LocationSource interface {
	LatestLocation(ctx context.Context, tripID string) (*domain.LocationSnapshot, error)
}
