package domain

import (
	"fmt"
	"slices"
	"time"
)

// LatLng is a WGS84 coordinate in decimal degrees.
type LatLng struct {
	Lat float64
	Lng float64
}

func (l LatLng) Validate() error {
	if l.Lat < -90 || l.Lat > 90 || l.Lng < -180 || l.Lng > 180 {
		return NewValidationError(fmt.Sprintf("coordinate out of range: %v,%v", l.Lat, l.Lng))
	}
	return nil
}

type ActivityNode struct {
	ID                 string
	Name               string
	Location           LatLng
	Category           string
	Tags               []string
	QualityScore       float64
	TypicalDurationMin int
	IsActive           bool
	ReviewStatus       ReviewStatus
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (n *ActivityNode) HasTag(tag string) bool {
	return slices.Contains(n.Tags, tag)
}

// IsOutdoor reports whether the node is exposed to weather.
func (n *ActivityNode) IsOutdoor() bool {
	return n.HasTag(OutdoorTag)
}
