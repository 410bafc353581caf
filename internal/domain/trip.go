package domain

import (
	"fmt"
	"time"
)

type Trip struct {
	ID          string
	OwnerUserID string
	Timezone    string
	Status      TripStatus
	StartDate   time.Time
	EndDate     time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Location resolves the trip's IANA timezone, defaulting to UTC.
func (t *Trip) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// DayCount returns the number of itinerary days covered by the trip.
func (t *Trip) DayCount() int {
	days := int(t.EndDate.Sub(t.StartDate).Hours()/24) + 1
	if days < 1 {
		return 1
	}
	return days
}

// DayDate returns local midnight of the given 1-based day. StartDate is a
// calendar date; only its year, month and day are used.
func (t *Trip) DayDate(dayNumber int) time.Time {
	y, m, d := t.StartDate.Date()
	base := time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	return base.AddDate(0, 0, dayNumber-1)
}

// DayEnd returns the boundary past which no slot of dayNumber may end.
func (t *Trip) DayEnd(dayNumber int, endHour int) time.Time {
	if endHour <= 0 || endHour > 24 {
		endHour = 24
	}
	return t.DayDate(dayNumber).Add(time.Duration(endHour) * time.Hour)
}

func (t *Trip) Validate() error {
	if t.ID == "" {
		return NewValidationError("trip id is required")
	}
	if t.EndDate.Before(t.StartDate) {
		return NewValidationError(fmt.Sprintf("trip %s ends before it starts", t.ID))
	}
	return nil
}
