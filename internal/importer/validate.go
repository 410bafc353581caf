package importer

import (
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

var (
	validTripStatuses = map[string]bool{"planned": true, "active": true, "completed": true, "cancelled": true}
	validSlotStatuses = map[string]bool{"proposed": true, "confirmed": true, "completed": true, "skipped": true}
)

// Validate checks the file before conversion and returns every problem
// found, not just the first.
func Validate(f *TripFile) []error {
	var errs []error

	days, tripErrs := validateTrip(&f.Trip)
	errs = append(errs, tripErrs...)

	refs := make(map[string]bool)
	errs = append(errs, validateActivities(f.Activities, refs)...)
	errs = append(errs, validateSlots(f.Slots, refs, days)...)

	return errs
}

// validateTrip returns the number of trip days, or 0 when the dates are
// unusable.
func validateTrip(t *TripImport) (int, []error) {
	var errs []error

	if t.OwnerUserID == "" {
		errs = append(errs, fmt.Errorf("trip.owner_user_id is required"))
	}
	if t.Timezone != "" {
		if _, err := time.LoadLocation(t.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("trip.timezone: unknown zone %q", t.Timezone))
		}
	}
	if t.Status != "" && !validTripStatuses[t.Status] {
		errs = append(errs, fmt.Errorf("trip.status: invalid value %q", t.Status))
	}

	start, startErr := time.Parse(dateLayout, t.StartDate)
	if startErr != nil {
		errs = append(errs, fmt.Errorf("trip.start_date: invalid date %q (expected YYYY-MM-DD)", t.StartDate))
	}
	end, endErr := time.Parse(dateLayout, t.EndDate)
	if endErr != nil {
		errs = append(errs, fmt.Errorf("trip.end_date: invalid date %q (expected YYYY-MM-DD)", t.EndDate))
	}
	if startErr != nil || endErr != nil {
		return 0, errs
	}
	if end.Before(start) {
		errs = append(errs, fmt.Errorf("trip.end_date %q is before start_date %q", t.EndDate, t.StartDate))
		return 0, errs
	}
	return int(end.Sub(start).Hours()/24) + 1, errs
}

func validateActivities(acts []ActivityImport, refs map[string]bool) []error {
	var errs []error
	for i, a := range acts {
		prefix := fmt.Sprintf("activities[%d]", i)
		if a.Ref == "" {
			errs = append(errs, fmt.Errorf("%s.ref is required", prefix))
		} else if refs[a.Ref] {
			errs = append(errs, fmt.Errorf("%s.ref: duplicate ref %q", prefix, a.Ref))
		} else {
			refs[a.Ref] = true
		}
		if a.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
		}
		if err := (domain.LatLng{Lat: a.Lat, Lng: a.Lng}).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", prefix, err))
		}
		if a.Quality != nil && (*a.Quality < 0 || *a.Quality > 1) {
			errs = append(errs, fmt.Errorf("%s.quality must be in [0,1], got %v", prefix, *a.Quality))
		}
		if a.TypicalDurationMin != nil && *a.TypicalDurationMin <= 0 {
			errs = append(errs, fmt.Errorf("%s.typical_duration_min must be positive", prefix))
		}
	}
	return errs
}

type window struct {
	index      int
	start, end time.Duration
}

func validateSlots(slots []SlotImport, refs map[string]bool, days int) []error {
	var errs []error
	byDay := make(map[int][]window)

	for i, s := range slots {
		prefix := fmt.Sprintf("slots[%d]", i)
		if s.Day < 1 || (days > 0 && s.Day > days) {
			errs = append(errs, fmt.Errorf("%s.day %d is outside the trip", prefix, s.Day))
		}
		if s.Activity == "" {
			errs = append(errs, fmt.Errorf("%s.activity is required", prefix))
		} else if !refs[s.Activity] {
			errs = append(errs, fmt.Errorf("%s.activity: unknown ref %q", prefix, s.Activity))
		}
		if s.Status != "" && !validSlotStatuses[s.Status] {
			errs = append(errs, fmt.Errorf("%s.status: invalid value %q", prefix, s.Status))
		}

		start, startErr := parseClock(s.Start)
		end, endErr := parseClock(s.End)
		if startErr != nil {
			errs = append(errs, fmt.Errorf("%s.start: invalid time %q (expected HH:MM)", prefix, s.Start))
		}
		if endErr != nil {
			errs = append(errs, fmt.Errorf("%s.end: invalid time %q (expected HH:MM)", prefix, s.End))
		}
		if startErr != nil || endErr != nil {
			continue
		}
		if end <= start {
			errs = append(errs, fmt.Errorf("%s: end %s is not after start %s", prefix, s.End, s.Start))
			continue
		}
		byDay[s.Day] = append(byDay[s.Day], window{index: i, start: start, end: end})
	}

	dayNumbers := make([]int, 0, len(byDay))
	for d := range byDay {
		dayNumbers = append(dayNumbers, d)
	}
	sort.Ints(dayNumbers)
	for _, d := range dayNumbers {
		ws := byDay[d]
		sort.Slice(ws, func(i, j int) bool { return ws[i].start < ws[j].start })
		for k := 1; k < len(ws); k++ {
			if ws[k].start < ws[k-1].end {
				errs = append(errs, fmt.Errorf("slots[%d] overlaps slots[%d] on day %d", ws[k].index, ws[k-1].index, d))
			}
		}
	}
	return errs
}

// parseClock returns the offset of "HH:MM" from midnight. "24:00" is
// accepted as the end of the day.
func parseClock(v string) (time.Duration, error) {
	if v == "24:00" {
		return 24 * time.Hour, nil
	}
	t, err := time.Parse(clockLayout, v)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
