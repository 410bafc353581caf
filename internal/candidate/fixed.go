package candidate

import (
	"sort"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
)

// DefaultDayStartHour is the earliest local hour a moved slot may start.
const DefaultDayStartHour = 9

// Extend offers the same activity with extra minutes.
func Extend(slot *domain.ItinerarySlot, minutes int) []domain.Candidate {
	if slot == nil || minutes <= 0 {
		return nil
	}
	return []domain.Candidate{{
		Rank:           1,
		Kind:           domain.CandidateExtend,
		ActivityNodeID: slot.ActivityNodeID,
		Score:          1,
		DurationMin:    int(slot.Duration().Minutes()) + minutes,
		StartTime:      slot.StartTime,
		EndTime:        slot.EndTime.Add(time.Duration(minutes) * time.Minute),
		DayNumber:      slot.DayNumber,
	}}
}

// MoveDayRequest locates a slot that no longer fits its day.
type MoveDayRequest struct {
	Trip *domain.Trip
	Slot *domain.ItinerarySlot
	// NextDaySlots are the slots already on the following day.
	NextDaySlots []*domain.ItinerarySlot
	DayStartHour int
	DayEndHour   int
	MinGap       time.Duration
}

// MoveDay offers the slot's activity in the first free window of the next
// day. The last day of a trip has no next day and yields nothing.
func MoveDay(req MoveDayRequest) []domain.Candidate {
	if req.Trip == nil || req.Slot == nil {
		return nil
	}
	next := req.Slot.DayNumber + 1
	if next > req.Trip.DayCount() {
		return nil
	}
	startHour := req.DayStartHour
	if startHour <= 0 {
		startHour = DefaultDayStartHour
	}
	dur := req.Slot.Duration()
	dayEnd := req.Trip.DayEnd(next, req.DayEndHour)

	window, ok := firstFreeWindow(req.Trip.DayDate(next).Add(time.Duration(startHour)*time.Hour), dayEnd, dur, req.MinGap, req.NextDaySlots)
	if !ok {
		return nil
	}
	return []domain.Candidate{{
		Rank:           1,
		Kind:           domain.CandidateMoveDay,
		ActivityNodeID: req.Slot.ActivityNodeID,
		Score:          1,
		DurationMin:    int(dur.Minutes()),
		StartTime:      window,
		EndTime:        window.Add(dur),
		DayNumber:      next,
	}}
}

func firstFreeWindow(cursor, dayEnd time.Time, dur, gap time.Duration, slots []*domain.ItinerarySlot) (time.Time, bool) {
	busy := make([]*domain.ItinerarySlot, 0, len(slots))
	for _, s := range slots {
		if s.Status != domain.SlotSkipped {
			busy = append(busy, s)
		}
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].StartTime.Before(busy[j].StartTime) })

	for _, s := range busy {
		if !cursor.Add(dur).Add(gap).After(s.StartTime) {
			break
		}
		if end := s.EndTime.Add(gap); end.After(cursor) {
			cursor = end
		}
	}
	if cursor.Add(dur).After(dayEnd) {
		return time.Time{}, false
	}
	return cursor, true
}
