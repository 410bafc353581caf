// Package cascade turns an accepted pivot into concrete slot changes for the
// rest of the day. Planning is pure; Apply writes a plan inside a caller's
// transaction.
package cascade

import (
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/google/uuid"
)

type Config struct {
	// MinGap is the smallest gap the cascade leaves between two slots.
	MinGap time.Duration
	// DayEndHour is the local hour no moved slot may end after.
	DayEndHour int
}

// Input is one accepted candidate and the day it lands in.
type Input struct {
	Trip      *domain.Trip
	PivotID   string
	Candidate domain.Candidate
	Target    *domain.ItinerarySlot
	// DaySlots holds every slot of the target's day, target included.
	DaySlots []*domain.ItinerarySlot
	Now      time.Time
}

// Shift records one following slot's move.
type Shift struct {
	Slot     *domain.ItinerarySlot
	OldStart time.Time
	OldEnd   time.Time
}

// Plan is the full set of changes for one acceptance. Slots are copies; the
// caller's inputs are never modified.
type Plan struct {
	Target   *domain.ItinerarySlot
	Inserted *domain.ItinerarySlot
	Shifts   []Shift
	// Overflow slots were pushed past the day end. They are shifted like the
	// rest, so the day never overlaps, and marked proposed until a day
	// overflow pivot resolves them.
	Overflow []*domain.ItinerarySlot
	Delta    time.Duration
}

// Touched lists every existing slot the plan rewrites.
func (p *Plan) Touched() []*domain.ItinerarySlot {
	out := []*domain.ItinerarySlot{}
	if p.Target != nil {
		out = append(out, p.Target)
	}
	for _, s := range p.Shifts {
		out = append(out, s.Slot)
	}
	return out
}

// Build plans the change. A locked target is a data integrity failure.
func Build(cfg Config, in Input) (*Plan, error) {
	if in.Trip == nil || in.Target == nil {
		return nil, domain.NewValidationError("cascade needs a trip and a target slot")
	}
	if in.Target.Locked {
		return nil, domain.NewDataIntegrityError(fmt.Sprintf("slot %s is locked", in.Target.ID))
	}
	if in.Target.IsSettled() {
		return nil, domain.NewValidationError(fmt.Sprintf("slot %s is already %s", in.Target.ID, in.Target.Status))
	}

	target := clone(in.Target)
	plan := &Plan{}
	var cursor time.Time

	switch in.Candidate.Kind {
	case domain.CandidateSwap:
		if in.Candidate.StartTime.After(target.StartTime) {
			target.StartTime = in.Candidate.StartTime
		}
		newEnd := target.StartTime.Add(time.Duration(in.Candidate.DurationMin) * time.Minute)
		if err := target.ApplySwap(in.Candidate.ActivityNodeID, in.PivotID, newEnd, in.Now); err != nil {
			return nil, err
		}
		plan.Delta = newEnd.Sub(in.Target.EndTime)
		plan.Target = target
		cursor = target.EndTime

	case domain.CandidateExtend:
		if !in.Candidate.EndTime.After(target.EndTime) {
			return nil, domain.NewValidationError("extension must lengthen the slot")
		}
		plan.Delta = in.Candidate.EndTime.Sub(target.EndTime)
		target.EndTime = in.Candidate.EndTime
		target.UpdatedAt = in.Now
		plan.Target = target
		cursor = target.EndTime

	case domain.CandidateMicroStop:
		plan.Inserted = &domain.ItinerarySlot{
			ID:             uuid.NewString(),
			TripID:         target.TripID,
			DayNumber:      target.DayNumber,
			StartTime:      in.Candidate.StartTime,
			EndTime:        in.Candidate.EndTime,
			ActivityNodeID: in.Candidate.ActivityNodeID,
			Status:         domain.SlotProposed,
			Flexible:       true,
			CreatedAt:      in.Now,
			UpdatedAt:      in.Now,
		}
		plan.Delta = in.Candidate.EndTime.Sub(in.Candidate.StartTime) + cfg.MinGap
		cursor = plan.Inserted.EndTime

	case domain.CandidateMoveDay:
		if in.Candidate.DayNumber <= target.DayNumber {
			return nil, domain.NewValidationError("a slot can only move to a later day")
		}
		target.DayNumber = in.Candidate.DayNumber
		target.StartTime = in.Candidate.StartTime
		target.EndTime = in.Candidate.EndTime
		target.Status = domain.SlotConfirmed
		target.UpdatedAt = in.Now
		plan.Target = target
		// Leaving a day never pulls the rest of it earlier.
		return plan, nil

	default:
		return nil, domain.NewValidationError(fmt.Sprintf("unknown candidate kind %q", in.Candidate.Kind))
	}

	changed := plan.Inserted
	if changed == nil {
		changed = plan.Target
	}
	if a := overlappingAnchor(changed, in.DaySlots); a != nil {
		return nil, domain.NewValidationError(fmt.Sprintf("change would overlap locked slot %s", a.ID))
	}
	if changed.EndTime.After(in.Trip.DayEnd(changed.DayNumber, cfg.DayEndHour)) {
		return nil, domain.NewValidationError("change would run past the end of the day")
	}

	shiftFollowing(cfg, in, plan, cursor)
	return plan, nil
}

func overlappingAnchor(s *domain.ItinerarySlot, day []*domain.ItinerarySlot) *domain.ItinerarySlot {
	for _, a := range day {
		if !a.Locked || a.ID == s.ID || a.DayNumber != s.DayNumber {
			continue
		}
		if s.EndTime.After(a.StartTime) && s.StartTime.Before(a.EndTime) {
			return a
		}
	}
	return nil
}

// shiftFollowing moves the slots after the target by the plan's delta in
// start order. Locked slots stay put and act as anchors; a slot that would
// overlap one is routed after it. No slot starts sooner than MinGap after
// the previous one ends, including slots pushed past the day end.
func shiftFollowing(cfg Config, in Input, plan *Plan, cursor time.Time) {
	dayEnd := in.Trip.DayEnd(in.Target.DayNumber, cfg.DayEndHour)

	var following, anchors []*domain.ItinerarySlot
	for _, s := range in.DaySlots {
		if s.ID == in.Target.ID || s.DayNumber != in.Target.DayNumber {
			continue
		}
		if s.Locked {
			anchors = append(anchors, s)
		}
		if s.StartTime.Before(in.Target.StartTime) {
			continue
		}
		following = append(following, s)
	}
	sortByStart(following)
	sortByStart(anchors)

	prevEnd := cursor
	for _, s := range following {
		if s.Locked {
			if s.EndTime.After(prevEnd) {
				prevEnd = s.EndTime
			}
			continue
		}
		if s.IsSettled() {
			continue
		}

		start := s.StartTime.Add(plan.Delta)
		if floor := prevEnd.Add(cfg.MinGap); start.Before(floor) {
			start = floor
		}
		start = routeAroundAnchors(start, s.Duration(), cfg.MinGap, anchors)
		end := start.Add(s.Duration())
		prevEnd = end
		if start.Equal(s.StartTime) {
			continue
		}
		moved := clone(s)
		moved.StartTime = start
		moved.EndTime = end
		moved.UpdatedAt = in.Now
		if end.After(dayEnd) {
			moved.Status = domain.SlotProposed
			plan.Overflow = append(plan.Overflow, moved)
		}
		plan.Shifts = append(plan.Shifts, Shift{Slot: moved, OldStart: s.StartTime, OldEnd: s.EndTime})
	}
}

// routeAroundAnchors pushes start past every anchor the window would touch,
// keeping MinGap on both sides.
func routeAroundAnchors(start time.Time, dur, gap time.Duration, anchors []*domain.ItinerarySlot) time.Time {
	for _, a := range anchors {
		end := start.Add(dur)
		if end.Add(gap).After(a.StartTime) && start.Before(a.EndTime.Add(gap)) {
			start = a.EndTime.Add(gap)
		}
	}
	return start
}

func sortByStart(slots []*domain.ItinerarySlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if !slots[i].StartTime.Equal(slots[j].StartTime) {
			return slots[i].StartTime.Before(slots[j].StartTime)
		}
		return slots[i].ID < slots[j].ID
	})
}

func clone(s *domain.ItinerarySlot) *domain.ItinerarySlot {
	c := *s
	if s.PivotEventID != nil {
		id := *s.PivotEventID
		c.PivotEventID = &id
	}
	return &c
}
