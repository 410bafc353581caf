package domain

import (
	"fmt"
	"time"
)

type ItinerarySlot struct {
	ID             string
	TripID         string
	DayNumber      int
	StartTime      time.Time
	EndTime        time.Time
	ActivityNodeID string
	Status         SlotStatus
	Locked         bool
	WasSwapped     bool
	PivotEventID   *string
	Flexible       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (s *ItinerarySlot) Duration() time.Duration {
	return s.EndTime.Sub(s.StartTime)
}

// IsSettled reports whether the slot is past any rescheduling.
func (s *ItinerarySlot) IsSettled() bool {
	return s.Status == SlotCompleted || s.Status == SlotSkipped
}

// Movable reports whether automatic rescheduling may touch the slot.
func (s *ItinerarySlot) Movable() bool {
	return !s.Locked && !s.IsSettled()
}

// IsCurrent reports whether now falls inside the slot window.
func (s *ItinerarySlot) IsCurrent(now time.Time) bool {
	return !s.StartTime.After(now) && now.Before(s.EndTime)
}

// IsUpcoming reports whether the slot has not started yet.
func (s *ItinerarySlot) IsUpcoming(now time.Time) bool {
	return s.StartTime.After(now)
}

// ApplySwap replaces the slot's activity as the result of an accepted pivot.
func (s *ItinerarySlot) ApplySwap(nodeID, pivotID string, newEnd time.Time, now time.Time) error {
	if s.Locked {
		return NewDataIntegrityError(fmt.Sprintf("slot %s is locked", s.ID))
	}
	if !newEnd.After(s.StartTime) {
		return NewValidationError("swap must keep a positive duration")
	}
	s.ActivityNodeID = nodeID
	s.WasSwapped = true
	pid := pivotID
	s.PivotEventID = &pid
	s.EndTime = newEnd
	s.Status = SlotConfirmed
	s.UpdatedAt = now
	return nil
}

func (s *ItinerarySlot) Validate() error {
	if s.TripID == "" {
		return NewValidationError("slot trip id is required")
	}
	if s.DayNumber < 1 {
		return NewValidationError(fmt.Sprintf("slot day number must be >= 1, got %d", s.DayNumber))
	}
	if !s.EndTime.After(s.StartTime) {
		return NewValidationError("slot end must be after start")
	}
	if s.ActivityNodeID == "" {
		return NewValidationError("slot activity node id is required")
	}
	return nil
}
