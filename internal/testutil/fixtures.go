package testutil

import (
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/google/uuid"
)

// Lisbon is the default fixture location.
var Lisbon = domain.LatLng{Lat: 38.7223, Lng: -9.1393}

// Trip options
type TripOption func(*domain.Trip)

func WithTripStatus(s domain.TripStatus) TripOption {
	return func(t *domain.Trip) {
		t.Status = s
	}
}

func WithTimezone(tz string) TripOption {
	return func(t *domain.Trip) {
		t.Timezone = tz
	}
}

func WithOwner(userID string) TripOption {
	return func(t *domain.Trip) {
		t.OwnerUserID = userID
	}
}

func WithTripID(id string) TripOption {
	return func(t *domain.Trip) {
		t.ID = id
	}
}

// NewTestTrip returns an active UTC trip of the given number of days.
func NewTestTrip(startDate time.Time, days int, opts ...TripOption) *domain.Trip {
	now := time.Now().UTC()
	y, m, d := startDate.Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	t := &domain.Trip{
		ID:          uuid.New().String(),
		OwnerUserID: "user-1",
		Timezone:    "UTC",
		Status:      domain.TripActive,
		StartDate:   start,
		EndDate:     start.AddDate(0, 0, days-1),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// ActivityNode options
type NodeOption func(*domain.ActivityNode)

func WithCategory(c string) NodeOption {
	return func(n *domain.ActivityNode) {
		n.Category = c
	}
}

func WithTags(tags ...string) NodeOption {
	return func(n *domain.ActivityNode) {
		n.Tags = tags
	}
}

func WithQuality(q float64) NodeOption {
	return func(n *domain.ActivityNode) {
		n.QualityScore = q
	}
}

func WithTypicalDuration(min int) NodeOption {
	return func(n *domain.ActivityNode) {
		n.TypicalDurationMin = min
	}
}

func Inactive() NodeOption {
	return func(n *domain.ActivityNode) {
		n.IsActive = false
	}
}

func WithNodeID(id string) NodeOption {
	return func(n *domain.ActivityNode) {
		n.ID = id
	}
}

func NewTestNode(name string, loc domain.LatLng, opts ...NodeOption) *domain.ActivityNode {
	now := time.Now().UTC()
	n := &domain.ActivityNode{
		ID:                 uuid.New().String(),
		Name:               name,
		Location:           loc,
		Category:           "sight",
		Tags:               []string{domain.IndoorTag},
		QualityScore:       0.5,
		TypicalDurationMin: 60,
		IsActive:           true,
		ReviewStatus:       domain.ReviewNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Slot options
type SlotOption func(*domain.ItinerarySlot)

func Locked() SlotOption {
	return func(s *domain.ItinerarySlot) {
		s.Locked = true
	}
}

func WithSlotStatus(st domain.SlotStatus) SlotOption {
	return func(s *domain.ItinerarySlot) {
		s.Status = st
	}
}

func WithSlotID(id string) SlotOption {
	return func(s *domain.ItinerarySlot) {
		s.ID = id
	}
}

// NewTestSlot returns a confirmed slot on the given day starting at start
// and lasting dur.
func NewTestSlot(tripID, nodeID string, day int, start time.Time, dur time.Duration, opts ...SlotOption) *domain.ItinerarySlot {
	now := time.Now().UTC()
	s := &domain.ItinerarySlot{
		ID:             uuid.New().String(),
		TripID:         tripID,
		DayNumber:      day,
		StartTime:      start.UTC(),
		EndTime:        start.Add(dur).UTC(),
		ActivityNodeID: nodeID,
		Status:         domain.SlotConfirmed,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pivot options
type PivotOption func(*domain.PivotEvent)

func WithPivotStatus(st domain.PivotStatus) PivotOption {
	return func(p *domain.PivotEvent) {
		p.Status = st
	}
}

func WithCreatedAt(at time.Time) PivotOption {
	return func(p *domain.PivotEvent) {
		p.CreatedAt = at.UTC()
	}
}

func WithCandidates(cs ...domain.Candidate) PivotOption {
	return func(p *domain.PivotEvent) {
		p.Candidates = cs
	}
}

func WithParent(parent *domain.PivotEvent) PivotOption {
	return func(p *domain.PivotEvent) {
		id := parent.ID
		p.ParentPivotID = &id
		p.Depth = parent.Depth + 1
	}
}

func NewTestPivot(tripID, slotID string, trigger domain.TriggerType, opts ...PivotOption) *domain.PivotEvent {
	p := &domain.PivotEvent{
		ID:          uuid.New().String(),
		TripID:      tripID,
		SlotID:      slotID,
		TriggerType: trigger,
		Depth:       1,
		Status:      domain.PivotProposed,
		CreatedAt:   time.Now().UTC(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SwapCandidate builds a ranked swap candidate replacing slot with nodeID.
func SwapCandidate(rank int, nodeID string, slot *domain.ItinerarySlot, durationMin int) domain.Candidate {
	return domain.Candidate{
		Rank:           rank,
		Kind:           domain.CandidateSwap,
		ActivityNodeID: nodeID,
		Score:          1.0 / float64(rank),
		DurationMin:    durationMin,
		StartTime:      slot.StartTime,
		EndTime:        slot.StartTime.Add(time.Duration(durationMin) * time.Minute),
		DayNumber:      slot.DayNumber,
	}
}
