package importer

import (
	"fmt"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/google/uuid"
)

// Itinerary is a converted file: a trip and everything placed on it.
type Itinerary struct {
	Trip  *domain.Trip
	Nodes []*domain.ActivityNode
	Slots []*domain.ItinerarySlot
}

const (
	defaultQuality  = 0.5
	defaultDuration = 60
)

// Convert turns a validated file into domain objects with fresh ids.
// Call Validate first; Convert assumes the file is valid.
func Convert(f *TripFile, now time.Time) (*Itinerary, error) {
	start, err := time.Parse(dateLayout, f.Trip.StartDate)
	if err != nil {
		return nil, fmt.Errorf("parsing start_date: %w", err)
	}
	end, err := time.Parse(dateLayout, f.Trip.EndDate)
	if err != nil {
		return nil, fmt.Errorf("parsing end_date: %w", err)
	}

	status := domain.TripStatus(f.Trip.Status)
	if status == "" {
		status = domain.TripPlanned
	}
	trip := &domain.Trip{
		ID:          uuid.New().String(),
		OwnerUserID: f.Trip.OwnerUserID,
		Timezone:    f.Trip.Timezone,
		Status:      status,
		StartDate:   start,
		EndDate:     end,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	refMap := make(map[string]string, len(f.Activities))
	nodes := make([]*domain.ActivityNode, 0, len(f.Activities))
	for _, a := range f.Activities {
		id := uuid.New().String()
		refMap[a.Ref] = id

		quality := defaultQuality
		if a.Quality != nil {
			quality = *a.Quality
		}
		duration := defaultDuration
		if a.TypicalDurationMin != nil {
			duration = *a.TypicalDurationMin
		}
		nodes = append(nodes, &domain.ActivityNode{
			ID:                 id,
			Name:               a.Name,
			Location:           domain.LatLng{Lat: a.Lat, Lng: a.Lng},
			Category:           a.Category,
			Tags:               a.Tags,
			QualityScore:       quality,
			TypicalDurationMin: duration,
			IsActive:           !a.Closed,
			ReviewStatus:       domain.ReviewNone,
			CreatedAt:          now,
			UpdatedAt:          now,
		})
	}

	slots := make([]*domain.ItinerarySlot, 0, len(f.Slots))
	for i, s := range f.Slots {
		from, err := parseClock(s.Start)
		if err != nil {
			return nil, fmt.Errorf("slots[%d].start: %w", i, err)
		}
		to, err := parseClock(s.End)
		if err != nil {
			return nil, fmt.Errorf("slots[%d].end: %w", i, err)
		}
		nodeID, ok := refMap[s.Activity]
		if !ok {
			return nil, fmt.Errorf("slots[%d].activity: unknown ref %q", i, s.Activity)
		}

		slotStatus := domain.SlotStatus(s.Status)
		if slotStatus == "" {
			slotStatus = domain.SlotConfirmed
		}
		midnight := trip.DayDate(s.Day)
		slots = append(slots, &domain.ItinerarySlot{
			ID:             uuid.New().String(),
			TripID:         trip.ID,
			DayNumber:      s.Day,
			StartTime:      midnight.Add(from),
			EndTime:        midnight.Add(to),
			ActivityNodeID: nodeID,
			Status:         slotStatus,
			Locked:         s.Locked,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
	}

	return &Itinerary{Trip: trip, Nodes: nodes, Slots: slots}, nil
}
