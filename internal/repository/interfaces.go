package repository

import (
	"context"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/geo"
)

type TripRepo interface {
	Create(ctx context.Context, t *domain.Trip) error
	GetByID(ctx context.Context, id string) (*domain.Trip, error)
	ListByStatus(ctx context.Context, status domain.TripStatus) ([]*domain.Trip, error)
	UpdateStatus(ctx context.Context, id string, status domain.TripStatus) error
}

type SlotRepo interface {
	Create(ctx context.Context, s *domain.ItinerarySlot) error
	GetByID(ctx context.Context, id string) (*domain.ItinerarySlot, error)
	ListByTrip(ctx context.Context, tripID string) ([]*domain.ItinerarySlot, error)
	ListByTripDay(ctx context.Context, tripID string, dayNumber int) ([]*domain.ItinerarySlot, error)
	Update(ctx context.Context, s *domain.ItinerarySlot) error
}

type ActivityRepo interface {
	Create(ctx context.Context, n *domain.ActivityNode) error
	GetByID(ctx context.Context, id string) (*domain.ActivityNode, error)
	GetByIDs(ctx context.Context, ids []string) (map[string]*domain.ActivityNode, error)
	// ListWithinBox is the coarse prefilter for radius searches; callers
	// still apply the great-circle check.
	ListWithinBox(ctx context.Context, box geo.BoundingBox, activeOnly bool) ([]*domain.ActivityNode, error)
	Update(ctx context.Context, n *domain.ActivityNode) error
	SetReviewStatus(ctx context.Context, id string, status domain.ReviewStatus) error
}

type PivotRepo interface {
	// Create persists the event and its candidate set. A second proposed
	// pivot on the same slot fails with a CONFLICT PivotError.
	Create(ctx context.Context, p *domain.PivotEvent) error
	GetByID(ctx context.Context, id string) (*domain.PivotEvent, error)
	GetProposedBySlot(ctx context.Context, slotID string) (*domain.PivotEvent, error)
	ListByTrip(ctx context.Context, tripID string, status domain.PivotStatus) ([]*domain.PivotEvent, error)
	// Resolve applies p's terminal state only if the row is still proposed.
	// It reports whether this call made the transition.
	Resolve(ctx context.Context, p *domain.PivotEvent) (bool, error)
	ListProposedCreatedBefore(ctx context.Context, cutoff time.Time) ([]*domain.PivotEvent, error)
	ListExpiringUnnotified(ctx context.Context, cutoff time.Time) ([]*domain.PivotEvent, error)
	MarkExpiringNotified(ctx context.Context, id string, at time.Time) (bool, error)
	ListRejectedNodeIDs(ctx context.Context, tripID string) (map[string]bool, error)
}

type SignalRepo interface {
	CreateBehavioral(ctx context.Context, s *domain.BehavioralSignal) error
	ListBehavioralByTrip(ctx context.Context, tripID string) ([]*domain.BehavioralSignal, error)
	CreateIntention(ctx context.Context, s *domain.IntentionSignal) error
	ListIntentionByTrip(ctx context.Context, tripID string) ([]*domain.IntentionSignal, error)
	CreateRawEvent(ctx context.Context, e *domain.RawEvent) error
	ListRawEventsByTrip(ctx context.Context, tripID string) ([]*domain.RawEvent, error)
}

type AuditRepo interface {
	Create(ctx context.Context, a *domain.AuditRecord) error
	ListByTrip(ctx context.Context, tripID string, limit int) ([]*domain.AuditRecord, error)
	ListByKind(ctx context.Context, kind domain.AuditKind, limit int) ([]*domain.AuditRecord, error)
}

type FlagRepo interface {
	CreateInjection(ctx context.Context, f *domain.InjectionFlag) error
	ListPendingInjections(ctx context.Context) ([]*domain.InjectionFlag, error)
	CreateContent(ctx context.Context, f *domain.ContentFlag) error
	ListPendingContent(ctx context.Context) ([]*domain.ContentFlag, error)
}

type SnapshotRepo interface {
	RecordWeather(ctx context.Context, w *domain.WeatherSnapshot) error
	LatestWeather(ctx context.Context, tripID string) (*domain.WeatherSnapshot, error)
	RecordLocation(ctx context.Context, l *domain.LocationSnapshot) error
	LatestLocation(ctx context.Context, tripID string) (*domain.LocationSnapshot, error)
	RecordMood(ctx context.Context, m *domain.MoodReport) error
	ListMoodByTripSince(ctx context.Context, tripID string, since time.Time) ([]domain.MoodReport, error)
}
