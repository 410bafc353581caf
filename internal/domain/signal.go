package domain

import "time"

// BehavioralSignal is an append-only training label derived from what the
// traveler did.
type BehavioralSignal struct {
	ID             string
	TripID         string
	SlotID         string
	PivotEventID   *string
	ActivityNodeID *string
	Kind           SignalKind
	Weight         float64
	CreatedAt      time.Time
}

// IntentionSignal is an append-only statement of what the traveler wants.
type IntentionSignal struct {
	ID             string
	UserID         string
	TripID         string
	SlotID         string
	ActivityNodeID string
	Source         SignalSource
	Confidence     float64
	CreatedAt      time.Time
}

type RawEvent struct {
	ID        string
	TripID    string
	Kind      string
	Payload   map[string]any
	CreatedAt time.Time
}

// AuditRecord carries outcome metadata only; raw traveler text is never stored.
type AuditRecord struct {
	ID        string
	TripID    string
	SlotID    string
	Kind      AuditKind
	Outcome   string
	Metadata  map[string]any
	CreatedAt time.Time
}

type InjectionFlag struct {
	ID           string
	TripID       string
	UserID       string
	PatternClass string
	TextLength   int
	ReviewStatus ReviewStatus
	CreatedAt    time.Time
}

type ContentFlag struct {
	ID             string
	ActivityNodeID string
	SlotID         string
	ReporterUserID string
	Note           string
	ReviewStatus   ReviewStatus
	CreatedAt      time.Time
}

type WeatherSnapshot struct {
	TripID      string
	Condition   string
	OutdoorRisk float64
	ObservedAt  time.Time
}

type LocationSnapshot struct {
	TripID     string
	Location   LatLng
	ObservedAt time.Time
}

// MoodReport is an explicit satisfaction rating on a slot, 1 (worst) to 5.
type MoodReport struct {
	SlotID     string
	Score      int
	ReportedAt time.Time
}
