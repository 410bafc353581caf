package domain

import (
	"fmt"
	"time"
)

// Candidate is one option shown to the traveler for a pivot. The full
// ordered set is retained whatever the outcome.
type Candidate struct {
	Rank           int
	Kind           CandidateKind
	ActivityNodeID string
	Category       string
	Score          float64
	DistanceM      float64
	DurationMin    int
	StartTime      time.Time
	EndTime        time.Time
	DayNumber      int
}

// Trigger is a detected condition that may warrant a pivot on a slot.
type Trigger struct {
	TripID   string
	SlotID   string
	Type     TriggerType
	Reason   string
	Category string // requested category, free text only
	Action   string // parsed free-text action, empty for rule triggers

	// ParentPivotID is set when the trigger was raised by another pivot's cascade.
	ParentPivotID *string
	DetectedAt    time.Time
}

func (t Trigger) Validate() error {
	if t.TripID == "" || t.SlotID == "" {
		return NewValidationError("trigger requires trip and slot ids")
	}
	if !ValidTriggerTypes[t.Type] {
		return NewValidationError(fmt.Sprintf("unknown trigger type %q", t.Type))
	}
	return nil
}

type PivotEvent struct {
	ID                 string
	TripID             string
	SlotID             string
	TriggerType        TriggerType
	Depth              int
	ParentPivotID      *string
	Status             PivotStatus
	Candidates         []Candidate
	SelectedRank       *int
	ResponseTimeMs     *int64
	ExpiringNotifiedAt *time.Time
	CreatedAt          time.Time
	ResolvedAt         *time.Time
}

// CandidateByRank returns the displayed candidate with the given 1-based rank.
func (p *PivotEvent) CandidateByRank(rank int) (Candidate, bool) {
	for _, c := range p.Candidates {
		if c.Rank == rank {
			return c, true
		}
	}
	return Candidate{}, false
}

// Resolve moves a proposed pivot into a terminal state.
func (p *PivotEvent) Resolve(status PivotStatus, at time.Time) error {
	if p.Status.IsTerminal() {
		return NewConflictError(fmt.Sprintf("pivot %s is already %s", p.ID, p.Status))
	}
	if !status.IsTerminal() {
		return NewValidationError(fmt.Sprintf("cannot resolve pivot to %s", status))
	}
	p.Status = status
	resolved := at
	p.ResolvedAt = &resolved
	if status != PivotExpired {
		ms := at.Sub(p.CreatedAt).Milliseconds()
		if ms < 0 {
			ms = 0
		}
		p.ResponseTimeMs = &ms
	}
	return nil
}
