package api

import (
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/alexanderramin/waypoint/internal/service"
	"github.com/alexanderramin/waypoint/internal/trust"
)

type candidateJSON struct {
	Rank           int       `json:"rank"`
	Kind           string    `json:"kind"`
	ActivityNodeID string    `json:"activity_node_id"`
	Category       string    `json:"category,omitempty"`
	Score          float64   `json:"score"`
	DistanceM      float64   `json:"distance_m"`
	DurationMin    int       `json:"duration_min"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	DayNumber      int       `json:"day_number"`
}

type pivotJSON struct {
	ID             string          `json:"id"`
	TripID         string          `json:"trip_id"`
	SlotID         string          `json:"slot_id"`
	TriggerType    string          `json:"trigger_type"`
	Depth          int             `json:"depth"`
	ParentPivotID  *string         `json:"parent_pivot_id"`
	Status         string          `json:"status"`
	Candidates     []candidateJSON `json:"candidates"`
	SelectedRank   *int            `json:"selected_rank"`
	ResponseTimeMs *int64          `json:"response_time_ms"`
	CreatedAt      time.Time       `json:"created_at"`
	ResolvedAt     *time.Time      `json:"resolved_at"`
}

func toCandidatesJSON(cs []domain.Candidate) []candidateJSON {
	out := make([]candidateJSON, 0, len(cs))
	for _, c := range cs {
		out = append(out, candidateJSON{
			Rank:           c.Rank,
			Kind:           string(c.Kind),
			ActivityNodeID: c.ActivityNodeID,
			Category:       c.Category,
			Score:          c.Score,
			DistanceM:      c.DistanceM,
			DurationMin:    c.DurationMin,
			StartTime:      c.StartTime,
			EndTime:        c.EndTime,
			DayNumber:      c.DayNumber,
		})
	}
	return out
}

func toPivotJSON(p *domain.PivotEvent) pivotJSON {
	return pivotJSON{
		ID:             p.ID,
		TripID:         p.TripID,
		SlotID:         p.SlotID,
		TriggerType:    string(p.TriggerType),
		Depth:          p.Depth,
		ParentPivotID:  p.ParentPivotID,
		Status:         string(p.Status),
		Candidates:     toCandidatesJSON(p.Candidates),
		SelectedRank:   p.SelectedRank,
		ResponseTimeMs: p.ResponseTimeMs,
		CreatedAt:      p.CreatedAt,
		ResolvedAt:     p.ResolvedAt,
	}
}

func optionalPivot(p *domain.PivotEvent) *pivotJSON {
	if p == nil {
		return nil
	}
	j := toPivotJSON(p)
	return &j
}

type slotMoveJSON struct {
	SlotID    string    `json:"slot_id"`
	DayNumber int       `json:"day_number"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type decisionJSON struct {
	Pivot        pivotJSON      `json:"pivot"`
	DeltaMinutes int            `json:"delta_minutes"`
	Target       *slotMoveJSON  `json:"target,omitempty"`
	Inserted     *slotMoveJSON  `json:"inserted,omitempty"`
	Shifted      []slotMoveJSON `json:"shifted"`
	Overflow     []string       `json:"overflow"`
	FollowUps    []pivotJSON    `json:"follow_ups"`
}

func toSlotMove(s *domain.ItinerarySlot) *slotMoveJSON {
	if s == nil {
		return nil
	}
	return &slotMoveJSON{SlotID: s.ID, DayNumber: s.DayNumber, StartTime: s.StartTime, EndTime: s.EndTime}
}

func toDecisionJSON(d *pivot.Decision) decisionJSON {
	out := decisionJSON{
		Pivot:     toPivotJSON(d.Pivot),
		Shifted:   []slotMoveJSON{},
		Overflow:  []string{},
		FollowUps: []pivotJSON{},
	}
	if d.Plan != nil {
		out.DeltaMinutes = int(d.Plan.Delta.Minutes())
		out.Target = toSlotMove(d.Plan.Target)
		out.Inserted = toSlotMove(d.Plan.Inserted)
		for _, sh := range d.Plan.Shifts {
			out.Shifted = append(out.Shifted, *toSlotMove(sh.Slot))
		}
		for _, s := range d.Plan.Overflow {
			out.Overflow = append(out.Overflow, s.ID)
		}
	}
	for _, p := range d.FollowUps {
		out.FollowUps = append(out.FollowUps, toPivotJSON(p))
	}
	return out
}

type triggerResultJSON struct {
	SlotID      string     `json:"slot_id"`
	TriggerType string     `json:"trigger_type"`
	Reason      string     `json:"reason"`
	Outcome     string     `json:"outcome"`
	Pivot       *pivotJSON `json:"pivot"`
	Error       string     `json:"error,omitempty"`
}

func toTriggerResultJSON(r service.TriggerResult) triggerResultJSON {
	return triggerResultJSON{
		SlotID:      r.Trigger.SlotID,
		TriggerType: string(r.Trigger.Type),
		Reason:      r.Trigger.Reason,
		Outcome:     string(r.Outcome),
		Pivot:       optionalPivot(r.Pivot),
		Error:       r.Err,
	}
}

type promptJSON struct {
	Action         string     `json:"action"`
	Category       string     `json:"category,omitempty"`
	Outcome        string     `json:"parse_outcome"`
	FallbackReason string     `json:"fallback_reason,omitempty"`
	Truncated      bool       `json:"truncated"`
	NoTarget       bool       `json:"no_target"`
	Result         string     `json:"result,omitempty"`
	Pivot          *pivotJSON `json:"pivot"`
}

func toPromptJSON(o *service.PromptOutcome) promptJSON {
	out := promptJSON{
		Action:         string(o.Parse.Action),
		Category:       o.Parse.Category,
		Outcome:        string(o.Parse.Outcome),
		FallbackReason: o.Parse.FallbackReason,
		Truncated:      o.Parse.Truncated,
		NoTarget:       o.NoTarget,
	}
	if o.Trigger != nil {
		out.Result = string(o.Trigger.Outcome)
		out.Pivot = optionalPivot(o.Trigger.Pivot)
	}
	return out
}

type auditJSON struct {
	ID        string         `json:"id"`
	SlotID    string         `json:"slot_id,omitempty"`
	Kind      string         `json:"kind"`
	Outcome   string         `json:"outcome"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

func toAuditJSON(a *domain.AuditRecord) auditJSON {
	return auditJSON{
		ID:        a.ID,
		SlotID:    a.SlotID,
		Kind:      string(a.Kind),
		Outcome:   a.Outcome,
		Metadata:  a.Metadata,
		CreatedAt: a.CreatedAt,
	}
}

type contentFlagJSON struct {
	ID             string    `json:"id"`
	ActivityNodeID string    `json:"activity_node_id"`
	SlotID         string    `json:"slot_id"`
	ReporterUserID string    `json:"reporter_user_id"`
	Note           string    `json:"note,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type injectionFlagJSON struct {
	ID           string    `json:"id"`
	TripID       string    `json:"trip_id"`
	UserID       string    `json:"user_id"`
	PatternClass string    `json:"pattern_class"`
	TextLength   int       `json:"text_length"`
	CreatedAt    time.Time `json:"created_at"`
}

func toQueueJSON(q *trust.Queue) map[string]any {
	content := make([]contentFlagJSON, 0, len(q.Content))
	for _, f := range q.Content {
		content = append(content, contentFlagJSON{
			ID:             f.ID,
			ActivityNodeID: f.ActivityNodeID,
			SlotID:         f.SlotID,
			ReporterUserID: f.ReporterUserID,
			Note:           f.Note,
			CreatedAt:      f.CreatedAt,
		})
	}
	injections := make([]injectionFlagJSON, 0, len(q.Injections))
	for _, f := range q.Injections {
		injections = append(injections, injectionFlagJSON{
			ID:           f.ID,
			TripID:       f.TripID,
			UserID:       f.UserID,
			PatternClass: f.PatternClass,
			TextLength:   f.TextLength,
			CreatedAt:    f.CreatedAt,
		})
	}
	return map[string]any{"content": content, "injections": injections}
}
