// Package trigger detects real-world conditions on an active trip that
// warrant replacing an upcoming itinerary slot.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/waypoint/internal/cooldown"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/google/uuid"
)

// AdverseConditions are weather conditions that always threaten outdoor slots.
var AdverseConditions = map[string]bool{
	"storm":        true,
	"thunderstorm": true,
	"heavy_rain":   true,
	"rain":         true,
	"snow":         true,
	"hail":         true,
	"extreme_heat": true,
}

// Snapshot is everything the detector looks at for one trip.
type Snapshot struct {
	Trip     *domain.Trip
	Slots    []*domain.ItinerarySlot
	Nodes    map[string]*domain.ActivityNode
	Weather  *domain.WeatherSnapshot
	Location *domain.LatLng
	Moods    []domain.MoodReport
	Now      time.Time
}

type Config struct {
	WeatherLookahead     time.Duration
	WeatherRiskThreshold float64
	OverrunThreshold     time.Duration
	MoodThreshold        int
	Cooldown             time.Duration
}

// AuditWriter persists evaluation audits.
type AuditWriter interface {
	Create(ctx context.Context, a *domain.AuditRecord) error
}

type Detector struct {
	cfg      Config
	cooldown cooldown.Store
	audits   AuditWriter
	logger   *slog.Logger
}

func NewDetector(cfg Config, store cooldown.Store, audits AuditWriter, logger *slog.Logger) *Detector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Detector{cfg: cfg, cooldown: store, audits: audits, logger: logger}
}

// Evaluate runs every rule over the snapshot and returns the triggers that
// survived deduplication, ordered by slot start. Each slot yields at most
// one trigger per pass.
func (d *Detector) Evaluate(ctx context.Context, snap Snapshot) ([]domain.Trigger, error) {
	if snap.Trip == nil {
		return nil, domain.NewValidationError("snapshot has no trip")
	}
	if snap.Trip.Status != domain.TripActive {
		d.audit(ctx, snap, "", domain.AuditTriggerEvaluated, "trip_not_active", map[string]any{
			"trip_status": string(snap.Trip.Status),
		})
		return nil, nil
	}

	detected := d.Detect(snap)

	var out []domain.Trigger
	suppressed := 0
	for _, t := range detected {
		if d.cooldown != nil {
			ok, err := d.cooldown.Acquire(ctx, cooldown.TriggerKey(t.TripID, t.SlotID, string(t.Type)), d.cfg.Cooldown)
			if err != nil {
				return nil, fmt.Errorf("claiming trigger cooldown: %w", err)
			}
			if !ok {
				suppressed++
				d.audit(ctx, snap, t.SlotID, domain.AuditCooldownSuppressed, string(t.Type), nil)
				continue
			}
		}
		out = append(out, t)
	}

	d.audit(ctx, snap, "", domain.AuditTriggerEvaluated, outcomeFor(len(out)), map[string]any{
		"slots":      len(snap.Slots),
		"detected":   len(detected),
		"suppressed": suppressed,
		"triggered":  len(out),
	})
	return out, nil
}

func outcomeFor(n int) string {
	if n == 0 {
		return "quiet"
	}
	return "triggered"
}

// Detect applies the rules without touching the cooldown store or audits.
// Rule order decides which trigger a slot keeps when several fire.
func (d *Detector) Detect(snap Snapshot) []domain.Trigger {
	slots := DaySorted(snap.Slots)
	seen := map[string]bool{}
	var out []domain.Trigger
	add := func(slot *domain.ItinerarySlot, typ domain.TriggerType, reason string) {
		if slot == nil || seen[slot.ID] || !slot.Movable() {
			return
		}
		seen[slot.ID] = true
		out = append(out, domain.Trigger{
			TripID:     snap.Trip.ID,
			SlotID:     slot.ID,
			Type:       typ,
			Reason:     reason,
			DetectedAt: snap.Now,
		})
	}

	for _, s := range slots {
		if !s.IsUpcoming(snap.Now) {
			continue
		}
		if node := snap.Nodes[s.ActivityNodeID]; node != nil && !node.IsActive {
			add(s, domain.TriggerClosure, "venue closed")
		}
	}
	for _, s := range slots {
		if reason, ok := d.weatherThreat(snap, s); ok {
			add(s, domain.TriggerWeather, reason)
		}
	}
	if current := CurrentSlot(slots, snap.Now); current != nil {
		if over := snap.Now.Sub(current.EndTime); over >= d.cfg.OverrunThreshold && d.cfg.OverrunThreshold > 0 {
			add(NextMovable(slots, current, snap.Now), domain.TriggerOverrun,
				fmt.Sprintf("current slot overran by %d min", int(over.Minutes())))
		}
		if d.lowMood(snap.Moods, current.ID) {
			add(current, domain.TriggerMood, "low satisfaction reported")
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return slotStart(slots, out[i].SlotID).Before(slotStart(slots, out[j].SlotID))
	})
	return out
}

func (d *Detector) weatherThreat(snap Snapshot, s *domain.ItinerarySlot) (string, bool) {
	if snap.Weather == nil || !s.IsUpcoming(snap.Now) {
		return "", false
	}
	if s.StartTime.Sub(snap.Now) > d.cfg.WeatherLookahead {
		return "", false
	}
	node := snap.Nodes[s.ActivityNodeID]
	if node == nil || !node.IsOutdoor() {
		return "", false
	}
	cond := strings.ToLower(strings.TrimSpace(snap.Weather.Condition))
	if AdverseConditions[cond] {
		return "adverse weather: " + cond, true
	}
	if d.cfg.WeatherRiskThreshold > 0 && snap.Weather.OutdoorRisk >= d.cfg.WeatherRiskThreshold {
		return fmt.Sprintf("outdoor risk %.2f", snap.Weather.OutdoorRisk), true
	}
	return "", false
}

func (d *Detector) lowMood(moods []domain.MoodReport, slotID string) bool {
	for _, m := range moods {
		if m.SlotID == slotID && m.Score <= d.cfg.MoodThreshold {
			return true
		}
	}
	return false
}

func (d *Detector) audit(ctx context.Context, snap Snapshot, slotID string, kind domain.AuditKind, outcome string, meta map[string]any) {
	if d.audits == nil {
		return
	}
	err := d.audits.Create(ctx, &domain.AuditRecord{
		ID:        uuid.NewString(),
		TripID:    snap.Trip.ID,
		SlotID:    slotID,
		Kind:      kind,
		Outcome:   outcome,
		Metadata:  meta,
		CreatedAt: snap.Now.UTC(),
	})
	if err != nil {
		d.logger.Error("recording trigger audit", "kind", kind, "trip_id", snap.Trip.ID, "err", err)
	}
}

// CurrentSlot is the latest started slot that is still unsettled. A slot
// past its end stays current until it is completed or skipped.
func CurrentSlot(slots []*domain.ItinerarySlot, now time.Time) *domain.ItinerarySlot {
	var cur *domain.ItinerarySlot
	for _, s := range slots {
		if s.StartTime.After(now) {
			break
		}
		if !s.IsSettled() {
			cur = s
		}
	}
	return cur
}

// NextMovable is the first upcoming slot after current on the same day
// that rescheduling may touch.
func NextMovable(slots []*domain.ItinerarySlot, current *domain.ItinerarySlot, now time.Time) *domain.ItinerarySlot {
	for _, s := range slots {
		if s.DayNumber == current.DayNumber && s.ID != current.ID && s.IsUpcoming(now) && s.Movable() {
			return s
		}
	}
	return nil
}

// DaySorted orders slots by start time, breaking ties by id.
func DaySorted(slots []*domain.ItinerarySlot) []*domain.ItinerarySlot {
	out := make([]*domain.ItinerarySlot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].StartTime.Before(out[j].StartTime)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func slotStart(slots []*domain.ItinerarySlot, id string) time.Time {
	for _, s := range slots {
		if s.ID == id {
			return s.StartTime
		}
	}
	return time.Time{}
}
