// Package candidate produces ranked replacement options for an itinerary slot.
// Every mode returns an empty slice, not an error, when nothing qualifies.
package candidate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/geo"
)

// Micro-stop durations are clamped to this window.
const (
	MicroStopMinMinutes = 15
	MicroStopMaxMinutes = 30
)

// NodeSource is the coarse spatial lookup the generator searches.
type NodeSource interface {
	ListWithinBox(ctx context.Context, box geo.BoundingBox, activeOnly bool) ([]*domain.ActivityNode, error)
}

type Config struct {
	TopK             int
	SwapRadiusM      float64
	MicroStopRadiusM float64
	WeightDistance   float64
	WeightQuality    float64
	WeightTag        float64
}

type Generator struct {
	cfg   Config
	nodes NodeSource
}

func NewGenerator(cfg Config, nodes NodeSource) *Generator {
	if cfg.TopK <= 0 {
		cfg.TopK = 3
	}
	return &Generator{cfg: cfg, nodes: nodes}
}

// SwapRequest describes the slot to replace and what to avoid.
type SwapRequest struct {
	Slot   *domain.ItinerarySlot
	Origin *domain.ActivityNode
	// DaySlots are the other slots of the same day; their nodes are excluded.
	DaySlots    []*domain.ItinerarySlot
	Rejected    map[string]bool
	TriggerType domain.TriggerType
	Category    string
	// Now keeps a replacement for a slot already under way from starting in
	// the past.
	Now time.Time
}

type scored struct {
	node     *domain.ActivityNode
	distance float64
	score    float64
}

// Swap ranks nearby nodes that could take the slot's place.
func (g *Generator) Swap(ctx context.Context, req SwapRequest) ([]domain.Candidate, error) {
	if req.Slot == nil || req.Origin == nil {
		return nil, domain.NewValidationError("swap requires a slot and its current node")
	}
	radius := g.cfg.SwapRadiusM
	nodes, err := g.nodes.ListWithinBox(ctx, geo.BoxAround(req.Origin.Location, radius), true)
	if err != nil {
		return nil, fmt.Errorf("searching swap candidates: %w", err)
	}

	scheduled := map[string]bool{}
	for _, s := range req.DaySlots {
		if s.DayNumber == req.Slot.DayNumber && s.Status != domain.SlotSkipped {
			scheduled[s.ActivityNodeID] = true
		}
	}
	wanted := req.Category
	if wanted == "" {
		wanted = req.Origin.Category
	}

	var pool []scored
	for _, n := range nodes {
		switch {
		case !n.IsActive, n.ID == req.Origin.ID, n.ID == req.Slot.ActivityNodeID:
			continue
		case req.Rejected[n.ID], scheduled[n.ID]:
			continue
		case req.TriggerType == domain.TriggerWeather && !n.HasTag(domain.IndoorTag):
			continue
		case req.Category != "" && n.Category != req.Category:
			continue
		}
		if !geo.WithinRadius(req.Origin.Location, n.Location, radius) {
			continue
		}
		d := geo.DistanceM(req.Origin.Location, n.Location)
		pool = append(pool, scored{
			node:     n,
			distance: d,
			score:    g.score(d, radius, n.QualityScore, tagMatch(req.Origin, n, wanted)),
		})
	}

	fallback := int(req.Slot.Duration().Minutes())
	start := req.Slot.StartTime
	if req.Now.After(start) {
		start = req.Now
	}
	return g.rank(pool, func(n *domain.ActivityNode) (int, time.Time, domain.CandidateKind) {
		dur := n.TypicalDurationMin
		if dur <= 0 {
			dur = fallback
		}
		return dur, start, domain.CandidateSwap
	}, req.Slot.DayNumber), nil
}

// MicroStopRequest places a short stop right after Anchor, searching around
// Center (the traveler's position or the next waypoint).
type MicroStopRequest struct {
	Anchor   *domain.ItinerarySlot
	Center   domain.LatLng
	Category string
	Exclude  map[string]bool
}

// MicroStop finds short insertions within the micro-stop radius. A node
// exactly on the radius qualifies.
func (g *Generator) MicroStop(ctx context.Context, req MicroStopRequest) ([]domain.Candidate, error) {
	if req.Anchor == nil {
		return nil, domain.NewValidationError("micro-stop requires an anchor slot")
	}
	radius := g.cfg.MicroStopRadiusM
	nodes, err := g.nodes.ListWithinBox(ctx, geo.BoxAround(req.Center, radius), true)
	if err != nil {
		return nil, fmt.Errorf("searching micro-stop candidates: %w", err)
	}

	var pool []scored
	for _, n := range nodes {
		if !n.IsActive || n.ID == req.Anchor.ActivityNodeID || req.Exclude[n.ID] {
			continue
		}
		if req.Category != "" && n.Category != req.Category {
			continue
		}
		if !geo.WithinRadius(req.Center, n.Location, radius) {
			continue
		}
		d := geo.DistanceM(req.Center, n.Location)
		match := 0.0
		if req.Category != "" {
			match = 1
		}
		pool = append(pool, scored{node: n, distance: d, score: g.score(d, radius, n.QualityScore, match)})
	}

	return g.rank(pool, func(n *domain.ActivityNode) (int, time.Time, domain.CandidateKind) {
		return ClampMicroStop(n.TypicalDurationMin), req.Anchor.EndTime, domain.CandidateMicroStop
	}, req.Anchor.DayNumber), nil
}

// ClampMicroStop bounds a typical duration to the micro-stop window.
func ClampMicroStop(minutes int) int {
	return min(max(minutes, MicroStopMinMinutes), MicroStopMaxMinutes)
}

func (g *Generator) score(distance, radius, quality, match float64) float64 {
	closeness := 0.0
	if radius > 0 {
		closeness = max(0, 1-distance/radius)
	}
	return g.cfg.WeightDistance*closeness + g.cfg.WeightQuality*quality + g.cfg.WeightTag*match
}

// rank orders by score, then distance, then id, and keeps the top K.
func (g *Generator) rank(pool []scored, shape func(*domain.ActivityNode) (int, time.Time, domain.CandidateKind), day int) []domain.Candidate {
	sort.Slice(pool, func(i, j int) bool {
		if pool[i].score != pool[j].score {
			return pool[i].score > pool[j].score
		}
		if pool[i].distance != pool[j].distance {
			return pool[i].distance < pool[j].distance
		}
		return pool[i].node.ID < pool[j].node.ID
	})
	if len(pool) > g.cfg.TopK {
		pool = pool[:g.cfg.TopK]
	}
	out := make([]domain.Candidate, 0, len(pool))
	for i, p := range pool {
		dur, start, kind := shape(p.node)
		out = append(out, domain.Candidate{
			Rank:           i + 1,
			Kind:           kind,
			ActivityNodeID: p.node.ID,
			Category:       p.node.Category,
			Score:          p.score,
			DistanceM:      p.distance,
			DurationMin:    dur,
			StartTime:      start,
			EndTime:        start.Add(time.Duration(dur) * time.Minute),
			DayNumber:      day,
		})
	}
	return out
}

// tagMatch is 1 for the wanted category, otherwise the share of the
// origin's descriptive tags the node also carries.
func tagMatch(origin, n *domain.ActivityNode, wanted string) float64 {
	if n.Category == wanted {
		return 1
	}
	var total, shared int
	for _, t := range origin.Tags {
		if t == domain.OutdoorTag || t == domain.IndoorTag {
			continue
		}
		total++
		if n.HasTag(t) {
			shared++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(shared) / float64(total)
}
