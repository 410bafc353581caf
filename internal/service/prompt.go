package service

import (
	"context"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/prompt"
	"github.com/alexanderramin/waypoint/internal/trigger"
)

// PromptOutcome reports what a free-text request led to. Trigger is nil
// when the text was not usable or no slot could take the action.
type PromptOutcome struct {
	Parse    prompt.Result
	Trigger  *TriggerResult
	NoTarget bool
}

// SubmitPrompt parses traveler free text and, when it names a usable
// action, proposes a pivot for it. The raw text goes no further than the
// parser.
func (e *Engine) SubmitPrompt(ctx context.Context, principal domain.Principal, tripID, text string) (out *PromptOutcome, err error) {
	started := time.Now()
	fields := map[string]any{"trip_id": tripID}
	defer e.observe(ctx, "submit_prompt", started, fields, &err)

	if err := principal.Require(domain.ScopeTripWrite, tripID); err != nil {
		return nil, err
	}
	now := e.now()
	st, err := e.loadTrip(ctx, tripID, now)
	if err != nil {
		return nil, err
	}

	res := e.parser.Parse(ctx, principal, tripID, text)
	e.metrics.Parses.WithLabelValues(string(res.Outcome)).Inc()
	out = &PromptOutcome{Parse: res}
	fields["parse_outcome"] = string(res.Outcome)
	if !res.Usable() {
		return out, nil
	}

	target := promptTarget(st.slots, res.Action, now)
	if target == nil {
		out.NoTarget = true
		return out, nil
	}
	t := domain.Trigger{
		TripID:     tripID,
		SlotID:     target.ID,
		Type:       domain.TriggerFreeText,
		Reason:     "traveler asked to " + string(res.Action),
		Category:   res.Category,
		Action:     string(res.Action),
		DetectedAt: now,
	}
	e.metrics.Triggers.WithLabelValues(string(t.Type)).Inc()
	cands, err := e.candidatesFor(ctx, st, t)
	if err != nil {
		return nil, err
	}
	r := e.propose(ctx, principal, t, cands)
	out.Trigger = &r
	fields["outcome"] = string(r.Outcome)
	return out, nil
}

// promptTarget picks the slot an action applies to. Replacing or skipping
// falls through to the next movable slot when the current one is fixed.
// Pausing and extending only make sense for the current slot.
func promptTarget(slots []*domain.ItinerarySlot, action prompt.Action, now time.Time) *domain.ItinerarySlot {
	cur := trigger.CurrentSlot(slots, now)
	if cur != nil && cur.Movable() {
		return cur
	}
	if action == prompt.ActionPause || action == prompt.ActionExtend {
		return nil
	}
	for _, s := range slots {
		if s.IsUpcoming(now) && s.Movable() {
			return s
		}
	}
	return nil
}
