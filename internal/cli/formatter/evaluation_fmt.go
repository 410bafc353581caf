package formatter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/alexanderramin/waypoint/internal/pivot"
	"github.com/alexanderramin/waypoint/internal/service"
)

// FormatEvaluation renders one pass of trigger detection over a trip.
func FormatEvaluation(ev *service.Evaluation) string {
	if len(ev.Results) == 0 {
		return Dim("Nothing needs to change right now.") + "\n"
	}

	rows := make([][]string, 0, len(ev.Results))
	for _, r := range ev.Results {
		pivotID := "-"
		if r.Pivot != nil {
			pivotID = ShortID(r.Pivot.ID)
		}
		detail := r.Trigger.Reason
		if r.Err != "" {
			detail = StyleRed.Render(r.Err)
		}
		rows = append(rows, []string{
			string(r.Trigger.Type),
			ShortID(r.Trigger.SlotID),
			OutcomeStyle(string(r.Outcome)).Render(string(r.Outcome)),
			pivotID,
			detail,
		})
	}

	var b strings.Builder
	b.WriteString(Header("Triggers"))
	b.WriteString("\n\n")
	b.WriteString(RenderTable([]string{"TRIGGER", "SLOT", "OUTCOME", "PIVOT", "DETAIL"}, rows))
	fmt.Fprintf(&b, "\n%s\n", Dim(fmt.Sprintf("%d proposed", len(ev.Proposed()))))
	return b.String()
}

// FormatPrompt renders what the parser understood and what the engine did
// with it.
func FormatPrompt(o *service.PromptOutcome) string {
	var b strings.Builder
	action := string(o.Parse.Action)
	if o.Parse.Category != "" {
		action += " (" + o.Parse.Category + ")"
	}
	fmt.Fprintf(&b, "%s %s  %s\n", Bold("Understood:"), action, Dim(string(o.Parse.Outcome)))
	if o.Parse.Truncated {
		b.WriteString(Dim("Message was cut to the maximum length.") + "\n")
	}
	if o.Parse.FallbackReason != "" {
		b.WriteString(Dim("Fallback: "+o.Parse.FallbackReason) + "\n")
	}

	switch {
	case o.NoTarget:
		b.WriteString(StyleYellow.Render("No upcoming activity can be changed.") + "\n")
	case o.Trigger == nil:
		b.WriteString(Dim("No change suggested.") + "\n")
	case o.Trigger.Pivot != nil:
		b.WriteString("\n")
		b.WriteString(FormatCandidates(o.Trigger.Pivot))
	default:
		b.WriteString(OutcomeStyle(string(o.Trigger.Outcome)).Render(string(o.Trigger.Outcome)) + "\n")
	}
	return b.String()
}

// FormatSweep summarizes an evaluation pass over every active trip.
func FormatSweep(s *service.Sweep) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d trips, %s\n", Bold("Evaluated"), s.Evaluated, StyleGreen.Render(fmt.Sprintf("%d proposed", s.Proposed)))

	ids := make([]string, 0, len(s.Failed))
	for id := range s.Failed {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "  %s %s: %s\n", StyleRed.Render("failed"), ShortID(id), s.Failed[id])
	}
	return b.String()
}

// FormatExpiry renders the result of one expiry scan.
func FormatExpiry(r *pivot.ExpiryReport) string {
	if len(r.Expired) == 0 && len(r.ExpiringSoon) == 0 {
		return Dim("No pivots due.") + "\n"
	}
	var b strings.Builder
	for _, id := range r.Expired {
		fmt.Fprintf(&b, "%s %s\n", StyleDim.Render("expired      "), ShortID(id))
	}
	for _, id := range r.ExpiringSoon {
		fmt.Fprintf(&b, "%s %s\n", StyleYellow.Render("expiring soon"), ShortID(id))
	}
	return b.String()
}
