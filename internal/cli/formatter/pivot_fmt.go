package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/pivot"
)

// FormatPivots renders the pivot list for a trip.
func FormatPivots(ps []*domain.PivotEvent, now time.Time) string {
	if len(ps) == 0 {
		return Dim("No pivots.") + "\n"
	}

	rows := make([][]string, 0, len(ps))
	for _, p := range ps {
		rank := "-"
		if p.SelectedRank != nil {
			rank = fmt.Sprintf("#%d", *p.SelectedRank)
		}
		rows = append(rows, []string{
			ShortID(p.ID),
			StatusPill(p.Status),
			string(p.TriggerType),
			fmt.Sprintf("%d", p.Depth),
			fmt.Sprintf("%d", len(p.Candidates)),
			rank,
			Dim(Ago(p.CreatedAt, now)),
		})
	}

	var b strings.Builder
	b.WriteString(Header("Pivots"))
	b.WriteString("\n\n")
	b.WriteString(RenderTable([]string{"ID", "STATUS", "TRIGGER", "DEPTH", "OPTIONS", "PICK", "RAISED"}, rows))
	return b.String()
}

// FormatCandidates renders one pivot's ranked options.
func FormatCandidates(p *domain.PivotEvent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s\n\n", Bold("Pivot "+ShortID(p.ID)), StatusPill(p.Status), Dim(string(p.TriggerType)))

	if len(p.Candidates) == 0 {
		b.WriteString(Dim("No candidates."))
		b.WriteString("\n")
		return b.String()
	}

	rows := make([][]string, 0, len(p.Candidates))
	for _, c := range p.Candidates {
		rank := fmt.Sprintf("#%d", c.Rank)
		if p.SelectedRank != nil && *p.SelectedRank == c.Rank {
			rank = StyleGreen.Render(rank + " ✓")
		}
		rows = append(rows, []string{
			rank,
			KindStyle(c.Kind).Render(string(c.Kind)),
			CandidateLabel(c),
			Window(c.DayNumber, c.StartTime, c.EndTime),
			Distance(c.DistanceM),
			fmt.Sprintf("%.2f", c.Score),
		})
	}
	b.WriteString(RenderTable([]string{"RANK", "KIND", "ACTIVITY", "WHEN", "AWAY", "SCORE"}, rows))
	return b.String()
}

// CandidateLabel names what a candidate does, for tables and select menus.
func CandidateLabel(c domain.Candidate) string {
	switch c.Kind {
	case domain.CandidateExtend:
		return fmt.Sprintf("stay %d min", c.DurationMin)
	case domain.CandidateMoveDay:
		return fmt.Sprintf("%s on day %d", c.ActivityNodeID, c.DayNumber)
	}
	if c.Category != "" {
		return fmt.Sprintf("%s (%s)", c.ActivityNodeID, c.Category)
	}
	return c.ActivityNodeID
}

// FormatDecision renders the result of accepting or rejecting a pivot,
// including every slot the cascade moved.
func FormatDecision(d *pivot.Decision) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Bold("Pivot "+ShortID(d.Pivot.ID)), StatusPill(d.Pivot.Status))

	if d.Plan != nil {
		b.WriteString("\n")
		if d.Plan.Target != nil {
			fmt.Fprintf(&b, "  %s %s\n", StyleGreen.Render("updated "), Window(d.Plan.Target.DayNumber, d.Plan.Target.StartTime, d.Plan.Target.EndTime))
		}
		if d.Plan.Inserted != nil {
			fmt.Fprintf(&b, "  %s %s\n", StylePurple.Render("inserted"), Window(d.Plan.Inserted.DayNumber, d.Plan.Inserted.StartTime, d.Plan.Inserted.EndTime))
		}
		for _, sh := range d.Plan.Shifts {
			fmt.Fprintf(&b, "  %s %s %s %s\n",
				StyleBlue.Render("shifted "),
				Dim(Clock(sh.OldStart)),
				Dim("→"),
				Window(sh.Slot.DayNumber, sh.Slot.StartTime, sh.Slot.EndTime))
		}
		if d.Plan.Delta != 0 {
			fmt.Fprintf(&b, "  %s\n", Dim("delta "+SignedMinutes(d.Plan.Delta)))
		}
		for _, s := range d.Plan.Overflow {
			fmt.Fprintf(&b, "  %s %s\n", StyleYellow.Render("overflow"), ShortID(s.ID))
		}
	}

	for _, f := range d.FollowUps {
		fmt.Fprintf(&b, "\n%s %s\n", StyleYellow.Render("Follow-up pivot"), ShortID(f.ID))
	}
	return b.String()
}
