package formatter

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/alexanderramin/waypoint/internal/importer"
	"github.com/alexanderramin/waypoint/internal/trust"
)

// FormatFlag confirms a traveler report.
func FormatFlag(o *trust.Outcome) string {
	if o.Kind == trust.WrongForMe {
		return fmt.Sprintf("%s %s\n", StyleGreen.Render("Noted."), Dim("We'll suggest fewer places like "+o.NodeID+"."))
	}
	return fmt.Sprintf("%s %s\n", StyleGreen.Render("Thanks."), Dim("Report "+ShortID(o.FlagID)+" is queued for review."))
}

// FormatQueue renders the admin review queue.
func FormatQueue(q *trust.Queue, now time.Time) string {
	var b strings.Builder

	b.WriteString(Header("Content reports"))
	b.WriteString("\n\n")
	if len(q.Content) == 0 {
		b.WriteString(Dim("None pending.") + "\n")
	} else {
		rows := make([][]string, 0, len(q.Content))
		for _, f := range q.Content {
			rows = append(rows, []string{ShortID(f.ID), f.ActivityNodeID, f.ReporterUserID, f.Note, Dim(Ago(f.CreatedAt, now))})
		}
		b.WriteString(RenderTable([]string{"ID", "ACTIVITY", "REPORTER", "NOTE", "AGE"}, rows))
	}

	b.WriteString("\n")
	b.WriteString(Header("Flagged prompts"))
	b.WriteString("\n\n")
	if len(q.Injections) == 0 {
		b.WriteString(Dim("None pending.") + "\n")
	} else {
		rows := make([][]string, 0, len(q.Injections))
		for _, f := range q.Injections {
			rows = append(rows, []string{ShortID(f.ID), ShortID(f.TripID), f.UserID, StyleRed.Render(f.PatternClass), fmt.Sprintf("%d", f.TextLength), Dim(Ago(f.CreatedAt, now))})
		}
		b.WriteString(RenderTable([]string{"ID", "TRIP", "USER", "PATTERN", "LEN", "AGE"}, rows))
	}
	return b.String()
}

// FormatAudit renders audit records newest first as they arrive.
func FormatAudit(records []*domain.AuditRecord) string {
	if len(records) == 0 {
		return Dim("No audit records.") + "\n"
	}
	rows := make([][]string, 0, len(records))
	for _, a := range records {
		rows = append(rows, []string{
			Dim(a.CreatedAt.Format("01-02 15:04:05")),
			string(a.Kind),
			a.Outcome,
			ShortID(a.SlotID),
			metadataLine(a.Metadata),
		})
	}
	return RenderTable([]string{"AT", "KIND", "OUTCOME", "SLOT", "DETAIL"}, rows)
}

// metadataLine flattens metadata into sorted key=value pairs.
func metadataLine(m map[string]any) string {
	if len(m) == 0 {
		return ""
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return Dim(strings.Join(parts, " "))
}

// FormatImport confirms an imported itinerary.
func FormatImport(it *importer.Itinerary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s trip %s  %s\n", StyleGreen.Render("Imported"), Bold(it.Trip.ID), Dim(string(it.Trip.Status)))
	fmt.Fprintf(&b, "  %d activities, %d slots over %d days\n", len(it.Nodes), len(it.Slots), it.Trip.DayCount())
	return b.String()
}
