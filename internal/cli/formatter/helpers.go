package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// RenderBox wraps content in a rounded-border box with an optional title.
func RenderBox(title string, content string) string {
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorDim).
		Padding(1, 2)

	if title == "" {
		return box.Render(content)
	}
	return box.Render(StyleHeader.Render(strings.ToUpper(title)) + "\n\n" + content)
}

// Clock renders a wall-clock time in the slot's own location.
func Clock(t time.Time) string {
	return t.Format("15:04")
}

// Window renders "Day N 13:00-13:45".
func Window(day int, start, end time.Time) string {
	return fmt.Sprintf("Day %d %s-%s", day, Clock(start), Clock(end))
}

// Ago renders the age of t relative to now, for instance "4m ago".
func Ago(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// Distance renders meters, switching to kilometers past 1000.
func Distance(m float64) string {
	if m >= 1000 {
		return fmt.Sprintf("%.1f km", m/1000)
	}
	return fmt.Sprintf("%.0f m", m)
}

// ShortID keeps the first eight characters of a uuid.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// SignedMinutes renders a cascade delta such as "+30m" or "-15m".
func SignedMinutes(delta time.Duration) string {
	m := int(delta.Minutes())
	if m >= 0 {
		return fmt.Sprintf("+%dm", m)
	}
	return fmt.Sprintf("%dm", m)
}
