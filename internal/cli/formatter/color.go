package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

var (
	StyleGreen  = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleRed    = lipgloss.NewStyle().Foreground(ColorRed)
	StyleBlue   = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim    = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg     = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold   = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// StatusStyle colors a pivot status: open pivots stand out, resolved ones
// fade.
func StatusStyle(s domain.PivotStatus) lipgloss.Style {
	switch s {
	case domain.PivotProposed:
		return StyleYellow
	case domain.PivotAccepted:
		return StyleGreen
	case domain.PivotRejected:
		return StyleRed
	default:
		return StyleDim
	}
}

// StatusPill returns a colored status marker such as "● PROPOSED".
func StatusPill(s domain.PivotStatus) string {
	return StatusStyle(s).Render("● " + strings.ToUpper(string(s)))
}

// OutcomeStyle colors an evaluation outcome string.
func OutcomeStyle(outcome string) lipgloss.Style {
	switch outcome {
	case "proposed":
		return StyleGreen
	case "conflict", "depth_capped":
		return StyleYellow
	case "failed":
		return StyleRed
	default:
		return StyleDim
	}
}

// KindStyle colors a candidate kind.
func KindStyle(k domain.CandidateKind) lipgloss.Style {
	switch k {
	case domain.CandidateSwap:
		return StyleBlue
	case domain.CandidateMicroStop:
		return StylePurple
	case domain.CandidateExtend:
		return StyleGreen
	default:
		return StyleFg
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", len(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

func Dim(text string) string {
	return StyleDim.Render(text)
}

func Bold(text string) string {
	return StyleBold.Render(text)
}
