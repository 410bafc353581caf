package cli

import (
	"context"
	"fmt"

	"github.com/alexanderramin/waypoint/internal/cli/formatter"
	"github.com/alexanderramin/waypoint/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

func waypointHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)

	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

// rankOptions labels each candidate the way the candidates table does.
func rankOptions(p *domain.PivotEvent) []huh.Option[int] {
	opts := make([]huh.Option[int], 0, len(p.Candidates))
	for _, c := range p.Candidates {
		label := fmt.Sprintf("#%d %s  %s  %s",
			c.Rank,
			formatter.CandidateLabel(c),
			formatter.Window(c.DayNumber, c.StartTime, c.EndTime),
			formatter.Distance(c.DistanceM))
		opts = append(opts, huh.NewOption(label, c.Rank))
	}
	return opts
}

func rankForm(p *domain.PivotEvent, rank *int) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Pick an option").
				Description(fmt.Sprintf("%s pivot %s", p.TriggerType, formatter.ShortID(p.ID))).
				Options(rankOptions(p)...).
				Value(rank),
		),
	).WithTheme(waypointHuhTheme()).WithShowHelp(false)
}

func pickRank(ctx context.Context, p *domain.PivotEvent) (int, error) {
	if p.Status != domain.PivotProposed {
		return 0, fmt.Errorf("pivot %s is already %s", formatter.ShortID(p.ID), p.Status)
	}
	if len(p.Candidates) == 0 {
		return 0, fmt.Errorf("pivot %s has no candidates", formatter.ShortID(p.ID))
	}
	rank := p.Candidates[0].Rank
	if err := rankForm(p, &rank).RunWithContext(ctx); err != nil {
		return 0, err
	}
	return rank, nil
}
