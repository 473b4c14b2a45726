package home

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/readkode/readkode/internal/tracker"
	"github.com/readkode/readkode/internal/ui/theme"
)

const titleFull = ` ____                _ _  __         _
|  _ \ ___  __ _  __| | |/ /___   __| | ___
| |_) / _ \/ _' |/ _' | ' // _ \ / _' |/ _ \
|  _ <  __/ (_| | (_| | . \ (_) | (_| |  __/
|_| \_\___|\__,_|\__,_|_|\_\___/ \__,_|\___|`

const titleCompact = "R E A D K O D E"

// contentWidth returns the inner width shared by every section.
func contentWidth(frameWidth int) int {
	return min(max(frameWidth-6, 20), 60)
}

func renderTitle(cw int, compact bool) string {
	style := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	title := titleFull
	if compact {
		title = titleCompact
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(style.Render(title))
}

// renderStatsBar renders the level, XP and streak in a bordered box.
func renderStatsBar(st tracker.Stats, percent float64, cw int, compact bool) string {
	levelStyle := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true)
	xpStyle := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true)
	streakStyle := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true)

	sep := "  "
	format := "LV %d (%d%%)|%d XP|%d DAY STREAK"
	if compact {
		sep = " "
		format = "L%d %d%%|%dXP|%dd"
	}
	parts := strings.Split(fmt.Sprintf(format, st.UserLevel, int(percent*100), st.TotalXP, st.CurrentStreak), "|")
	stats := strings.Join([]string{
		levelStyle.Render(parts[0]),
		xpStyle.Render(parts[1]),
		streakStyle.Render(parts[2]),
	}, sep)

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Secondary).
		Width(cw).
		Align(lipgloss.Center).
		Render(stats)
}

const buttonWidth = 28

// renderMenu renders each item as a fixed-width button, or as plain lines
// when compact.
func renderMenu(items []string, selected int, cw int, compact bool) string {
	base := lipgloss.NewStyle().Width(buttonWidth).Align(lipgloss.Center).Padding(0, 1)
	selectedBtn := base.Bold(true).
		Foreground(theme.BgDark).
		Background(theme.Primary).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Primary)
	normalBtn := base.Foreground(theme.Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border)

	var rows []string
	for i, label := range items {
		switch {
		case compact && i == selected:
			rows = append(rows, theme.Selected.Render(" ▸ "+label+" "))
		case compact:
			rows = append(rows, theme.Unselected.Render("   "+label))
		case i == selected:
			rows = append(rows, selectedBtn.Render("▸ "+label))
		default:
			rows = append(rows, normalBtn.Render(label))
		}
	}
	return lipgloss.NewStyle().
		Width(cw).
		Align(lipgloss.Center).
		Render(strings.Join(rows, "\n"))
}

// renderFrame centers content in a double-border frame.
func renderFrame(content string, width, height int) string {
	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(theme.Primary).
		Width(width-2).
		Height(height-2).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}
