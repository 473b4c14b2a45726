// Package stats renders the progress summary and activity calendar. The
// same rendering backs the stats screen and the `readkode stats` command.
package stats

import (
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/readkode/readkode/internal/leveling"
	"github.com/readkode/readkode/internal/progress"
	"github.com/readkode/readkode/internal/screen"
	"github.com/readkode/readkode/internal/tracker"
	"github.com/readkode/readkode/internal/ui/components"
	"github.com/readkode/readkode/internal/ui/layout"
	"github.com/readkode/readkode/internal/ui/theme"
)

// CalendarWeeks is how many weeks of activity the calendar shows.
const CalendarWeeks = 12

// Render draws the summary for rec at time now.
func Render(rec progress.Record, now time.Time, width int) string {
	rec.Normalize()
	lp := leveling.ProgressToNextLevel(rec.TotalXP)

	row := func(label, value string) string {
		return theme.Label.Render(label) + theme.Value.Render(value)
	}
	accuracy := "-"
	if answered := rec.Stats.CorrectAnswers + rec.Stats.IncorrectAnswers; answered > 0 {
		accuracy = fmt.Sprintf("%.0f%%", 100*float64(rec.Stats.CorrectAnswers)/float64(answered))
	}

	barWidth := min(max(width-8, 20), 50)
	next := fmt.Sprintf("%d / %d XP to level %d", rec.TotalXP, lp.NextLevelXP, lp.Level+1)
	if lp.Level >= leveling.MaxLevel {
		next = "max level"
	}

	summary := strings.Join([]string{
		row("Level", fmt.Sprintf("%d", lp.Level)),
		row("Total XP", fmt.Sprintf("%d", rec.TotalXP)),
		components.NewProgressBar("", lp.Percent, true, barWidth).View(),
		theme.Hint.Render(next),
		"",
		row("Levels completed", fmt.Sprintf("%d", len(rec.CompletedLevels))),
		row("Exercises", fmt.Sprintf("%d", rec.Stats.TotalExercises)),
		row("Accuracy", accuracy),
		row("Streak", fmt.Sprintf("%d days (best %d)", rec.Streak.Current, rec.Streak.Longest)),
	}, "\n")

	today := rec.DailyActivity[progress.Day(now)]
	breakdown := theme.Hint.Render(fmt.Sprintf(
		"Today: %d total · %d training · %d lessons · %d ai · %d challenges",
		today.Total, today.Training, today.Lessons, today.AI, today.Challenges,
	))

	return lipgloss.JoinVertical(lipgloss.Left,
		theme.Card.Render(summary),
		"",
		Calendar(rec.DailyActivity, now, CalendarWeeks),
		breakdown,
	)
}

// Calendar draws one column per week and one row per weekday, ending at
// the week containing now. Days are UTC.
func Calendar(daily map[string]progress.DailyActivity, now time.Time, weeks int) string {
	now = now.UTC()
	end := now.AddDate(0, 0, 6-int(now.Weekday()))
	start := end.AddDate(0, 0, -7*weeks+1)

	peak := 1
	for _, a := range daily {
		peak = max(peak, a.Total)
	}

	labels := []string{"Sun", "", "Tue", "", "Thu", "", "Sat"}
	var b strings.Builder
	for wd := 0; wd < 7; wd++ {
		b.WriteString(theme.Hint.Render(fmt.Sprintf("%-4s", labels[wd])))
		for w := 0; w < weeks; w++ {
			d := start.AddDate(0, 0, w*7+wd)
			if d.After(now) {
				b.WriteString("  ")
				continue
			}
			b.WriteString(heatCell(daily[progress.Day(d)].Total, peak) + " ")
		}
		b.WriteString("\n")
	}
	return b.String()
}

func heatCell(total, peak int) string {
	if total <= 0 {
		return theme.Heat[0].Render("·")
	}
	steps := len(theme.Heat) - 1
	level := 1 + (total-1)*steps/peak
	return theme.Heat[min(level, steps)].Render("■")
}

// Screen shows Render for the tracker's current record.
type Screen struct {
	tracker *tracker.Tracker
	now     func() time.Time
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

func New(t *tracker.Tracker) *Screen {
	return &Screen{tracker: t, now: time.Now}
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string { return "Stats" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	return s, nil
}

func (s *Screen) View(width, height int) string {
	return lipgloss.NewStyle().Padding(1, 2).Render(Render(s.tracker.Record(), s.now(), width-4))
}
