// Package home is the start screen.
package home

import (
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/readkode/readkode/internal/content"
	"github.com/readkode/readkode/internal/router"
	"github.com/readkode/readkode/internal/screen"
	exercisescreen "github.com/readkode/readkode/internal/screens/exercise"
	"github.com/readkode/readkode/internal/screens/levels"
	"github.com/readkode/readkode/internal/screens/stats"
	"github.com/readkode/readkode/internal/ui/components"
	"github.com/readkode/readkode/internal/ui/theme"
)

// HomeScreen is the main menu.
type HomeScreen struct {
	deps   exercisescreen.Deps
	menu   components.Menu
	labels []string
	next   *content.Level
}

var _ screen.Screen = (*HomeScreen)(nil)

func New(deps exercisescreen.Deps) *HomeScreen {
	h := &HomeScreen{deps: deps}
	h.rebuild()
	return h
}

// rebuild recomputes the continue target from the tracker's record.
func (h *HomeScreen) rebuild() {
	rec := h.deps.Tracker.Record()
	h.next = levels.Next(h.deps.Library, rec.IsLevelCompleted, rec.CurrentLevels)

	var items []components.MenuItem
	if h.next != nil {
		lv := h.next
		items = append(items, components.MenuItem{Label: "CONTINUE " + lv.ID, Action: func() tea.Cmd {
			return push(exercisescreen.New(h.deps, lv))
		}})
	}
	items = append(items,
		components.MenuItem{Label: "LEVELS", Action: func() tea.Cmd {
			return push(levels.New(h.deps))
		}},
		components.MenuItem{Label: "STATS", Action: func() tea.Cmd {
			return push(stats.New(h.deps.Tracker))
		}},
		components.MenuItem{Label: "QUIT", Action: func() tea.Cmd {
			return tea.Quit
		}},
	)

	h.labels = h.labels[:0]
	for _, it := range items {
		h.labels = append(h.labels, it.Label)
	}
	h.menu = components.NewMenu(items)
}

func push(s screen.Screen) tea.Cmd {
	return func() tea.Msg { return router.PushScreenMsg{Screen: s} }
}

func (h *HomeScreen) Init() tea.Cmd {
	return nil
}

func (h *HomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if _, ok := msg.(screen.ResumedMsg); ok {
		h.rebuild()
		return h, nil
	}
	var cmd tea.Cmd
	h.menu, cmd = h.menu.Update(msg)
	return h, cmd
}

func (h *HomeScreen) View(width, height int) string {
	compact := height < 22 || width < 90
	cw := contentWidth(width)

	st := h.deps.Tracker.Stats()
	lp := h.deps.Tracker.ProgressToNextLevel()

	sections := []string{
		renderTitle(cw, compact),
		renderStatsBar(st, lp.Percent, cw, compact),
	}
	if h.next == nil {
		sections = append(sections, lipgloss.NewStyle().Width(cw).Align(lipgloss.Center).
			Foreground(theme.Success).Render("Every unlocked level is done. Nice work!"))
	}
	sections = append(sections, renderMenu(h.labels, h.menu.Selected, cw, compact))

	return renderFrame(strings.Join(sections, "\n\n"), width, height)
}

func (h *HomeScreen) Title() string {
	return "Home"
}
