// Package levels is the level picker.
package levels

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/readkode/readkode/internal/content"
	"github.com/readkode/readkode/internal/router"
	"github.com/readkode/readkode/internal/screen"
	exercisescreen "github.com/readkode/readkode/internal/screens/exercise"
	"github.com/readkode/readkode/internal/ui/components"
	"github.com/readkode/readkode/internal/ui/layout"
	"github.com/readkode/readkode/internal/ui/theme"
)

// Status is how a level appears in the picker.
type Status int

const (
	Locked Status = iota
	Open
	Done
)

// StatusOf reports the status of lv for a learner.
func StatusOf(lv *content.Level, completed func(string) bool, currentLevels map[string]int) Status {
	switch {
	case completed(lv.ID):
		return Done
	case lv.Unlocked(currentLevels):
		return Open
	}
	return Locked
}

// Next returns the first open level in library order, or nil when every
// unlocked level is done.
func Next(lib *content.Library, completed func(string) bool, currentLevels map[string]int) *content.Level {
	for _, lv := range lib.Levels() {
		if StatusOf(lv, completed, currentLevels) == Open {
			return lv
		}
	}
	return nil
}

// Screen lists every level in the library.
type Screen struct {
	deps   exercisescreen.Deps
	levels []*content.Level
	menu   components.Menu
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)

func New(deps exercisescreen.Deps) *Screen {
	s := &Screen{deps: deps, levels: deps.Library.Levels()}
	s.rebuild()
	return s
}

func (s *Screen) rebuild() {
	rec := s.deps.Tracker.Record()
	selected := s.menu.Selected

	items := make([]components.MenuItem, 0, len(s.levels))
	for _, lv := range s.levels {
		st := StatusOf(lv, rec.IsLevelCompleted, rec.CurrentLevels)
		item := components.MenuItem{
			Label:    fmt.Sprintf("%s %-5s %s", statusMark(st), lv.ID, lv.Title),
			Detail:   fmt.Sprintf("%d exercises · %d XP", len(lv.Exercises), lv.TotalXP()),
			Disabled: st == Locked,
		}
		if st != Locked {
			item.Action = s.start(lv)
		}
		items = append(items, item)
	}
	s.menu = components.NewMenu(items)
	if selected > 0 && selected < len(items) && !items[selected].Disabled {
		s.menu.Selected = selected
	}
}

func (s *Screen) start(lv *content.Level) func() tea.Cmd {
	return func() tea.Cmd {
		return func() tea.Msg {
			return router.PushScreenMsg{Screen: exercisescreen.New(s.deps, lv)}
		}
	}
}

func statusMark(st Status) string {
	switch st {
	case Done:
		return "✓"
	case Open:
		return "○"
	}
	return "🔒"
}

func (s *Screen) Init() tea.Cmd { return nil }

func (s *Screen) Title() string { return "Levels" }

func (s *Screen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Start"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if _, ok := msg.(screen.ResumedMsg); ok {
		s.rebuild()
		return s, nil
	}
	var cmd tea.Cmd
	s.menu, cmd = s.menu.Update(msg)
	return s, cmd
}

func (s *Screen) View(width, height int) string {
	if len(s.levels) == 0 {
		return theme.Hint.Render("\n  No content packs installed.")
	}
	var b strings.Builder
	b.WriteString(theme.Subtitle.Width(width).Render("Complete a level to unlock the next one."))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().PaddingLeft(2).Render(s.menu.View()))
	return b.String()
}
