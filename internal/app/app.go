// Package app is the root Bubble Tea model.
package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/readkode/readkode/internal/content"
	"github.com/readkode/readkode/internal/explain"
	"github.com/readkode/readkode/internal/logger"
	"github.com/readkode/readkode/internal/router"
	"github.com/readkode/readkode/internal/screen"
	exercisescreen "github.com/readkode/readkode/internal/screens/exercise"
	"github.com/readkode/readkode/internal/screens/home"
	"github.com/readkode/readkode/internal/screens/welcome"
	"github.com/readkode/readkode/internal/tracker"
	"github.com/readkode/readkode/internal/ui/layout"
)

// Options holds the services the screens use.
type Options struct {
	Tracker   *tracker.Tracker
	Library   *content.Library
	Explainer *explain.Service
	Log       *logger.Logger
}

// AppModel is the root Bubble Tea model.
type AppModel struct {
	router  *router.Router
	tracker *tracker.Tracker
	deps    exercisescreen.Deps
	width   int
	height  int
}

// newAppModel starts on the welcome screen, which loads progress and then
// replaces itself with home.
func newAppModel(opts Options) AppModel {
	deps := exercisescreen.Deps{
		Tracker:   opts.Tracker,
		Library:   opts.Library,
		Explainer: opts.Explainer,
		Log:       opts.Log,
	}
	start := welcome.New(opts.Tracker.Start, func() screen.Screen { return home.New(deps) })
	return AppModel{
		router:  router.New(start),
		tracker: opts.Tracker,
		deps:    deps,
	}
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "esc":
			if bh, ok := m.router.Active().(screen.BackHandler); ok && bh.HandlesBack() {
				break
			}
			if m.router.Depth() > 1 {
				return m, func() tea.Msg { return router.PopScreenMsg{} }
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	var hs layout.HeaderStats
	if m.tracker.Ready() {
		st := m.tracker.Stats()
		hs = layout.HeaderStats{Level: st.UserLevel, TotalXP: st.TotalXP, Streak: st.CurrentStreak}
	}
	hs.Guest = !m.tracker.Identity().Authenticated
	header := layout.RenderHeader(title, hs, m.width)

	var footerHints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = append(hp.KeyHints(), layout.KeyHint{Key: "Ctrl+C", Description: "Quit"})
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program and blocks until it exits.
func Run(opts Options) error {
	p := tea.NewProgram(newAppModel(opts))
	_, err := p.Run()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
