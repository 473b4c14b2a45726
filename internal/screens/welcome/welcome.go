// Package welcome is the startup screen. It loads progress in the
// background and hands over to the home screen once it is ready.
package welcome

import (
	"context"
	"errors"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/readkode/readkode/internal/apperr"
	"github.com/readkode/readkode/internal/router"
	"github.com/readkode/readkode/internal/screen"
	"github.com/readkode/readkode/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	// minSplash keeps the banner up briefly even when loading is instant.
	minSplash = 800 * time.Millisecond
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

type tickMsg time.Time

// startedMsg carries the result of loading progress.
type startedMsg struct {
	Err error
}

// WelcomeScreen shows the banner while start runs.
type WelcomeScreen struct {
	start        func(context.Context) error
	homeFactory  func() screen.Screen
	elapsed      time.Duration
	tickCount    int
	loading      bool
	loaded       bool
	err          error
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

// New creates a WelcomeScreen that runs start, then replaces itself with
// the screen produced by homeFactory.
func New(start func(context.Context) error, homeFactory func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{
		start:       start,
		homeFactory: homeFactory,
	}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tea.Batch(tick(), w.load())
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) load() tea.Cmd {
	w.loading = true
	w.err = nil
	start := w.start
	return func() tea.Msg {
		return startedMsg{Err: start(context.Background())}
	}
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		if w.transitioned {
			return w, nil
		}
		w.elapsed += tickInterval
		w.tickCount++
		if w.ready() && w.elapsed >= minSplash {
			return w, w.transition()
		}
		return w, tick()

	case startedMsg:
		w.loading = false
		w.err = msg.Err
		w.loaded = msg.Err == nil
		if w.ready() && w.elapsed >= minSplash {
			return w, w.transition()
		}
		return w, nil

	case tea.KeyPressMsg:
		switch {
		case w.ready():
			return w, w.transition()
		case w.err != nil && msg.String() == "r":
			return w, tea.Batch(w.load(), tick())
		case w.err != nil && msg.String() == "q":
			return w, tea.Quit
		}
	}
	return w, nil
}

func (w *WelcomeScreen) ready() bool {
	return w.loaded && w.err == nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	homeScreen := w.homeFactory()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: homeScreen}
	}
}

func (w *WelcomeScreen) View(width, height int) string {
	sections := []string{
		RenderBanner(width),
		"",
		lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render("Learn to read code, one level at a time."),
		"",
	}

	switch {
	case w.err != nil:
		sections = append(sections,
			lipgloss.NewStyle().Foreground(theme.Error).Render(userMessage(w.err)),
			"",
			theme.Hint.Render("[R] retry   [Q] quit"),
		)
	case w.loading:
		frame := spinnerFrames[w.tickCount%len(spinnerFrames)]
		sections = append(sections, theme.Hint.Render(frame+" Loading progress..."))
	default:
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Italic(true).
			Render("press any key to continue"))
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}

func userMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.UserMessage()
	}
	return apperr.UserMessage(apperr.Classify(err))
}
