package welcome

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/readkode/readkode/internal/router"
	"github.com/readkode/readkode/internal/screen"
)

// stubScreen is a minimal screen implementation for testing.
type stubScreen struct{}

func (s *stubScreen) Init() tea.Cmd                           { return nil }
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return "home" }
func (s *stubScreen) Title() string                           { return "Home" }

func newTestWelcome(startErr error) (*WelcomeScreen, *int, *int) {
	starts, built := 0, 0
	start := func(context.Context) error {
		starts++
		return startErr
	}
	factory := func() screen.Screen {
		built++
		return &stubScreen{}
	}
	return New(start, factory), &starts, &built
}

func sendTicks(w *WelcomeScreen, n int) tea.Cmd {
	var cmd tea.Cmd
	for i := 0; i < n; i++ {
		_, cmd = w.Update(tickMsg(time.Now()))
	}
	return cmd
}

func expectReplace(t *testing.T, cmd tea.Cmd) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(router.ReplaceScreenMsg); !ok {
		t.Fatal("expected ReplaceScreenMsg")
	}
}

func TestLoadingView(t *testing.T) {
	w, _, _ := newTestWelcome(nil)
	w.load()
	if !strings.Contains(w.View(100, 30), "Loading progress") {
		t.Error("expected loading message while start runs")
	}
}

func TestTransitionsAfterSplashOnceLoaded(t *testing.T) {
	w, starts, built := newTestWelcome(nil)
	cmd := w.load()
	w.Update(cmd())
	if *starts != 1 {
		t.Fatalf("expected one start, got %d", *starts)
	}
	if *built != 0 {
		t.Fatal("home must not be built before the splash ends")
	}

	cmd = sendTicks(w, int(minSplash/tickInterval))
	expectReplace(t, cmd)
	if *built != 1 {
		t.Errorf("expected home built once, got %d", *built)
	}

	// Further ticks and keys do nothing.
	if cmd := sendTicks(w, 3); cmd != nil {
		t.Error("expected no command after transition")
	}
	if _, cmd := w.Update(tea.KeyPressMsg{Code: tea.KeyEnter}); cmd != nil {
		t.Error("expected no second transition")
	}
}

func TestKeySkipsSplashWhenLoaded(t *testing.T) {
	w, _, built := newTestWelcome(nil)
	w.Update(w.load()())

	_, cmd := w.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	expectReplace(t, cmd)
	if *built != 1 {
		t.Errorf("expected home built once, got %d", *built)
	}
}

func TestKeyIgnoredWhileLoading(t *testing.T) {
	w, _, built := newTestWelcome(nil)
	w.load()
	if _, cmd := w.Update(tea.KeyPressMsg{Code: tea.KeyEnter}); cmd != nil {
		t.Error("expected no command while loading")
	}
	if *built != 0 {
		t.Error("home must not be built while loading")
	}
}

func TestLoadErrorRetry(t *testing.T) {
	w, starts, built := newTestWelcome(errors.New("connection refused"))
	w.Update(w.load()())

	if !strings.Contains(w.View(100, 30), "retry") {
		t.Error("expected retry hint after a failed load")
	}
	sendTicks(w, 20)
	if *built != 0 {
		t.Fatal("home must not be built after a failed load")
	}

	_, cmd := w.Update(tea.KeyPressMsg{Code: 'r', Text: "r"})
	if cmd == nil {
		t.Fatal("expected retry command")
	}
	if !w.loading {
		t.Error("expected loading after retry")
	}
	w.Update(w.load()())
	if *starts != 2 {
		t.Errorf("expected 2 starts, got %d", *starts)
	}
}
