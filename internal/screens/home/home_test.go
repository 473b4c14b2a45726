package home

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/readkode/readkode/internal/content"
	"github.com/readkode/readkode/internal/localstore"
	"github.com/readkode/readkode/internal/progress"
	"github.com/readkode/readkode/internal/router"
	"github.com/readkode/readkode/internal/screen"
	exercisescreen "github.com/readkode/readkode/internal/screens/exercise"
	"github.com/readkode/readkode/internal/screens/levels"
	"github.com/readkode/readkode/internal/tracker"
)

func clock() time.Time { return time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC) }

func newDeps(t *testing.T) exercisescreen.Deps {
	t.Helper()
	tr, err := tracker.New(tracker.Options{
		Local: progress.NewLocalAdapter(localstore.NewMemoryStore(), progress.WithLocalClock(clock)),
		Clock: clock,
	})
	if err != nil {
		t.Fatalf("tracker.New: %v", err)
	}
	if err := tr.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	lib, err := content.Builtin()
	if err != nil {
		t.Fatalf("content.Builtin: %v", err)
	}
	return exercisescreen.Deps{Tracker: tr, Library: lib}
}

func pushed(t *testing.T, cmd tea.Cmd) screen.Screen {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	push, ok := cmd().(router.PushScreenMsg)
	if !ok {
		t.Fatal("expected PushScreenMsg")
	}
	return push.Screen
}

func TestContinueStartsFirstOpenLevel(t *testing.T) {
	h := New(newDeps(t))
	if h.labels[0] != "CONTINUE 1_1" {
		t.Errorf("first item = %q, want CONTINUE 1_1", h.labels[0])
	}

	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	ex, ok := pushed(t, cmd).(*exercisescreen.Screen)
	if !ok {
		t.Fatal("expected the exercise screen")
	}
	if ex.Title() != "Variables and printing" {
		t.Errorf("Title() = %q", ex.Title())
	}
}

func TestLevelsEntry(t *testing.T) {
	h := New(newDeps(t))
	h.Update(tea.KeyPressMsg{Code: tea.KeyDown})
	_, cmd := h.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	if _, ok := pushed(t, cmd).(*levels.Screen); !ok {
		t.Error("expected the level picker")
	}
}

func TestResumedMovesContinue(t *testing.T) {
	deps := newDeps(t)
	h := New(deps)

	_, err := deps.Tracker.CompleteLevelWithBatch(context.Background(), "1_1", progress.LevelResult{CorrectAnswers: 10, XPGained: 100})
	if err != nil {
		t.Fatalf("CompleteLevelWithBatch: %v", err)
	}
	h.Update(screen.ResumedMsg{})

	if h.labels[0] != "CONTINUE 1_2" {
		t.Errorf("first item = %q, want CONTINUE 1_2", h.labels[0])
	}
	if !strings.Contains(h.View(120, 40), "100 XP") {
		t.Error("stats bar should show 100 XP")
	}
}
