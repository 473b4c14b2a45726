package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/readkode/readkode/internal/screen"
)

type stubScreen struct {
	title   string
	initRan bool
	resumed int
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}

func (s *stubScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if _, ok := msg.(screen.ResumedMsg); ok {
		s.resumed++
	}
	return s, nil
}
func (s *stubScreen) View(int, int) string { return s.title }
func (s *stubScreen) Title() string        { return s.title }

func TestPush(t *testing.T) {
	r := New(&stubScreen{title: "home"})
	s2 := &stubScreen{title: "levels"}
	r.Update(PushScreenMsg{Screen: s2})

	if r.Depth() != 2 {
		t.Fatalf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "levels" {
		t.Errorf("expected active 'levels', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on pushed screen")
	}
}

func TestPopResumesScreenBelow(t *testing.T) {
	home := &stubScreen{title: "home"}
	r := New(home)
	r.Push(&stubScreen{title: "levels"})

	cmd := r.Update(PopScreenMsg{})
	if r.Depth() != 1 || r.Active().Title() != "home" {
		t.Fatalf("expected home at depth 1, got %q at %d", r.Active().Title(), r.Depth())
	}
	if cmd == nil {
		t.Fatal("expected a resume command")
	}
	r.Update(cmd())
	if home.resumed != 1 {
		t.Errorf("expected home resumed once, got %d", home.resumed)
	}
}

func TestPopAtRootIsNoop(t *testing.T) {
	r := New(&stubScreen{title: "home"})
	if cmd := r.Pop(); cmd != nil {
		t.Error("expected nil command at root")
	}
	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
}

func TestReplace(t *testing.T) {
	r := New(&stubScreen{title: "home"})
	r.Push(&stubScreen{title: "level 1_1"})

	next := &stubScreen{title: "level 1_2"}
	r.Update(ReplaceScreenMsg{Screen: next})
	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active() != next || !next.initRan {
		t.Error("expected replaced screen active and initialized")
	}

	// At the root, replace swaps the root.
	r2 := New(&stubScreen{title: "loading"})
	home := &stubScreen{title: "home"}
	r2.Replace(home)
	if r2.Depth() != 1 || r2.Active() != home {
		t.Errorf("expected home as the only screen, depth %d", r2.Depth())
	}
}

func TestViewRendersActive(t *testing.T) {
	r := New(&stubScreen{title: "home"})
	if got := r.View(80, 24); got != "home" {
		t.Errorf("expected 'home', got %q", got)
	}
}
