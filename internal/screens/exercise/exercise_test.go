package exercise

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readkode/readkode/internal/content"
	ex "github.com/readkode/readkode/internal/exercise"
	"github.com/readkode/readkode/internal/explain"
	"github.com/readkode/readkode/internal/llm"
	"github.com/readkode/readkode/internal/localstore"
	"github.com/readkode/readkode/internal/progress"
	"github.com/readkode/readkode/internal/router"
	"github.com/readkode/readkode/internal/tracker"
)

func clock() time.Time { return time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC) }

func newTracker(t *testing.T) *tracker.Tracker {
	t.Helper()
	tr, err := tracker.New(tracker.Options{
		Local: progress.NewLocalAdapter(localstore.NewMemoryStore(), progress.WithLocalClock(clock)),
		Clock: clock,
	})
	require.NoError(t, err)
	require.NoError(t, tr.Start(context.Background()))
	return tr
}

func testLevel() *content.Level {
	return &content.Level{
		ID:         "1_1",
		Difficulty: 1,
		Index:      1,
		Title:      "Basics",
		Exercises: []ex.Exercise{
			{
				ID:            "mc",
				InputType:     ex.MultipleChoice,
				Prompt:        "Pick b",
				Options:       []string{"a", "b", "c"},
				CorrectAnswer: "1",
				XPGain:        10,
				Hint:          "second",
			},
			{
				ID:            "line",
				InputType:     ex.LineSelect,
				Prompt:        "Which line prints?",
				Code:          "x = 1\nprint(x)\ny = 2",
				CorrectAnswer: "2",
				XPGain:        10,
			},
			{
				ID:            "text",
				InputType:     ex.Text,
				Prompt:        "What is printed?",
				Code:          "print(1 + 1)",
				CorrectAnswer: "2",
				XPGain:        10,
			},
		},
	}
}

func key(r rune) tea.KeyPressMsg { return tea.KeyPressMsg{Code: r, Text: string(r)} }

var (
	enter = tea.KeyPressMsg{Code: tea.KeyEnter}
	esc   = tea.KeyPressMsg{Code: tea.KeyEscape}
	down  = tea.KeyPressMsg{Code: tea.KeyDown}
	tab   = tea.KeyPressMsg{Code: tea.KeyTab}
)

// send delivers msg and feeds back any message produced by the command,
// the way the runtime would for a single async step.
func send(s *Screen, msg tea.Msg) tea.Msg {
	_, cmd := s.Update(msg)
	if cmd == nil {
		return nil
	}
	out := cmd()
	switch out.(type) {
	case answerSavedMsg, explanationReadyMsg, levelSavedMsg:
		s.Update(out)
	}
	return out
}

func TestMultipleChoiceDigitSubmits(t *testing.T) {
	tr := newTracker(t)
	s := New(Deps{Tracker: tr}, testLevel())

	out := send(s, key('2'))
	require.IsType(t, answerSavedMsg{}, out)

	st := s.Session().State()
	assert.True(t, st.IsSubmitted)
	assert.True(t, st.IsCorrect)
	assert.Equal(t, 10, tr.Stats().TotalXP)
	assert.Contains(t, s.View(100, 40), "Correct!")
}

func TestWrongAnswerShowsCorrectOne(t *testing.T) {
	tr := newTracker(t)
	s := New(Deps{Tracker: tr}, testLevel())

	send(s, key('1'))
	assert.False(t, s.Session().State().IsCorrect)
	assert.Equal(t, 0, tr.Stats().TotalXP)
	assert.Contains(t, s.View(100, 40), "Answer: b")
}

func TestSelectionIgnoredAfterSubmit(t *testing.T) {
	s := New(Deps{Tracker: newTracker(t)}, testLevel())
	send(s, key('2'))
	send(s, key('3'))
	assert.Equal(t, 1, s.Session().State().SelectedOption)
}

func TestFullBlockReportsLevelOnce(t *testing.T) {
	tr := newTracker(t)
	s := New(Deps{Tracker: tr}, testLevel())

	send(s, key('2'))
	send(s, enter)

	send(s, down)
	send(s, enter)
	assert.Equal(t, 2, s.Session().State().SelectedLine)
	send(s, enter)

	send(s, key('2'))
	send(s, enter)
	require.True(t, s.Session().Finished())

	out := send(s, enter)
	require.IsType(t, levelSavedMsg{}, out)
	require.NoError(t, out.(levelSavedMsg).Err)

	assert.True(t, s.Session().State().ShowLevelCompleteModal)
	assert.True(t, tr.IsLevelCompleted("1_1"))
	assert.Contains(t, s.View(100, 40), "Level complete")

	_, ok := s.Session().TakeBlockResult()
	assert.False(t, ok, "block result must be taken exactly once")

	_, cmd := s.Update(enter)
	require.NotNil(t, cmd)
	assert.IsType(t, router.PopScreenMsg{}, cmd())
}

func TestNextLevelReplacesScreen(t *testing.T) {
	tr := newTracker(t)
	lib, err := content.Builtin()
	require.NoError(t, err)
	first, err := lib.Level("1_1")
	require.NoError(t, err)
	s := New(Deps{Tracker: tr, Library: lib}, first)

	for i := 0; i < ex.BlockSize && !s.Session().Finished(); i++ {
		switch s.Session().Current().InputType {
		case ex.MultipleChoice:
			send(s, key('1'))
		case ex.LineSelect:
			send(s, enter)
		case ex.Text:
			send(s, key('x'))
			send(s, enter)
		}
		if !s.Session().Finished() {
			send(s, enter)
		}
	}
	require.True(t, s.Session().Finished())
	send(s, enter)
	require.NotNil(t, s.completion)

	_, cmd := s.Update(key('n'))
	require.NotNil(t, cmd)
	msg, ok := cmd().(router.ReplaceScreenMsg)
	require.True(t, ok)
	assert.Equal(t, "1_2", msg.Screen.(*Screen).level.ID)
}

func TestExitModal(t *testing.T) {
	s := New(Deps{Tracker: newTracker(t)}, testLevel())

	send(s, esc)
	assert.True(t, s.Session().State().ShowExitModal)
	assert.Contains(t, s.View(100, 40), "Leave this level?")

	send(s, key('n'))
	assert.False(t, s.Session().State().ShowExitModal)

	send(s, esc)
	_, cmd := s.Update(key('y'))
	require.NotNil(t, cmd)
	assert.IsType(t, router.PopScreenMsg{}, cmd())
}

func TestHintModal(t *testing.T) {
	s := New(Deps{Tracker: newTracker(t)}, testLevel())

	send(s, tab)
	assert.True(t, s.Session().State().ShowHintModal)
	assert.Contains(t, s.View(100, 40), "second")

	send(s, enter)
	assert.False(t, s.Session().State().ShowHintModal)
	assert.False(t, s.Session().State().IsSubmitted, "closing the hint must not submit")
}

func TestGeneratedExplanation(t *testing.T) {
	tr := newTracker(t)
	mock := llm.NewMock(llm.MockResponse{
		Content: []byte(`{"summary":"b is the second option","steps":["count from zero"],"key_lines":[]}`),
	})
	deps := Deps{Tracker: tr, Explainer: explain.NewService(mock, tr, explain.DefaultConfig(), nil)}
	s := New(deps, testLevel())

	send(s, key('2'))
	out := send(s, key('e'))
	require.IsType(t, explanationReadyMsg{}, out)
	require.NoError(t, out.(explanationReadyMsg).Err)

	assert.True(t, s.Session().State().IsExplanationExpanded)
	assert.True(t, strings.Contains(s.View(100, 40), "b is the second option"))
	assert.Equal(t, 1, tr.Record().DailyActivity["2026-03-11"].AI)
}

func TestNoExplainerShowsNotice(t *testing.T) {
	s := New(Deps{Tracker: newTracker(t)}, testLevel())
	send(s, key('2'))
	send(s, key('e'))
	assert.False(t, s.Session().State().IsExplanationExpanded)
	assert.Contains(t, s.View(100, 40), "No explanation available.")
}

func TestEmptyLevel(t *testing.T) {
	s := New(Deps{Tracker: newTracker(t)}, &content.Level{ID: "9_9", Title: "Empty"})
	assert.Contains(t, s.View(80, 20), "Can't start level")
	_, cmd := s.Update(enter)
	require.NotNil(t, cmd)
	assert.IsType(t, router.PopScreenMsg{}, cmd())
}

func TestOptionKey(t *testing.T) {
	tests := []struct {
		key  string
		n    int
		want int
		ok   bool
	}{
		{"1", 4, 0, true},
		{"4", 4, 3, true},
		{"5", 4, 0, false},
		{"c", 4, 2, true},
		{"j", 12, 0, false},
		{"enter", 4, 0, false},
	}
	for _, tt := range tests {
		got, ok := optionKey(tt.key, tt.n)
		assert.Equal(t, tt.ok, ok, tt.key)
		if tt.ok {
			assert.Equal(t, tt.want, got, tt.key)
		}
	}
}
