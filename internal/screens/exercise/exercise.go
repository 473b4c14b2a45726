// Package exercise is the screen that runs one level's block of
// exercises and reports it to the tracker.
package exercise

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"github.com/google/uuid"

	"github.com/readkode/readkode/internal/apperr"
	"github.com/readkode/readkode/internal/content"
	ex "github.com/readkode/readkode/internal/exercise"
	"github.com/readkode/readkode/internal/explain"
	"github.com/readkode/readkode/internal/leveling"
	"github.com/readkode/readkode/internal/logger"
	"github.com/readkode/readkode/internal/progress"
	"github.com/readkode/readkode/internal/router"
	"github.com/readkode/readkode/internal/screen"
	"github.com/readkode/readkode/internal/tracker"
	"github.com/readkode/readkode/internal/ui/components"
	"github.com/readkode/readkode/internal/ui/layout"
)

// Deps are shared by the screens that start levels.
type Deps struct {
	Tracker   *tracker.Tracker
	Library   *content.Library
	Explainer *explain.Service // nil without an AI provider
	Log       *logger.Logger
}

// Screen runs one block.
type Screen struct {
	deps    Deps
	level   *content.Level
	session *ex.Session
	log     *logger.Logger

	cursor int // option index, or line number for line selection
	input  components.TextInput

	last       *leveling.Result
	completion *progress.Completion
	saving     bool
	explaining bool
	notice     string
	errMsg     string
}

var _ screen.Screen = (*Screen)(nil)
var _ screen.KeyHintProvider = (*Screen)(nil)
var _ screen.BackHandler = (*Screen)(nil)

// New starts a block for level.
func New(deps Deps, level *content.Level) *Screen {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	s := &Screen{
		deps:  deps,
		level: level,
		log:   log.With("level_id", level.ID, "session_id", uuid.NewString()),
		input: components.NewTextInput("Type your answer...", 120),
	}

	st := deps.Tracker.Stats()
	sess, err := ex.NewSession(level.ID, level.Exercises, st.UserLevel, st.CurrentStreak)
	if err != nil {
		s.errMsg = err.Error()
		return s
	}
	s.session = sess
	s.resetCursor()
	s.log.Debug("block started", "exercises", sess.Total())
	return s
}

func (s *Screen) Init() tea.Cmd {
	if s.session == nil {
		return nil
	}
	return s.input.Init()
}

func (s *Screen) Title() string {
	return s.level.Title
}

func (s *Screen) HandlesBack() bool { return true }

// Session exposes the running block.
func (s *Screen) Session() *ex.Session { return s.session }

func (s *Screen) KeyHints() []layout.KeyHint {
	if s.session == nil {
		return []layout.KeyHint{{Key: "any key", Description: "Back"}}
	}
	st := s.session.State()
	switch {
	case st.ShowLevelCompleteModal:
		hints := []layout.KeyHint{{Key: "Enter", Description: "Done"}}
		if s.completion != nil && s.nextLevel() != nil {
			hints = append(hints, layout.KeyHint{Key: "N", Description: "Next level"})
		}
		return hints
	case st.ShowExitModal:
		return []layout.KeyHint{{Key: "Y", Description: "Leave"}, {Key: "N", Description: "Stay"}}
	case st.ShowHintModal:
		return []layout.KeyHint{{Key: "any key", Description: "Close"}}
	case st.IsSubmitted:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Continue"},
			{Key: "E", Description: "Explain"},
			{Key: "Esc", Description: "Leave"},
		}
	}
	hints := []layout.KeyHint{{Key: "Enter", Description: "Submit"}, {Key: "Tab", Description: "Hint"}}
	if s.session.Current().InputType != ex.Text {
		hints = append([]layout.KeyHint{{Key: "↑↓", Description: "Select"}}, hints...)
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Leave"})
}

func (s *Screen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case answerSavedMsg:
		return s.handleAnswerSaved(msg)
	case explanationReadyMsg:
		return s.handleExplanation(msg)
	case levelSavedMsg:
		return s.handleLevelSaved(msg)
	case tea.KeyMsg:
		return s.handleKey(msg)
	}

	if s.typing() {
		var cmd tea.Cmd
		s.input, cmd = s.input.Update(msg)
		return s, cmd
	}
	return s, nil
}

func (s *Screen) typing() bool {
	return s.session != nil && s.session.Current().InputType == ex.Text && !s.session.State().IsSubmitted
}

func pop() tea.Msg { return router.PopScreenMsg{} }

func (s *Screen) handleKey(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()

	if s.session == nil {
		return s, pop
	}
	st := s.session.State()

	switch {
	case st.ShowLevelCompleteModal:
		if s.saving {
			return s, nil
		}
		if key == "enter" || key == "esc" {
			return s, pop
		}
		if key == "r" && s.completion == nil {
			return s, s.saveLevel()
		}
		if key == "n" && s.completion != nil {
			if next := s.nextLevel(); next != nil {
				return s, func() tea.Msg { return router.ReplaceScreenMsg{Screen: New(s.deps, next)} }
			}
		}
		return s, nil

	case st.ShowExitModal:
		switch key {
		case "y", "Y":
			s.log.Info("block abandoned", "answered", st.BlockStats.TotalAnswered)
			return s, pop
		case "n", "N", "esc":
			s.session.Dispatch(ex.HideModal{Modal: ex.ModalExit})
		}
		return s, nil

	case st.ShowHintModal:
		s.session.Dispatch(ex.HideModal{Modal: ex.ModalHint})
		return s, nil
	}

	switch key {
	case "esc":
		s.session.Dispatch(ex.ShowModal{Modal: ex.ModalExit})
		return s, nil
	case "tab":
		return s.showHint()
	}

	if st.IsSubmitted {
		return s.handleAnswered(key)
	}
	return s.handleAnswering(msg)
}

func (s *Screen) showHint() (screen.Screen, tea.Cmd) {
	if s.session.Current().Hint == "" {
		s.notice = "No hint for this one."
		return s, nil
	}
	s.session.Dispatch(ex.ShowModal{Modal: ex.ModalHint})
	return s, nil
}

func (s *Screen) handleAnswering(msg tea.KeyMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()
	cur := s.session.Current()

	switch cur.InputType {
	case ex.MultipleChoice:
		switch key {
		case "up", "k":
			s.cursor = max(s.cursor-1, 0)
		case "down", "j":
			s.cursor = min(s.cursor+1, len(cur.Options)-1)
		case "enter":
			s.session.SelectOption(s.cursor)
			return s.submit()
		case "h":
			return s.showHint()
		default:
			if i, ok := optionKey(key, len(cur.Options)); ok {
				s.cursor = i
				s.session.SelectOption(i)
				return s.submit()
			}
		}
		return s, nil

	case ex.LineSelect:
		switch key {
		case "up", "k":
			s.cursor = max(s.cursor-1, 1)
		case "down", "j":
			s.cursor = min(s.cursor+1, len(cur.CodeLines()))
		case "enter":
			s.session.SelectLine(s.cursor)
			return s.submit()
		case "h":
			return s.showHint()
		}
		return s, nil
	}

	if key == "enter" {
		if strings.TrimSpace(s.input.Value()) == "" {
			return s, nil
		}
		s.session.SetInput(s.input.Value())
		return s.submit()
	}
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

// optionKey maps 1-9 and a-z to an option index.
func optionKey(key string, n int) (int, bool) {
	if len(key) != 1 {
		return 0, false
	}
	var i int
	switch c := key[0]; {
	case c >= '1' && c <= '9':
		i = int(c - '1')
	case c >= 'a' && c <= 'z' && c != 'h' && c != 'j' && c != 'k':
		i = int(c - 'a')
	default:
		return 0, false
	}
	return i, i < n
}

func (s *Screen) submit() (screen.Screen, tea.Cmd) {
	correct, xp, ok := s.session.Submit()
	if !ok {
		return s, nil
	}
	s.notice = ""
	s.input.Submit(correct)

	t := s.deps.Tracker
	levelID := s.level.ID
	return s, func() tea.Msg {
		res, err := t.CompleteExercise(context.Background(), levelID, correct, xp)
		return answerSavedMsg{Result: res, Err: err}
	}
}

func (s *Screen) handleAnswerSaved(msg answerSavedMsg) (screen.Screen, tea.Cmd) {
	if msg.Err != nil {
		s.log.Warn("record answer failed", "error", msg.Err)
		s.notice = userMessage(msg.Err)
		return s, nil
	}
	res := msg.Result
	s.last = &res
	if res.LeveledUp {
		s.notice = fmt.Sprintf("Level up! You reached level %d.", res.NewUserLevel)
	}
	return s, nil
}

func (s *Screen) handleAnswered(key string) (screen.Screen, tea.Cmd) {
	switch key {
	case "enter", " ", "space":
		return s.advance()
	case "e":
		return s.explain()
	case "h":
		return s.showHint()
	}
	return s, nil
}

func (s *Screen) advance() (screen.Screen, tea.Cmd) {
	done := s.session.Continue()
	s.notice = ""
	s.last = nil
	if !done {
		s.resetCursor()
		return s, s.input.Reset()
	}
	return s, s.saveLevel()
}

// saveLevel reports the finished block once. A retry after a failure
// reuses the result taken the first time.
func (s *Screen) saveLevel() tea.Cmd {
	res, ok := s.session.TakeBlockResult()
	if !ok {
		res = s.session.BlockResult()
	}
	s.saving = true
	t := s.deps.Tracker
	levelID := s.level.ID
	return func() tea.Msg {
		c, err := t.CompleteLevelWithBatch(context.Background(), levelID, res)
		return levelSavedMsg{Completion: c, Err: err}
	}
}

func (s *Screen) handleLevelSaved(msg levelSavedMsg) (screen.Screen, tea.Cmd) {
	s.saving = false
	if msg.Err != nil {
		s.log.Error("save level failed", "error", msg.Err)
		s.notice = userMessage(msg.Err) + " Press R to retry."
		return s, nil
	}
	c := msg.Completion
	s.completion = &c
	s.notice = ""
	s.log.Info("block finished", "xp_gained", c.XPGained, "already_completed", c.AlreadyCompleted)
	return s, nil
}

func (s *Screen) explain() (screen.Screen, tea.Cmd) {
	st := s.session.State()
	cur := s.session.Current()
	if st.IsExplanationExpanded || cur.Explanation != "" {
		s.session.ToggleExplanation()
		return s, nil
	}
	if s.deps.Explainer == nil {
		s.notice = "No explanation available."
		return s, nil
	}
	if s.explaining {
		return s, nil
	}
	s.explaining = true
	svc := s.deps.Explainer
	idx := s.session.Index()
	return s, func() tea.Msg {
		filled, err := svc.Fill(context.Background(), cur)
		return explanationReadyMsg{Index: idx, Text: filled.Explanation, Lines: filled.HighlightedLines, Err: err}
	}
}

func (s *Screen) handleExplanation(msg explanationReadyMsg) (screen.Screen, tea.Cmd) {
	s.explaining = false
	if msg.Index != s.session.Index() {
		return s, nil
	}
	if msg.Err != nil {
		s.log.Warn("explain failed", "error", msg.Err)
		s.notice = userMessage(msg.Err)
		return s, nil
	}
	s.session.SetExplanation(msg.Text, msg.Lines)
	if !s.session.State().IsExplanationExpanded {
		s.session.ToggleExplanation()
	}
	return s, nil
}

// nextLevel returns the first unlocked level not yet completed.
func (s *Screen) nextLevel() *content.Level {
	if s.deps.Library == nil {
		return nil
	}
	rec := s.deps.Tracker.Record()
	for _, lv := range s.deps.Library.Levels() {
		if !rec.IsLevelCompleted(lv.ID) && lv.Unlocked(rec.CurrentLevels) {
			return lv
		}
	}
	return nil
}

func (s *Screen) resetCursor() {
	s.cursor = 0
	if s.session.Current().InputType == ex.LineSelect {
		s.cursor = 1
	}
}

func userMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.UserMessage()
	}
	return apperr.UserMessage(apperr.Classify(err))
}
