package exercise

import (
	"errors"
	"slices"

	"github.com/readkode/readkode/internal/progress"
)

// BlockSize is the number of exercises in one level.
const BlockSize = 10

// Session runs one block of exercises for a level. It is not safe for
// concurrent use; a single screen owns it.
type Session struct {
	LevelID   string
	exercises []Exercise
	state     State
	reported  bool
}

// NewSession starts a block over the first BlockSize exercises.
func NewSession(levelID string, exercises []Exercise, userLevel, streak int) (*Session, error) {
	if len(exercises) == 0 {
		return nil, errors.New("exercise: level has no exercises")
	}
	if len(exercises) > BlockSize {
		exercises = exercises[:BlockSize]
	}
	// Copied so SetExplanation never writes into the caller's slice.
	s := &Session{LevelID: levelID, exercises: slices.Clone(exercises)}
	s.state = Reduce(Initial(), StartBlock{UserLevel: userLevel, Streak: streak})
	return s, nil
}

// State returns the current UI state.
func (s *Session) State() State { return s.state }

// Dispatch applies an arbitrary action, e.g. modal toggles.
func (s *Session) Dispatch(a Action) { s.state = Reduce(s.state, a) }

// Total returns the number of exercises in the block.
func (s *Session) Total() int { return len(s.exercises) }

// Index returns the zero-based position of the current exercise.
func (s *Session) Index() int { return s.state.CurrentExerciseIndex }

// Current returns the exercise being answered.
func (s *Session) Current() Exercise {
	i := min(s.state.CurrentExerciseIndex, len(s.exercises)-1)
	return s.exercises[i]
}

// IsLast reports whether the current exercise is the block's last.
func (s *Session) IsLast() bool {
	return s.state.CurrentExerciseIndex >= len(s.exercises)-1
}

func (s *Session) SelectOption(i int) { s.Dispatch(SelectOption{Index: i}) }
func (s *Session) SelectLine(n int)   { s.Dispatch(SelectLine{Line: n}) }
func (s *Session) SetInput(t string)  { s.Dispatch(UpdateInput{Text: t}) }
func (s *Session) ClearInput()        { s.Dispatch(ClearInput{}) }

// Submit validates the current answer and counts it toward the block.
// It returns ok=false when nothing is selected or the answer was already
// submitted.
func (s *Session) Submit() (correct bool, xp int, ok bool) {
	if s.state.IsSubmitted || !s.state.HasSelection() {
		return false, 0, false
	}
	ex := s.Current()
	correct = ex.Check(s.state)
	if correct {
		xp = max(ex.XPGain, 0)
	}
	s.Dispatch(ValidateAnswer{IsCorrect: correct})
	s.Dispatch(UpdateBlockStats{IsCorrect: correct, XPGained: xp})
	return correct, xp, true
}

// ToggleExplanation opens or closes the current explanation.
func (s *Session) ToggleExplanation() {
	s.Dispatch(ToggleExplanation{HighlightedLines: s.Current().HighlightedLines})
}

// SetExplanation attaches an explanation to the current exercise. An
// expanded explanation picks up the new highlighted lines.
func (s *Session) SetExplanation(text string, lines []int) {
	i := min(s.state.CurrentExerciseIndex, len(s.exercises)-1)
	s.exercises[i].Explanation = text
	s.exercises[i].HighlightedLines = lines
	if s.state.IsExplanationExpanded {
		s.Dispatch(ToggleExplanation{})
		s.Dispatch(ToggleExplanation{HighlightedLines: lines})
	}
}

// Continue moves past a submitted exercise. On the last exercise it shows
// the level-complete modal and reports done.
func (s *Session) Continue() (done bool) {
	if !s.state.IsSubmitted {
		return false
	}
	if s.IsLast() {
		s.Dispatch(ShowModal{Modal: ModalLevelComplete})
		return true
	}
	s.Dispatch(ResetForNextExercise{})
	s.Dispatch(ContinueToNext{})
	return false
}

// Finished reports whether every exercise has been answered.
func (s *Session) Finished() bool {
	return s.IsLast() && s.state.IsSubmitted
}

// BlockResult returns the block totals.
func (s *Session) BlockResult() progress.LevelResult {
	b := s.state.BlockStats
	return progress.LevelResult{
		CorrectAnswers:   b.CorrectAnswers,
		IncorrectAnswers: b.IncorrectAnswers,
		XPGained:         b.XPGained,
	}
}

// TakeBlockResult returns the block totals the first time it is called
// after the block is finished, and ok=false otherwise. Hosts use it to
// report the level exactly once.
func (s *Session) TakeBlockResult() (progress.LevelResult, bool) {
	if !s.Finished() || s.reported {
		return progress.LevelResult{}, false
	}
	s.reported = true
	return s.BlockResult(), true
}
