// Package exercise drives one exercise block: a pure reducer over the
// per-exercise UI state, and a Session that hosts use to run a block.
package exercise

import "slices"

// GlowType is the feedback shown after an answer is validated.
type GlowType string

const (
	GlowNone      GlowType = ""
	GlowCorrect   GlowType = "correct"
	GlowIncorrect GlowType = "incorrect"
)

// Modal identifies one of the block's overlays.
type Modal int

const (
	ModalExit Modal = iota
	ModalHint
	ModalLevelComplete
)

// NoSelection marks an unset option or line.
const NoSelection = -1

// BlockStats accumulate across every exercise in a block.
type BlockStats struct {
	CorrectAnswers   int `json:"correctAnswers"`
	IncorrectAnswers int `json:"incorrectAnswers"`
	XPGained         int `json:"xpGained"`
	TotalAnswered    int `json:"totalAnswered"`
	UserLevel        int `json:"userLevel"`
	Streak           int `json:"streak"`
}

// State is the interaction state of the current exercise.
type State struct {
	SelectedOption int
	UserInput      string
	SelectedLine   int

	IsSubmitted bool
	IsCorrect   bool
	ShowGlow    bool
	GlowType    GlowType

	IsExplanationExpanded bool
	HighlightedLines      []int

	ShowExitModal          bool
	ShowHintModal          bool
	ShowLevelCompleteModal bool

	CurrentExerciseIndex int
	BlockStats           BlockStats
}

// Initial returns the state at the start of a block.
func Initial() State {
	return State{SelectedOption: NoSelection, SelectedLine: NoSelection}
}

// HasSelection reports whether an answer has been chosen or typed.
func (s State) HasSelection() bool {
	return s.SelectedOption != NoSelection || s.SelectedLine != NoSelection || s.UserInput != ""
}

// Action is a reducer input. The set is closed.
type Action interface{ action() }

type (
	SelectOption         struct{ Index int }
	SelectLine           struct{ Line int }
	UpdateInput          struct{ Text string }
	ClearInput           struct{}
	ValidateAnswer       struct{ IsCorrect bool }
	ToggleExplanation    struct{ HighlightedLines []int }
	ResetForNextExercise struct{}
	ContinueToNext       struct{}
	ShowModal            struct{ Modal Modal }
	HideModal            struct{ Modal Modal }
	StartBlock           struct{ UserLevel, Streak int }
)

type UpdateBlockStats struct {
	IsCorrect bool
	XPGained  int
}

func (SelectOption) action()         {}
func (SelectLine) action()           {}
func (UpdateInput) action()          {}
func (ClearInput) action()           {}
func (ValidateAnswer) action()       {}
func (UpdateBlockStats) action()     {}
func (ToggleExplanation) action()    {}
func (ResetForNextExercise) action() {}
func (ContinueToNext) action()       {}
func (ShowModal) action()            {}
func (HideModal) action()            {}
func (StartBlock) action()           {}

// Reduce returns the state after applying a. It never mutates s.
//
// Selection actions are ignored once the answer is submitted, and a
// submitted answer stays submitted until ResetForNextExercise.
// UpdateBlockStats counts every call; hosts dispatch it once per
// validated exercise.
func Reduce(s State, a Action) State {
	s.HighlightedLines = slices.Clone(s.HighlightedLines)

	switch a := a.(type) {
	case SelectOption:
		if !s.IsSubmitted {
			s.SelectedOption = a.Index
		}
	case SelectLine:
		if !s.IsSubmitted {
			s.SelectedLine = a.Line
		}
	case UpdateInput:
		if !s.IsSubmitted {
			s.UserInput = a.Text
		}
	case ClearInput:
		if !s.IsSubmitted {
			s.UserInput = ""
		}

	case ValidateAnswer:
		if s.IsSubmitted {
			break
		}
		s.IsSubmitted = true
		s.IsCorrect = a.IsCorrect
		s.ShowGlow = true
		if a.IsCorrect {
			s.GlowType = GlowCorrect
		} else {
			s.GlowType = GlowIncorrect
		}

	case UpdateBlockStats:
		if a.IsCorrect {
			s.BlockStats.CorrectAnswers++
		} else {
			s.BlockStats.IncorrectAnswers++
		}
		s.BlockStats.XPGained += max(a.XPGained, 0)
		s.BlockStats.TotalAnswered++

	case ToggleExplanation:
		s.IsExplanationExpanded = !s.IsExplanationExpanded
		if s.IsExplanationExpanded {
			s.HighlightedLines = slices.Clone(a.HighlightedLines)
		} else {
			s.HighlightedLines = nil
		}

	case ResetForNextExercise:
		next := Initial()
		next.CurrentExerciseIndex = s.CurrentExerciseIndex
		next.BlockStats = s.BlockStats
		next.ShowExitModal = s.ShowExitModal
		next.ShowHintModal = s.ShowHintModal
		next.ShowLevelCompleteModal = s.ShowLevelCompleteModal
		return next

	case ContinueToNext:
		s.CurrentExerciseIndex++

	case ShowModal:
		s = setModal(s, a.Modal, true)
	case HideModal:
		s = setModal(s, a.Modal, false)

	case StartBlock:
		next := Initial()
		next.BlockStats = BlockStats{UserLevel: a.UserLevel, Streak: a.Streak}
		return next
	}
	return s
}

func setModal(s State, m Modal, visible bool) State {
	switch m {
	case ModalExit:
		s.ShowExitModal = visible
	case ModalHint:
		s.ShowHintModal = visible
	case ModalLevelComplete:
		s.ShowLevelCompleteModal = visible
	}
	return s
}
