package exercise

import (
	"github.com/readkode/readkode/internal/leveling"
	"github.com/readkode/readkode/internal/progress"
)

// answerSavedMsg is sent when the tracker has recorded one answer.
type answerSavedMsg struct {
	Result leveling.Result
	Err    error
}

// explanationReadyMsg is sent when an explanation has been looked up or
// generated for the exercise at Index.
type explanationReadyMsg struct {
	Index int
	Text  string
	Lines []int
	Err   error
}

// levelSavedMsg is sent when the finished block has been written.
type levelSavedMsg struct {
	Completion progress.Completion
	Err        error
}
