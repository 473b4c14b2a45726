package exercise

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// InputType is how an exercise is answered.
type InputType string

const (
	MultipleChoice InputType = "multiple_choice"
	Text           InputType = "text"
	LineSelect     InputType = "line_select"
)

// Answer is a correct answer as written in content packs. It accepts a
// JSON string or number.
type Answer string

func (a *Answer) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = Answer(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("correctAnswer must be a string or number: %w", err)
	}
	*a = Answer(n.String())
	return nil
}

// Exercise is a read-only exercise definition.
type Exercise struct {
	ID               string    `json:"id"`
	InputType        InputType `json:"inputType"`
	Prompt           string    `json:"prompt"`
	Code             string    `json:"code,omitempty"`
	Language         string    `json:"language,omitempty"`
	Options          []string  `json:"options,omitempty"`
	CorrectAnswer    Answer    `json:"correctAnswer"`
	AcceptedAnswers  []string  `json:"acceptedAnswers,omitempty"`
	XPGain           int       `json:"xpGain"`
	Hint             string    `json:"hint,omitempty"`
	Explanation      string    `json:"explanation,omitempty"`
	HighlightedLines []int     `json:"highlightedLines,omitempty"`
}

// Check reports whether the selection in s answers e correctly.
func (e Exercise) Check(s State) bool {
	switch e.InputType {
	case MultipleChoice:
		return s.SelectedOption != NoSelection && strconv.Itoa(s.SelectedOption) == string(e.CorrectAnswer)
	case LineSelect:
		return s.SelectedLine != NoSelection && strconv.Itoa(s.SelectedLine) == string(e.CorrectAnswer)
	case Text:
		got := normalizeText(s.UserInput)
		if got == "" {
			return false
		}
		if got == normalizeText(string(e.CorrectAnswer)) {
			return true
		}
		for _, alt := range e.AcceptedAnswers {
			if got == normalizeText(alt) {
				return true
			}
		}
	}
	return false
}

// CodeLines splits the exercise's code into lines, numbered from 1 by
// position + 1.
func (e Exercise) CodeLines() []string {
	if e.Code == "" {
		return nil
	}
	return strings.Split(strings.TrimRight(e.Code, "\n"), "\n")
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
