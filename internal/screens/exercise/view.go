package exercise

import (
	"fmt"
	"strconv"
	"strings"

	"charm.land/lipgloss/v2"

	ex "github.com/readkode/readkode/internal/exercise"
	"github.com/readkode/readkode/internal/ui/components"
	"github.com/readkode/readkode/internal/ui/layout"
	"github.com/readkode/readkode/internal/ui/theme"
)

func (s *Screen) View(width, height int) string {
	if s.session == nil {
		return layout.RenderModal("Can't start level", s.errMsg, width, height)
	}
	st := s.session.State()
	switch {
	case st.ShowLevelCompleteModal:
		return layout.RenderModal("Level complete", s.renderCompletion(), width, height)
	case st.ShowExitModal:
		return layout.RenderModal("Leave this level?",
			"Answers so far are saved, but the level\nwon't count as completed.\n\n"+
				theme.Hint.Render("[Y] leave   [N] stay"), width, height)
	case st.ShowHintModal:
		return layout.RenderModal("Hint", s.session.Current().Hint, width, height)
	}
	return s.renderExercise(width)
}

func (s *Screen) renderExercise(width int) string {
	st := s.session.State()
	cur := s.session.Current()
	inner := max(width-4, 20)

	var b strings.Builder

	left := lipgloss.NewStyle().Foreground(theme.Secondary).Bold(true).
		Render(fmt.Sprintf("  %s · %d/%d", s.level.ID, s.session.Index()+1, s.session.Total()))
	right := theme.Hint.Render(fmt.Sprintf("%s %d  %s %d  +%d XP",
		theme.Correct.Render("✓"), st.BlockStats.CorrectAnswers,
		theme.Incorrect.Render("✗"), st.BlockStats.IncorrectAnswers,
		st.BlockStats.XPGained))
	gap := max(inner-lipgloss.Width(left)-lipgloss.Width(right), 1)
	b.WriteString(left + strings.Repeat(" ", gap) + right + "\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Border).Render(strings.Repeat("─", inner)) + "\n\n")

	b.WriteString(lipgloss.NewStyle().Width(inner).PaddingLeft(2).Foreground(theme.Text).Bold(true).Render(cur.Prompt))
	b.WriteString("\n\n")

	if lines := cur.CodeLines(); len(lines) > 0 {
		cv := components.CodeView{Lines: lines, Highlighted: st.HighlightedLines, Width: min(inner-4, 80)}
		if cur.InputType == ex.LineSelect {
			cv.Cursor = s.cursor
			if st.IsSubmitted {
				cv.Cursor = st.SelectedLine
			}
		}
		b.WriteString(indent(cv.View(), 2) + "\n\n")
	}

	switch cur.InputType {
	case ex.MultipleChoice:
		correct, _ := strconv.Atoi(string(cur.CorrectAnswer))
		opts := components.Options{
			Choices:   cur.Options,
			Cursor:    s.cursor,
			Submitted: st.IsSubmitted,
			Chosen:    st.SelectedOption,
			Correct:   correct,
		}
		b.WriteString(indent(opts.View(), 2))
	case ex.LineSelect:
		if !st.IsSubmitted {
			b.WriteString(theme.Hint.Render(fmt.Sprintf("  Line %d selected. Use ↑↓ and Enter.", s.cursor)) + "\n")
		}
	default:
		b.WriteString("  " + s.input.View() + "\n")
	}

	if st.IsSubmitted {
		b.WriteString("\n" + s.renderFeedback())
	}
	if st.IsExplanationExpanded && cur.Explanation != "" {
		b.WriteString("\n" + theme.Card.Width(min(inner-4, 80)).Render(
			theme.Subtitle.Render("Explanation")+"\n"+cur.Explanation) + "\n")
	}
	if s.explaining {
		b.WriteString("\n" + theme.Hint.Render("  Working out an explanation...") + "\n")
	}
	if s.notice != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(theme.Accent).Render("  "+s.notice) + "\n")
	}
	return b.String()
}

func (s *Screen) renderFeedback() string {
	st := s.session.State()
	cur := s.session.Current()
	if st.IsCorrect {
		msg := "  Correct!"
		if xp := max(cur.XPGain, 0); xp > 0 {
			msg += fmt.Sprintf(" +%d XP", xp)
		}
		if s.last != nil && s.last.XPGained == 0 && cur.XPGain > 0 {
			msg += theme.Hint.Render("  (level already completed, no XP)")
		}
		return theme.Correct.Render(msg) + "\n"
	}
	return theme.Incorrect.Render("  Not quite. "+correctAnswer(cur)) + "\n"
}

func correctAnswer(e ex.Exercise) string {
	switch e.InputType {
	case ex.MultipleChoice:
		i, err := strconv.Atoi(string(e.CorrectAnswer))
		if err == nil && i >= 0 && i < len(e.Options) {
			return "Answer: " + e.Options[i]
		}
	case ex.LineSelect:
		return "Answer: line " + string(e.CorrectAnswer)
	}
	return "Answer: " + string(e.CorrectAnswer)
}

func (s *Screen) renderCompletion() string {
	res := s.session.BlockResult()
	lines := []string{
		fmt.Sprintf("%s %d correct   %s %d incorrect",
			theme.Correct.Render("✓"), res.CorrectAnswers,
			theme.Incorrect.Render("✗"), res.IncorrectAnswers),
	}

	switch c := s.completion; {
	case s.saving:
		lines = append(lines, "", theme.Hint.Render("Saving..."))
	case c == nil:
		lines = append(lines, "", lipgloss.NewStyle().Foreground(theme.Accent).Render(s.notice))
	case c.AlreadyCompleted:
		lines = append(lines, "", theme.Hint.Render("Already completed. No XP this time."))
	default:
		lines = append(lines, "", theme.Value.Render(fmt.Sprintf("+%d XP  ·  %d XP total", c.XPGained, c.NewTotalXP)))
		if c.LeveledUp {
			lines = append(lines, theme.Correct.Render(fmt.Sprintf("Level up! You are now level %d.", c.NewUserLevel)))
		}
	}

	if !s.saving {
		hint := "[Enter] done"
		if s.completion != nil && s.nextLevel() != nil {
			hint += "   [N] next level"
		}
		if s.completion == nil {
			hint = "[R] retry   [Enter] leave"
		}
		lines = append(lines, "", theme.Hint.Render(hint))
	}
	return strings.Join(lines, "\n")
}

func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
