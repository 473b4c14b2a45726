package components

import (
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/readkode/readkode/internal/ui/theme"
)

// CodeView renders a numbered code listing. Lines are numbered from 1.
type CodeView struct {
	Lines       []string
	Cursor      int   // line under the cursor, 0 for none
	Highlighted []int // explanation highlights
	Width       int
}

func (c CodeView) View() string {
	if len(c.Lines) == 0 {
		return ""
	}
	gutter := len(fmt.Sprint(len(c.Lines)))
	width := c.Width
	for _, l := range c.Lines {
		width = max(width, gutter+3+lipgloss.Width(l))
	}

	var b strings.Builder
	for i, line := range c.Lines {
		n := i + 1
		num := theme.LineNumber.Render(fmt.Sprintf(" %*d ", gutter, n))
		body := " " + line
		pad := width - gutter - 2 - lipgloss.Width(body)
		if pad > 0 {
			body += strings.Repeat(" ", pad)
		}

		switch {
		case slices.Contains(c.Highlighted, n):
			body = theme.CodeHighlight.Render(body)
		case n == c.Cursor:
			body = theme.CodeCursor.Render(body)
		default:
			body = theme.Code.Render(body)
		}
		b.WriteString(num + body)
		if i < len(c.Lines)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
