package components

import (
	"fmt"
	"strings"

	"github.com/readkode/readkode/internal/ui/theme"
)

// Options renders the choices of a multiple-choice exercise. cursor is
// the highlighted row before submission; chosen and correct are only
// used once submitted.
type Options struct {
	Choices   []string
	Cursor    int
	Submitted bool
	Chosen    int
	Correct   int
}

func (o Options) View() string {
	var b strings.Builder
	for i, opt := range o.Choices {
		prefix := "  "
		if i == o.Cursor && !o.Submitted {
			prefix = "▸ "
		}
		line := fmt.Sprintf("%s%c)  %s", prefix, 'A'+rune(i%26), opt)

		switch {
		case o.Submitted && i == o.Correct:
			line = theme.Correct.Render(line)
		case o.Submitted && i == o.Chosen:
			line = theme.Incorrect.Render(line)
		case o.Submitted:
			line = theme.Hint.Render(line)
		case i == o.Cursor:
			line = theme.Selected.Render(line)
		default:
			line = theme.Unselected.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}
