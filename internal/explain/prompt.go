package explain

import (
	"fmt"
	"strings"

	"github.com/readkode/readkode/internal/exercise"
)

const systemPrompt = `You are a patient programming tutor. A learner has just answered a code-reading exercise and wants to understand the correct answer. Be concrete and brief.`

func buildUserMessage(ex exercise.Exercise) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Question: %s\n", ex.Prompt)
	if lines := ex.CodeLines(); len(lines) > 0 {
		lang := ex.Language
		if lang == "" {
			lang = "unknown"
		}
		fmt.Fprintf(&b, "\nCode (%s), numbered:\n", lang)
		for i, l := range lines {
			fmt.Fprintf(&b, "%3d | %s\n", i+1, l)
		}
	}

	switch ex.InputType {
	case exercise.MultipleChoice:
		b.WriteString("\nOptions:\n")
		for i, o := range ex.Options {
			fmt.Fprintf(&b, "%d. %s\n", i, o)
		}
		fmt.Fprintf(&b, "\nCorrect option: %s\n", ex.CorrectAnswer)
	case exercise.LineSelect:
		fmt.Fprintf(&b, "\nCorrect line: %s\n", ex.CorrectAnswer)
	default:
		fmt.Fprintf(&b, "\nCorrect answer: %s\n", ex.CorrectAnswer)
	}

	b.WriteString(`
Instructions:
Explain why the answer is correct. Trace the code in the order it runs. Reference line numbers from the listing above. Use plain text without Markdown.`)
	return b.String()
}
