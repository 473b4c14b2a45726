package explain

import "github.com/readkode/readkode/internal/llm"

// Schema is the structured output of an explanation request.
var Schema = &llm.Schema{
	Name:        "code-explanation",
	Description: "A short walkthrough of why a code-reading exercise has the answer it has",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary": map[string]any{
				"type":        "string",
				"description": "Two or three sentences explaining the correct answer",
			},
			"steps": map[string]any{
				"type":        "array",
				"description": "The program traced one step at a time, in execution order",
				"items":       map[string]any{"type": "string"},
			},
			"key_lines": map[string]any{
				"type":        "array",
				"description": "1-based line numbers of the code that decide the answer",
				"items":       map[string]any{"type": "integer"},
			},
		},
		"required":             []any{"summary", "steps", "key_lines"},
		"additionalProperties": false,
	},
}
