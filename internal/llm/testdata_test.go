package llm

var testSchema = &Schema{
	Name:        "test-answer",
	Description: "a single answer",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{"type": "string"},
		},
		"required":             []string{"answer"},
		"additionalProperties": false,
	},
}
