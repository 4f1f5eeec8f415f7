package prompt

import (
	"github.com/abhisek/examforge/internal/exam"
	"github.com/abhisek/examforge/internal/llm"
)

func kindEnum() []any {
	out := make([]any, len(exam.Kinds))
	for i, k := range exam.Kinds {
		out[i] = string(k)
	}
	return out
}

// QuestionSetSchema defines the structured reply requested in the
// conversion phase when native structured output is enabled.
var QuestionSetSchema = &llm.Schema{
	Name:        "question-set",
	Description: "A set of exam questions converted from a draft",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"questions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"kind": map[string]any{
							"type":        "string",
							"enum":        kindEnum(),
							"description": "The question type",
						},
						"prompt_text": map[string]any{
							"type":        "string",
							"description": "The question stem shown to the student",
						},
						"choices": map[string]any{
							"type":        "array",
							"items":       map[string]any{"type": "string"},
							"description": "Exactly 4 unlabeled options for multiple_choice. Empty array otherwise.",
						},
						"correct_answer": map[string]any{
							"type":        "string",
							"description": "A-D for multiple_choice, true or false for true_false, the expected answer text otherwise",
						},
						"explanation": map[string]any{
							"type":        "string",
							"description": "Why the answer is correct",
						},
						"points": map[string]any{
							"type":        "integer",
							"minimum":     1,
							"description": "Points the question is worth",
						},
					},
					"required":             []any{"kind", "prompt_text", "choices", "correct_answer", "explanation", "points"},
					"additionalProperties": false,
				},
			},
		},
		"required":             []any{"questions"},
		"additionalProperties": false,
	},
}
