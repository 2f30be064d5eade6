package grading

import "github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/llm"

// FreeTextSchema is the structured output the AI grader must return.
var FreeTextSchema = &llm.Schema{
	Name:        "free-text-grading",
	Description: "Verdict on a learner's free-text answer against a model answer and required keywords",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"is_correct": map[string]any{
				"type":        "boolean",
				"description": "Whether the answer is acceptable",
			},
			"feedback": map[string]any{
				"type":        "string",
				"description": "One or two sentences of feedback addressed to the learner",
			},
			"missing_keywords": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Required keywords whose idea the answer does not cover",
			},
			"scoring_reason": map[string]any{
				"type":        "string",
				"description": "Short justification of the verdict",
			},
		},
		"required":             []any{"is_correct", "feedback", "missing_keywords", "scoring_reason"},
		"additionalProperties": false,
	},
}
