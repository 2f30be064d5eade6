package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/llm"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

// Purpose labels free-text grading calls in the LLM call log.
const (
	PurposeGrade   = "free-text-grading"
	PurposeRegrade = "free-text-regrading"
)

// FreeTextConfig holds the AI grading limits.
type FreeTextConfig struct {
	Timeout     time.Duration
	MaxTokens   int
	Temperature float64
}

func DefaultFreeTextConfig() FreeTextConfig {
	return FreeTextConfig{
		Timeout:     15 * time.Second,
		MaxTokens:   512,
		Temperature: 0.2,
	}
}

// FreeTextGrader asks a model to grade free-text answers.
type FreeTextGrader struct {
	provider llm.Provider
	cfg      FreeTextConfig
	log      *logger.Logger
}

func NewFreeTextGrader(provider llm.Provider, cfg FreeTextConfig, log *logger.Logger) *FreeTextGrader {
	if log == nil {
		log = logger.NewNop()
	}
	return &FreeTextGrader{provider: provider, cfg: cfg, log: log.With("component", "free-text-grader")}
}

type freeTextOutput struct {
	IsCorrect       bool     `json:"is_correct"`
	Feedback        string   `json:"feedback"`
	MissingKeywords []string `json:"missing_keywords"`
	ScoringReason   string   `json:"scoring_reason"`
}

// Evaluate runs the model under the grader's hard timeout. Any failure
// is returned as an error.
func (g *FreeTextGrader) Evaluate(ctx context.Context, it *item.Item, answer string) (Verdict, error) {
	return g.evaluate(ctx, PurposeGrade, it, answer)
}

func (g *FreeTextGrader) evaluate(ctx context.Context, purpose string, it *item.Item, answer string) (Verdict, error) {
	ctx = llm.WithPurpose(ctx, purpose)
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}

	msg, err := buildGradingMessage(it, answer)
	if err != nil {
		return Verdict{}, fmt.Errorf("build grading prompt: %w", err)
	}
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      gradingSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: msg}},
		Schema:      FreeTextSchema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("AI grading failed: %w", err)
	}

	var out freeTextOutput
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return Verdict{}, fmt.Errorf("parse grading response: %w", err)
	}
	return Verdict{
		Correct: out.IsCorrect,
		Feedback: &review.Feedback{
			Text:            out.Feedback,
			MissingKeywords: out.MissingKeywords,
			ScoringReason:   out.ScoringReason,
			Graded:          true,
		},
	}, nil
}

// UngradedFeedback is shown when the AI grader fails. The cause is only
// logged.
const UngradedFeedback = "Your answer was saved but could not be graded automatically. Run regrade later for AI feedback."

// Grade is Evaluate that never fails: errors become an ungraded,
// incorrect verdict with a fixed message.
func (g *FreeTextGrader) Grade(ctx context.Context, it *item.Item, answer string) Verdict {
	v, err := g.Evaluate(ctx, it, answer)
	if err != nil {
		g.log.Warn("free-text grading degraded", "item_id", it.ID, "error", err)
		return degraded(UngradedFeedback)
	}
	return v
}

func degraded(reason string) Verdict {
	return Verdict{
		Correct:  false,
		Feedback: &review.Feedback{Text: reason, Graded: false},
	}
}

const gradingSystemPrompt = `You grade short written answers for a spaced-repetition study tool.

Instructions:
- Compare the learner's answer with the model answer. Judge meaning, not wording.
- The answer is correct only if it covers the idea behind every required keyword.
- List the required keywords whose idea is missing. Use the keywords exactly as given.
- Address the learner directly in the feedback and keep it to two sentences.
- Keep scoring_reason to one sentence.`

var gradingUserTemplate = template.Must(template.New("grading").Parse(`Topic: {{.Topic}}
Question: {{.Question}}
Model answer: {{.ModelAnswer}}
Required keywords: {{.Keywords}}

Learner's answer:
{{.Answer}}`))

func buildGradingMessage(it *item.Item, answer string) (string, error) {
	keywords := "none"
	if len(it.Key.Keywords) > 0 {
		keywords = strings.Join(it.Key.Keywords, ", ")
	}
	var buf bytes.Buffer
	err := gradingUserTemplate.Execute(&buf, map[string]string{
		"Topic":       it.Topic,
		"Question":    it.Question,
		"ModelAnswer": it.Key.ModelAnswer,
		"Keywords":    keywords,
		"Answer":      strings.TrimSpace(answer),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
