package grading

import (
	"context"
	"fmt"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/llm"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

// Config selects the short-text policy and the AI grading limits.
type Config struct {
	ShortText ShortTextPolicy
	FreeText  FreeTextConfig
}

// DefaultConfig trims surrounding whitespace and otherwise compares
// short answers exactly.
func DefaultConfig() Config {
	return Config{
		ShortText: ShortTextPolicy{TrimSpace: true},
		FreeText:  DefaultFreeTextConfig(),
	}
}

// ErrRegradeUnavailable is returned by Regrade when no AI provider is set.
var ErrRegradeUnavailable = fmt.Errorf("%w: AI grading is not configured", review.ErrInvalidInput)

// Grader dispatches to the strategy for an item's type.
type Grader struct {
	cfg      Config
	freeText *FreeTextGrader
	log      *logger.Logger
}

// New builds a Grader. A nil provider disables AI grading; free-text
// answers are then recorded ungraded.
func New(cfg Config, provider llm.Provider, log *logger.Logger) *Grader {
	if log == nil {
		log = logger.NewNop()
	}
	g := &Grader{cfg: cfg, log: log.With("component", "grader")}
	if provider != nil {
		g.freeText = NewFreeTextGrader(provider, cfg.FreeText, log)
	}
	return g
}

// Grade parses raw for it and grades it. Only malformed answers are
// errors; AI failures degrade into the verdict.
func (g *Grader) Grade(ctx context.Context, it *item.Item, raw string) (Verdict, error) {
	a, err := ParseAnswer(it.Type, raw)
	if err != nil {
		return Verdict{}, err
	}
	switch it.Type {
	case item.SingleChoice:
		return GradeSingleChoice(it, a)
	case item.TrueFalse:
		return GradeTrueFalse(it, a), nil
	case item.ShortText:
		return g.cfg.ShortText.Grade(it, a), nil
	case item.FreeText:
		if g.freeText == nil {
			return degraded("Your answer was saved but AI grading is not configured."), nil
		}
		return g.freeText.Grade(ctx, it, a.Text), nil
	}
	return Verdict{}, fmt.Errorf("%w: unknown item type %q", review.ErrInvalidAnswer, it.Type)
}

// Regrade re-runs AI grading for a free-text answer and returns the
// feedback. Failures are returned, not degraded.
func (g *Grader) Regrade(ctx context.Context, it *item.Item, raw string) (Verdict, error) {
	if it.Type != item.FreeText {
		return Verdict{}, fmt.Errorf("%w: only free-text answers can be regraded", review.ErrInvalidInput)
	}
	if g.freeText == nil {
		return Verdict{}, ErrRegradeUnavailable
	}
	return g.freeText.evaluate(ctx, PurposeRegrade, it, raw)
}

// AIEnabled reports whether free-text answers reach a model.
func (g *Grader) AIEnabled() bool { return g.freeText != nil }
