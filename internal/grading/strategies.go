package grading

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

// Verdict is the result of grading one answer. Feedback is only set by
// free-text grading.
type Verdict struct {
	Correct  bool
	Feedback *review.Feedback
}

// GradeSingleChoice compares the chosen index with the key.
func GradeSingleChoice(it *item.Item, a Answer) (Verdict, error) {
	if a.Index >= len(it.Choices) {
		return Verdict{}, fmt.Errorf("%w: choice %d out of range, item has %d choices", review.ErrInvalidAnswer, a.Index, len(it.Choices))
	}
	return Verdict{Correct: a.Index == it.Key.CorrectIndex}, nil
}

func GradeTrueFalse(it *item.Item, a Answer) Verdict {
	return Verdict{Correct: a.Bool == it.Key.Truth}
}

// ShortTextPolicy controls how short answers are normalised before the
// exact comparison. Both sides are always put in NFC form.
type ShortTextPolicy struct {
	TrimSpace          bool
	IgnoreCase         bool
	CollapseWhitespace bool
	StripDiacritics    bool
}

func (p ShortTextPolicy) Grade(it *item.Item, a Answer) Verdict {
	return Verdict{Correct: p.Normalize(a.Text) == p.Normalize(it.Key.Expected)}
}

// Normalize applies the policy to s.
func (p ShortTextPolicy) Normalize(s string) string {
	s = norm.NFC.String(s)
	if p.TrimSpace {
		s = strings.TrimSpace(s)
	}
	if p.CollapseWhitespace {
		s = strings.Join(strings.Fields(s), " ")
	}
	if p.StripDiacritics {
		t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
		if out, _, err := transform.String(t, s); err == nil {
			s = out
		}
	}
	if p.IgnoreCase {
		s = cases.Fold().String(s)
	}
	return s
}
