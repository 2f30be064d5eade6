// Package grading turns a submitted answer into a verdict, one strategy
// per item type.
package grading

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

// Answer is a submission parsed into the shape its item type expects.
// Raw is always the text as submitted and is what the attempt log keeps.
type Answer struct {
	Raw   string
	Index int
	Bool  bool
	Text  string
}

// ParseAnswer parses raw for an item of type t. Choice indexes are
// zero-based. Errors wrap review.ErrInvalidAnswer.
func ParseAnswer(t item.Type, raw string) (Answer, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Answer{}, fmt.Errorf("%w: answer is empty", review.ErrInvalidAnswer)
	}
	a := Answer{Raw: raw}
	switch t {
	case item.SingleChoice:
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return Answer{}, fmt.Errorf("%w: choice index must be a non-negative integer, got %q", review.ErrInvalidAnswer, raw)
		}
		a.Index = n
	case item.TrueFalse:
		b, ok := parseBool(s)
		if !ok {
			return Answer{}, fmt.Errorf("%w: expected true or false, got %q", review.ErrInvalidAnswer, raw)
		}
		a.Bool = b
	case item.ShortText, item.FreeText:
		a.Text = raw
	default:
		return Answer{}, fmt.Errorf("%w: unknown item type %q", review.ErrInvalidAnswer, t)
	}
	return a, nil
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "t", "yes", "y", "o":
		return true, true
	case "false", "f", "no", "n", "x":
		return false, true
	}
	return false, false
}
