// Package item defines the learning items that review states schedule.
package item

import (
	"errors"
	"fmt"
	"strings"
)

// Type identifies how an item is answered and graded.
type Type string

const (
	SingleChoice Type = "SINGLE_CHOICE"
	TrueFalse    Type = "TRUE_FALSE"
	ShortText    Type = "SHORT_TEXT"
	FreeText     Type = "FREE_TEXT"
)

// AllTypes lists every supported item type.
var AllTypes = []Type{SingleChoice, TrueFalse, ShortText, FreeText}

// ParseType parses a type name, case-insensitively.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllTypes {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown item type %q", s)
}

// AnswerKey holds whatever the grader for the item's type needs.
// Only the fields relevant to the type are populated.
type AnswerKey struct {
	CorrectIndex int      `json:"correct_index,omitempty"`
	Truth        bool     `json:"truth,omitempty"`
	Expected     string   `json:"expected,omitempty"`
	ModelAnswer  string   `json:"model_answer,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
}

// Item is a single reviewable question.
type Item struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Type        Type      `json:"type"`
	Topic       string    `json:"topic"`
	Question    string    `json:"question"`
	Choices     []string  `json:"choices,omitempty"`
	Key         AnswerKey `json:"key"`
	Explanation string    `json:"explanation,omitempty"`
}

var errNoQuestion = errors.New("question is required")

// Validate checks that the answer key is consistent with the item type.
func (it *Item) Validate() error {
	if strings.TrimSpace(it.Question) == "" {
		return errNoQuestion
	}
	switch it.Type {
	case SingleChoice:
		if len(it.Choices) < 2 {
			return fmt.Errorf("single choice item needs at least 2 choices, got %d", len(it.Choices))
		}
		if it.Key.CorrectIndex < 0 || it.Key.CorrectIndex >= len(it.Choices) {
			return fmt.Errorf("correct index %d out of range [0,%d)", it.Key.CorrectIndex, len(it.Choices))
		}
	case TrueFalse:
	case ShortText:
		if strings.TrimSpace(it.Key.Expected) == "" {
			return errors.New("short text item needs an expected answer")
		}
	case FreeText:
		if strings.TrimSpace(it.Key.ModelAnswer) == "" {
			return errors.New("free text item needs a model answer")
		}
	default:
		return fmt.Errorf("unknown item type %q", it.Type)
	}
	return nil
}
