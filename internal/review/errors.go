package review

import (
	"errors"
	"fmt"
)

// Client-facing error classes. Callers test with errors.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

var (
	ErrLearnerNotFound = fmt.Errorf("learner %w", ErrNotFound)
	ErrItemNotFound    = fmt.Errorf("item %w", ErrNotFound)
	ErrAttemptNotFound = fmt.Errorf("attempt %w", ErrNotFound)
	ErrInvalidFilter   = fmt.Errorf("%w: gate filter", ErrInvalidInput)
	ErrInvalidAnswer   = fmt.Errorf("%w: answer", ErrInvalidInput)
	ErrNotEligible     = fmt.Errorf("%w: learner may not review this item", ErrInvalidInput)
)
