package review

import (
	"errors"
	"time"

	"cloud.google.com/go/civil"
)

// State is the review state of one item for one learner.
// Zero civil.Date values mean "unset".
type State struct {
	ID        int64
	LearnerID int64
	ItemID    int64
	Gate      Gate

	// NextReviewDate is unset iff Gate is Graduated.
	NextReviewDate civil.Date
	AttemptCount   int

	TodaySnapshotDate civil.Date
	TodaySnapshotGate Gate

	// TodayFirstAttemptDate is the idempotency key for daily transitions.
	TodayFirstAttemptDate civil.Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewState returns the initial state for a freshly enrolled item.
func NewState(learnerID, itemID int64, today civil.Date) State {
	return State{
		LearnerID:      learnerID,
		ItemID:         itemID,
		Gate:           Gate1,
		NextReviewDate: today.AddDays(RetryIntervalDays),
	}
}

// IsDue reports whether the state belongs in the snapshot for today.
func (s State) IsDue(today civil.Date) bool {
	if s.Gate == Graduated {
		return false
	}
	return s.NextReviewDate.IsValid() && !s.NextReviewDate.After(today)
}

// InSnapshot reports whether the state was captured by today's snapshot.
func (s State) InSnapshot(today civil.Date) bool {
	return s.TodaySnapshotDate == today
}

// AttemptedOn reports whether the daily transition slot for day is used.
func (s State) AttemptedOn(day civil.Date) bool {
	return s.TodayFirstAttemptDate == day
}

// Check verifies the graduated/next-review invariant.
func (s State) Check() error {
	graduated := s.Gate == Graduated
	hasNext := s.NextReviewDate.IsValid()
	switch {
	case graduated && hasNext:
		return errors.New("graduated state must not have a next review date")
	case !graduated && !hasNext:
		return errors.New("active state must have a next review date")
	}
	return nil
}

// Enrollment is either Enrolled or NotEnrolled.
type Enrollment interface {
	enrollment()
}

// Enrolled carries the stored state of an enrolled item.
type Enrolled struct {
	State State
}

// NotEnrolled marks an item the learner has no review state for.
type NotEnrolled struct{}

func (Enrolled) enrollment()    {}
func (NotEnrolled) enrollment() {}

// Feedback is the optional explanation attached to an attempt.
type Feedback struct {
	Text            string   `json:"feedback"`
	MissingKeywords []string `json:"missing_keywords,omitempty"`
	ScoringReason   string   `json:"scoring_reason,omitempty"`
	// Graded is false when the verdict was produced without the AI grader.
	Graded bool `json:"graded"`
}

// Attempt is one recorded submission. Attempts are append-only; only
// Feedback may be attached later.
type Attempt struct {
	ID         string
	LearnerID  int64
	ItemID     int64
	Answer     string
	Correct    bool
	FirstOfDay bool
	Feedback   *Feedback
	CreatedAt  time.Time
}
