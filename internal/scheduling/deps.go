package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/grading"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
)

// Learners resolves learner ids.
type Learners interface {
	GetLearner(ctx context.Context, id int64) (store.Learner, error)
}

// Items is the item catalogue the engine reads answer keys from.
type Items interface {
	CreateItem(ctx context.Context, it *item.Item) (int64, error)
	GetItem(ctx context.Context, id int64) (*item.Item, error)
	GetItems(ctx context.Context, ids []int64) (map[int64]*item.Item, error)
}

// States is the review state store.
type States interface {
	CreateState(ctx context.Context, st review.State) (review.State, bool, error)
	ListDue(ctx context.Context, learnerID int64, day civil.Date) ([]review.State, error)
	ListSnapshot(ctx context.Context, learnerID int64, day civil.Date) ([]review.State, error)
	ApplyTransition(ctx context.Context, a review.Attempt, decide review.TransitionFunc) (review.Outcome, error)
}

// Attempts is the attempt log.
type Attempts interface {
	GetAttempt(ctx context.Context, id string) (review.Attempt, error)
	ListAttempts(ctx context.Context, learnerID, itemID int64, limit int) ([]review.Attempt, error)
	AttemptedItems(ctx context.Context, learnerID int64, from, to time.Time) (map[int64]bool, error)
	AttachFeedback(ctx context.Context, attemptID string, fb review.Feedback) error
}

// Repository is everything the service reads and writes.
type Repository interface {
	Learners
	Items
	States
	Attempts
}

// Grader produces verdicts. *grading.Grader satisfies it.
type Grader interface {
	Grade(ctx context.Context, it *item.Item, raw string) (grading.Verdict, error)
	Regrade(ctx context.Context, it *item.Item, raw string) (grading.Verdict, error)
}

// Eligibility decides whether a learner may review an item.
type Eligibility interface {
	CanReview(ctx context.Context, learnerID int64, it *item.Item) (bool, error)
}

// EligibilityFunc adapts a function to Eligibility.
type EligibilityFunc func(ctx context.Context, learnerID int64, it *item.Item) (bool, error)

func (f EligibilityFunc) CanReview(ctx context.Context, learnerID int64, it *item.Item) (bool, error) {
	return f(ctx, learnerID, it)
}

// OwnerEligibility lets learners review only the items they own.
var OwnerEligibility = EligibilityFunc(func(_ context.Context, learnerID int64, it *item.Item) (bool, error) {
	return it.OwnerID == learnerID, nil
})

// AnyoneEligibility lets every learner review every item.
var AnyoneEligibility = EligibilityFunc(func(context.Context, int64, *item.Item) (bool, error) {
	return true, nil
})

// EligibilityByName resolves the review.eligibility setting: "owner"
// (the default) or "anyone".
func EligibilityByName(name string) (Eligibility, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "owner":
		return OwnerEligibility, nil
	case "anyone":
		return AnyoneEligibility, nil
	}
	return nil, fmt.Errorf("%w: eligibility %q (want owner or anyone)", review.ErrInvalidInput, name)
}
