package store

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/civil"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

// ErrConflict means a compare-and-swap lost a race after all retries.
var ErrConflict = errors.New("review state changed concurrently")

// MaxTransitionRetries bounds optimistic retries in ApplyTransition.
const MaxTransitionRetries = 5

type Learner struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// SnapshotRun is one execution of the daily snapshot.
type SnapshotRun struct {
	ID          int64
	Date        civil.Date
	RowsUpdated int64
	RanAt       time.Time
}

// LLMCall is what the model middleware records per request.
type LLMCall struct {
	Purpose      string
	Model        string
	InputTokens  int
	OutputTokens int
	LatencyMs    int64
	Success      bool
	ErrorMessage string
	RequestBody  string
	ResponseBody string
}

// LLMCallRecord is a stored LLMCall.
type LLMCallRecord struct {
	ID        int64
	CreatedAt time.Time
	LLMCall
}

// LLMUsage aggregates calls grouped by purpose or model.
type LLMUsage struct {
	Key          string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatencyMs float64
}

type LearnerRepo interface {
	CreateLearner(ctx context.Context, name string) (Learner, error)
	GetLearner(ctx context.Context, id int64) (Learner, error)
	FindLearner(ctx context.Context, name string) (Learner, error)
	ListLearners(ctx context.Context) ([]Learner, error)
}

type ItemRepo interface {
	CreateItem(ctx context.Context, it *item.Item) (int64, error)
	GetItem(ctx context.Context, id int64) (*item.Item, error)
	GetItems(ctx context.Context, ids []int64) (map[int64]*item.Item, error)
	ListItemsByOwner(ctx context.Context, ownerID int64) ([]*item.Item, error)
}

type StateRepo interface {
	GetEnrollment(ctx context.Context, learnerID, itemID int64) (review.Enrollment, error)
	CreateState(ctx context.Context, st review.State) (review.State, bool, error)
	ListDue(ctx context.Context, learnerID int64, day civil.Date) ([]review.State, error)
	ListSnapshot(ctx context.Context, learnerID int64, day civil.Date) ([]review.State, error)
	ListStates(ctx context.Context, learnerID int64) ([]review.State, error)
	ApplyTransition(ctx context.Context, a review.Attempt, decide review.TransitionFunc) (review.Outcome, error)
}

type AttemptRepo interface {
	GetAttempt(ctx context.Context, id string) (review.Attempt, error)
	ListAttempts(ctx context.Context, learnerID, itemID int64, limit int) ([]review.Attempt, error)
	AttemptedItems(ctx context.Context, learnerID int64, from, to time.Time) (map[int64]bool, error)
	AttachFeedback(ctx context.Context, attemptID string, fb review.Feedback) error
}

type SnapshotRepo interface {
	RunSnapshot(ctx context.Context, day civil.Date, at time.Time) (int64, error)
	ListSnapshotRuns(ctx context.Context, limit int) ([]SnapshotRun, error)
}

type EventRepo interface {
	AppendLLMRequest(ctx context.Context, call LLMCall) error
	QueryLLMCalls(ctx context.Context, limit int, purpose string) ([]LLMCallRecord, error)
	GetLLMCall(ctx context.Context, id int64) (LLMCallRecord, error)
	LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error)
	LLMUsageByModel(ctx context.Context) ([]LLMUsage, error)
}

// Repository is everything a backend provides.
type Repository interface {
	LearnerRepo
	ItemRepo
	StateRepo
	AttemptRepo
	SnapshotRepo
	EventRepo
	Close() error
}

var _ Repository = (*Store)(nil)
