// Package scheduling is the application layer of the review engine. It
// grades submissions, applies the daily gate rule through the store and
// builds today's review list.
package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

const tracerName = "github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/scheduling"

// Service implements enrollment, submission and today's review.
type Service struct {
	repo     Repository
	grader   Grader
	eligible Eligibility
	loc      *time.Location
	now      func() time.Time
	log      *logger.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the zone that defines calendar days.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithEligibility(e Eligibility) Option {
	return func(s *Service) { s.eligible = e }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func New(repo Repository, grader Grader, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		grader:   grader,
		eligible: OwnerEligibility,
		loc:      time.Local,
		now:      time.Now,
		log:      logger.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	s.log = s.log.With("component", "scheduling")
	return s
}

// Today is the current calendar date in the service's zone.
func (s *Service) Today() civil.Date {
	return civil.DateOf(s.now().In(s.loc))
}

// dayBounds returns [day 00:00, day+1 00:00) in the service's zone.
func (s *Service) dayBounds(day civil.Date) (time.Time, time.Time) {
	return day.In(s.loc), day.AddDays(1).In(s.loc)
}

// Enroll starts reviewing an item: GATE_1, due tomorrow. Enrolling an
// already enrolled item returns the existing state and false. Only
// eligible learners may enroll.
func (s *Service) Enroll(ctx context.Context, learnerID, itemID int64) (review.State, bool, error) {
	it, err := s.loadItem(ctx, learnerID, itemID)
	if err != nil {
		return review.State{}, false, err
	}
	return s.enroll(ctx, learnerID, it)
}

func (s *Service) enroll(ctx context.Context, learnerID int64, it *item.Item) (review.State, bool, error) {
	ok, err := s.eligible.CanReview(ctx, learnerID, it)
	if err != nil {
		return review.State{}, false, fmt.Errorf("check eligibility: %w", err)
	}
	if !ok {
		return review.State{}, false, fmt.Errorf("learner %d item %d: %w", learnerID, it.ID, review.ErrNotEligible)
	}
	st, created, err := s.repo.CreateState(ctx, review.NewState(learnerID, it.ID, s.Today()))
	if err != nil {
		return review.State{}, false, err
	}
	if created {
		s.log.Info("item enrolled", "learner_id", learnerID, "item_id", it.ID, "next_review", st.NextReviewDate.String())
	}
	return st, created, nil
}

// CreateItem stores a newly authored item and starts its owner's review
// of it at GATE_1. The returned state is nil when the owner is not
// eligible to review the item.
func (s *Service) CreateItem(ctx context.Context, it *item.Item) (_ *review.State, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.CreateItem", trace.WithAttributes(
		attribute.Int64("learner.id", it.OwnerID),
		attribute.String("item.type", string(it.Type)),
	))
	defer func() { endSpan(span, err) }()

	if err := it.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", review.ErrInvalidInput, err)
	}
	if _, err := s.repo.GetLearner(ctx, it.OwnerID); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateItem(ctx, it)
	if err != nil {
		return nil, err
	}
	it.ID = id
	span.SetAttributes(attribute.Int64("item.id", id))

	st, _, err := s.enroll(ctx, it.OwnerID, it)
	if errors.Is(err, review.ErrNotEligible) {
		s.log.Info("item created without review state", "learner_id", it.OwnerID, "item_id", id)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("item %d created, enroll: %w", id, err)
	}
	return &st, nil
}

// SubmitResult is what a learner sees after answering. The schedule
// fields are nil when the item is not enrolled.
type SubmitResult struct {
	AttemptID           string           `json:"attemptId"`
	IsCorrect           bool             `json:"isCorrect"`
	Explanation         string           `json:"explanation"`
	Feedback            *review.Feedback `json:"feedback,omitempty"`
	Gate                *review.Gate     `json:"gate,omitempty"`
	AttemptCount        *int             `json:"attemptCount,omitempty"`
	NextReviewDate      *civil.Date      `json:"nextReviewDate,omitempty"`
	IsFirstAttemptToday bool             `json:"isFirstAttemptToday"`
	StateChanged        bool             `json:"stateChanged"`
}

// SubmitAnswer grades raw and records the attempt. Grading finishes
// before the state is touched; only the day's first attempt may move it.
// Any existing learner may answer any item. Without a review state the
// attempt is recorded and the schedule fields stay nil.
func (s *Service) SubmitAnswer(ctx context.Context, learnerID, itemID int64, raw string) (res SubmitResult, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.SubmitAnswer", trace.WithAttributes(
		attribute.Int64("learner.id", learnerID),
		attribute.Int64("item.id", itemID),
	))
	defer func() { endSpan(span, err) }()

	it, err := s.loadItem(ctx, learnerID, itemID)
	if err != nil {
		return SubmitResult{}, err
	}
	verdict, err := s.grader.Grade(ctx, it, raw)
	if err != nil {
		return SubmitResult{}, err
	}

	// One clock read so the attempt's timestamp and the day it counts
	// for agree across midnight.
	now := s.now()
	today := civil.DateOf(now.In(s.loc))
	attempt := review.Attempt{
		ID:        uuid.NewString(),
		LearnerID: learnerID,
		ItemID:    itemID,
		Answer:    raw,
		Correct:   verdict.Correct,
		Feedback:  verdict.Feedback,
		CreatedAt: now,
	}
	out, err := s.repo.ApplyTransition(ctx, attempt, review.Decide(verdict.Correct, today))
	if err != nil {
		return SubmitResult{}, fmt.Errorf("apply transition: %w", err)
	}

	res = SubmitResult{
		AttemptID:           attempt.ID,
		IsCorrect:           verdict.Correct,
		Explanation:         it.Explanation,
		Feedback:            verdict.Feedback,
		IsFirstAttemptToday: out.FirstAttemptToday,
		StateChanged:        out.StateChanged,
	}
	if en, ok := out.Enrollment.(review.Enrolled); ok {
		st := en.State
		res.Gate = &st.Gate
		res.AttemptCount = &st.AttemptCount
		if st.NextReviewDate.IsValid() {
			res.NextReviewDate = &st.NextReviewDate
		}
		span.SetAttributes(attribute.String("review.gate", string(st.Gate)))
	}
	span.SetAttributes(
		attribute.Bool("review.correct", verdict.Correct),
		attribute.Bool("review.first_today", out.FirstAttemptToday),
	)
	s.log.Debug("answer submitted",
		"learner_id", learnerID, "item_id", itemID, "correct", verdict.Correct,
		"first_today", out.FirstAttemptToday, "changed", out.StateChanged)
	return res, nil
}

// SortOrder orders today's review list.
type SortOrder string

const (
	SortByItem          SortOrder = "item"
	SortIncompleteFirst SortOrder = "incomplete"
)

// ParseSortOrder accepts "item" (default) or "incomplete".
func ParseSortOrder(s string) (SortOrder, error) {
	switch o := SortOrder(s); o {
	case "", SortByItem:
		return SortByItem, nil
	case SortIncompleteFirst:
		return o, nil
	}
	return "", fmt.Errorf("%w: sort order %q", review.ErrInvalidInput, s)
}

// ReviewItem is one row of today's list. Gate is the gate captured by
// the snapshot, not the live gate.
type ReviewItem struct {
	ItemID    int64       `json:"itemId"`
	Type      item.Type   `json:"type"`
	Topic     string      `json:"topic"`
	Question  string      `json:"question"`
	Choices   []string    `json:"choices,omitempty"`
	Gate      review.Gate `json:"gate"`
	Completed bool        `json:"completed"`
}

type TodayReview struct {
	Date      civil.Date        `json:"date"`
	Filter    review.GateFilter `json:"filter"`
	Dashboard review.Dashboard  `json:"dashboard"`
	Items     []ReviewItem      `json:"items"`
}

// GetTodayReview lists today's snapshot for the learner, filtered by
// captured gate. An item counts as completed once any attempt for it
// was recorded today.
func (s *Service) GetTodayReview(ctx context.Context, learnerID int64, filter string, order SortOrder) (tr TodayReview, err error) {
	ctx, span := s.tracer.Start(ctx, "scheduling.GetTodayReview", trace.WithAttributes(
		attribute.Int64("learner.id", learnerID),
		attribute.String("review.filter", filter),
	))
	defer func() { endSpan(span, err) }()

	f, err := review.ParseGateFilter(filter)
	if err != nil {
		return TodayReview{}, err
	}
	if _, err := s.repo.GetLearner(ctx, learnerID); err != nil {
		return TodayReview{}, err
	}

	today := s.Today()
	states, err := s.repo.ListSnapshot(ctx, learnerID, today)
	if err != nil {
		return TodayReview{}, err
	}
	var selected []review.State
	ids := make([]int64, 0, len(states))
	for _, st := range states {
		if f.Match(st.TodaySnapshotGate) {
			selected = append(selected, st)
			ids = append(ids, st.ItemID)
		}
	}

	from, to := s.dayBounds(today)
	done, err := s.repo.AttemptedItems(ctx, learnerID, from, to)
	if err != nil {
		return TodayReview{}, err
	}
	items, err := s.repo.GetItems(ctx, ids)
	if err != nil {
		return TodayReview{}, err
	}

	tr = TodayReview{Date: today, Filter: f, Items: make([]ReviewItem, 0, len(selected))}
	completed := 0
	for _, st := range selected {
		ri := ReviewItem{ItemID: st.ItemID, Gate: st.TodaySnapshotGate, Completed: done[st.ItemID]}
		if it, ok := items[st.ItemID]; ok {
			ri.Type, ri.Topic, ri.Question, ri.Choices = it.Type, it.Topic, it.Question, it.Choices
		}
		if ri.Completed {
			completed++
		}
		tr.Items = append(tr.Items, ri)
	}
	tr.Dashboard = review.NewDashboard(len(selected), completed)
	sortItems(tr.Items, order)

	span.SetAttributes(
		attribute.Int("review.total", tr.Dashboard.TotalCount),
		attribute.Int("review.completed", tr.Dashboard.CompletedCount),
	)
	return tr, nil
}

func sortItems(items []ReviewItem, order SortOrder) {
	sort.SliceStable(items, func(i, j int) bool {
		if order == SortIncompleteFirst && items[i].Completed != items[j].Completed {
			return !items[i].Completed
		}
		return items[i].ItemID < items[j].ItemID
	})
}

// DueItems returns the learner's states that are due today or captured
// by today's snapshot.
func (s *Service) DueItems(ctx context.Context, learnerID int64) ([]review.State, error) {
	if _, err := s.repo.GetLearner(ctx, learnerID); err != nil {
		return nil, err
	}
	return s.repo.ListDue(ctx, learnerID, s.Today())
}

// History returns the newest attempts first. itemID 0 means all items.
func (s *Service) History(ctx context.Context, learnerID, itemID int64, limit int) ([]review.Attempt, error) {
	if _, err := s.repo.GetLearner(ctx, learnerID); err != nil {
		return nil, err
	}
	return s.repo.ListAttempts(ctx, learnerID, itemID, limit)
}

// RegradeAttempt re-runs AI grading for a recorded free-text attempt and
// attaches the feedback. The recorded verdict and the review state are
// left as they are.
func (s *Service) RegradeAttempt(ctx context.Context, attemptID string) (review.Feedback, error) {
	a, err := s.repo.GetAttempt(ctx, attemptID)
	if err != nil {
		return review.Feedback{}, err
	}
	it, err := s.repo.GetItem(ctx, a.ItemID)
	if err != nil {
		return review.Feedback{}, err
	}
	v, err := s.grader.Regrade(ctx, it, a.Answer)
	if err != nil {
		return review.Feedback{}, fmt.Errorf("regrade attempt %s: %w", attemptID, err)
	}
	if v.Feedback == nil {
		return review.Feedback{}, fmt.Errorf("regrade attempt %s: grader returned no feedback", attemptID)
	}
	if err := s.repo.AttachFeedback(ctx, attemptID, *v.Feedback); err != nil {
		return review.Feedback{}, err
	}
	s.log.Info("attempt regraded", "attempt_id", attemptID, "recorded_correct", a.Correct, "regraded_correct", v.Correct)
	return *v.Feedback, nil
}

// loadItem checks the learner exists and loads the item.
func (s *Service) loadItem(ctx context.Context, learnerID, itemID int64) (*item.Item, error) {
	if _, err := s.repo.GetLearner(ctx, learnerID); err != nil {
		return nil, err
	}
	return s.repo.GetItem(ctx, itemID)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		if !errors.Is(err, review.ErrNotFound) && !errors.Is(err, review.ErrInvalidInput) {
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}
