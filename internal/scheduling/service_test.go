package scheduling

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/grading"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/llm"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
)

var today = civil.Date{Year: 2025, Month: 6, Day: 2}

type fixture struct {
	svc     *Service
	repo    *store.Store
	now     time.Time
	learner int64
}

// newFixture returns a service whose clock reads f.now, starting at 10:00
// UTC on today.
func newFixture(t *testing.T, provider llm.Provider) *fixture {
	t.Helper()
	repo, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	l, err := repo.CreateLearner(context.Background(), "ada")
	require.NoError(t, err)

	f := &fixture{repo: repo, now: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), learner: l.ID}
	f.svc = New(repo, grading.New(grading.DefaultConfig(), provider, nil),
		WithClock(func() time.Time { return f.now }),
		WithLocation(time.UTC),
	)
	return f
}

func (f *fixture) addItem(t *testing.T, it item.Item) int64 {
	t.Helper()
	if it.OwnerID == 0 {
		it.OwnerID = f.learner
	}
	if it.Question == "" {
		it.Question = "q"
	}
	id, err := f.repo.CreateItem(context.Background(), &it)
	require.NoError(t, err)
	return id
}

func (f *fixture) trueFalse(t *testing.T) int64 {
	return f.addItem(t, item.Item{Type: item.TrueFalse, Key: item.AnswerKey{Truth: true}, Explanation: "because"})
}

// enrollDueToday enrolls id yesterday so it is due today.
func (f *fixture) enrollDueToday(t *testing.T, id int64) {
	t.Helper()
	saved := f.now
	f.now = f.now.AddDate(0, 0, -1)
	_, created, err := f.svc.Enroll(context.Background(), f.learner, id)
	f.now = saved
	require.NoError(t, err)
	require.True(t, created)
}

func (f *fixture) snapshot(t *testing.T) {
	t.Helper()
	_, err := f.repo.RunSnapshot(context.Background(), f.svc.Today(), f.now)
	require.NoError(t, err)
}

func TestEnroll(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.trueFalse(t)

	st, created, err := f.svc.Enroll(ctx, f.learner, id)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, review.Gate1, st.Gate)
	assert.Equal(t, today.AddDays(1), st.NextReviewDate)

	_, created, err = f.svc.Enroll(ctx, f.learner, id)
	require.NoError(t, err)
	assert.False(t, created)

	_, _, err = f.svc.Enroll(ctx, 999, id)
	assert.ErrorIs(t, err, review.ErrLearnerNotFound)
	_, _, err = f.svc.Enroll(ctx, f.learner, 999)
	assert.ErrorIs(t, err, review.ErrItemNotFound)

	other, err := f.repo.CreateLearner(ctx, "grace")
	require.NoError(t, err)
	_, _, err = f.svc.Enroll(ctx, other.ID, id)
	assert.ErrorIs(t, err, review.ErrNotEligible)
}

func TestSubmitAnswer_CorrectPromotes(t *testing.T) {
	f := newFixture(t, nil)
	id := f.trueFalse(t)
	f.enrollDueToday(t, id)

	res, err := f.svc.SubmitAnswer(context.Background(), f.learner, id, "true")
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "because", res.Explanation)
	require.NotNil(t, res.Gate)
	assert.Equal(t, review.Gate2, *res.Gate)
	require.NotNil(t, res.NextReviewDate)
	assert.Equal(t, today.AddDays(7), *res.NextReviewDate)
	assert.Equal(t, 1, *res.AttemptCount)
	assert.True(t, res.IsFirstAttemptToday)
	assert.True(t, res.StateChanged)
	assert.NotEmpty(t, res.AttemptID)
}

func TestSubmitAnswer_OnlyFirstAttemptCounts(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.trueFalse(t)
	f.enrollDueToday(t, id)

	res, err := f.svc.SubmitAnswer(ctx, f.learner, id, "false")
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Equal(t, review.Gate1, *res.Gate)
	assert.Equal(t, today.AddDays(1), *res.NextReviewDate)
	assert.Equal(t, 1, *res.AttemptCount)

	f.now = f.now.Add(2 * time.Hour)
	res, err = f.svc.SubmitAnswer(ctx, f.learner, id, "true")
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, review.Gate1, *res.Gate)
	assert.Equal(t, 1, *res.AttemptCount)
	assert.False(t, res.IsFirstAttemptToday)
	assert.False(t, res.StateChanged)

	hist, err := f.svc.History(ctx, f.learner, id, 0)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.True(t, hist[0].Correct, "newest first")
}

func TestSubmitAnswer_NotEnrolled(t *testing.T) {
	f := newFixture(t, nil)
	id := f.trueFalse(t)

	res, err := f.svc.SubmitAnswer(context.Background(), f.learner, id, "true")
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Nil(t, res.Gate)
	assert.Nil(t, res.AttemptCount)
	assert.Nil(t, res.NextReviewDate)
	assert.False(t, res.IsFirstAttemptToday)
	assert.False(t, res.StateChanged)

	hist, err := f.svc.History(context.Background(), f.learner, id, 0)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	// Absent schedule fields are omitted.
	raw, err := json.Marshal(res)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "gate")
}

func TestSubmitAnswer_NonOwnerNotEnrolled(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.trueFalse(t)
	f.enrollDueToday(t, id)
	other, err := f.repo.CreateLearner(ctx, "grace")
	require.NoError(t, err)

	res, err := f.svc.SubmitAnswer(ctx, other.ID, id, "true")
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "because", res.Explanation)
	assert.Nil(t, res.Gate)
	assert.Nil(t, res.AttemptCount)
	assert.Nil(t, res.NextReviewDate)
	assert.False(t, res.IsFirstAttemptToday)
	assert.False(t, res.StateChanged)

	hist, err := f.svc.History(ctx, other.ID, id, 0)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.False(t, hist[0].FirstOfDay)

	// The owner's schedule is untouched.
	e, err := f.repo.GetEnrollment(ctx, f.learner, id)
	require.NoError(t, err)
	assert.Equal(t, 0, e.(review.Enrolled).State.AttemptCount)

	_, err = f.svc.SubmitAnswer(ctx, 999, id, "true")
	assert.ErrorIs(t, err, review.ErrLearnerNotFound)
	_, err = f.svc.SubmitAnswer(ctx, other.ID, 999, "true")
	assert.ErrorIs(t, err, review.ErrItemNotFound)
}

func TestSubmitAnswer_ReadsClockOnce(t *testing.T) {
	f := newFixture(t, nil)
	id := f.trueFalse(t)
	f.enrollDueToday(t, id)

	// Each clock read moves a minute forward, starting one minute
	// before midnight of today.
	f.now = time.Date(2025, 6, 2, 23, 59, 0, 0, time.UTC)
	f.svc.now = func() time.Time {
		at := f.now
		f.now = f.now.Add(time.Minute)
		return at
	}

	res, err := f.svc.SubmitAnswer(context.Background(), f.learner, id, "true")
	require.NoError(t, err)
	require.True(t, res.IsFirstAttemptToday)
	assert.Equal(t, today.AddDays(7), *res.NextReviewDate)

	a, err := f.repo.GetAttempt(context.Background(), res.AttemptID)
	require.NoError(t, err)
	assert.Equal(t, today, civil.DateOf(a.CreatedAt.In(time.UTC)))
}

func TestCreateItem_EnrollsOwner(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	it := &item.Item{OwnerID: f.learner, Type: item.TrueFalse, Question: "q", Key: item.AnswerKey{Truth: true}}
	st, err := f.svc.CreateItem(ctx, it)
	require.NoError(t, err)
	require.NotZero(t, it.ID)
	require.NotNil(t, st)
	assert.Equal(t, it.ID, st.ItemID)
	assert.Equal(t, review.Gate1, st.Gate)
	assert.Equal(t, today.AddDays(1), st.NextReviewDate)

	_, created, err := f.svc.Enroll(ctx, f.learner, it.ID)
	require.NoError(t, err)
	assert.False(t, created)

	_, err = f.svc.CreateItem(ctx, &item.Item{OwnerID: f.learner, Type: item.SingleChoice, Question: "q"})
	assert.ErrorIs(t, err, review.ErrInvalidInput)
	_, err = f.svc.CreateItem(ctx, &item.Item{OwnerID: 999, Type: item.TrueFalse, Question: "q"})
	assert.ErrorIs(t, err, review.ErrLearnerNotFound)
}

func TestCreateItem_IneligibleOwnerGetsNoState(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	f.svc.eligible = EligibilityFunc(func(context.Context, int64, *item.Item) (bool, error) {
		return false, nil
	})

	it := &item.Item{OwnerID: f.learner, Type: item.TrueFalse, Question: "q", Key: item.AnswerKey{Truth: true}}
	st, err := f.svc.CreateItem(ctx, it)
	require.NoError(t, err)
	assert.Nil(t, st)

	e, err := f.repo.GetEnrollment(ctx, f.learner, it.ID)
	require.NoError(t, err)
	assert.IsType(t, review.NotEnrolled{}, e)
}

func TestEligibilityByName(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.trueFalse(t)
	other, err := f.repo.CreateLearner(ctx, "grace")
	require.NoError(t, err)

	for _, name := range []string{"", "owner", "OWNER"} {
		e, err := EligibilityByName(name)
		require.NoError(t, err, name)
		ok, err := e.CanReview(ctx, other.ID, &item.Item{ID: id, OwnerID: f.learner})
		require.NoError(t, err)
		assert.False(t, ok, name)
	}

	anyone, err := EligibilityByName("anyone")
	require.NoError(t, err)
	f.svc.eligible = anyone
	_, created, err := f.svc.Enroll(ctx, other.ID, id)
	require.NoError(t, err)
	assert.True(t, created)

	_, err = EligibilityByName("everyone")
	assert.ErrorIs(t, err, review.ErrInvalidInput)
}

func TestSubmitAnswer_GraduatedIsTerminal(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.trueFalse(t)
	f.enrollDueToday(t, id)

	_, err := f.svc.SubmitAnswer(ctx, f.learner, id, "true")
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 0, 7)
	res, err := f.svc.SubmitAnswer(ctx, f.learner, id, "true")
	require.NoError(t, err)
	assert.Equal(t, review.Graduated, *res.Gate)
	assert.Nil(t, res.NextReviewDate)
	assert.Equal(t, 2, *res.AttemptCount)

	f.now = f.now.AddDate(0, 0, 1)
	res, err = f.svc.SubmitAnswer(ctx, f.learner, id, "false")
	require.NoError(t, err)
	assert.Equal(t, review.Graduated, *res.Gate)
	assert.Equal(t, 2, *res.AttemptCount)
	assert.False(t, res.StateChanged)
	assert.False(t, res.IsFirstAttemptToday)
}

func TestSubmitAnswer_InvalidAnswer(t *testing.T) {
	f := newFixture(t, nil)
	id := f.addItem(t, item.Item{Type: item.SingleChoice, Choices: []string{"a", "b"}, Key: item.AnswerKey{CorrectIndex: 1}})
	f.enrollDueToday(t, id)

	_, err := f.svc.SubmitAnswer(context.Background(), f.learner, id, "5")
	assert.ErrorIs(t, err, review.ErrInvalidAnswer)

	hist, err := f.svc.History(context.Background(), f.learner, id, 0)
	require.NoError(t, err)
	assert.Empty(t, hist, "rejected answers are not recorded")
}

func TestGetTodayReview_GraduatedTodayKeepsSnapshotGate(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.trueFalse(t)
	f.enrollDueToday(t, id)

	// Promote to GATE_2 today, then move to the day it is due again.
	_, err := f.svc.SubmitAnswer(ctx, f.learner, id, "true")
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 0, 7)
	f.snapshot(t)

	res, err := f.svc.SubmitAnswer(ctx, f.learner, id, "true")
	require.NoError(t, err)
	require.Equal(t, review.Graduated, *res.Gate)

	tr, err := f.svc.GetTodayReview(ctx, f.learner, "ALL", SortByItem)
	require.NoError(t, err)
	require.Len(t, tr.Items, 1)
	assert.Equal(t, review.Gate2, tr.Items[0].Gate)
	assert.True(t, tr.Items[0].Completed)
	assert.Equal(t, review.Dashboard{TotalCount: 1, CompletedCount: 1, IncompletedCount: 0, ProgressRate: 100}, tr.Dashboard)

	tr, err = f.svc.GetTodayReview(ctx, f.learner, "GATE_1", SortByItem)
	require.NoError(t, err)
	assert.Empty(t, tr.Items)
	assert.Equal(t, 0.0, tr.Dashboard.ProgressRate)
}

func TestGetTodayReview_FilterAndProgress(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	a, b := f.trueFalse(t), f.trueFalse(t)
	f.enrollDueToday(t, a)
	f.enrollDueToday(t, b)
	f.snapshot(t)

	_, err := f.svc.SubmitAnswer(ctx, f.learner, b, "false")
	require.NoError(t, err)

	tr, err := f.svc.GetTodayReview(ctx, f.learner, "", SortIncompleteFirst)
	require.NoError(t, err)
	assert.Equal(t, review.FilterAll, tr.Filter)
	assert.Equal(t, 50.0, tr.Dashboard.ProgressRate)
	require.Len(t, tr.Items, 2)
	assert.Equal(t, a, tr.Items[0].ItemID, "incomplete first")
	assert.False(t, tr.Items[0].Completed)

	tr, err = f.svc.GetTodayReview(ctx, f.learner, "gate_1", SortByItem)
	require.NoError(t, err)
	assert.Len(t, tr.Items, 2)

	_, err = f.svc.GetTodayReview(ctx, f.learner, "GRADUATED", SortByItem)
	assert.ErrorIs(t, err, review.ErrInvalidFilter)
	_, err = f.svc.GetTodayReview(ctx, 999, "ALL", SortByItem)
	assert.ErrorIs(t, err, review.ErrLearnerNotFound)
}

func TestGetTodayReview_YesterdaysAttemptsDoNotCount(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.trueFalse(t)
	f.enrollDueToday(t, id)

	f.now = f.now.AddDate(0, 0, -1)
	_, err := f.svc.SubmitAnswer(ctx, f.learner, id, "false")
	require.NoError(t, err)
	f.now = f.now.AddDate(0, 0, 1)
	f.snapshot(t)

	tr, err := f.svc.GetTodayReview(ctx, f.learner, "ALL", SortByItem)
	require.NoError(t, err)
	require.Len(t, tr.Items, 1)
	assert.False(t, tr.Items[0].Completed)
	assert.Equal(t, 0.0, tr.Dashboard.ProgressRate)
}

func TestDueItems(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	due, later := f.trueFalse(t), f.trueFalse(t)
	f.enrollDueToday(t, due)
	_, _, err := f.svc.Enroll(ctx, f.learner, later)
	require.NoError(t, err)

	states, err := f.svc.DueItems(ctx, f.learner)
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, due, states[0].ItemID)
}

func TestRegradeAttempt(t *testing.T) {
	mock := llm.NewMockProvider(
		llm.MockResponse{Err: &llm.ErrProviderUnavailable{}},
		llm.MockResponse{Content: json.RawMessage(`{"is_correct":true,"feedback":"Well put.","missing_keywords":[],"scoring_reason":"Covers both keywords."}`)},
	)
	f := newFixture(t, mock)
	ctx := context.Background()
	id := f.addItem(t, item.Item{Type: item.FreeText, Key: item.AnswerKey{ModelAnswer: "m", Keywords: []string{"k"}}})
	f.enrollDueToday(t, id)

	res, err := f.svc.SubmitAnswer(ctx, f.learner, id, "my answer")
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	require.NotNil(t, res.Feedback)
	assert.False(t, res.Feedback.Graded)
	assert.Equal(t, review.Gate1, *res.Gate)

	fb, err := f.svc.RegradeAttempt(ctx, res.AttemptID)
	require.NoError(t, err)
	assert.True(t, fb.Graded)
	assert.Equal(t, "Well put.", fb.Text)

	a, err := f.repo.GetAttempt(ctx, res.AttemptID)
	require.NoError(t, err)
	assert.False(t, a.Correct, "regrade does not rewrite the verdict")
	require.NotNil(t, a.Feedback)
	assert.True(t, a.Feedback.Graded)

	_, err = f.svc.RegradeAttempt(ctx, "nope")
	assert.ErrorIs(t, err, review.ErrAttemptNotFound)
}

func TestParseSortOrder(t *testing.T) {
	for in, want := range map[string]SortOrder{"": SortByItem, "item": SortByItem, "incomplete": SortIncompleteFirst} {
		got, err := ParseSortOrder(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseSortOrder("random")
	assert.ErrorIs(t, err, review.ErrInvalidInput)
}
