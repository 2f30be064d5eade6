package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

var stateColumns = []string{
	"id", "learner_id", "item_id", "gate", "next_review_date", "attempt_count",
	"today_snapshot_date", "today_snapshot_gate", "today_first_attempt_date",
	"created_at", "updated_at",
}

// GetEnrollment returns Enrolled with the stored state, or NotEnrolled.
func (s *Store) GetEnrollment(ctx context.Context, learnerID, itemID int64) (review.Enrollment, error) {
	return getEnrollment(ctx, s.db, learnerID, itemID)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getEnrollment(ctx context.Context, q querier, learnerID, itemID int64) (review.Enrollment, error) {
	query, args := sq().Select(stateColumns...).
		From(entsql.Table("review_states")).
		Where(entsql.And(entsql.EQ("learner_id", learnerID), entsql.EQ("item_id", itemID))).
		Query()
	st, err := scanState(q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return review.NotEnrolled{}, nil
	}
	if err != nil {
		return nil, err
	}
	return review.Enrolled{State: st}, nil
}

// CreateState inserts st unless the pair already has a state. It returns
// the stored state and whether this call created it.
func (s *Store) CreateState(ctx context.Context, st review.State) (review.State, bool, error) {
	if err := st.Check(); err != nil {
		return review.State{}, false, fmt.Errorf("%w: %v", review.ErrInvalidInput, err)
	}
	now := millis(time.Now())
	query, args := sq().Insert("review_states").
		Columns("learner_id", "item_id", "gate", "next_review_date", "attempt_count",
			"today_snapshot_date", "today_snapshot_gate", "today_first_attempt_date",
			"created_at", "updated_at").
		Values(st.LearnerID, st.ItemID, string(st.Gate), dateArg(st.NextReviewDate), st.AttemptCount,
			dateArg(st.TodaySnapshotDate), gateArg(st.TodaySnapshotGate), dateArg(st.TodayFirstAttemptDate),
			now, now).
		OnConflict(entsql.ConflictColumns("learner_id", "item_id"), entsql.DoNothing()).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return review.State{}, false, fmt.Errorf("insert review state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return review.State{}, false, fmt.Errorf("insert review state: %w", err)
	}

	e, err := s.GetEnrollment(ctx, st.LearnerID, st.ItemID)
	if err != nil {
		return review.State{}, false, err
	}
	en, ok := e.(review.Enrolled)
	if !ok {
		return review.State{}, false, fmt.Errorf("review state for learner %d item %d vanished", st.LearnerID, st.ItemID)
	}
	return en.State, n == 1, nil
}

// ListDue returns the learner's states that are due on or before day and
// not graduated, plus any already captured by day's snapshot.
func (s *Store) ListDue(ctx context.Context, learnerID int64, day civil.Date) ([]review.State, error) {
	d := day.String()
	return s.queryStates(ctx, entsql.And(
		entsql.EQ("learner_id", learnerID),
		entsql.Or(
			entsql.And(entsql.LTE("next_review_date", d), entsql.NEQ("gate", string(review.Graduated))),
			entsql.EQ("today_snapshot_date", d),
		),
	))
}

// ListSnapshot returns the learner's states captured by day's snapshot.
func (s *Store) ListSnapshot(ctx context.Context, learnerID int64, day civil.Date) ([]review.State, error) {
	return s.queryStates(ctx, entsql.And(
		entsql.EQ("learner_id", learnerID),
		entsql.EQ("today_snapshot_date", day.String()),
	))
}

func (s *Store) ListStates(ctx context.Context, learnerID int64) ([]review.State, error) {
	return s.queryStates(ctx, entsql.EQ("learner_id", learnerID))
}

func (s *Store) queryStates(ctx context.Context, where *entsql.Predicate) ([]review.State, error) {
	query, args := sq().Select(stateColumns...).
		From(entsql.Table("review_states")).
		Where(where).
		OrderBy("item_id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query review states: %w", err)
	}
	defer rows.Close()

	var out []review.State
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// ApplyTransition records a and applies decide to the pair's enrollment
// as one unit. The state write is a compare-and-swap on the fields the
// decision read; a lost race re-reads and decides again.
func (s *Store) ApplyTransition(ctx context.Context, a review.Attempt, decide review.TransitionFunc) (review.Outcome, error) {
	for try := 0; try < MaxTransitionRetries; try++ {
		e, err := s.GetEnrollment(ctx, a.LearnerID, a.ItemID)
		if err != nil {
			return review.Outcome{}, err
		}
		out := decide(e)

		ok, err := s.commitTransition(ctx, e, out, a)
		if err != nil {
			return review.Outcome{}, err
		}
		if ok {
			return out, nil
		}
	}
	return review.Outcome{}, fmt.Errorf("learner %d item %d: %w", a.LearnerID, a.ItemID, ErrConflict)
}

func (s *Store) commitTransition(ctx context.Context, prev review.Enrollment, out review.Outcome, a review.Attempt) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if out.StateChanged {
		from, _ := prev.(review.Enrolled)
		to, _ := out.Enrollment.(review.Enrolled)
		n, err := casState(ctx, tx, from.State, to.State)
		if err != nil {
			return false, err
		}
		if n == 0 {
			return false, nil
		}
	}

	a.FirstOfDay = out.FirstAttemptToday
	if err := insertAttempt(ctx, tx, a); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return true, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// casState writes the schedule fields of next where the row still holds
// prev's gate, attempt count and first-attempt date.
func casState(ctx context.Context, x execer, prev, next review.State) (int64, error) {
	firstAttempt := entsql.IsNull("today_first_attempt_date")
	if prev.TodayFirstAttemptDate.IsValid() {
		firstAttempt = entsql.EQ("today_first_attempt_date", prev.TodayFirstAttemptDate.String())
	}
	query, args := sq().Update("review_states").
		Set("gate", string(next.Gate)).
		Set("next_review_date", dateArg(next.NextReviewDate)).
		Set("attempt_count", next.AttemptCount).
		Set("today_first_attempt_date", dateArg(next.TodayFirstAttemptDate)).
		Set("updated_at", millis(time.Now())).
		Where(entsql.And(
			entsql.EQ("id", prev.ID),
			entsql.EQ("gate", string(prev.Gate)),
			entsql.EQ("attempt_count", prev.AttemptCount),
			firstAttempt,
		)).
		Query()
	res, err := x.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("update review state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("update review state: %w", err)
	}
	return n, nil
}

func gateArg(g review.Gate) any {
	if g == "" {
		return nil
	}
	return string(g)
}

func scanState(row scanner) (review.State, error) {
	var (
		st                           review.State
		gate                         string
		next, snapDate, firstAttempt sql.NullString
		snapGate                     sql.NullString
		createdMs, updatedMs         int64
	)
	err := row.Scan(&st.ID, &st.LearnerID, &st.ItemID, &gate, &next, &st.AttemptCount,
		&snapDate, &snapGate, &firstAttempt, &createdMs, &updatedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return review.State{}, err
	}
	if err != nil {
		return review.State{}, fmt.Errorf("scan review state: %w", err)
	}
	if st.Gate, err = review.ParseGate(gate); err != nil {
		return review.State{}, err
	}
	if st.NextReviewDate, err = parseDate(next); err != nil {
		return review.State{}, err
	}
	if st.TodaySnapshotDate, err = parseDate(snapDate); err != nil {
		return review.State{}, err
	}
	if st.TodayFirstAttemptDate, err = parseDate(firstAttempt); err != nil {
		return review.State{}, err
	}
	if snapGate.Valid {
		st.TodaySnapshotGate = review.Gate(snapGate.String)
	}
	st.CreatedAt = fromMillis(createdMs)
	st.UpdatedAt = fromMillis(updatedMs)
	return st, nil
}
