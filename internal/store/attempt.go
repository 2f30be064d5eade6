package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

var attemptColumns = []string{"id", "learner_id", "item_id", "answer", "correct", "first_of_day", "feedback", "created_at"}

func insertAttempt(ctx context.Context, x execer, a review.Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	fb, err := feedbackArg(a.Feedback)
	if err != nil {
		return err
	}
	query, args := sq().Insert("attempts").
		Columns(attemptColumns...).
		Values(a.ID, a.LearnerID, a.ItemID, a.Answer, boolInt(a.Correct), boolInt(a.FirstOfDay), fb, millis(a.CreatedAt)).
		Query()
	if _, err := x.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, id string) (review.Attempt, error) {
	query, args := sq().Select(attemptColumns...).
		From(entsql.Table("attempts")).
		Where(entsql.EQ("id", id)).
		Query()
	a, err := scanAttempt(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return review.Attempt{}, review.ErrAttemptNotFound
	}
	return a, err
}

// ListAttempts returns the newest attempts first. itemID 0 means all items.
func (s *Store) ListAttempts(ctx context.Context, learnerID, itemID int64, limit int) ([]review.Attempt, error) {
	where := entsql.EQ("learner_id", learnerID)
	if itemID != 0 {
		where = entsql.And(where, entsql.EQ("item_id", itemID))
	}
	sel := sq().Select(attemptColumns...).
		From(entsql.Table("attempts")).
		Where(where).
		OrderBy(entsql.Desc("created_at"), entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []review.Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AttemptedItems returns the items the learner submitted for in [from, to).
func (s *Store) AttemptedItems(ctx context.Context, learnerID int64, from, to time.Time) (map[int64]bool, error) {
	query, args := sq().Select("item_id").
		Distinct().
		From(entsql.Table("attempts")).
		Where(entsql.And(
			entsql.EQ("learner_id", learnerID),
			entsql.GTE("created_at", millis(from)),
			entsql.LT("created_at", millis(to)),
		)).
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("attempted items: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]bool)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan item id: %w", err)
		}
		out[id] = true
	}
	return out, rows.Err()
}

// AttachFeedback sets the feedback of an existing attempt. Nothing else
// on the attempt changes.
func (s *Store) AttachFeedback(ctx context.Context, attemptID string, fb review.Feedback) error {
	raw, err := feedbackArg(&fb)
	if err != nil {
		return err
	}
	query, args := sq().Update("attempts").
		Set("feedback", raw).
		Where(entsql.EQ("id", attemptID)).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("attach feedback: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return review.ErrAttemptNotFound
	}
	return nil
}

func feedbackArg(fb *review.Feedback) (any, error) {
	if fb == nil {
		return nil, nil
	}
	b, err := json.Marshal(fb)
	if err != nil {
		return nil, fmt.Errorf("marshal feedback: %w", err)
	}
	return string(b), nil
}

func scanAttempt(row scanner) (review.Attempt, error) {
	var (
		a                   review.Attempt
		correct, firstOfDay int
		fb                  sql.NullString
		createdMs           int64
	)
	err := row.Scan(&a.ID, &a.LearnerID, &a.ItemID, &a.Answer, &correct, &firstOfDay, &fb, &createdMs)
	if errors.Is(err, sql.ErrNoRows) {
		return review.Attempt{}, err
	}
	if err != nil {
		return review.Attempt{}, fmt.Errorf("scan attempt: %w", err)
	}
	a.Correct = correct != 0
	a.FirstOfDay = firstOfDay != 0
	a.CreatedAt = fromMillis(createdMs)
	if fb.Valid && fb.String != "" {
		var f review.Feedback
		if err := json.Unmarshal([]byte(fb.String), &f); err != nil {
			return review.Attempt{}, fmt.Errorf("attempt %s feedback: %w", a.ID, err)
		}
		a.Feedback = &f
	}
	return a, nil
}
