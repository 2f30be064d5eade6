package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

func createAttempt(tx *gorm.DB, a review.Attempt) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	row := attemptRow{
		ID:         a.ID,
		LearnerID:  a.LearnerID,
		ItemID:     a.ItemID,
		Answer:     a.Answer,
		Correct:    a.Correct,
		FirstOfDay: a.FirstOfDay,
		CreatedAt:  a.CreatedAt.UTC(),
	}
	if a.Feedback != nil {
		b, err := json.Marshal(a.Feedback)
		if err != nil {
			return fmt.Errorf("marshal feedback: %w", err)
		}
		row.Feedback = datatypes.JSON(b)
	}
	if err := tx.Create(&row).Error; err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *Store) GetAttempt(ctx context.Context, id string) (review.Attempt, error) {
	var row attemptRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return review.Attempt{}, review.ErrAttemptNotFound
	}
	if err != nil {
		return review.Attempt{}, fmt.Errorf("get attempt: %w", err)
	}
	return row.toAttempt()
}

func (s *Store) ListAttempts(ctx context.Context, learnerID, itemID int64, limit int) ([]review.Attempt, error) {
	q := s.db.WithContext(ctx).Where("learner_id = ?", learnerID)
	if itemID != 0 {
		q = q.Where("item_id = ?", itemID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []attemptRow
	if err := q.Order("created_at DESC, id DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]review.Attempt, 0, len(rows))
	for _, r := range rows {
		a, err := r.toAttempt()
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) AttemptedItems(ctx context.Context, learnerID int64, from, to time.Time) (map[int64]bool, error) {
	var ids []int64
	err := s.db.WithContext(ctx).Model(&attemptRow{}).
		Distinct("item_id").
		Where("learner_id = ? AND created_at >= ? AND created_at < ?", learnerID, from.UTC(), to.UTC()).
		Pluck("item_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("attempted items: %w", err)
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

func (s *Store) AttachFeedback(ctx context.Context, attemptID string, fb review.Feedback) error {
	b, err := json.Marshal(fb)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}
	res := s.db.WithContext(ctx).Model(&attemptRow{}).
		Where("id = ?", attemptID).
		Update("feedback", datatypes.JSON(b))
	if res.Error != nil {
		return fmt.Errorf("attach feedback: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return review.ErrAttemptNotFound
	}
	return nil
}

func (r attemptRow) toAttempt() (review.Attempt, error) {
	a := review.Attempt{
		ID:         r.ID,
		LearnerID:  r.LearnerID,
		ItemID:     r.ItemID,
		Answer:     r.Answer,
		Correct:    r.Correct,
		FirstOfDay: r.FirstOfDay,
		CreatedAt:  r.CreatedAt,
	}
	if len(r.Feedback) > 0 && string(r.Feedback) != "null" {
		var fb review.Feedback
		if err := json.Unmarshal(r.Feedback, &fb); err != nil {
			return review.Attempt{}, fmt.Errorf("attempt %s feedback: %w", r.ID, err)
		}
		a.Feedback = &fb
	}
	return a, nil
}
