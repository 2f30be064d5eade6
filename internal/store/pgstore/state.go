package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

func (s *Store) GetEnrollment(ctx context.Context, learnerID, itemID int64) (review.Enrollment, error) {
	return getEnrollment(s.db.WithContext(ctx), learnerID, itemID)
}

func getEnrollment(tx *gorm.DB, learnerID, itemID int64) (review.Enrollment, error) {
	var row stateRow
	err := tx.Where("learner_id = ? AND item_id = ?", learnerID, itemID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return review.NotEnrolled{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get review state: %w", err)
	}
	st, err := row.toState()
	if err != nil {
		return nil, err
	}
	return review.Enrolled{State: st}, nil
}

func (s *Store) CreateState(ctx context.Context, st review.State) (review.State, bool, error) {
	if err := st.Check(); err != nil {
		return review.State{}, false, fmt.Errorf("%w: %v", review.ErrInvalidInput, err)
	}
	row := fromState(st)
	row.ID = 0
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "learner_id"}, {Name: "item_id"}}, DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return review.State{}, false, fmt.Errorf("insert review state: %w", res.Error)
	}

	e, err := s.GetEnrollment(ctx, st.LearnerID, st.ItemID)
	if err != nil {
		return review.State{}, false, err
	}
	en, ok := e.(review.Enrolled)
	if !ok {
		return review.State{}, false, fmt.Errorf("review state for learner %d item %d vanished", st.LearnerID, st.ItemID)
	}
	return en.State, res.RowsAffected == 1, nil
}

// ListDue returns due, non-graduated states plus those captured by day's
// snapshot.
func (s *Store) ListDue(ctx context.Context, learnerID int64, day civil.Date) ([]review.State, error) {
	d := dateVal(day)
	return s.findStates(ctx, s.db.WithContext(ctx).
		Where("learner_id = ?", learnerID).
		Where(s.db.Where("next_review_date <= ? AND gate <> ?", d, string(review.Graduated)).
			Or("today_snapshot_date = ?", d)))
}

func (s *Store) ListSnapshot(ctx context.Context, learnerID int64, day civil.Date) ([]review.State, error) {
	return s.findStates(ctx, s.db.WithContext(ctx).
		Where("learner_id = ? AND today_snapshot_date = ?", learnerID, dateVal(day)))
}

func (s *Store) ListStates(ctx context.Context, learnerID int64) ([]review.State, error) {
	return s.findStates(ctx, s.db.WithContext(ctx).Where("learner_id = ?", learnerID))
}

func (s *Store) findStates(_ context.Context, q *gorm.DB) ([]review.State, error) {
	var rows []stateRow
	if err := q.Order("item_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query review states: %w", err)
	}
	out := make([]review.State, 0, len(rows))
	for _, r := range rows {
		st, err := r.toState()
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

// ApplyTransition locks the pair's row, decides, writes the state and
// appends the attempt in one transaction.
func (s *Store) ApplyTransition(ctx context.Context, a review.Attempt, decide review.TransitionFunc) (review.Outcome, error) {
	var out review.Outcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		e, err := getEnrollment(s.forUpdate(tx), a.LearnerID, a.ItemID)
		if err != nil {
			return err
		}
		out = decide(e)

		if out.StateChanged {
			next := out.Enrollment.(review.Enrolled).State
			res := tx.Model(&stateRow{}).
				Where("id = ?", next.ID).
				Updates(map[string]any{
					"gate":                     string(next.Gate),
					"next_review_date":         dateVal(next.NextReviewDate),
					"attempt_count":            next.AttemptCount,
					"today_first_attempt_date": dateVal(next.TodayFirstAttemptDate),
					"updated_at":               time.Now().UTC(),
				})
			if res.Error != nil {
				return fmt.Errorf("update review state: %w", res.Error)
			}
		}

		a.FirstOfDay = out.FirstAttemptToday
		return createAttempt(tx, a)
	})
	if err != nil {
		return review.Outcome{}, err
	}
	return out, nil
}
