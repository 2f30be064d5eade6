package pgstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"gorm.io/gorm"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
)

// RunSnapshot captures every due state into day's snapshot. States
// already captured for day keep their captured gate, so reruns only add.
func (s *Store) RunSnapshot(ctx context.Context, day civil.Date, at time.Time) (int64, error) {
	d := dateVal(day)
	var n int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&stateRow{}).
			Where("(next_review_date <= ? AND gate <> ?) OR today_snapshot_date = ?", d, string(review.Graduated), d).
			Updates(map[string]any{
				"today_snapshot_gate": gorm.Expr("CASE WHEN today_snapshot_date = ? THEN today_snapshot_gate ELSE gate END", d),
				"today_snapshot_date": d,
				"updated_at":          at.UTC(),
			})
		if res.Error != nil {
			return fmt.Errorf("snapshot review states: %w", res.Error)
		}
		n = res.RowsAffected
		run := snapshotRunRow{Date: *d, RowsUpdated: n, RanAt: at.UTC()}
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("record snapshot run: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) ListSnapshotRuns(ctx context.Context, limit int) ([]store.SnapshotRun, error) {
	q := s.db.WithContext(ctx).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []snapshotRunRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list snapshot runs: %w", err)
	}
	out := make([]store.SnapshotRun, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.SnapshotRun{
			ID:          r.ID,
			Date:        civil.DateOf(r.Date),
			RowsUpdated: r.RowsUpdated,
			RanAt:       r.RanAt,
		})
	}
	return out, nil
}
