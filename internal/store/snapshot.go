package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	entsql "entgo.io/ent/dialect/sql"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

// RunSnapshot captures day's review set in one UPDATE: every state due on
// or before day and not graduated, plus every state already captured for
// day. A state captured earlier the same day keeps its captured gate, so
// re-running after a promotion does not overwrite it. The run is logged
// in snapshot_runs within the same transaction.
func (s *Store) RunSnapshot(ctx context.Context, day civil.Date, at time.Time) (int64, error) {
	d := day.String()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	query, args := sq().Update("review_states").
		Set("today_snapshot_gate", entsql.Expr("CASE WHEN today_snapshot_date = ? THEN today_snapshot_gate ELSE gate END", d)).
		Set("today_snapshot_date", d).
		Set("updated_at", millis(at)).
		Where(entsql.Or(
			entsql.And(entsql.LTE("next_review_date", d), entsql.NEQ("gate", string(review.Graduated))),
			entsql.EQ("today_snapshot_date", d),
		)).
		Query()
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("snapshot update: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("snapshot update: %w", err)
	}

	query, args = sq().Insert("snapshot_runs").
		Columns("snapshot_date", "rows_updated", "ran_at").
		Values(d, n, millis(at)).
		Query()
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return 0, fmt.Errorf("record snapshot run: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit snapshot: %w", err)
	}
	return n, nil
}

// ListSnapshotRuns returns the most recent runs first.
func (s *Store) ListSnapshotRuns(ctx context.Context, limit int) ([]SnapshotRun, error) {
	sel := sq().Select("id", "snapshot_date", "rows_updated", "ran_at").
		From(entsql.Table("snapshot_runs")).
		OrderBy(entsql.Desc("id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list snapshot runs: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRun
	for rows.Next() {
		var (
			r    SnapshotRun
			date sql.NullString
			ms   int64
		)
		if err := rows.Scan(&r.ID, &date, &r.RowsUpdated, &ms); err != nil {
			return nil, fmt.Errorf("scan snapshot run: %w", err)
		}
		if r.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		r.RanAt = fromMillis(ms)
		out = append(out, r)
	}
	return out, rows.Err()
}
