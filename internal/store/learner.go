package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

func (s *Store) CreateLearner(ctx context.Context, name string) (Learner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Learner{}, fmt.Errorf("%w: learner name is empty", review.ErrInvalidInput)
	}
	now := time.Now()
	query, args := sq().Insert("learners").
		Columns("name", "created_at").
		Values(name, millis(now)).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return Learner{}, fmt.Errorf("insert learner: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Learner{}, fmt.Errorf("learner id: %w", err)
	}
	return Learner{ID: id, Name: name, CreatedAt: fromMillis(millis(now))}, nil
}

func (s *Store) GetLearner(ctx context.Context, id int64) (Learner, error) {
	return s.oneLearner(ctx, entsql.EQ("id", id))
}

func (s *Store) FindLearner(ctx context.Context, name string) (Learner, error) {
	return s.oneLearner(ctx, entsql.EQ("name", strings.TrimSpace(name)))
}

func (s *Store) ListLearners(ctx context.Context) ([]Learner, error) {
	query, args := sq().Select("id", "name", "created_at").
		From(entsql.Table("learners")).
		OrderBy("id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	defer rows.Close()

	var out []Learner
	for rows.Next() {
		var (
			l  Learner
			ms int64
		)
		if err := rows.Scan(&l.ID, &l.Name, &ms); err != nil {
			return nil, fmt.Errorf("scan learner: %w", err)
		}
		l.CreatedAt = fromMillis(ms)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) oneLearner(ctx context.Context, where *entsql.Predicate) (Learner, error) {
	query, args := sq().Select("id", "name", "created_at").
		From(entsql.Table("learners")).
		Where(where).
		Query()
	var (
		l  Learner
		ms int64
	)
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&l.ID, &l.Name, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return Learner{}, review.ErrLearnerNotFound
	}
	if err != nil {
		return Learner{}, fmt.Errorf("get learner: %w", err)
	}
	l.CreatedAt = fromMillis(ms)
	return l, nil
}
