package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

var itemColumns = []string{"id", "owner_id", "type", "topic", "question", "choices", "answer_key", "explanation"}

// CreateItem validates and inserts it, setting it.ID.
func (s *Store) CreateItem(ctx context.Context, it *item.Item) (int64, error) {
	if err := it.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", review.ErrInvalidInput, err)
	}
	choices, err := json.Marshal(it.Choices)
	if err != nil {
		return 0, fmt.Errorf("marshal choices: %w", err)
	}
	key, err := json.Marshal(it.Key)
	if err != nil {
		return 0, fmt.Errorf("marshal answer key: %w", err)
	}
	query, args := sq().Insert("items").
		Columns("owner_id", "type", "topic", "question", "choices", "answer_key", "explanation", "created_at").
		Values(it.OwnerID, string(it.Type), it.Topic, it.Question, string(choices), string(key), it.Explanation, millis(time.Now())).
		Query()
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("item id: %w", err)
	}
	it.ID = id
	return id, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*item.Item, error) {
	query, args := sq().Select(itemColumns...).
		From(entsql.Table("items")).
		Where(entsql.EQ("id", id)).
		Query()
	it, err := scanItem(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, review.ErrItemNotFound
	}
	return it, err
}

func (s *Store) GetItems(ctx context.Context, ids []int64) (map[int64]*item.Item, error) {
	out := make(map[int64]*item.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	items, err := s.queryItems(ctx, entsql.In("id", args...))
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (s *Store) ListItemsByOwner(ctx context.Context, ownerID int64) ([]*item.Item, error) {
	return s.queryItems(ctx, entsql.EQ("owner_id", ownerID))
}

func (s *Store) queryItems(ctx context.Context, where *entsql.Predicate) ([]*item.Item, error) {
	query, args := sq().Select(itemColumns...).
		From(entsql.Table("items")).
		Where(where).
		OrderBy("id").
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	var out []*item.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(row scanner) (*item.Item, error) {
	var (
		it           item.Item
		typ, choices string
		key          string
	)
	if err := row.Scan(&it.ID, &it.OwnerID, &typ, &it.Topic, &it.Question, &choices, &key, &it.Explanation); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	it.Type = item.Type(typ)
	if err := json.Unmarshal([]byte(choices), &it.Choices); err != nil {
		return nil, fmt.Errorf("item %d choices: %w", it.ID, err)
	}
	if err := json.Unmarshal([]byte(key), &it.Key); err != nil {
		return nil, fmt.Errorf("item %d answer key: %w", it.ID, err)
	}
	return &it, nil
}
