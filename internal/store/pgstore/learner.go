package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/item"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
)

func (s *Store) CreateLearner(ctx context.Context, name string) (store.Learner, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return store.Learner{}, fmt.Errorf("%w: learner name is empty", review.ErrInvalidInput)
	}
	row := learnerRow{Name: name}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return store.Learner{}, fmt.Errorf("insert learner: %w", err)
	}
	return store.Learner{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}, nil
}

func (s *Store) GetLearner(ctx context.Context, id int64) (store.Learner, error) {
	return s.oneLearner(ctx, "id = ?", id)
}

func (s *Store) FindLearner(ctx context.Context, name string) (store.Learner, error) {
	return s.oneLearner(ctx, "name = ?", strings.TrimSpace(name))
}

func (s *Store) oneLearner(ctx context.Context, where string, arg any) (store.Learner, error) {
	var row learnerRow
	err := s.db.WithContext(ctx).Where(where, arg).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.Learner{}, review.ErrLearnerNotFound
	}
	if err != nil {
		return store.Learner{}, fmt.Errorf("get learner: %w", err)
	}
	return store.Learner{ID: row.ID, Name: row.Name, CreatedAt: row.CreatedAt}, nil
}

func (s *Store) ListLearners(ctx context.Context) ([]store.Learner, error) {
	var rows []learnerRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list learners: %w", err)
	}
	out := make([]store.Learner, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.Learner{ID: r.ID, Name: r.Name, CreatedAt: r.CreatedAt})
	}
	return out, nil
}

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
	row := itemRow{
		OwnerID:     it.OwnerID,
		Type:        string(it.Type),
		Topic:       it.Topic,
		Question:    it.Question,
		Choices:     choices,
		AnswerKey:   key,
		Explanation: it.Explanation,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, fmt.Errorf("insert item: %w", err)
	}
	it.ID = row.ID
	return row.ID, nil
}

func (s *Store) GetItem(ctx context.Context, id int64) (*item.Item, error) {
	var row itemRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, review.ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return row.toItem()
}

func (s *Store) GetItems(ctx context.Context, ids []int64) (map[int64]*item.Item, error) {
	out := make(map[int64]*item.Item, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := s.findItems(ctx, "id IN ?", ids)
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		out[it.ID] = it
	}
	return out, nil
}

func (s *Store) ListItemsByOwner(ctx context.Context, ownerID int64) ([]*item.Item, error) {
	return s.findItems(ctx, "owner_id = ?", ownerID)
}

func (s *Store) findItems(ctx context.Context, where string, arg any) ([]*item.Item, error) {
	var rows []itemRow
	if err := s.db.WithContext(ctx).Where(where, arg).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	out := make([]*item.Item, 0, len(rows))
	for _, r := range rows {
		it, err := r.toItem()
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}

func (r itemRow) toItem() (*item.Item, error) {
	it := &item.Item{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Type:        item.Type(r.Type),
		Topic:       r.Topic,
		Question:    r.Question,
		Explanation: r.Explanation,
	}
	if len(r.Choices) > 0 {
		if err := json.Unmarshal(r.Choices, &it.Choices); err != nil {
			return nil, fmt.Errorf("item %d choices: %w", r.ID, err)
		}
	}
	if len(r.AnswerKey) > 0 {
		if err := json.Unmarshal(r.AnswerKey, &it.Key); err != nil {
			return nil, fmt.Errorf("item %d answer key: %w", r.ID, err)
		}
	}
	return it, nil
}
