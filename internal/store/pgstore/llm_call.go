package pgstore

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
)

func (s *Store) AppendLLMRequest(ctx context.Context, c store.LLMCall) error {
	row := llmCallRow{
		Purpose:      c.Purpose,
		Model:        c.Model,
		InputTokens:  c.InputTokens,
		OutputTokens: c.OutputTokens,
		LatencyMs:    c.LatencyMs,
		Success:      c.Success,
		ErrorMessage: c.ErrorMessage,
		RequestBody:  c.RequestBody,
		ResponseBody: c.ResponseBody,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("save llm call: %w", err)
	}
	return nil
}

func (s *Store) QueryLLMCalls(ctx context.Context, limit int, purpose string) ([]store.LLMCallRecord, error) {
	q := s.db.WithContext(ctx).Order("id DESC")
	if purpose != "" {
		q = q.Where("purpose = ?", purpose)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []llmCallRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query llm calls: %w", err)
	}
	out := make([]store.LLMCallRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toRecord())
	}
	return out, nil
}

func (s *Store) GetLLMCall(ctx context.Context, id int64) (store.LLMCallRecord, error) {
	var row llmCallRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.LLMCallRecord{}, fmt.Errorf("llm call %d: %w", id, review.ErrNotFound)
	}
	if err != nil {
		return store.LLMCallRecord{}, fmt.Errorf("get llm call: %w", err)
	}
	return row.toRecord(), nil
}

func (s *Store) LLMUsageByPurpose(ctx context.Context) ([]store.LLMUsage, error) {
	return s.usageBy(ctx, "purpose")
}

func (s *Store) LLMUsageByModel(ctx context.Context) ([]store.LLMUsage, error) {
	return s.usageBy(ctx, "model")
}

type usageRow struct {
	UsageKey     string
	Calls        int
	InputTokens  int
	OutputTokens int
	AvgLatency   float64
}

func (s *Store) usageBy(ctx context.Context, col string) ([]store.LLMUsage, error) {
	var rows []usageRow
	err := s.db.WithContext(ctx).Model(&llmCallRow{}).
		Select(col + " AS usage_key, COUNT(*) AS calls, COALESCE(SUM(input_tokens), 0) AS input_tokens, " +
			"COALESCE(SUM(output_tokens), 0) AS output_tokens, COALESCE(AVG(latency_ms), 0) AS avg_latency").
		Group(col).
		Order(col).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("llm usage by %s: %w", col, err)
	}
	out := make([]store.LLMUsage, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.LLMUsage{
			Key:          r.UsageKey,
			Calls:        r.Calls,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			AvgLatencyMs: r.AvgLatency,
		})
	}
	return out, nil
}

func (r llmCallRow) toRecord() store.LLMCallRecord {
	return store.LLMCallRecord{
		ID:        r.ID,
		CreatedAt: r.CreatedAt,
		LLMCall: store.LLMCall{
			Purpose:      r.Purpose,
			Model:        r.Model,
			InputTokens:  r.InputTokens,
			OutputTokens: r.OutputTokens,
			LatencyMs:    r.LatencyMs,
			Success:      r.Success,
			ErrorMessage: r.ErrorMessage,
			RequestBody:  r.RequestBody,
			ResponseBody: r.ResponseBody,
		},
	}
}
