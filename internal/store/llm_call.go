package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/review"
)

var llmCallColumns = []string{
	"id", "created_at", "purpose", "model", "input_tokens", "output_tokens",
	"latency_ms", "success", "error_message", "request_body", "response_body",
}

func (s *Store) AppendLLMRequest(ctx context.Context, c LLMCall) error {
	query, args := sq().Insert("llm_calls").
		Columns(llmCallColumns[1:]...).
		Values(millis(time.Now()), c.Purpose, c.Model, c.InputTokens, c.OutputTokens,
			c.LatencyMs, boolInt(c.Success), c.ErrorMessage, c.RequestBody, c.ResponseBody).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save llm call: %w", err)
	}
	return nil
}

// QueryLLMCalls returns the newest calls first, optionally for one purpose.
func (s *Store) QueryLLMCalls(ctx context.Context, limit int, purpose string) ([]LLMCallRecord, error) {
	sel := sq().Select(llmCallColumns...).
		From(entsql.Table("llm_calls")).
		OrderBy(entsql.Desc("id"))
	if purpose != "" {
		sel.Where(entsql.EQ("purpose", purpose))
	}
	if limit > 0 {
		sel.Limit(limit)
	}
	query, args := sel.Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query llm calls: %w", err)
	}
	defer rows.Close()

	var out []LLMCallRecord
	for rows.Next() {
		r, err := scanLLMCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *Store) GetLLMCall(ctx context.Context, id int64) (LLMCallRecord, error) {
	query, args := sq().Select(llmCallColumns...).
		From(entsql.Table("llm_calls")).
		Where(entsql.EQ("id", id)).
		Query()
	r, err := scanLLMCall(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return LLMCallRecord{}, fmt.Errorf("llm call %d: %w", id, review.ErrNotFound)
	}
	return r, err
}

func (s *Store) LLMUsageByPurpose(ctx context.Context) ([]LLMUsage, error) {
	return s.llmUsage(ctx, "purpose")
}

func (s *Store) LLMUsageByModel(ctx context.Context) ([]LLMUsage, error) {
	return s.llmUsage(ctx, "model")
}

func (s *Store) llmUsage(ctx context.Context, key string) ([]LLMUsage, error) {
	query, args := sq().Select(key, entsql.Count("*"), entsql.Sum("input_tokens"), entsql.Sum("output_tokens"), entsql.Avg("latency_ms")).
		From(entsql.Table("llm_calls")).
		GroupBy(key).
		OrderBy(key).
		Query()
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("llm usage by %s: %w", key, err)
	}
	defer rows.Close()

	var out []LLMUsage
	for rows.Next() {
		var u LLMUsage
		if err := rows.Scan(&u.Key, &u.Calls, &u.InputTokens, &u.OutputTokens, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("scan llm usage: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func scanLLMCall(row scanner) (LLMCallRecord, error) {
	var (
		r         LLMCallRecord
		createdMs int64
		success   int
	)
	err := row.Scan(&r.ID, &createdMs, &r.Purpose, &r.Model, &r.InputTokens, &r.OutputTokens,
		&r.LatencyMs, &success, &r.ErrorMessage, &r.RequestBody, &r.ResponseBody)
	if errors.Is(err, sql.ErrNoRows) {
		return LLMCallRecord{}, err
	}
	if err != nil {
		return LLMCallRecord{}, fmt.Errorf("scan llm call: %w", err)
	}
	r.CreatedAt = fromMillis(createdMs)
	r.Success = success != 0
	return r, nil
}
