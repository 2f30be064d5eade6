package llm

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
)

func fastRetry() RetryConfig {
	return RetryConfig{MaxAttempts: 3, InitialWait: time.Millisecond, MaxWait: 5 * time.Millisecond, Multiplier: 2}
}

func TestRetry_TransientThenSuccess(t *testing.T) {
	mock := NewMockProvider(
		MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}},
		MockResponse{Content: json.RawMessage(`{"ok":true}`)},
	)
	resp, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(resp.Content))
	assert.Equal(t, 2, mock.CallCount())
}

func TestRetry_GivesUpAfterMaxAttempts(t *testing.T) {
	down := MockResponse{Err: &ErrProviderUnavailable{Err: errors.New("down")}}
	mock := NewMockProvider(down, down, down, down)
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 3, mock.CallCount())
}

func TestRetry_InvalidResponseRetriedOnce(t *testing.T) {
	bad := MockResponse{Err: &ErrInvalidResponse{Err: errors.New("bad")}}
	mock := NewMockProvider(bad, bad, MockResponse{Content: json.RawMessage(`{}`)})
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	var inv *ErrInvalidResponse
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 2, mock.CallCount())
}

func TestRetry_MaxTokensNotRetried(t *testing.T) {
	mock := NewMockProvider(MockResponse{Err: &ErrMaxTokensExceeded{}}, MockResponse{Content: json.RawMessage(`{}`)})
	_, err := WithRetry(mock, fastRetry()).Generate(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestTimeout_CancelsSlowProvider(t *testing.T) {
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`), Delay: time.Second})
	start := time.Now()
	_, err := WithTimeout(mock, 20*time.Millisecond).Generate(context.Background(), Request{})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTimeout_ZeroIsPassthrough(t *testing.T) {
	mock := NewMockProvider()
	assert.Same(t, Provider(mock), WithTimeout(mock, 0))
}

type recordingLog struct {
	mu    sync.Mutex
	calls []store.LLMCall
	err   error
}

func (r *recordingLog) AppendLLMRequest(_ context.Context, c store.LLMCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	return r.err
}

func TestLogging_RecordsCall(t *testing.T) {
	rec := &recordingLog{}
	mock := NewMockProvider(MockResponse{
		Content: json.RawMessage(`{"a":1}`),
		Usage:   Usage{InputTokens: 10, OutputTokens: 3},
	})
	p := WithLogging(mock, rec, nil)

	ctx := WithPurpose(context.Background(), "free-text-grading")
	_, err := p.Generate(ctx, Request{System: "sys", Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)

	require.Len(t, rec.calls, 1)
	c := rec.calls[0]
	assert.Equal(t, "free-text-grading", c.Purpose)
	assert.Equal(t, "mock", c.Model)
	assert.True(t, c.Success)
	assert.Equal(t, 10, c.InputTokens)
	assert.Contains(t, c.RequestBody, "[system]\nsys")
	assert.Equal(t, `{"a":1}`, c.ResponseBody)
}

func TestLogging_SinkFailureDoesNotFailCall(t *testing.T) {
	rec := &recordingLog{err: errors.New("disk full")}
	mock := NewMockProvider(MockResponse{Content: json.RawMessage(`{}`)})
	_, err := WithLogging(mock, rec, nil).Generate(context.Background(), Request{})
	require.NoError(t, err)
}

func TestLogging_RecordsFailure(t *testing.T) {
	rec := &recordingLog{}
	_, err := WithLogging(NewMockProvider(), rec, nil).Generate(context.Background(), Request{})
	require.Error(t, err)
	require.Len(t, rec.calls, 1)
	assert.False(t, rec.calls[0].Success)
	assert.NotEmpty(t, rec.calls[0].ErrorMessage)
	assert.Equal(t, "unknown", rec.calls[0].Purpose)
}
