package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/logger"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/store"
)

// RetryProvider retries transient failures with jittered exponential backoff.
type RetryProvider struct {
	inner  Provider
	config RetryConfig
}

func WithRetry(p Provider, cfg RetryConfig) Provider {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{inner: p, config: cfg}
}

func (r *RetryProvider) ModelID() string { return r.inner.ModelID() }

func (r *RetryProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	var lastErr error
	retriedInvalid := false
	for attempt := 0; attempt < r.config.MaxAttempts; attempt++ {
		resp, err := r.inner.Generate(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable(err, &retriedInvalid) || attempt == r.config.MaxAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.backoff(attempt, err)):
		}
	}
	return nil, lastErr
}

// retryable reports whether err is worth another call. A schema
// violation is retried once.
func retryable(err error, retriedInvalid *bool) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var maxTok *ErrMaxTokensExceeded
	if errors.As(err, &maxTok) {
		return false
	}
	var inv *ErrInvalidResponse
	if errors.As(err, &inv) {
		if *retriedInvalid {
			return false
		}
		*retriedInvalid = true
	}
	return true
}

func (r *RetryProvider) backoff(attempt int, err error) time.Duration {
	var rl *ErrRateLimit
	if errors.As(err, &rl) && rl.RetryAfter > 0 {
		return rl.RetryAfter
	}
	wait := float64(r.config.InitialWait) * math.Pow(r.config.Multiplier, float64(attempt))
	wait = math.Min(wait, float64(r.config.MaxWait))
	wait += wait * 0.2 * (2*rand.Float64() - 1)
	return time.Duration(math.Max(wait, 0))
}

// TimeoutProvider bounds every call, retries included, by a deadline.
type TimeoutProvider struct {
	inner   Provider
	timeout time.Duration
}

func WithTimeout(p Provider, d time.Duration) Provider {
	if d <= 0 {
		return p
	}
	return &TimeoutProvider{inner: p, timeout: d}
}

func (t *TimeoutProvider) ModelID() string { return t.inner.ModelID() }

func (t *TimeoutProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.inner.Generate(ctx, req)
}

// CallLog persists one record per model call.
type CallLog interface {
	AppendLLMRequest(ctx context.Context, call store.LLMCall) error
}

// LoggingProvider records every call in the CallLog and the process log.
type LoggingProvider struct {
	inner Provider
	calls CallLog
	log   *logger.Logger
}

func WithLogging(p Provider, calls CallLog, log *logger.Logger) Provider {
	if log == nil {
		log = logger.NewNop()
	}
	return &LoggingProvider{inner: p, calls: calls, log: log.With("component", "llm")}
}

func (l *LoggingProvider) ModelID() string { return l.inner.ModelID() }

func (l *LoggingProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := l.inner.Generate(ctx, req)

	call := store.LLMCall{
		Purpose:     PurposeFrom(ctx),
		Model:       l.inner.ModelID(),
		LatencyMs:   time.Since(start).Milliseconds(),
		Success:     err == nil,
		RequestBody: renderRequest(req),
	}
	if resp != nil {
		call.Model = resp.Model
		call.InputTokens = resp.Usage.InputTokens
		call.OutputTokens = resp.Usage.OutputTokens
		call.ResponseBody = string(resp.Content)
	}
	if err != nil {
		call.ErrorMessage = err.Error()
		l.log.Warn("model call failed", "purpose", call.Purpose, "model", call.Model, "latency_ms", call.LatencyMs, "error", err)
	} else {
		l.log.Debug("model call", "purpose", call.Purpose, "model", call.Model,
			"latency_ms", call.LatencyMs, "input_tokens", call.InputTokens, "output_tokens", call.OutputTokens)
	}

	if l.calls != nil {
		// The call log must not fail the request.
		if logErr := l.calls.AppendLLMRequest(context.WithoutCancel(ctx), call); logErr != nil {
			l.log.Warn("record model call", "error", logErr)
		}
	}
	return resp, err
}

func renderRequest(req Request) string {
	var b strings.Builder
	if req.System != "" {
		fmt.Fprintf(&b, "[system]\n%s\n\n", req.System)
	}
	for _, m := range req.Messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
	}
	if req.Schema != nil {
		if def, err := json.Marshal(req.Schema.Definition); err == nil {
			fmt.Fprintf(&b, "[schema: %s]\n%s\n", req.Schema.Name, def)
		}
	}
	return b.String()
}
