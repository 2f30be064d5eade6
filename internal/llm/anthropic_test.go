package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

func anthropicTestServer(t *testing.T, status int, body map[string]any) *AnthropicProvider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	client := anthropic.NewClient(option.WithAPIKey("test-key"), option.WithBaseURL(srv.URL), option.WithMaxRetries(0))
	return &AnthropicProvider{client: &client, model: "claude-haiku-4-5-20251001"}
}

func anthropicMessage(text, stop string) map[string]any {
	return map[string]any{
		"id":          "msg_1",
		"type":        "message",
		"role":        "assistant",
		"content":     []map[string]any{{"type": "text", "text": text}},
		"model":       "claude-haiku-4-5-20251001",
		"stop_reason": stop,
		"usage":       map[string]any{"input_tokens": 120, "output_tokens": 40},
	}
}

func TestAnthropicProvider_Grades(t *testing.T) {
	p := anthropicTestServer(t, http.StatusOK, anthropicMessage(`{"verdict":"ok"}`, "end_turn"))

	resp, err := p.Generate(context.Background(), Request{
		System:    "You grade answers.",
		Messages:  []Message{{Role: RoleUser, Content: "Grade this."}},
		MaxTokens: 256,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Usage.TotalTokens != 160 {
		t.Fatalf("expected 160 total tokens, got %d", resp.Usage.TotalTokens)
	}
	if string(resp.Content) != `{"verdict":"ok"}` {
		t.Fatalf("unexpected content %s", resp.Content)
	}
}

func TestAnthropicProvider_MaxTokens(t *testing.T) {
	p := anthropicTestServer(t, http.StatusOK, anthropicMessage(`{"verdict":`, "max_tokens"))
	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}, MaxTokens: 4})
	var mt *ErrMaxTokensExceeded
	if !errors.As(err, &mt) {
		t.Fatalf("expected ErrMaxTokensExceeded, got %T (%v)", err, err)
	}
}

func TestAnthropicProvider_ErrorMapping(t *testing.T) {
	errBody := map[string]any{"type": "error", "error": map[string]any{"type": "x", "message": "nope"}}

	p := anthropicTestServer(t, http.StatusTooManyRequests, errBody)
	_, err := p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}, MaxTokens: 10})
	var rl *ErrRateLimit
	if !errors.As(err, &rl) {
		t.Fatalf("429: expected ErrRateLimit, got %T (%v)", err, err)
	}

	p = anthropicTestServer(t, http.StatusBadGateway, errBody)
	_, err = p.Generate(context.Background(), Request{Messages: []Message{{Role: RoleUser, Content: "x"}}, MaxTokens: 10})
	var un *ErrProviderUnavailable
	if !errors.As(err, &un) {
		t.Fatalf("502: expected ErrProviderUnavailable, got %T (%v)", err, err)
	}
}

func TestAnthropicAliases(t *testing.T) {
	if got := resolveModel("haiku", anthropicAliases); got != "claude-haiku-4-5-20251001" {
		t.Errorf("resolveModel(haiku) = %q", got)
	}
	if got := resolveModel("claude-opus-4-1", anthropicAliases); got != "claude-opus-4-1" {
		t.Errorf("unknown names should pass through, got %q", got)
	}
}

func TestNewAnthropicProvider_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicProvider(AnthropicConfig{}); err == nil {
		t.Fatal("expected error for missing key")
	}
}
