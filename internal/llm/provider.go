// Package llm talks to hosted language models with structured JSON output.
// The review engine uses it to grade free-text answers.
package llm

import (
	"context"
	"encoding/json"
)

// Provider generates a structured response for a prompt.
type Provider interface {
	// Generate sends the request and returns the model output. When
	// req.Schema is set, Content has already been validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID is the model the provider is configured with.
	ModelID() string
}

// Request is a single-turn (or short multi-turn) prompt.
type Request struct {
	System      string
	Messages    []Message
	Schema      *Schema
	MaxTokens   int
	Temperature float64
}

type Message struct {
	Role    Role
	Content string
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured output. Name doubles as
// the cache key for the compiled validator, so it must be unique.
type Schema struct {
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model output. StopReason is normalised to "end" or
// "max_tokens".
type Response struct {
	Content    json.RawMessage
	Usage      Usage
	Model      string
	StopReason string
}

type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type contextKey struct{}

// WithPurpose labels calls made with ctx in the request log.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, contextKey{}, purpose)
}

// PurposeFrom returns the label set by WithPurpose, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(contextKey{}).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// resolveModel expands a short alias; unknown names pass through.
func resolveModel(name string, aliases map[string]string) string {
	if id, ok := aliases[name]; ok {
		return id
	}
	return name
}
