package llm

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

var verdictSchema = &Schema{
	Name: "mock-test-verdict",
	Definition: map[string]any{
		"type":                 "object",
		"properties":           map[string]any{"isCorrect": map[string]any{"type": "boolean"}},
		"required":             []string{"isCorrect"},
		"additionalProperties": false,
	},
}

func TestMockProvider_FIFO(t *testing.T) {
	m := NewMockProvider(
		MockResponse{Content: json.RawMessage(`{"isCorrect":true}`)},
		MockResponse{Content: json.RawMessage(`{"isCorrect":false}`)},
	)
	for _, want := range []string{`{"isCorrect":true}`, `{"isCorrect":false}`} {
		resp, err := m.Generate(context.Background(), Request{Schema: verdictSchema})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if string(resp.Content) != want {
			t.Fatalf("content = %s, want %s", resp.Content, want)
		}
	}
	if _, err := m.Generate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error from empty queue")
	}
	if m.CallCount() != 3 {
		t.Fatalf("CallCount = %d, want 3", m.CallCount())
	}
}

func TestMockProvider_ValidatesSchema(t *testing.T) {
	m := NewMockProvider(MockResponse{Content: json.RawMessage(`{"isCorrect":"maybe"}`)})
	_, err := m.Generate(context.Background(), Request{Schema: verdictSchema})
	var inv *ErrInvalidResponse
	if !errors.As(err, &inv) {
		t.Fatalf("expected ErrInvalidResponse, got %T (%v)", err, err)
	}
}

func TestValidateResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"isCorrect":true}`, false},
		{"missing field", `{}`, true},
		{"extra field", `{"isCorrect":true,"x":1}`, true},
		{"not json", `isCorrect: yes`, true},
	}
	for _, tt := range tests {
		err := validateResponse(verdictSchema, json.RawMessage(tt.raw))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: err = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
	if err := validateResponse(nil, json.RawMessage(`garbage`)); err != nil {
		t.Errorf("nil schema should pass, got %v", err)
	}
}
