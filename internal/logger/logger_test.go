package logger

import (
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedaction(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core))

	l.Info("connecting", "database_dsn", "postgres://u:p@h/db", "driver", "postgres", "api_key", "sk-123")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["database_dsn"] != "[REDACTED]" {
		t.Errorf("dsn not redacted: %v", fields["database_dsn"])
	}
	if fields["api_key"] != "[REDACTED]" {
		t.Errorf("api_key not redacted: %v", fields["api_key"])
	}
	if fields["driver"] != "postgres" {
		t.Errorf("driver = %v, want postgres", fields["driver"])
	}
}

func TestWithKeepsFields(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := FromZap(zap.New(core)).With("component", "snapshot")
	l.Warn("slow")
	if got := logs.All()[0].ContextMap()["component"]; got != "snapshot" {
		t.Errorf("component = %v, want snapshot", got)
	}
}

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "quiet", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("New(%q): %v", mode, err)
		}
		l.Sync()
	}
}
