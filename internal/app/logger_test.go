package app

import (
	"context"
	"log/slog"
	"testing"
)

func TestNewLoggerFormat(t *testing.T) {
	jsonLogger := NewLogger(&Config{AppEnv: "development", LogFormat: "json"})
	if _, ok := jsonLogger.Handler().(*slog.JSONHandler); !ok {
		t.Fatalf("expected JSON handler, got %T", jsonLogger.Handler())
	}

	prettyLogger := NewLogger(&Config{AppEnv: "development", LogFormat: "pretty"})
	if _, ok := prettyLogger.Handler().(*slog.TextHandler); !ok {
		t.Fatalf("expected text handler, got %T", prettyLogger.Handler())
	}
}

func TestNewLoggerLevels(t *testing.T) {
	ctx := context.Background()

	dev := NewLogger(&Config{AppEnv: "development", LogFormat: "pretty"})
	if !dev.Enabled(ctx, slog.LevelDebug) {
		t.Error("development logger should emit debug records")
	}

	prod := NewLogger(&Config{AppEnv: "production", LogFormat: "json"})
	if prod.Enabled(ctx, slog.LevelDebug) {
		t.Error("production logger should suppress debug records")
	}
	if !prod.Enabled(ctx, slog.LevelInfo) {
		t.Error("production logger should emit info records")
	}
}
