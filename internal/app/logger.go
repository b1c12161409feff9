package app

import (
	"log/slog"
	"os"
)

// NewLogger returns the application logger. LOG_FORMAT selects the handler:
// "json" gives structured output, anything else keeps the "pretty" text
// default. Production runs at info level, everything else at debug.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true, Level: slog.LevelDebug}
	if cfg == nil {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	if cfg.IsProduction() {
		opts.Level = slog.LevelInfo
	}
	if cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
