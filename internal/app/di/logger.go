package di

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger returns a JSON logger when format is "json", otherwise a text logger.
// Unknown levels fall back to info.
func NewLogger(w io.Writer, level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// InstallDefaultLogger sets the process-wide slog default.
func InstallDefaultLogger(w io.Writer, level, format string) {
	slog.SetDefault(NewLogger(w, level, format))
}
