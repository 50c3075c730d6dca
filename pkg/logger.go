package pkg

import (
	"io"
	"log/slog"
	"strings"
)

// NewLogger создаёт JSON логгер сервиса. Нераспознанный уровень означает INFO.
func NewLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(strings.TrimSpace(level)))); err != nil {
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})

	return slog.New(handler).With("service", "reminders")
}
