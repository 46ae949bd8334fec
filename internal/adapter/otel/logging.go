package otel

import (
	"io"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// NewLogger builds the process logger. Records always go to w as text; with
// the OTLP exporter they are also handed to the global OpenTelemetry logger
// provider, which Setup installs.
func NewLogger(w io.Writer, level slog.Level, cfg Config) *slog.Logger {
	text := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	if cfg.Exporter != ExporterOTLP {
		return slog.New(text)
	}
	return slog.New(slogmulti.Fanout(text, otelslog.NewHandler(cfg.ServiceName)))
}

// ParseLevel maps a level name to a slog.Level. Unknown names yield info.
func ParseLevel(name string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelInfo
	}
	return level
}
