package telemetry

import (
	"io"
	"log/slog"
	"os"
)

// InitSlog replaces the default slog logger with a text handler on stderr.
func InitSlog(verbose bool) {
	InitSlogTo(os.Stderr, verbose)
}

func InitSlogTo(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}
