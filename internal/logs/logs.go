package logs

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// ConsoleLogger returns a tinted slog logger writing to stderr and installs it
// as the process default. Color is disabled when stderr is not a terminal.
func ConsoleLogger() *slog.Logger {
	w := os.Stderr

	opts := &tint.Options{
		Level:      level(),
		TimeFormat: time.Kitchen,
		NoColor:    !isatty.IsTerminal(w.Fd()),
	}

	logger := slog.New(tint.NewHandler(w, opts))
	slog.SetDefault(logger)
	return logger
}

func level() slog.Level {
	if os.Getenv("PIMCTL_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}
