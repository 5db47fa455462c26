// Package logger builds the process-wide zerolog logger.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// New returns a logger writing to w at level. Format "console" gives
// human-readable output, "auto" picks console for terminals, and anything
// else is JSON lines.
func New(w io.Writer, level, format, service string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Nop(), err
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	if useConsole(w, format) {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	return zerolog.New(w).
		Level(lvl).
		With().
		Timestamp().
		Str("service", service).
		Logger(), nil
}

// Must is New on stderr, falling back to info level on a bad level name.
func Must(level, format, service string) zerolog.Logger {
	l, err := New(os.Stderr, level, format, service)
	if err != nil {
		l, _ = New(os.Stderr, "info", format, service)
		l.Warn().Str("level", level).Msg("unknown log level, using info")
	}
	return l
}

func useConsole(w io.Writer, format string) bool {
	switch strings.ToLower(format) {
	case "console":
		return true
	case "auto":
		f, ok := w.(*os.File)
		if !ok {
			return false
		}
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	default:
		return false
	}
}
