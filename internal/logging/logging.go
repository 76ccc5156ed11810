// Package logging builds the slog.Logger blz's components log through.
// The teacher has no structured logger (its CLI writes directly to stderr
// with fmt.Fprintf — see cmd/lci/main.go); blz's components pass errors and
// warnings across goroutine and package boundaries where a plain stderr
// write can't carry structured fields, so this wraps slog with the
// teacher's terse, one-line-per-event style instead.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level names accepted by ParseLevel, matching slog's own vocabulary.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Options configures New.
type Options struct {
	Level  string    // one of the Level* constants; defaults to LevelInfo
	Output io.Writer // defaults to os.Stderr
	JSON   bool      // text handler by default, matching the teacher's plain stderr lines
}

// New builds a leveled slog.Logger. Text output is slog's stock text
// format, one line per event ("time=... level=... msg=... key=value ..."),
// mirroring the teacher's single fmt.Fprintf line per diagnostic.
func New(opts Options) *slog.Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	level, err := ParseLevel(opts.Level)
	if err != nil {
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(opts.Output, handlerOpts)
	} else {
		handler = slog.NewTextHandler(opts.Output, handlerOpts)
	}
	return slog.New(handler)
}

// ParseLevel maps a Level* string to a slog.Level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LevelInfo:
		return slog.LevelInfo, nil
	case LevelDebug:
		return slog.LevelDebug, nil
	case LevelWarn:
		return slog.LevelWarn, nil
	case LevelError:
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, errUnknownLevel(name)
	}
}

type errUnknownLevel string

func (e errUnknownLevel) Error() string { return "logging: unknown level " + string(e) }

// Discard returns a logger that drops every record, for tests that need an
// Orchestrator/Storage/etc. but don't want log noise.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// WithOp returns a child logger with an "op" attribute preset, the
// convention every blz package uses for its "orchestrator.op"-style
// component tag (see internal/orchestrator's log call sites).
func WithOp(logger *slog.Logger, component, op string) *slog.Logger {
	return logger.With(component+".op", op)
}
