// Package log builds the process logger.
//
// Without a log file, records below error go to stdout and errors go to
// stderr. With a log file, the console gets everything on stderr and the file
// gets a copy.
package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LevelTrace sits below Debug and enables per-report dumps.
const LevelTrace slog.Level = -8

// ParseLevel maps a --log.level value to a slog level. Unknown values fall
// back to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func levelName(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if l, ok := a.Value.Any().(slog.Level); ok && l <= LevelTrace {
			a.Value = slog.StringValue("TRACE")
		}
	}
	return a
}

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if h.Enabled(ctx, r.Level) {
			errs = append(errs, h.Handle(ctx, r.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}

// levelRange passes records with min <= level < max to h.
type levelRange struct {
	min, max slog.Level
	h        slog.Handler
}

func (r levelRange) in(l slog.Level) bool { return l >= r.min && l < r.max }

func (r levelRange) Enabled(ctx context.Context, l slog.Level) bool {
	return r.in(l) && r.h.Enabled(ctx, l)
}

func (r levelRange) Handle(ctx context.Context, rec slog.Record) error {
	if !r.in(rec.Level) {
		return nil
	}
	return r.h.Handle(ctx, rec)
}

func (r levelRange) WithAttrs(attrs []slog.Attr) slog.Handler {
	return levelRange{min: r.min, max: r.max, h: r.h.WithAttrs(attrs)}
}

func (r levelRange) WithGroup(name string) slog.Handler {
	return levelRange{min: r.min, max: r.max, h: r.h.WithGroup(name)}
}

const maxLevel slog.Level = 1 << 10

// SetupLogger builds the logger for level and optional logFile. The returned
// closers must be closed on exit.
func SetupLogger(level, logFile string) (*slog.Logger, []io.Closer, error) {
	return newLogger(ParseLevel(level), logFile, os.Stdout, os.Stderr)
}

func newLogger(level slog.Level, logFile string, stdout, stderr io.Writer) (*slog.Logger, []io.Closer, error) {
	opts := func(l slog.Level) *slog.HandlerOptions {
		return &slog.HandlerOptions{Level: l, ReplaceAttr: levelName}
	}

	if logFile == "" {
		return slog.New(fanout{
			levelRange{min: level, max: slog.LevelError, h: slog.NewTextHandler(stdout, opts(level))},
			levelRange{min: max(level, slog.LevelError), max: maxLevel, h: slog.NewTextHandler(stderr, opts(slog.LevelError))},
		}), nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return slog.New(fanout{
		slog.NewTextHandler(stderr, opts(level)),
		slog.NewTextHandler(f, opts(level)),
	}), []io.Closer{f}, nil
}
