// Package logging builds the process logger: slog text output to stdout and,
// when a log file is configured, to a size- and age-rotated file.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options controls where logs go and how long rotated files are kept.
type Options struct {
	Level         string
	File          string
	RetentionDays int
	MaxSizeMB     int
}

// New returns a logger plus a closer for the rotated file (no-op without one).
func New(opts Options) (*slog.Logger, io.Closer) {
	var w io.Writer = os.Stdout
	var closer io.Closer = nopCloser{}

	if opts.File != "" {
		maxSize := opts.MaxSizeMB
		if maxSize <= 0 {
			maxSize = 50
		}
		rotated := &lumberjack.Logger{
			Filename:  opts.File,
			MaxSize:   maxSize,
			MaxAge:    opts.RetentionDays,
			LocalTime: true,
		}
		w = io.MultiWriter(os.Stdout, rotated)
		closer = rotated
	}

	log := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLevel(opts.Level),
	}))
	return log, closer
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
