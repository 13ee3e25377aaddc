package notifier

import (
	"context"
	"fmt"
	"log/slog"
)

// Message is one push notification
type Message struct {
	Title string
	Body  string // markdown
	Tags  []string
}

// Sink delivers a message to one push channel
type Sink interface {
	Push(ctx context.Context, msg Message) error
}

// MultiSink fans a message out to every configured channel. A failing
// channel does not stop the others; the first error is returned.
type MultiSink struct {
	sinks []Sink
	log   *slog.Logger
}

// NewMultiSink creates a fan-out sink
func NewMultiSink(log *slog.Logger, sinks ...Sink) *MultiSink {
	return &MultiSink{
		sinks: sinks,
		log:   log.With("component", "multisink"),
	}
}

// Len returns the number of channels
func (m *MultiSink) Len() int {
	return len(m.sinks)
}

// Push sends msg to every channel
func (m *MultiSink) Push(ctx context.Context, msg Message) error {
	var firstErr error
	for _, s := range m.sinks {
		if err := s.Push(ctx, msg); err != nil {
			m.log.Warn("push failed", "channel", sinkName(s), "title", msg.Title, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", sinkName(s), err)
			}
		}
	}
	return firstErr
}

func sinkName(s Sink) string {
	switch s.(type) {
	case *ServerChanSink:
		return "serverchan"
	case *TelegramSink:
		return "telegram"
	case *LogSink:
		return "log"
	default:
		return "unknown"
	}
}

// LogSink writes messages to the log. Used when no push channel is configured.
type LogSink struct {
	log *slog.Logger
}

// NewLogSink creates a log-only sink
func NewLogSink(log *slog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (l *LogSink) Push(_ context.Context, msg Message) error {
	l.log.Info("notification (no push channel configured)", "title", msg.Title, "tags", msg.Tags)
	return nil
}
