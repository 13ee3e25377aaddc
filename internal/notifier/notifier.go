package notifier

import (
	"context"
	"log/slog"
)

// Recorder observes delivery outcomes. Implemented by the metrics package.
type Recorder interface {
	NotificationSent(tag string, ok bool)
}

// Notifier decorates titles with the tier marker and delivers messages
// best-effort: sink failures are logged and swallowed.
type Notifier struct {
	sink     Sink
	recorder Recorder
	log      *slog.Logger
}

// New creates a new Notifier. recorder may be nil.
func New(sink Sink, recorder Recorder, log *slog.Logger) *Notifier {
	return &Notifier{
		sink:     sink,
		recorder: recorder,
		log:      log.With("component", "notifier"),
	}
}

// Send pushes one notification and reports whether the sink accepted it.
// The error is never returned to the caller.
func (n *Notifier) Send(ctx context.Context, title, body, tag string, priority Priority) bool {
	msg := Message{
		Title: priority.Decorate(title),
		Body:  body,
		Tags:  []string{tag},
	}

	err := n.sink.Push(ctx, msg)
	if n.recorder != nil {
		n.recorder.NotificationSent(tag, err == nil)
	}
	if err != nil {
		n.log.Error("send notification", "title", msg.Title, "tag", tag, "error", err)
		return false
	}

	n.log.Info("notification sent", "title", msg.Title, "tag", tag, "priority", priority)
	return true
}
