package tracker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/suspectuso/airdrop-tracker/internal/notifier"
	"github.com/suspectuso/airdrop-tracker/internal/storage"
)

// Armed is an event whose start falls inside the pre-start window
type Armed struct {
	Airdrop  storage.Airdrop
	StartsAt time.Time
}

// FindArmed returns today's unreminded events starting within the arm
// window, in start order. Rows whose date and time do not parse are logged
// and skipped.
func (t *Tracker) FindArmed(now time.Time) ([]Armed, error) {
	now = now.In(t.opts.Location)
	due, err := t.store.FindDueForReminder(now.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("find due for reminder: %w", err)
	}

	var armed []Armed
	for _, a := range due {
		startsAt, err := time.ParseInLocation(dateTimeLayout, a.Date+" "+strings.TrimSpace(a.Time), t.opts.Location)
		if err != nil {
			t.log.Error("parse start time", "token", a.Token, "date", a.Date, "time", a.Time, "error", err)
			continue
		}

		delta := startsAt.Sub(now)
		if delta > 0 && delta <= t.opts.ArmWindow {
			t.log.Info("airdrop armed", "token", a.Token, "name", a.Name, "minutes_left", fmt.Sprintf("%.1f", delta.Minutes()))
			armed = append(armed, Armed{Airdrop: a, StartsAt: startsAt})
		}
	}
	return armed, nil
}

// WaitAndRemind blocks until ReminderOffset before the start, sends the
// reminder burst and marks the event reminded. A cancelled wait returns the
// context error and leaves the event unmarked so a later pass re-arms it.
func (t *Tracker) WaitAndRemind(ctx context.Context, armed Armed) error {
	a := &armed.Airdrop
	wakeAt := armed.StartsAt.Add(-t.opts.ReminderOffset)

	if wait := wakeAt.Sub(t.clock.Now()); wait > 0 {
		t.log.Info("waiting for reminder", "token", a.Token, "name", a.Name, "wait", wait.Round(time.Second))
		if err := t.clock.Sleep(ctx, wait); err != nil {
			return err
		}
	}

	for i := 1; i <= t.opts.ReminderCount; i++ {
		remaining := armed.StartsAt.Sub(t.clock.Now()).Minutes()

		t.notify.Send(ctx,
			notifier.ReminderTitle(a.Name, i, t.opts.ReminderCount),
			notifier.FormatReminder(a, i, t.opts.ReminderCount, remaining),
			notifier.TagReminder,
			notifier.PriorityUrgent,
		)
		t.metrics.ReminderSent()
		t.log.Info("reminder sent", "token", a.Token, "n", i, "of", t.opts.ReminderCount)

		if i < t.opts.ReminderCount {
			if err := t.clock.Sleep(ctx, t.opts.ReminderInterval); err != nil {
				return err
			}
		}
	}

	if err := t.store.MarkNotifiedReminder(a.ID); err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	t.log.Info("reminders complete", "token", a.Token, "name", a.Name)
	return nil
}
