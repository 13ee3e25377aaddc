// Package tracker runs one monitoring pass: it reconciles the feed against
// the event store, notifies on new events and allow-listed changes, and
// drives the countdown reminder burst for events about to start.
package tracker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/suspectuso/airdrop-tracker/internal/alphaapi"
	"github.com/suspectuso/airdrop-tracker/internal/metrics"
	"github.com/suspectuso/airdrop-tracker/internal/notifier"
	"github.com/suspectuso/airdrop-tracker/internal/pricing"
	"github.com/suspectuso/airdrop-tracker/internal/storage"
)

// Feed fetches the raw airdrop list and price payload
type Feed interface {
	Fetch(ctx context.Context) ([]alphaapi.Airdrop, json.RawMessage, error)
}

// Store is the subset of the event store a pass needs
type Store interface {
	GetAirdrop(key storage.Key) (*storage.Airdrop, error)
	InsertAirdrop(a *storage.Airdrop) (int64, error)
	UpdateAirdrop(id int64, a *storage.Airdrop) error
	MarkNotifiedNew(id int64) error
	MarkNotifiedReminder(id int64) error
	FindDueForReminder(date string) ([]storage.Airdrop, error)
	AppendStatusChange(airdropID int64, changeType, oldValue, newValue string) (int64, error)
}

// Sender delivers best-effort notifications
type Sender interface {
	Send(ctx context.Context, title, body, tag string, priority notifier.Priority) bool
}

// Options carries the policy knobs of a pass
type Options struct {
	Thresholds       Thresholds
	Location         *time.Location
	ArmWindow        time.Duration
	ReminderOffset   time.Duration
	ReminderCount    int
	ReminderInterval time.Duration
}

// PassResult summarises one pass
type PassResult struct {
	Fetched  int
	Today    int
	Active   int
	Expired  int
	New      int
	Changed  int
	Armed    int
	Reminded int
}

// Tracker runs monitoring passes
type Tracker struct {
	feed    Feed
	store   Store
	notify  Sender
	metrics *metrics.Metrics
	clock   Clock
	opts    Options
	log     *slog.Logger
}

// New creates a Tracker. m may be nil; clock defaults to the wall clock.
func New(feed Feed, store Store, notify Sender, m *metrics.Metrics, clock Clock, opts Options, log *slog.Logger) *Tracker {
	if clock == nil {
		clock = SystemClock{}
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Tracker{
		feed:    feed,
		store:   store,
		notify:  notify,
		metrics: m,
		clock:   clock,
		opts:    opts,
		log:     log.With("component", "tracker"),
	}
}

// RunPass fetches, reconciles and reminds. Any error other than
// cancellation is also reported through a high-priority system error
// notification before being returned.
func (t *Tracker) RunPass(ctx context.Context) (PassResult, error) {
	started := t.clock.Now()
	defer func() {
		t.metrics.ObservePass(t.clock.Now().Sub(started))
	}()

	result, err := t.runPass(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		t.log.Error("pass failed", "error", err)
		t.notify.Send(ctx, notifier.SystemErrorTitle, notifier.FormatSystemError(err), notifier.TagSystemError, notifier.PriorityHigh)
	}
	return result, err
}

func (t *Tracker) runPass(ctx context.Context) (PassResult, error) {
	var result PassResult

	items, rawPrices, err := t.feed.Fetch(ctx)
	if err != nil {
		return result, fmt.Errorf("fetch feeds: %w", err)
	}
	result.Fetched = len(items)

	lookup, shape, err := pricing.Normalize(rawPrices)
	if err != nil {
		return result, err
	}
	t.log.Info("prices loaded", "shape", shape, "tokens", len(lookup))

	now := t.clock.Now().In(t.opts.Location)
	today := now.Format(dateLayout)

	for _, item := range items {
		if item.Date != today {
			continue
		}
		result.Today++

		if IsExpired(item.Date, item.Time.String(), now, t.opts.Location) {
			result.Expired++
			t.metrics.EventExpired()
			t.log.Debug("skipping expired airdrop", "token", item.Token, "name", item.Name, "time", item.Time)
			continue
		}
		result.Active++
		t.metrics.EventSeen()

		isNew, changes, err := t.processEvent(ctx, toRecord(item, lookup))
		if err != nil {
			return result, err
		}
		if isNew {
			result.New++
		}
		if len(changes) > 0 {
			result.Changed++
		}
	}

	armed, err := t.FindArmed(t.clock.Now())
	if err != nil {
		return result, err
	}
	result.Armed = len(armed)

	t.log.Info("pass reconciled",
		"today", result.Today,
		"active", result.Active,
		"expired", result.Expired,
		"new", result.New,
		"changed", result.Changed,
		"armed", result.Armed,
	)

	for _, a := range armed {
		if err := t.WaitAndRemind(ctx, a); err != nil {
			return result, err
		}
		result.Reminded++
	}

	return result, nil
}

// processEvent handles one active observation: insert and announce a new
// identity, or diff, audit, overwrite and report a known one.
func (t *Tracker) processEvent(ctx context.Context, rec *storage.Airdrop) (bool, []Change, error) {
	stored, err := t.store.GetAirdrop(rec.Key())
	if errors.Is(err, storage.ErrNotFound) {
		return true, nil, t.handleNew(ctx, rec)
	}
	if err != nil {
		return false, nil, err
	}

	changes := DetectChanges(stored, rec)
	for _, c := range changes {
		if _, err := t.store.AppendStatusChange(stored.ID, c.Type, c.Old, c.New); err != nil {
			return false, nil, fmt.Errorf("record change: %w", err)
		}
		t.metrics.ChangeDetected(c.Type)
	}

	if err := t.store.UpdateAirdrop(stored.ID, rec); err != nil {
		return false, nil, err
	}

	if len(changes) > 0 {
		rec.ID = stored.ID
		t.notify.Send(ctx,
			notifier.StatusUpdateTitle(rec.Name),
			notifier.FormatStatusUpdate(rec, Messages(changes)),
			notifier.TagStatusChange,
			Classify(rec.TotalValue, t.opts.Thresholds),
		)
		t.log.Info("status changed", "token", rec.Token, "name", rec.Name, "changes", len(changes))
	}
	return false, changes, nil
}

func (t *Tracker) handleNew(ctx context.Context, rec *storage.Airdrop) error {
	id, err := t.store.InsertAirdrop(rec)
	if err != nil {
		// ErrConflict here means another writer raced us
		return fmt.Errorf("insert %s/%s/%d: %w", rec.Token, rec.Date, rec.Phase, err)
	}
	rec.ID = id
	t.metrics.EventNew()

	priority := Classify(rec.TotalValue, t.opts.Thresholds)
	t.notify.Send(ctx, notifier.NewAirdropTitle(rec.Name), notifier.FormatAirdrop(rec, true), notifier.TagNewAirdrop, priority)

	if err := t.store.MarkNotifiedNew(id); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	t.log.Info("new airdrop", "token", rec.Token, "name", rec.Name, "priority", priority)
	return nil
}

// toRecord converts a feed item into a store row with freshly resolved
// price and value
func toRecord(item alphaapi.Airdrop, lookup pricing.Lookup) *storage.Airdrop {
	price, total := pricing.Resolve(item.Amount.String(), item.Token, lookup)
	return &storage.Airdrop{
		Token:           item.Token,
		Name:            item.Name,
		Date:            item.Date,
		Time:            item.Time.String(),
		Amount:          item.Amount.String(),
		Points:          item.Points.String(),
		Phase:           int(item.Phase),
		Type:            item.Type,
		Status:          item.Status,
		ContractAddress: strings.TrimSpace(item.ContractAddress),
		ChainID:         item.ChainID.String(),
		Price:           price,
		TotalValue:      total,
	}
}
