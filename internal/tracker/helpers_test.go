package tracker

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/suspectuso/airdrop-tracker/internal/alphaapi"
	"github.com/suspectuso/airdrop-tracker/internal/notifier"
	"github.com/suspectuso/airdrop-tracker/internal/storage"
)

var testLoc = time.FixedZone("CST", 8*3600)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func at(date, clock string) time.Time {
	t, err := time.ParseInLocation("2006-01-02 15:04:05", date+" "+clock, testLoc)
	if err != nil {
		panic(err)
	}
	return t
}

func floatPtr(v float64) *float64 { return &v }

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

type fakeFeed struct {
	items  []alphaapi.Airdrop
	prices string
	err    error
}

func (f *fakeFeed) Fetch(context.Context) ([]alphaapi.Airdrop, json.RawMessage, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	prices := f.prices
	if prices == "" {
		prices = "[]"
	}
	return f.items, json.RawMessage(prices), nil
}

type sent struct {
	Title    string
	Body     string
	Tag      string
	Priority notifier.Priority
	At       time.Time
}

type fakeSender struct {
	clock  Clock
	msgs   []sent
	onSend func()
}

func (s *fakeSender) Send(_ context.Context, title, body, tag string, priority notifier.Priority) bool {
	msg := sent{Title: title, Body: body, Tag: tag, Priority: priority}
	if s.clock != nil {
		msg.At = s.clock.Now()
	}
	s.msgs = append(s.msgs, msg)
	if s.onSend != nil {
		s.onSend()
	}
	return true
}

func (s *fakeSender) byTag(tag string) []sent {
	var out []sent
	for _, m := range s.msgs {
		if m.Tag == tag {
			out = append(out, m)
		}
	}
	return out
}

func newTestStore(t *testing.T) *storage.Storage {
	t.Helper()
	store, err := storage.New(filepath.Join(t.TempDir(), "airdrops.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testOptions() Options {
	return Options{
		Thresholds:       Thresholds{High: 100, Medium: 50},
		Location:         testLoc,
		ArmWindow:        10 * time.Minute,
		ReminderOffset:   3 * time.Minute,
		ReminderCount:    3,
		ReminderInterval: 30 * time.Second,
	}
}

type harness struct {
	tracker *Tracker
	store   *storage.Storage
	feed    *fakeFeed
	sender  *fakeSender
	clock   *fakeClock
}

func newHarness(t *testing.T, now time.Time) *harness {
	t.Helper()
	clock := &fakeClock{now: now}
	h := &harness{
		store:  newTestStore(t),
		feed:   &fakeFeed{},
		sender: &fakeSender{clock: clock},
		clock:  clock,
	}
	h.tracker = New(h.feed, h.store, h.sender, nil, clock, testOptions(), testLogger())
	return h
}
