package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSink struct {
	mu   sync.Mutex
	msgs []Message
	err  error
}

func (f *fakeSink) Push(_ context.Context, msg Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	return f.err
}

type fakeRecorder struct {
	ok, failed map[string]int
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{ok: map[string]int{}, failed: map[string]int{}}
}

func (r *fakeRecorder) NotificationSent(tag string, ok bool) {
	if ok {
		r.ok[tag]++
	} else {
		r.failed[tag]++
	}
}

func TestPriority_Decorate(t *testing.T) {
	assert.Equal(t, "🔴 新空投发现: A", PriorityHigh.Decorate("新空投发现: A"))
	assert.Equal(t, "🟡 x", PriorityMedium.Decorate("x"))
	assert.Equal(t, "🚨 x", PriorityUrgent.Decorate("x"))
	assert.Equal(t, "x", PriorityNormal.Decorate("x"))
}

func TestMultiSink_FanOutContinuesOnFailure(t *testing.T) {
	bad := &fakeSink{err: errors.New("boom")}
	good := &fakeSink{}

	multi := NewMultiSink(testLogger(), bad, good)
	require.Equal(t, 2, multi.Len())

	err := multi.Push(context.Background(), Message{Title: "t"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
	assert.Len(t, good.msgs, 1, "healthy channel still receives the message")
}

func TestMultiSink_AllSucceed(t *testing.T) {
	a, b := &fakeSink{}, &fakeSink{}
	multi := NewMultiSink(testLogger(), a, b)

	require.NoError(t, multi.Push(context.Background(), Message{Title: "t"}))
	assert.Len(t, a.msgs, 1)
	assert.Len(t, b.msgs, 1)
}

func TestNotifier_Send(t *testing.T) {
	sink := &fakeSink{}
	rec := newFakeRecorder()
	n := New(sink, rec, testLogger())

	ok := n.Send(context.Background(), "新空投发现: Alpha", "body", TagNewAirdrop, PriorityHigh)
	require.True(t, ok)
	require.Len(t, sink.msgs, 1)
	assert.Equal(t, "🔴 新空投发现: Alpha", sink.msgs[0].Title)
	assert.Equal(t, []string{TagNewAirdrop}, sink.msgs[0].Tags)
	assert.Equal(t, 1, rec.ok[TagNewAirdrop])
}

func TestNotifier_SendSwallowsErrors(t *testing.T) {
	sink := &fakeSink{err: errors.New("network down")}
	rec := newFakeRecorder()
	n := New(sink, rec, testLogger())

	ok := n.Send(context.Background(), "t", "b", TagReminder, PriorityUrgent)
	assert.False(t, ok)
	assert.Equal(t, 1, rec.failed[TagReminder])
}

func TestNotifier_NilRecorder(t *testing.T) {
	n := New(&fakeSink{}, nil, testLogger())
	assert.True(t, n.Send(context.Background(), "t", "b", TagStatusChange, PriorityNormal))
}

func TestServerChanSink_Push(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"code":0,"message":""}`))
	}))
	defer srv.Close()

	sink := newServerChanSinkWithEndpoint(srv.URL)
	err := sink.Push(context.Background(), Message{Title: "hello", Body: "**x**", Tags: []string{"a", "b"}})
	require.NoError(t, err)

	assert.Equal(t, "hello", got["title"])
	assert.Equal(t, "**x**", got["desp"])
	assert.Equal(t, "a|b", got["tags"])
}

func TestServerChanSink_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"http status", http.StatusInternalServerError, "oops", "status 500"},
		{"api code", http.StatusOK, `{"code":40001,"message":"bad key"}`, "bad key"},
		{"garbage", http.StatusOK, "not json", "decode"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			err := newServerChanSinkWithEndpoint(srv.URL).Push(context.Background(), Message{Title: "t"})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestNewServerChanSink_Endpoint(t *testing.T) {
	assert.Equal(t, "https://sctapi.ftqq.com/SCT123abc.send", NewServerChanSink("SCT123abc").endpoint)
	assert.Equal(t, "https://42.push.ft07.com/send/sctp42tXYZ.send", NewServerChanSink("sctp42tXYZ").endpoint)
}

func TestTelegramSink_Push(t *testing.T) {
	var calls atomic.Int32
	var text, chatID, parseMode string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		require.True(t, strings.HasSuffix(r.URL.Path, "/sendMessage"), r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		text = r.FormValue("text")
		chatID = r.FormValue("chat_id")
		parseMode = r.FormValue("parse_mode")
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":42,"type":"private"}}}`))
	}))
	defer srv.Close()

	sink, err := NewTelegramSink("123:abc", 42, bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)

	err = sink.Push(context.Background(), Message{Title: "🔴 新空投发现: A", Body: "### A (A)\n\n- **日期**: 2024-01-01", Tags: []string{TagNewAirdrop}})
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "42", chatID)
	assert.Equal(t, "HTML", parseMode)
	assert.Contains(t, text, "<b>🔴 新空投发现: A</b>")
	assert.Contains(t, text, "#新空投")
}

func TestTelegramText(t *testing.T) {
	msg := Message{
		Title: "状态更新: <A>",
		Body:  "### A & B\n\n**变化内容:**\n\n- x\n\n---\n\n- **数量**: 100",
		Tags:  []string{TagStatusChange},
	}

	got := TelegramText(msg)
	assert.Equal(t, strings.Join([]string{
		"<b>状态更新: &lt;A&gt;</b>",
		"",
		"<b>A &amp; B</b>",
		"",
		"<b>变化内容:</b>",
		"",
		"- x",
		"",
		"",
		"",
		"- <b>数量</b>: 100",
		"",
		"#状态变化",
	}, "\n"), got)
}
