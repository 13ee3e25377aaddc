package telegram

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suspectuso/airdrop-tracker/internal/storage"
)

const testChatID int64 = 42

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type apiCall struct {
	Method string
	ChatID string
	Text   string
}

// fakeAPI records Bot API calls and answers with minimal success payloads
type fakeAPI struct {
	mu    sync.Mutex
	calls []apiCall
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		method := path.Base(r.URL.Path)

		f.mu.Lock()
		f.calls = append(f.calls, apiCall{Method: method, ChatID: r.FormValue("chat_id"), Text: r.FormValue("text")})
		f.mu.Unlock()

		if method == "answerCallbackQuery" {
			_, _ = w.Write([]byte(`{"ok":true,"result":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`))
	})
}

func (f *fakeAPI) byMethod(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func newTestBot(t *testing.T) (*Bot, *fakeAPI, *storage.Storage) {
	t.Helper()

	store, err := storage.New(filepath.Join(t.TempDir(), "airdrops.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	api := &fakeAPI{}
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)

	b, err := New("123:abc", testChatID, store, time.UTC, testLogger(), bot.WithServerURL(srv.URL), bot.WithSkipGetMe())
	require.NoError(t, err)
	b.now = func() time.Time { return time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) }

	return b, api, store
}

func callback(chatID int64, data string) *models.Update {
	return &models.Update{
		CallbackQuery: &models.CallbackQuery{
			ID:   "cb1",
			Data: data,
			Message: models.MaybeInaccessibleMessage{
				Message: &models.Message{ID: 7, Chat: models.Chat{ID: chatID}},
			},
		},
	}
}

func textMessage(chatID int64, text string) *models.Update {
	return &models.Update{
		Message: &models.Message{ID: 8, Text: text, Chat: models.Chat{ID: chatID}},
	}
}

func TestCallback_Today(t *testing.T) {
	b, api, store := newTestBot(t)
	value := 120.0
	_, err := store.InsertAirdrop(&storage.Airdrop{Token: "TKN", Name: "Token", Date: "2024-01-01", Time: "10:00", Phase: 1, TotalValue: &value})
	require.NoError(t, err)

	b.callbackHandler(context.Background(), b.bot, callback(testChatID, "today"))

	edits := api.byMethod("editMessageText")
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].Text, "2024-01-01 的空投")
	assert.Contains(t, edits[0].Text, "<b>Token</b> (TKN) 10:00 · $120.00")
	assert.Len(t, api.byMethod("answerCallbackQuery"), 1)
}

func TestCallback_EventDetail(t *testing.T) {
	b, api, store := newTestBot(t)
	id, err := store.InsertAirdrop(&storage.Airdrop{Token: "TKN", Name: "Token", Date: "2024-01-01", Phase: 1})
	require.NoError(t, err)
	_, err = store.AppendStatusChange(id, "time_updated", "", "10:00")
	require.NoError(t, err)

	b.callbackHandler(context.Background(), b.bot, callback(testChatID, "ev:"+itoa(id)))

	edits := api.byMethod("editMessageText")
	require.Len(t, edits, 1)
	assert.Contains(t, edits[0].Text, "<b>Token (TKN)</b>")
	assert.Contains(t, edits[0].Text, "time_updated: - → 10:00")
}

func TestDateConversation(t *testing.T) {
	b, api, store := newTestBot(t)
	_, err := store.InsertAirdrop(&storage.Airdrop{Token: "OLD", Name: "Older", Date: "2023-12-30", Phase: 1})
	require.NoError(t, err)

	b.callbackHandler(context.Background(), b.bot, callback(testChatID, "date"))
	require.NotNil(t, b.states.Get(testChatID))
	assert.Equal(t, StateWaitDate, b.states.Get(testChatID).State)

	b.defaultHandler(context.Background(), b.bot, textMessage(testChatID, "not a date"))
	sends := api.byMethod("sendMessage")
	require.Len(t, sends, 1)
	assert.Contains(t, sends[0].Text, "YYYY-MM-DD")
	require.NotNil(t, b.states.Get(testChatID), "state kept until a valid date arrives")

	b.defaultHandler(context.Background(), b.bot, textMessage(testChatID, "2023-12-30"))
	sends = api.byMethod("sendMessage")
	require.Len(t, sends, 2)
	assert.Contains(t, sends[1].Text, "Older")
	assert.Nil(t, b.states.Get(testChatID))
}

func TestForeignChatIgnored(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.startHandler(context.Background(), b.bot, textMessage(999, "/start"))
	b.callbackHandler(context.Background(), b.bot, callback(999, "today"))

	assert.Empty(t, api.byMethod("sendMessage"))
	assert.Empty(t, api.byMethod("editMessageText"))
	assert.Empty(t, api.byMethod("answerCallbackQuery"))
	assert.Nil(t, b.states.Get(999))
}

func TestStateManager(t *testing.T) {
	sm := NewStateManager()
	assert.Nil(t, sm.Get(testChatID))

	sm.Set(testChatID, StateWaitDate)
	require.NotNil(t, sm.Get(testChatID))
	assert.Equal(t, StateWaitDate, sm.Get(testChatID).State)

	sm.Clear(testChatID)
	assert.Nil(t, sm.Get(testChatID))
}

func TestListText_Empty(t *testing.T) {
	assert.Equal(t, "hdr\n\n暂无记录。", listText("hdr", nil))
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
