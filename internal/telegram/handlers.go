// Package telegram is an interactive bot for browsing the event store from
// the notification chat: today's events, pending reminders, any date, and
// the audit log of a single event.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/suspectuso/airdrop-tracker/internal/notifier"
	"github.com/suspectuso/airdrop-tracker/internal/storage"
)

const dateLayout = "2006-01-02"

// Store is the read side of the event store the bot browses
type Store interface {
	ListByDate(date string) ([]storage.Airdrop, error)
	GetAirdropByID(id int64) (*storage.Airdrop, error)
	ListStatusChanges(airdropID int64) ([]storage.StatusChange, error)
	FindDueForReminder(date string) ([]storage.Airdrop, error)
}

// Bot wraps the telegram bot with handlers
type Bot struct {
	bot    *bot.Bot
	store  Store
	chatID int64
	loc    *time.Location
	now    func() time.Time
	states *StateManager
	log    *slog.Logger
}

// New creates the bot. Only chatID may use it. Extra options are passed to
// bot.New.
func New(token string, chatID int64, store Store, loc *time.Location, log *slog.Logger, opts ...bot.Option) (*Bot, error) {
	b := &Bot{
		store:  store,
		chatID: chatID,
		loc:    loc,
		now:    time.Now,
		states: NewStateManager(),
		log:    log.With("component", "telegram"),
	}

	opts = append([]bot.Option{
		bot.WithDefaultHandler(b.defaultHandler),
		bot.WithCallbackQueryDataHandler("", bot.MatchTypePrefix, b.callbackHandler),
	}, opts...)

	tgBot, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	b.bot = tgBot

	// Register command handlers
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/start", bot.MatchTypeExact, b.startHandler)
	tgBot.RegisterHandler(bot.HandlerTypeMessageText, "/today", bot.MatchTypeExact, b.todayHandler)

	return b, nil
}

// Start starts long polling and blocks until ctx is done
func (b *Bot) Start(ctx context.Context) {
	b.bot.Start(ctx)
}

// --- Handlers ---

func (b *Bot) startHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || !b.allowed(update.Message.Chat.ID) {
		return
	}
	b.states.Clear(update.Message.Chat.ID)
	b.sendMessage(ctx, update.Message.Chat.ID, mainMenuText(), MainKeyboard())
}

func (b *Bot) todayHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || !b.allowed(update.Message.Chat.ID) {
		return
	}
	text, keyboard := b.dayView(b.today())
	b.sendMessage(ctx, update.Message.Chat.ID, text, keyboard)
}

func (b *Bot) defaultHandler(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}

	chatID := update.Message.Chat.ID
	if !b.allowed(chatID) {
		return
	}

	state := b.states.Get(chatID)
	if state == nil {
		return
	}

	switch state.State {
	case StateWaitDate:
		b.handleWaitDate(ctx, chatID, strings.TrimSpace(update.Message.Text))
	}
}

func (b *Bot) handleWaitDate(ctx context.Context, chatID int64, text string) {
	if _, err := time.ParseInLocation(dateLayout, text, b.loc); err != nil {
		b.sendMessage(ctx, chatID, "❌ 日期格式应为 <code>YYYY-MM-DD</code>，请重新输入。", BackKeyboard())
		return
	}

	b.states.Clear(chatID)
	view, keyboard := b.dayView(text)
	b.sendMessage(ctx, chatID, view, keyboard)
}

func (b *Bot) callbackHandler(ctx context.Context, tgBot *bot.Bot, update *models.Update) {
	if update.CallbackQuery == nil {
		return
	}

	cb := update.CallbackQuery
	data := cb.Data

	if cb.Message.Message == nil || !b.allowed(cb.Message.Message.Chat.ID) {
		return
	}
	chatID := cb.Message.Message.Chat.ID

	// Answer callback to remove loading state
	tgBot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
		CallbackQueryID: cb.ID,
	})

	switch {
	case data == "back":
		b.states.Clear(chatID)
		b.editMessage(ctx, cb.Message, mainMenuText(), MainKeyboard())
	case data == "today":
		text, keyboard := b.dayView(b.today())
		b.editMessage(ctx, cb.Message, text, keyboard)
	case data == "due":
		text, keyboard := b.dueView()
		b.editMessage(ctx, cb.Message, text, keyboard)
	case data == "date":
		b.states.Set(chatID, StateWaitDate)
		b.editMessage(ctx, cb.Message, "🔎 请输入日期（<code>YYYY-MM-DD</code>）：", BackKeyboard())
	case strings.HasPrefix(data, "day:"):
		text, keyboard := b.dayView(strings.TrimPrefix(data, "day:"))
		b.editMessage(ctx, cb.Message, text, keyboard)
	case strings.HasPrefix(data, "ev:"):
		b.handleEvent(ctx, cb, strings.TrimPrefix(data, "ev:"))
	default:
		b.log.Warn("unknown callback", "data", data, "chat_id", chatID)
	}
}

func (b *Bot) handleEvent(ctx context.Context, cb *models.CallbackQuery, rawID string) {
	id, _ := strconv.ParseInt(rawID, 10, 64)

	ev, err := b.store.GetAirdropByID(id)
	if errors.Is(err, storage.ErrNotFound) {
		b.bot.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{
			CallbackQueryID: cb.ID,
			Text:            "空投不存在",
			ShowAlert:       true,
		})
		return
	}
	if err != nil {
		b.log.Error("get airdrop", "id", id, "error", err)
		return
	}

	changes, err := b.store.ListStatusChanges(ev.ID)
	if err != nil {
		b.log.Error("list status changes", "id", id, "error", err)
	}

	b.editMessage(ctx, cb.Message, eventText(ev, changes, b.loc), EventKeyboard(ev.Date))
}

// --- Views ---

func (b *Bot) dayView(date string) (string, *models.InlineKeyboardMarkup) {
	events, err := b.store.ListByDate(date)
	if err != nil {
		b.log.Error("list airdrops", "date", date, "error", err)
		return "❌ 查询失败，请稍后再试。", BackKeyboard()
	}
	return listText("📅 <b>"+html.EscapeString(date)+" 的空投</b>", events), EventsKeyboard(events)
}

func (b *Bot) dueView() (string, *models.InlineKeyboardMarkup) {
	events, err := b.store.FindDueForReminder(b.today())
	if err != nil {
		b.log.Error("find due for reminder", "error", err)
		return "❌ 查询失败，请稍后再试。", BackKeyboard()
	}
	return listText("⏰ <b>今日待提醒</b>", events), EventsKeyboard(events)
}

func (b *Bot) today() string {
	return b.now().In(b.loc).Format(dateLayout)
}

func mainMenuText() string {
	return "🪂 <b>空投监控</b>\n\n选择要查看的内容 👇"
}

func listText(header string, events []storage.Airdrop) string {
	if len(events) == 0 {
		return header + "\n\n暂无记录。"
	}

	lines := []string{header, ""}
	for _, e := range events {
		when := e.Time
		if strings.TrimSpace(when) == "" {
			when = "未定"
		}
		line := fmt.Sprintf("• <b>%s</b> (%s) %s", html.EscapeString(e.Name), html.EscapeString(e.Token), html.EscapeString(when))
		if e.TotalValue != nil && *e.TotalValue > 0 {
			line += fmt.Sprintf(" · $%.2f", *e.TotalValue)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// eventText renders the snapshot through the notifier's formatter followed
// by the audit log
func eventText(ev *storage.Airdrop, changes []storage.StatusChange, loc *time.Location) string {
	body := notifier.FormatAirdrop(ev, false)
	if len(changes) > 0 {
		var sb strings.Builder
		sb.WriteString("\n---\n\n**变化记录:**\n\n")
		for _, c := range changes {
			fmt.Fprintf(&sb, "- %s %s: %s → %s\n",
				c.ChangeTime.In(loc).Format("01-02 15:04"), c.ChangeType, orDash(c.OldValue), orDash(c.NewValue))
		}
		body += sb.String()
	}

	return notifier.TelegramText(notifier.Message{
		Title: fmt.Sprintf("%s (%s)", ev.Name, ev.Token),
		Body:  body,
	})
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

// --- Helpers ---

func (b *Bot) allowed(chatID int64) bool {
	if b.chatID != 0 && chatID != b.chatID {
		b.log.Warn("ignoring chat", "chat_id", chatID)
		return false
	}
	return true
}

func (b *Bot) sendMessage(ctx context.Context, chatID int64, text string, keyboard *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.SendMessage(ctx, params)
	if err != nil {
		b.log.Error("send message", "error", err)
	}
}

func (b *Bot) editMessage(ctx context.Context, msg models.MaybeInaccessibleMessage, text string, keyboard *models.InlineKeyboardMarkup) {
	if msg.Message == nil {
		return
	}

	params := &bot.EditMessageTextParams{
		ChatID:    msg.Message.Chat.ID,
		MessageID: msg.Message.ID,
		Text:      text,
		ParseMode: models.ParseModeHTML,
	}
	if keyboard != nil {
		params.ReplyMarkup = keyboard
	}

	_, err := b.bot.EditMessageText(ctx, params)
	if err != nil {
		b.log.Error("edit message", "error", err)
	}
}
