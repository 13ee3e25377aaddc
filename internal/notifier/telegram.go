package notifier

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// TelegramSink pushes messages to a single chat through a bot
type TelegramSink struct {
	bot    *bot.Bot
	chatID int64
}

// NewTelegramSink creates the bot client. Extra options are passed to
// bot.New (tests point the client at a local server with bot.WithServerURL).
func NewTelegramSink(token string, chatID int64, opts ...bot.Option) (*TelegramSink, error) {
	tgBot, err := bot.New(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}
	return &TelegramSink{bot: tgBot, chatID: chatID}, nil
}

// Push sends msg as an HTML message with link previews disabled
func (t *TelegramSink) Push(ctx context.Context, msg Message) error {
	disablePreview := true
	params := &bot.SendMessageParams{
		ChatID:    t.chatID,
		Text:      TelegramText(msg),
		ParseMode: models.ParseModeHTML,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disablePreview,
		},
	}

	_, err := t.bot.SendMessage(ctx, params)
	return err
}

var (
	boldRegex    = regexp.MustCompile(`\*\*(.+?)\*\*`)
	headingRegex = regexp.MustCompile(`^#{1,6}\s+(.*)$`)
)

// TelegramText renders the markdown subset the formatter emits as
// Telegram HTML.
func TelegramText(msg Message) string {
	lines := []string{"<b>" + html.EscapeString(msg.Title) + "</b>", ""}

	for _, line := range strings.Split(msg.Body, "\n") {
		line = html.EscapeString(line)
		if strings.TrimSpace(line) == "---" {
			lines = append(lines, "")
			continue
		}
		if m := headingRegex.FindStringSubmatch(line); m != nil {
			line = "<b>" + boldRegex.ReplaceAllString(m[1], "$1") + "</b>"
		} else {
			line = boldRegex.ReplaceAllString(line, "<b>$1</b>")
		}
		lines = append(lines, line)
	}

	if len(msg.Tags) > 0 {
		tags := make([]string, 0, len(msg.Tags))
		for _, tag := range msg.Tags {
			tags = append(tags, "#"+html.EscapeString(tag))
		}
		lines = append(lines, "", strings.Join(tags, " "))
	}

	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}
