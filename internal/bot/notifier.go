package bot

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// maxMessageRunes keeps digests under Telegram's 4096 character limit.
const maxMessageRunes = 4000

const truncatedSuffix = "\n…"

// Notifier delivers a rendered digest somewhere a human will read it.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// TelegramConfig describes the chat that receives digests.
type TelegramConfig struct {
	Token  string
	ChatID int64
	// Endpoint overrides tgbotapi.APIEndpoint; it must keep the two %s verbs.
	Endpoint string
}

// TelegramNotifier posts digests to a Telegram chat as HTML messages.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	log    *zap.SugaredLogger
}

// NewTelegramNotifier authorises the bot token against the Bot API.
func NewTelegramNotifier(cfg TelegramConfig, log *zap.SugaredLogger) (*TelegramNotifier, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	api, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint, &http.Client{Timeout: 15 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}

	log.Infow("telegram bot authorized", "account", api.Self.UserName, "chatID", cfg.ChatID)

	return &TelegramNotifier{api: api, chatID: cfg.ChatID, log: log}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, truncate(text, maxMessageRunes))
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := n.api.Send(msg); err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	return nil
}

// LogNotifier writes digests to the application log.
type LogNotifier struct {
	log *zap.SugaredLogger
}

func NewLogNotifier(log *zap.SugaredLogger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(_ context.Context, text string) error {
	n.log.Infow("overdue digest", "text", text)
	return nil
}

// truncate shortens text to at most limit runes. Each digest line is
// self-contained HTML, so the cut is made at the start of the last task
// block or group header that fits and never lands inside a tag or entity.
func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	budget := limit - utf8.RuneCountInString(truncatedSuffix)
	if budget <= 0 {
		return "…"
	}
	head := string(runes[:budget])

	cut := -1
	for _, marker := range []string{"\n⚠", "\n\n"} {
		if i := strings.LastIndex(head, marker); i > cut {
			cut = i
		}
	}
	if cut < 0 {
		cut = strings.LastIndex(head, "\n")
	}
	if cut <= 0 {
		return "…"
	}
	return strings.TrimRight(head[:cut], "\n") + truncatedSuffix
}
