package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// maxMessageLen is Telegram's limit on a single text message.
const maxMessageLen = 4096

// Notifier delivers a run digest.
type Notifier interface {
	Send(ctx context.Context, text string) error
}

// Nop discards digests. It is used when no chat is configured.
type Nop struct{}

func (Nop) Send(context.Context, string) error { return nil }

// Telegram posts digests to one chat.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram connects a bot to the Telegram API.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}
	return newTelegram(bot, chatID), nil
}

// NewTelegramWithClient connects through a custom endpoint and HTTP client.
// endpoint follows tgbotapi.APIEndpoint, e.g. "https://api.telegram.org/bot%s/%s".
func NewTelegramWithClient(token, endpoint string, chatID int64, client *http.Client) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("initialize telegram bot: %w", err)
	}
	return newTelegram(bot, chatID), nil
}

func newTelegram(bot *tgbotapi.BotAPI, chatID int64) *Telegram {
	logger := log.With().Str("component", "telegram").Logger()
	logger.Info().Str("bot", bot.Self.UserName).Int64("chat_id", chatID).Msg("Telegram bot authorized")
	return &Telegram{bot: bot, chatID: chatID, logger: logger}
}

// Send posts text, split on line boundaries into messages under Telegram's size limit.
func (t *Telegram) Send(ctx context.Context, text string) error {
	chunks := split(text, maxMessageLen)
	successCount := 0
	for i, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(t.chatID, chunk)
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Error().Err(err).Int("part", i+1).Int("parts", len(chunks)).Msg("Failed to send digest")
			return fmt.Errorf("send digest part %d/%d: %w", i+1, len(chunks), err)
		}
		successCount++
	}
	t.logger.Debug().Int("sent", successCount).Msg("Digest delivered")
	return nil
}

func split(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var out []string
	var cur strings.Builder
	for _, line := range strings.SplitAfter(text, "\n") {
		for len(line) > limit {
			if cur.Len() > 0 {
				out = append(out, cur.String())
				cur.Reset()
			}
			cut := runeBoundary(line, limit)
			out = append(out, line[:cut])
			line = line[cut:]
		}
		if cur.Len()+len(line) > limit {
			out = append(out, cur.String())
			cur.Reset()
		}
		cur.WriteString(line)
	}
	if cur.Len() > 0 {
		out = append(out, cur.String())
	}
	return out
}

// runeBoundary returns the largest cut <= limit that does not split a UTF-8 sequence.
func runeBoundary(s string, limit int) int {
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	if cut == 0 {
		return limit
	}
	return cut
}

var (
	_ Notifier = Nop{}
	_ Notifier = (*Telegram)(nil)
)
