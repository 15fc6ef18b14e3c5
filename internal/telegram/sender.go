package telegram

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// MaxMessageLength is the Bot API limit for one text message, in runes.
const MaxMessageLength = 4096

// MessageSender sends Bot API requests.
type MessageSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Sender sends Markdown text messages.
type Sender struct {
	bot MessageSender
}

func NewSender(bot MessageSender) *Sender {
	return &Sender{bot: bot}
}

// Send delivers text to chatID, split into several messages when it is
// longer than the API allows.
func (s *Sender) Send(ctx context.Context, chatID int64, text string) error {
	for _, part := range Split(text, MaxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		if _, err := s.bot.Send(msg); err != nil {
			return fmt.Errorf("failed to send message to %d: %w", chatID, err)
		}
	}
	return nil
}

// Split cuts text into parts of at most limit runes, preferring line breaks.
func Split(text string, limit int) []string {
	if len([]rune(text)) <= limit {
		return []string{text}
	}

	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		r := []rune(line)
		for len(r) > limit {
			flush()
			parts = append(parts, string(r[:limit]))
			r = r[limit:]
		}
		if n+len(r) > limit {
			flush()
		}
		cur.WriteString(string(r))
		n += len(r)
	}
	flush()

	for i, p := range parts {
		parts[i] = strings.TrimSuffix(p, "\n")
	}
	return parts
}
