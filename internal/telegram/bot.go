// Package telegram connects the counter to the Telegram Bot API.
package telegram

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/lox/cardcounter/internal/counter"
)

// API is the part of *tgbotapi.BotAPI the bot uses.
type API interface {
	MessageSender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler consumes message events.
type Handler interface {
	HandleNew(ctx context.Context, ev counter.Event)
	HandleEdit(ctx context.Context, ev counter.Event)
}

// Kind tells new messages from edits.
type Kind int

const (
	New Kind = iota
	Edit
)

// Connect authenticates with token.
func Connect(token string) (*tgbotapi.BotAPI, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to telegram: %w", err)
	}
	return api, nil
}

// Bot long-polls for updates and dispatches them to a Handler one at a time.
type Bot struct {
	api     API
	handler Handler
	logger  *log.Logger
	timeout int
}

// NewBot returns a bot polling with the given long-poll timeout in seconds.
func NewBot(api API, handler Handler, logger *log.Logger, timeout int) *Bot {
	return &Bot{
		api:     api,
		handler: handler,
		logger:  logger.WithPrefix("telegram"),
		timeout: timeout,
	}
}

// Run polls until ctx is done.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout
	u.AllowedUpdates = []string{"message", "edited_message", "channel_post", "edited_channel_post"}
	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Polling for updates", "timeout", b.timeout)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("Stopped polling")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	ev, kind, ok := EventOf(update)
	if !ok {
		b.logger.Debug("Update skipped", "update_id", update.UpdateID)
		return
	}
	switch kind {
	case New:
		b.handler.HandleNew(ctx, ev)
	case Edit:
		b.handler.HandleEdit(ctx, ev)
	}
}

// EventOf maps an update to a counter event. Updates without a message or
// without text are skipped.
func EventOf(update tgbotapi.Update) (counter.Event, Kind, bool) {
	var (
		msg  *tgbotapi.Message
		kind Kind
	)
	switch {
	case update.ChannelPost != nil:
		msg, kind = update.ChannelPost, New
	case update.EditedChannelPost != nil:
		msg, kind = update.EditedChannelPost, Edit
	case update.Message != nil:
		msg, kind = update.Message, New
	case update.EditedMessage != nil:
		msg, kind = update.EditedMessage, Edit
	default:
		return counter.Event{}, 0, false
	}
	if msg.Chat == nil {
		return counter.Event{}, 0, false
	}

	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if text == "" {
		return counter.Event{}, 0, false
	}

	ev := counter.Event{
		MessageID: msg.MessageID,
		ChatID:    msg.Chat.ID,
		Text:      text,
		Private:   msg.Chat.IsPrivate(),
	}
	if msg.From != nil {
		ev.SenderID = msg.From.ID
	}
	return ev, kind, true
}
