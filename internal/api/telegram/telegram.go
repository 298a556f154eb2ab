package telegram

import (
	"context"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ghbridge/internal/config"
)

// Sender is the part of *tgbotapi.BotAPI used to push messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBot connects to the Bot API and checks the token with getMe.
func NewBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	const op = "telegram.NewBot"

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.Token, endpoint(cfg), &http.Client{Timeout: cfg.Timeout})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return bot, nil
}

// NewSender returns a Bot API client without contacting Telegram. The relay
// only sends messages and must start even if Telegram is unreachable.
func NewSender(cfg config.TelegramConfig) *tgbotapi.BotAPI {
	bot := &tgbotapi.BotAPI{
		Token:  cfg.Token,
		Client: &http.Client{Timeout: cfg.Timeout},
		Buffer: 100,
	}
	bot.SetAPIEndpoint(endpoint(cfg))
	return bot
}

func endpoint(cfg config.TelegramConfig) string {
	if cfg.APIEndpoint != "" {
		return cfg.APIEndpoint
	}
	return tgbotapi.APIEndpoint
}

// Notifier sends plain text messages to a chat user. The chat id of a private
// chat equals the user id, so the requester id is used as is.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

// Notify sends text to requesterID. It gives up when ctx is done; the
// underlying request is still bounded by the HTTP client timeout.
func (n *Notifier) Notify(ctx context.Context, requesterID int64, text string) error {
	const op = "telegram.Notify"

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := n.sender.Send(tgbotapi.NewMessage(requesterID, text))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	}
}
