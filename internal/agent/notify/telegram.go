package notify

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	errx "github.com/wbdigital-chatbot/server/internal/core/error"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramNotifier posts leads to a team chat.
type TelegramNotifier struct {
	s      sender
	chatID int64
}

func NewTelegramNotifier(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" {
		return nil, errx.Missing("TELEGRAM_BOT_TOKEN")
	}
	if chatID == 0 {
		return nil, errx.Missing("TELEGRAM_CHAT_ID")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot: %w", err)
	}
	return &TelegramNotifier{s: api, chatID: chatID}, nil
}

// Notify sends the lead; the bot API has no context support, so ctx only bounds the wait.
func (n *TelegramNotifier) Notify(ctx context.Context, lead Lead) error {
	done := make(chan error, 1)
	go func() {
		_, err := n.s.Send(tgbotapi.NewMessage(n.chatID, lead.Text()))
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("telegram send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("telegram send: %w", ctx.Err())
	}
}
