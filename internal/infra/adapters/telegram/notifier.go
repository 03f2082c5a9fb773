package telegram

import (
	"context"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"video-inspection-console/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*Notifier)(nil)

// Notifier sends terminal-state messages to a fixed operator chat.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	log    *zerolog.Logger
}

func NewNotifier(token string, chatID int64, logger *zerolog.Logger) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	compLog := logger.With().Str("component", "TelegramNotifier").Logger()
	return &Notifier{bot: bot, chatID: chatID, log: &compLog}, nil
}

func (n *Notifier) Notify(ctx context.Context, text string) error {
	// tgbotapi has no ctx-aware send; bail out early if already cancelled.
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return err
	}
	n.log.Debug().Msg("operator notified")
	return nil
}
