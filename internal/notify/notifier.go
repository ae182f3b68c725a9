package notify

import (
	"context"
	"fmt"

	"github.com/go-telegram/bot"
	"go.uber.org/zap"
)

// Notifier отправляет провайдеру уведомление о событии с его консультацией.
// Уведомления best-effort: ошибки логируются вызывающей стороной и не
// прерывают операцию.
type Notifier interface {
	NotifyProvider(ctx context.Context, chatID int64, text string) error
}

// TelegramNotifier шлёт уведомления провайдерам, привязавшим Telegram
type TelegramNotifier struct {
	bot    *bot.Bot
	logger *zap.Logger
}

func NewTelegramNotifier(token string, logger *zap.Logger) (*TelegramNotifier, error) {
	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, logger: logger}, nil
}

func (n *TelegramNotifier) NotifyProvider(ctx context.Context, chatID int64, text string) error {
	_, err := n.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}

	n.logger.Debug("Provider notified", zap.Int64("chat_id", chatID))
	return nil
}

// Disabled заглушка, когда токен уведомлений не настроен
type Disabled struct{}

func (Disabled) NotifyProvider(context.Context, int64, string) error {
	return nil
}
