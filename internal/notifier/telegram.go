package notifier

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"
)

type messageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type TelegramNotifier struct {
	sender  messageSender
	chatID  string
	retries int
	delay   time.Duration
	logger  *zap.Logger
}

// NewTelegramNotifier builds a notifier for chatID. Each Send makes up to retries attempts,
// delay apart.
func NewTelegramNotifier(token, chatID string, retries int, delay time.Duration, logger *zap.Logger) (*TelegramNotifier, error) {
	if token == "" || chatID == "" {
		return nil, errors.New("telegram notifier needs a token and a chat id")
	}
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return newTelegramNotifier(b, chatID, retries, delay, logger), nil
}

func newTelegramNotifier(sender messageSender, chatID string, retries int, delay time.Duration, logger *zap.Logger) *TelegramNotifier {
	if retries < 1 {
		retries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelegramNotifier{sender: sender, chatID: chatID, retries: retries, delay: delay, logger: logger}
}

func (t *TelegramNotifier) Send(ctx context.Context, message string) error {
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewConstantBackOff(t.delay), uint64(t.retries-1)), ctx)
	err := backoff.RetryNotify(func() error {
		_, err := t.sender.SendMessage(ctx, &bot.SendMessageParams{
			ChatID: t.chatID,
			Text:   message,
		})
		return err
	}, policy, func(err error, next time.Duration) {
		t.logger.Warn("notification_retry", zap.Error(err), zap.Duration("next", next))
	})
	if err != nil {
		return fmt.Errorf("telegram send failed after %d attempts: %w", t.retries, err)
	}
	return nil
}
