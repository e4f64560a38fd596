package telegram

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
)

// Sender покрывает часть *tgbotapi.BotAPI, нужную для отправки сообщений.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Notifier отправляет уведомления и ответы в чаты Telegram.
type Notifier struct {
	bot   Sender
	clock domain.Clock
	log   zerolog.Logger
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт доставщик.
func NewNotifier(bot Sender, clock domain.Clock, logger zerolog.Logger) *Notifier {
	return &Notifier{bot: bot, clock: clock, log: logger.With().Str("component", "telegram").Logger()}
}

// ChatID выбирает чат скоупа: канал, если задан, иначе сам чат гильдии.
func ChatID(scope domain.Scope) int64 {
	if scope.ChannelID != 0 {
		return scope.ChannelID
	}
	return scope.GuildID
}

// Notify реализует domain.Notifier.
func (n *Notifier) Notify(_ context.Context, scope domain.Scope, req domain.NotificationRequest) error {
	text := NotificationText(req, n.clock.Now(), n.clock.Location())
	return n.Send(ChatID(scope), text)
}

// Send отправляет текст, разбивая его на части по лимиту Telegram.
func (n *Notifier) Send(chatID int64, text string) error {
	for _, part := range SplitMessage(text) {
		msg := tgbotapi.NewMessage(chatID, part)
		start := time.Now()
		_, err := n.bot.Send(msg)
		metrics.ObserveNetworkRequest("telegram_bot", "send_message", strconv.FormatInt(chatID, 10), start, err)
		if err != nil {
			metrics.BotSendErrors.Inc()
			return fmt.Errorf("%w: chat %d: %v", domain.ErrDeliveryFailure, chatID, err)
		}
	}
	return nil
}
