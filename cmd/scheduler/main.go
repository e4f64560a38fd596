package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"

	"boss-timer-bot/internal/adapters/telegram"
	"boss-timer-bot/internal/app"
	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/config"
	"boss-timer-bot/internal/infra/log"
	"boss-timer-bot/internal/infra/metrics"
	"boss-timer-bot/internal/infra/queue"
)

// Отдельный процесс планировщика: опрашивает таймеры и отправляет уведомления
// напрямую в Telegram или в очередь, которую разбирает бот-гейтвей.
func main() {
	cfg := config.Load()
	logger := log.Component(log.NewLogger(cfg.AppEnv), "scheduler")
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	core, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось собрать приложение")
	}
	defer core.Close()

	q, err := core.Queue()
	if err != nil {
		logger.Fatal().Err(err).Msg("scheduler: не удалось открыть очередь")
	}
	var notifier domain.Notifier
	if q != nil {
		notifier = queue.NewNotifier(q, core.Clock)
	} else {
		botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
		if err != nil {
			logger.Fatal().Err(err).Msg("scheduler: не удалось создать бота")
		}
		notifier = telegram.NewNotifier(botAPI, core.Clock, logger)
	}

	metrics.StartServer(ctx, logger, cfg.HTTP.MetricsAddr)

	if err := core.Poller(notifier).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("scheduler: остановлен с ошибкой")
	}
}
