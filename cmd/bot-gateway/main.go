package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"boss-timer-bot/internal/adapters/bot"
	"boss-timer-bot/internal/adapters/httpapi"
	"boss-timer-bot/internal/adapters/telegram"
	"boss-timer-bot/internal/app"
	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/config"
	httpserver "boss-timer-bot/internal/infra/http"
	"boss-timer-bot/internal/infra/log"
	"boss-timer-bot/internal/infra/metrics"
	"boss-timer-bot/internal/infra/queue"
	"boss-timer-bot/internal/usecase/delivery"
)

func main() {
	cfg := config.Load()
	logger := log.NewLogger(cfg.AppEnv)
	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	core, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось собрать приложение")
	}
	defer core.Close()

	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось создать бота")
	}
	logger.Info().Str("bot", botAPI.Self.UserName).Msg("бот авторизован")

	chat := telegram.NewNotifier(botAPI, core.Clock, logger)
	h := bot.NewHandler(chat, logger, core.Schedule, core.Clock)

	var notifier domain.Notifier = chat
	q, err := core.Queue()
	if err != nil {
		logger.Fatal().Err(err).Msg("не удалось открыть очередь уведомлений")
	}

	g, ctx := errgroup.WithContext(ctx)
	if q != nil {
		notifier = queue.NewNotifier(q, core.Clock)
		relay := delivery.NewRelay(q, chat, func(err error) bool { return errors.Is(err, queue.ErrBadJob) }, logger)
		g.Go(func() error { return untilCanceled(relay.Run(ctx)) })
	}
	if cfg.Scheduler.Embedded {
		p := core.Poller(notifier)
		g.Go(func() error { return untilCanceled(p.Run(ctx)) })
	}

	var updates httpapi.UpdateHandler
	if cfg.Telegram.WebhookURL != "" {
		if err := setWebhook(botAPI, cfg.Telegram.WebhookURL); err != nil {
			logger.Fatal().Err(err).Msg("не удалось установить вебхук")
		}
		updates = h
	} else {
		g.Go(func() error { return longPoll(ctx, botAPI, h, logger) })
	}

	srv := httpserver.NewServer(logger)
	httpapi.NewHandler(core.Schedule, updates, logger).Mount(srv.Router)
	g.Go(func() error { return srv.Start(cfg.HTTP.Addr) })
	g.Go(func() error {
		<-ctx.Done()
		logger.Info().Msg("остановка бота")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error().Err(err).Msg("бот-гейтвей остановлен с ошибкой")
	}
}

func setWebhook(botAPI *tgbotapi.BotAPI, url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return err
	}
	_, err = botAPI.Request(wh)
	return err
}

// longPoll читает апдейты через getUpdates, когда вебхук не настроен.
func longPoll(ctx context.Context, botAPI *tgbotapi.BotAPI, h *bot.Handler, logger zerolog.Logger) error {
	if _, err := botAPI.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		logger.Warn().Err(err).Msg("не удалось снять вебхук")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	ch := botAPI.GetUpdatesChan(u)
	logger.Info().Msg("long polling запущен")
	for {
		select {
		case <-ctx.Done():
			botAPI.StopReceivingUpdates()
			return nil
		case upd, ok := <-ch:
			if !ok {
				return nil
			}
			h.HandleUpdate(ctx, upd)
		}
	}
}

func untilCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
