package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"boss-timer-bot/internal/adapters/httpapi"
	"boss-timer-bot/internal/app"
	"boss-timer-bot/internal/infra/config"
	httpinfra "boss-timer-bot/internal/infra/http"
	bosslog "boss-timer-bot/internal/infra/log"
	"boss-timer-bot/internal/infra/metrics"
)

// HTTP API таймеров без Telegram: запись убийств и расписание для внешних клиентов.
func main() {
	cfg := config.Load()
	logger := bosslog.Component(bosslog.NewLogger(cfg.AppEnv), "api")
	log.Logger = logger

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	core, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatal().Err(err).Msg("api: не удалось собрать приложение")
	}
	defer core.Close()

	srv := httpinfra.NewServer(logger)
	httpapi.NewHandler(core.Schedule, nil, logger).Mount(srv.Router)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Start(cfg.HTTP.Addr) })
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("api: сервер остановлен с ошибкой")
	}
}
