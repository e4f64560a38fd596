// Package delivery пересылает задачи из очереди уведомлений в чат.
package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
)

const popErrorBackoff = time.Second

// Relay читает задачи из очереди и передаёт их доставщику.
type Relay struct {
	queue    domain.NotificationQueue
	notifier domain.Notifier
	log      zerolog.Logger
	backoff  time.Duration
	skip     func(error) bool
}

// NewRelay создаёт пересыльщик. skip решает, какие ошибки Pop пропускать без паузы
// (например, неразбираемые задачи); при nil пауза делается на любой ошибке.
func NewRelay(queue domain.NotificationQueue, notifier domain.Notifier, skip func(error) bool, logger zerolog.Logger) *Relay {
	if skip == nil {
		skip = func(error) bool { return false }
	}
	return &Relay{
		queue:    queue,
		notifier: notifier,
		log:      logger.With().Str("component", "relay").Logger(),
		backoff:  popErrorBackoff,
		skip:     skip,
	}
}

// Run обрабатывает очередь до отмены контекста.
func (r *Relay) Run(ctx context.Context) error {
	r.log.Info().Msg("relay: запущен")
	for {
		job, err := r.queue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				r.log.Info().Msg("relay: остановлен")
				return ctx.Err()
			}
			if r.skip(err) {
				r.log.Warn().Err(err).Msg("relay: пропущена неразбираемая задача")
				continue
			}
			r.log.Error().Err(err).Msg("relay: ошибка чтения очереди")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(r.backoff):
			}
			continue
		}
		r.Handle(ctx, job)
	}
}

// Handle доставляет одну задачу. Ошибки не повторяются.
func (r *Relay) Handle(ctx context.Context, job domain.NotificationJob) {
	scope := job.Scope()
	if err := r.notifier.Notify(ctx, scope, job.Request()); err != nil {
		metrics.IncNotification(string(job.Kind), metrics.OutcomeFailed)
		r.log.Error().Err(err).
			Str("job", job.ID).
			Str("scope", scope.Key()).
			Str("boss", job.Boss).
			Str("kind", string(job.Kind)).
			Msg("relay: не удалось доставить уведомление")
		return
	}
	metrics.IncNotification(string(job.Kind), metrics.OutcomeSent)
	r.log.Debug().Str("job", job.ID).Str("boss", job.Boss).Dur("lag", time.Since(job.EnqueuedAt)).Msg("relay: уведомление доставлено")
}
