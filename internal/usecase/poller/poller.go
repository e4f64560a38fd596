// Package poller периодически прогоняет машину уведомлений по всем скоупам.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
	"boss-timer-bot/internal/usecase/notify"
	"boss-timer-bot/internal/usecase/timers"
)

const (
	// DefaultInterval задаёт период опроса.
	DefaultInterval = 10 * time.Second
	// DefaultDedupeTTL: сколько помнить отправленное уведомление между репликами.
	DefaultDedupeTTL = 6 * time.Hour

	defaultConcurrency = 8
)

// Options настраивает планировщик.
type Options struct {
	Interval    time.Duration
	Concurrency int
	// Dedupe: необязательный межпроцессный фильтр повторных уведомлений.
	Dedupe    domain.Cache
	DedupeTTL time.Duration
}

// Report описывает итог одного тика.
type Report struct {
	Scopes        int
	Failed        int
	Notifications int
}

// Poller обходит скоупы, применяет машину состояний, сохраняет документ
// и только после этого передаёт уведомления доставщику.
type Poller struct {
	scopes   domain.ScopeSource
	timers   *timers.Store
	machine  *notify.Machine
	clock    domain.Clock
	notifier domain.Notifier
	handoff  string
	opts     Options
	log      zerolog.Logger
}

// New создаёт планировщик.
func New(scopes domain.ScopeSource, store *timers.Store, machine *notify.Machine, clock domain.Clock, notifier domain.Notifier, opts Options, logger zerolog.Logger) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.DedupeTTL <= 0 {
		opts.DedupeTTL = DefaultDedupeTTL
	}
	return &Poller{
		scopes:   scopes,
		timers:   store,
		machine:  machine,
		clock:    clock,
		notifier: notifier,
		handoff:  handoffOutcome(notifier),
		opts:     opts,
		log:      logger.With().Str("component", "poller").Logger(),
	}
}

// Run выполняет тики до отмены контекста. Первый тик выполняется сразу при старте.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	p.log.Info().Dur("interval", p.opts.Interval).Msg("планировщик запущен")
	p.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Info().Msg("планировщик остановлен")
			return ctx.Err()
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick обрабатывает все скоупы. Ошибка одного скоупа не останавливает остальные.
// Возвращается после завершения работы по каждому скоупу.
func (p *Poller) Tick(ctx context.Context) Report {
	start := time.Now()
	defer metrics.ObserveTick(start)

	scopes, err := p.scopes.Scopes(ctx)
	if err != nil {
		p.log.Error().Err(err).Msg("не удалось получить список скоупов")
		return Report{}
	}

	type result struct {
		sent int
		err  error
	}
	results := make([]result, len(scopes))

	var g errgroup.Group
	g.SetLimit(p.opts.Concurrency)
	for i, scope := range scopes {
		i, scope := i, scope
		g.Go(func() error {
			sent, err := p.tickScope(ctx, scope)
			results[i] = result{sent: sent, err: err}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Scopes: len(scopes)}
	for i, res := range results {
		report.Notifications += res.sent
		if res.err != nil {
			report.Failed++
			metrics.ScopeErrors.Inc()
			p.log.Warn().Err(res.err).Str("scope", scopes[i].Key()).Msg("тик скоупа завершился ошибкой")
		}
	}
	return report
}

func (p *Poller) tickScope(ctx context.Context, scope domain.Scope) (int, error) {
	var outcomes []notify.Outcome
	_, err := p.timers.Update(ctx, scope, func(m domain.TimerMap) (bool, error) {
		// Время берётся под блокировкой скоупа: ожидание lock не должно сдвигать окна.
		updated, outs, changed := p.machine.Evaluate(m, p.clock.Now())
		for name, rec := range updated {
			m[name] = rec
		}
		outcomes = outs
		return changed, nil
	})
	if err != nil {
		return 0, fmt.Errorf("tick %s: %w", scope, err)
	}

	sent := 0
	for _, out := range outcomes {
		p.logOutcome(scope, out)
		for _, req := range out.Requests {
			if p.deliver(ctx, scope, req) {
				sent++
			}
		}
	}
	return sent, nil
}

func (p *Poller) logOutcome(scope domain.Scope, out notify.Outcome) {
	logger := p.log.With().Str("scope", scope.Key()).Str("boss", out.Boss).Logger()
	if out.Suppressed {
		metrics.IncNotification(string(domain.NotificationSpawn), metrics.OutcomeSuppressed)
		logger.Info().Time("target", out.Record.Target).Msg("устаревшее появление не объявлено")
	}
	if out.RolloverErr != nil {
		logger.Error().Err(out.RolloverErr).Msg("не удалось перейти на следующий недельный слот")
	}
	if out.RolledOver {
		logger.Debug().Time("next", out.Record.Target).Msg("недельный таймер переведён")
	}
	if out.Unlocked {
		logger.Warn().Msg("аварийная разблокировка зависшей записи")
	}
}

// deliver передаёт запрос доставщику. Ошибки доставки логируются и не повторяются.
func (p *Poller) deliver(ctx context.Context, scope domain.Scope, req domain.NotificationRequest) bool {
	kind := string(req.Kind)
	send := func() error {
		return p.notifier.Notify(ctx, scope, req)
	}

	var err error
	delivered := false
	if p.opts.Dedupe != nil {
		err = p.opts.Dedupe.Once(req.DedupKey(scope), p.opts.DedupeTTL, func() error {
			delivered = true
			return send()
		})
		if err == nil && !delivered {
			metrics.IncNotification(kind, metrics.OutcomeDuplicate)
			p.log.Debug().Str("scope", scope.Key()).Str("boss", req.Boss).Msg("уведомление уже отправлено другой репликой")
			return false
		}
	} else {
		err = send()
	}

	if err != nil {
		metrics.IncNotification(kind, metrics.OutcomeFailed)
		if !errors.Is(err, domain.ErrDeliveryFailure) {
			err = fmt.Errorf("%w: %v", domain.ErrDeliveryFailure, err)
		}
		p.log.Error().Err(err).
			Str("scope", scope.Key()).
			Str("boss", req.Boss).
			Str("kind", kind).
			Msg("не удалось доставить уведомление")
		return false
	}
	metrics.IncNotification(kind, p.handoff)
	return true
}

// outcomer реализуют доставщики, у которых успешный Notify ещё не означает отправку.
type outcomer interface {
	Outcome() string
}

func handoffOutcome(notifier domain.Notifier) string {
	if o, ok := notifier.(outcomer); ok {
		return o.Outcome()
	}
	return metrics.OutcomeSent
}
