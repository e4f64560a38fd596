// Package app собирает зависимости сервисов из конфигурации.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"boss-timer-bot/internal/adapters/repo"
	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/cache"
	"boss-timer-bot/internal/infra/clock"
	"boss-timer-bot/internal/infra/config"
	"boss-timer-bot/internal/infra/db"
	"boss-timer-bot/internal/infra/queue"
	"boss-timer-bot/internal/usecase/notify"
	"boss-timer-bot/internal/usecase/poller"
	"boss-timer-bot/internal/usecase/schedule"
	"boss-timer-bot/internal/usecase/spawn"
	"boss-timer-bot/internal/usecase/timers"
)

// Режимы доставки уведомлений.
const (
	NotifyDirect   = "direct"
	NotifyRedis    = "redis"
	NotifyRabbitMQ = "rabbitmq"
)

// ErrUnsupported возвращается на неизвестное значение STORE_BACKEND или NOTIFY_MODE.
var ErrUnsupported = errors.New("unsupported configuration value")

// App хранит собранное ядро сервиса.
type App struct {
	Config     config.AppConfig
	Log        zerolog.Logger
	Clock      domain.Clock
	Rules      domain.RuleTable
	Allow      domain.AllowList
	Calculator *spawn.Calculator
	Machine    *notify.Machine
	Timers     *timers.Store
	Schedule   *schedule.Service

	redis   *redis.Client
	cache   *cache.RedisCache
	closers []func()
}

// New собирает приложение. Close освобождает подключения.
func New(ctx context.Context, cfg config.AppConfig, logger zerolog.Logger) (*App, error) {
	zone, err := clock.NewZone(cfg.TZ)
	if err != nil {
		return nil, err
	}
	rules, err := config.LoadRules(cfg.Scheduler.RulesFile)
	if err != nil {
		return nil, err
	}
	allow, err := domain.ParseAllowList(cfg.Scheduler.AllowedScopes)
	if err != nil {
		return nil, err
	}
	if allow.Len() == 0 {
		logger.Warn().Msg("ALLOWED_SCOPES пуст: команды и уведомления отключены")
	}

	a := &App{Config: cfg, Log: logger, Clock: zone, Rules: rules, Allow: allow}
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		a.closers = append(a.closers, func() { _ = a.redis.Close() })
		a.cache = cache.NewRedis(a.redis)
	}

	backend, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	var locker domain.ScopeLocker
	if a.cache != nil {
		locker = a.cache
	}

	a.Calculator = spawn.NewCalculator(zone)
	a.Machine = notify.NewMachine(a.NotifyConfig(), a.Calculator)
	a.Timers = timers.NewStore(backend, locker, logger)
	a.Schedule = schedule.NewService(rules, a.Calculator, a.Timers, allow, logger)
	logger.Info().
		Str("tz", zone.Location().String()).
		Str("store", cfg.Store.Backend).
		Int("bosses", rules.Len()).
		Int("scopes", allow.Len()).
		Msg("ядро собрано")
	return a, nil
}

// NotifyConfig переводит окна уведомлений из конфигурации.
func (a *App) NotifyConfig() notify.Config {
	w := a.Config.Windows
	return notify.Config{
		WarnWindow:    w.Warn,
		WarnTolerance: w.WarnTolerance,
		Grace:         w.Grace,
		StaleUnlock:   w.StaleUnlock,
	}
}

func (a *App) openStore(ctx context.Context) (domain.TimerStore, error) {
	loc := a.Clock.Location()
	switch strings.ToLower(a.Config.Store.Backend) {
	case "", "file":
		return repo.NewFileStore(a.Config.Store.DataDir, loc)
	case "memory":
		return repo.NewMemory(loc), nil
	case "sqlite":
		return repo.OpenSQLite(a.Config.Store.SQLitePath, loc)
	case "postgres":
		pool, err := db.Connect(ctx, a.Config.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		store := repo.NewPostgres(pool, loc)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil
	case "redis":
		if a.redis == nil {
			return nil, fmt.Errorf("%w: STORE_BACKEND=redis requires REDIS_ADDR", ErrUnsupported)
		}
		return repo.NewRedisStore(a.redis, "", loc), nil
	default:
		return nil, fmt.Errorf("%w: STORE_BACKEND=%q", ErrUnsupported, a.Config.Store.Backend)
	}
}

// Queue открывает очередь доставки для режимов redis и rabbitmq; для direct возвращает nil.
func (a *App) Queue() (domain.NotificationQueue, error) {
	switch strings.ToLower(a.Config.Notify.Mode) {
	case "", NotifyDirect:
		return nil, nil
	case NotifyRedis:
		if a.redis == nil {
			return nil, fmt.Errorf("%w: NOTIFY_MODE=redis requires REDIS_ADDR", ErrUnsupported)
		}
		return queue.NewRedisNotificationQueue(a.redis, a.Config.Queues.Notifications), nil
	case NotifyRabbitMQ:
		q, err := queue.NewRabbitNotificationQueue(a.Config.Notify.RabbitURL, a.Config.Queues.Notifications)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = q.Close() })
		return q, nil
	default:
		return nil, fmt.Errorf("%w: NOTIFY_MODE=%q", ErrUnsupported, a.Config.Notify.Mode)
	}
}

// Poller собирает планировщик поверх доставщика.
func (a *App) Poller(notifier domain.Notifier) *poller.Poller {
	opts := poller.Options{
		Interval:    a.Config.Scheduler.Interval,
		Concurrency: a.Config.Scheduler.Concurrency,
		DedupeTTL:   a.Config.Notify.DedupeTTL,
	}
	if a.cache != nil {
		opts.Dedupe = a.cache
	}
	return poller.New(a.Allow, a.Timers, a.Machine, a.Clock, notifier, opts, a.Log)
}

// Close закрывает подключения в обратном порядке.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// ShutdownTimeout ограничивает остановку HTTP-серверов.
const ShutdownTimeout = 5 * time.Second
