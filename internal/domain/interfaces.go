package domain

import (
	"context"
	"time"
)

// Clock отдаёт текущее время в фиксированном гражданском часовом поясе.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// TimerStore хранит документы скоупов в персистентном key-value хранилище.
// Save атомарно заменяет документ целиком. Load возвращает пустой документ,
// если данных нет, и ошибку, обёрнутую в ErrPersistenceCorrupt, если документ не читается.
type TimerStore interface {
	Load(ctx context.Context, scope Scope) (TimerMap, error)
	Save(ctx context.Context, scope Scope, timers TimerMap) error
	Clear(ctx context.Context, scope Scope) error
}

// ScopeLocker сериализует load-modify-save в пределах одного скоупа.
type ScopeLocker interface {
	Lock(ctx context.Context, scope Scope) (unlock func(), err error)
}

// Notifier доставляет уведомления в скоуп. Доставка best-effort.
type Notifier interface {
	Notify(ctx context.Context, scope Scope, req NotificationRequest) error
}

// ScopeSource перечисляет скоупы, которые обходит планировщик.
type ScopeSource interface {
	Scopes(ctx context.Context) ([]Scope, error)
}

// Cache используется для простых TTL-хранилищ.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
}
