package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
)

const (
	defaultLockTTL   = 30 * time.Second
	defaultLockRetry = 50 * time.Millisecond
	lockPrefix       = "boss_lock:"
)

// ErrLockTimeout: блокировку скоупа не удалось получить до отмены контекста.
var ErrLockTimeout = errors.New("scope lock timeout")

// Снимаем блокировку только если токен совпадает с нашим.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Продлеваем блокировку, пока она всё ещё наша.
var extendScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// RedisCache реализует domain.Cache и domain.ScopeLocker через Redis.
type RedisCache struct {
	client  *redis.Client
	lockTTL time.Duration
	retry   time.Duration
}

var (
	_ domain.Cache       = (*RedisCache)(nil)
	_ domain.ScopeLocker = (*RedisCache)(nil)
)

// NewRedis создаёт кэш.
func NewRedis(client *redis.Client) *RedisCache {
	return &RedisCache{client: client, lockTTL: defaultLockTTL, retry: defaultLockRetry}
}

// Once выполняет функцию, если ключ ещё не задан. При ошибке fn ключ снимается.
func (c *RedisCache) Once(key string, ttl time.Duration, fn func() error) error {
	ctx := context.Background()
	start := time.Now()
	ok, err := c.client.SetNX(ctx, key, "1", ttl).Result()
	metrics.ObserveNetworkRequest("redis", "once", "dedupe", start, err)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if err := fn(); err != nil {
		_ = c.client.Del(ctx, key).Err()
		return err
	}
	return nil
}

// Lock берёт межпроцессную блокировку скоупа (SET NX PX с уникальным токеном).
// Пока блокировка удерживается, TTL продлевается каждые lockTTL/3; TTL лишь
// ограничивает время жизни блокировки упавшего процесса.
func (c *RedisCache) Lock(ctx context.Context, scope domain.Scope) (func(), error) {
	key := lockPrefix + scope.Key()
	token := uuid.NewString()
	for {
		start := time.Now()
		ok, err := c.client.SetNX(ctx, key, token, c.lockTTL).Result()
		metrics.ObserveNetworkRequest("redis", "lock", "scope", start, err)
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrLockTimeout, scope, ctx.Err())
		case <-time.After(c.retry):
		}
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go c.keepAlive(key, token, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, c.client, []string{key}, token).Err()
		})
	}, nil
}

// keepAlive продлевает TTL блокировки до закрытия stop или потери токена.
func (c *RedisCache) keepAlive(key, token string, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(c.lockTTL / 3)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			extendCtx, cancel := context.WithTimeout(context.Background(), c.lockTTL/3)
			start := time.Now()
			res, err := extendScript.Run(extendCtx, c.client, []string{key}, token, c.lockTTL.Milliseconds()).Int()
			cancel()
			metrics.ObserveNetworkRequest("redis", "lock_extend", "scope", start, err)
			if err == nil && res == 0 {
				return
			}
		}
	}
}
