package repo

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
)

const defaultRedisPrefix = "boss_timers:"

// RedisStore хранит документ скоупа под одним ключом Redis. SET атомарен.
type RedisStore struct {
	client *redis.Client
	prefix string
	loc    *time.Location
}

var _ domain.TimerStore = (*RedisStore)(nil)

// NewRedisStore создаёт хранилище с префиксом ключей.
func NewRedisStore(client *redis.Client, prefix string, loc *time.Location) *RedisStore {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStore{client: client, prefix: prefix, loc: loc}
}

func (s *RedisStore) key(scope domain.Scope) string {
	return s.prefix + scope.Key()
}

// Load реализует domain.TimerStore.
func (s *RedisStore) Load(ctx context.Context, scope domain.Scope) (domain.TimerMap, error) {
	start := time.Now()
	data, err := s.client.Get(ctx, s.key(scope)).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.ObserveNetworkRequest("redis", "timers_load", "boss_timers", start, nil)
		return domain.TimerMap{}, nil
	}
	metrics.ObserveNetworkRequest("redis", "timers_load", "boss_timers", start, err)
	if err != nil {
		return nil, err
	}
	return DecodeTimers(data, s.loc)
}

// Save реализует domain.TimerStore.
func (s *RedisStore) Save(ctx context.Context, scope domain.Scope, timers domain.TimerMap) error {
	data, err := EncodeTimers(timers)
	if err != nil {
		return err
	}
	start := time.Now()
	err = s.client.Set(ctx, s.key(scope), data, 0).Err()
	metrics.ObserveNetworkRequest("redis", "timers_save", "boss_timers", start, err)
	return err
}

// Clear реализует domain.TimerStore.
func (s *RedisStore) Clear(ctx context.Context, scope domain.Scope) error {
	start := time.Now()
	err := s.client.Del(ctx, s.key(scope)).Err()
	metrics.ObserveNetworkRequest("redis", "timers_clear", "boss_timers", start, err)
	return err
}
