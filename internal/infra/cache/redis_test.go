package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"boss-timer-bot/internal/domain"
)

func redisForTest(t *testing.T) *RedisCache {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client)
}

func TestOnceRunsOnlyFirstCall(t *testing.T) {
	c := redisForTest(t)
	key := "test:once:" + uuid.NewString()
	t.Cleanup(func() { c.client.Del(context.Background(), key) })

	calls := 0
	for i := 0; i < 3; i++ {
		if err := c.Once(key, time.Minute, func() error { calls++; return nil }); err != nil {
			t.Fatalf("once: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("expected 1 call, got %d", calls)
	}
}

func TestOnceReleasesKeyOnFailure(t *testing.T) {
	c := redisForTest(t)
	key := "test:once:" + uuid.NewString()
	t.Cleanup(func() { c.client.Del(context.Background(), key) })

	boom := errors.New("boom")
	if err := c.Once(key, time.Minute, func() error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	called := false
	if err := c.Once(key, time.Minute, func() error { called = true; return nil }); err != nil || !called {
		t.Fatalf("expected retry after failure, err=%v called=%v", err, called)
	}
}

func TestLockIsExclusive(t *testing.T) {
	c := redisForTest(t)
	c.retry = 5 * time.Millisecond
	scope := domain.Scope{GuildID: time.Now().UnixNano()}

	unlock, err := c.Lock(context.Background(), scope)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Lock(ctx, scope); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	unlock()

	again, err := c.Lock(context.Background(), scope)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	again()
}

func TestLockOutlivesTTLWhileHeld(t *testing.T) {
	c := redisForTest(t)
	c.retry = 5 * time.Millisecond
	c.lockTTL = 300 * time.Millisecond
	scope := domain.Scope{GuildID: time.Now().UnixNano()}
	key := lockPrefix + scope.Key()

	unlock, err := c.Lock(context.Background(), scope)
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	time.Sleep(3 * c.lockTTL)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.Lock(ctx, scope); !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("held lock expired after its TTL: %v", err)
	}

	unlock()
	unlock()
	if n, err := c.client.Exists(context.Background(), key).Result(); err != nil || n != 0 {
		t.Fatalf("expected lock key removed, exists=%d err=%v", n, err)
	}
}
