package repo

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

func redisStoreForTest(t *testing.T, loc *time.Location) (*RedisStore, *redis.Client) {
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
	return NewRedisStore(client, "test:boss_timers:"+uuid.NewString()+":", loc), client
}

func TestRedisStoreRoundTrip(t *testing.T) {
	timers, loc := sampleTimers(t)
	store, _ := redisStoreForTest(t, loc)
	ctx := context.Background()
	scope := domain.Scope{GuildID: -1001, ChannelID: 7}
	t.Cleanup(func() { _ = store.Clear(context.Background(), scope) })

	empty, err := store.Load(ctx, scope)
	if err != nil || len(empty) != 0 {
		t.Fatalf("missing scope: got %v, %v", empty, err)
	}
	if err := store.Save(ctx, scope, timers); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx, scope)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !loaded.Equal(timers) {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", loaded, timers)
	}
	if got, err := store.Load(ctx, domain.Scope{GuildID: -1001}); err != nil || len(got) != 0 {
		t.Fatalf("scopes must be isolated: %v, %v", got, err)
	}

	if err := store.Clear(ctx, scope); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if got, err := store.Load(ctx, scope); err != nil || len(got) != 0 {
		t.Fatalf("after clear: %v, %v", got, err)
	}
}

func TestRedisStoreCorruptDocument(t *testing.T) {
	_, loc := sampleTimers(t)
	store, client := redisStoreForTest(t, loc)
	ctx := context.Background()
	scope := domain.Scope{GuildID: -1001}
	t.Cleanup(func() { _ = store.Clear(context.Background(), scope) })

	if err := client.Set(ctx, store.key(scope), `{"venatus":`, 0).Err(); err != nil {
		t.Fatalf("set corrupt document: %v", err)
	}
	if _, err := store.Load(ctx, scope); !errors.Is(err, domain.ErrPersistenceCorrupt) {
		t.Fatalf("expected ErrPersistenceCorrupt, got %v", err)
	}
}
