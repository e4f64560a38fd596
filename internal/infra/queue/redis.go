package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
)

// DefaultRedisKey задаёт список Redis с задачами доставки.
const DefaultRedisKey = "boss_notifications"

// RedisNotificationQueue реализует очередь задач на базе Redis lists.
type RedisNotificationQueue struct {
	client *redis.Client
	key    string
}

var _ domain.NotificationQueue = (*RedisNotificationQueue)(nil)

// NewRedisNotificationQueue создаёт очередь по указанному ключу.
func NewRedisNotificationQueue(client *redis.Client, key string) *RedisNotificationQueue {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisNotificationQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisNotificationQueue) Enqueue(ctx context.Context, job domain.NotificationJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	start := time.Now()
	err = q.client.LPush(ctx, q.key, payload).Err()
	metrics.ObserveNetworkRequest("redis", "lpush", q.key, start, err)
	if err != nil {
		return fmt.Errorf("push job: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisNotificationQueue) Pop(ctx context.Context) (domain.NotificationJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.NotificationJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.NotificationJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.NotificationJob{}, err
		}
		if len(res) != 2 {
			return domain.NotificationJob{}, errors.New("redis queue: unexpected response")
		}
		return decodeJob([]byte(res[1]))
	}
}

func decodeJob(payload []byte) (domain.NotificationJob, error) {
	var job domain.NotificationJob
	if err := json.Unmarshal(payload, &job); err != nil {
		return domain.NotificationJob{}, fmt.Errorf("%w: %v", ErrBadJob, err)
	}
	if job.Kind != domain.NotificationWarning && job.Kind != domain.NotificationSpawn {
		return domain.NotificationJob{}, fmt.Errorf("%w: unknown kind %q", ErrBadJob, job.Kind)
	}
	if job.Boss == "" || job.GuildID == 0 {
		return domain.NotificationJob{}, fmt.Errorf("%w: missing boss or scope", ErrBadJob)
	}
	return job, nil
}
