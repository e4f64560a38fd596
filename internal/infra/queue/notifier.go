package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"boss-timer-bot/internal/domain"
	"boss-timer-bot/internal/infra/metrics"
)

// ErrBadJob — задача из очереди не разбирается.
var ErrBadJob = errors.New("malformed notification job")

// Notifier реализует domain.Notifier постановкой задачи в очередь доставки.
type Notifier struct {
	queue domain.NotificationQueue
	clock domain.Clock
}

var _ domain.Notifier = (*Notifier)(nil)

// NewNotifier создаёт доставщик поверх очереди.
func NewNotifier(queue domain.NotificationQueue, clock domain.Clock) *Notifier {
	return &Notifier{queue: queue, clock: clock}
}

// Notify ставит уведомление в очередь.
func (n *Notifier) Notify(ctx context.Context, scope domain.Scope, req domain.NotificationRequest) error {
	job := domain.NewNotificationJob(uuid.NewString(), scope, req, n.clock.Now())
	if err := n.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("%w: enqueue: %v", domain.ErrDeliveryFailure, err)
	}
	return nil
}

// Outcome: успешный Notify лишь ставит задачу в очередь, отправку считает relay.
func (n *Notifier) Outcome() string {
	return metrics.OutcomeQueued
}
