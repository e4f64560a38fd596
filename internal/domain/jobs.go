package domain

import (
	"context"
	"fmt"
	"time"
)

// NotificationKind описывает тип уведомления.
type NotificationKind string

const (
	// NotificationWarning — предупреждение за 10 минут до появления.
	NotificationWarning NotificationKind = "warning"
	// NotificationSpawn — босс появился.
	NotificationSpawn NotificationKind = "spawn"
)

// NotificationRequest описывает запрос на отправку уведомления в скоуп.
type NotificationRequest struct {
	Kind   NotificationKind
	Boss   string
	Target time.Time
}

// DedupKey однозначно идентифицирует уведомление для конкретного цикла таймера.
func (r NotificationRequest) DedupKey(scope Scope) string {
	return fmt.Sprintf("notify:%s:%s:%s:%d", scope.Key(), r.Boss, r.Kind, r.Target.Unix())
}

// NotificationJob содержит уведомление, переданное через очередь доставки.
type NotificationJob struct {
	ID         string           `json:"job_id,omitempty"`
	GuildID    int64            `json:"guild_id"`
	ChannelID  int64            `json:"channel_id"`
	Kind       NotificationKind `json:"kind"`
	Boss       string           `json:"boss"`
	Target     time.Time        `json:"target"`
	EnqueuedAt time.Time        `json:"enqueued_at"`
}

// NewNotificationJob собирает задачу доставки из запроса.
func NewNotificationJob(id string, scope Scope, req NotificationRequest, now time.Time) NotificationJob {
	return NotificationJob{
		ID:         id,
		GuildID:    scope.GuildID,
		ChannelID:  scope.ChannelID,
		Kind:       req.Kind,
		Boss:       req.Boss,
		Target:     req.Target,
		EnqueuedAt: now,
	}
}

// Scope возвращает скоуп задачи.
func (j NotificationJob) Scope() Scope {
	return Scope{GuildID: j.GuildID, ChannelID: j.ChannelID}
}

// Request возвращает исходный запрос на уведомление.
func (j NotificationJob) Request() NotificationRequest {
	return NotificationRequest{Kind: j.Kind, Boss: j.Boss, Target: j.Target}
}

// NotificationQueue описывает очередь задач доставки уведомлений.
type NotificationQueue interface {
	Enqueue(ctx context.Context, job NotificationJob) error
	Pop(ctx context.Context) (NotificationJob, error)
}
