package userbook

import (
	"context"
	"time"
)

// 事件路由键
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Event 写操作成功后发布的领域事件
type Event struct {
	Type       string    `json:"type"`
	UserID     uint      `json:"user_id"`
	BookIDs    []uint    `json:"book_ids,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// EventPublisher 事件发布（pkg/mq.Publisher满足此接口）
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
}

// NopPublisher 不发布任何事件
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
