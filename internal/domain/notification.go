package domain

import (
	"context"
	"time"
)

// NotificationAction names what a recipient is notified about
type NotificationAction string

const (
	ActionMentionComment NotificationAction = "MENTION_COMMENT"
	ActionMentionPost    NotificationAction = "MENTION_POST"
)

// MentionAction maps a mention source to its notification action
func MentionAction(source SourceType) NotificationAction {
	if source == SourcePost {
		return ActionMentionPost
	}
	return ActionMentionComment
}

// NotificationEvent is the queued message describing an action a recipient should see
type NotificationEvent struct {
	RecipientID int64              `json:"recipientId"`
	SenderID    int64              `json:"senderId"`
	Action      NotificationAction `json:"action"`
	TargetID    int64              `json:"targetId"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// NotificationSender publishes notification events
type NotificationSender interface {
	Publish(ctx context.Context, event *NotificationEvent) error
}

// Notification is a delivered notification stored by the consumer
type Notification struct {
	ID          int64              `json:"id"`
	RecipientID int64              `json:"recipientId"`
	SenderID    int64              `json:"senderId"`
	Action      NotificationAction `json:"action"`
	TargetID    int64              `json:"targetId"`
	IsRead      bool               `json:"isRead"`
	CreatedAt   time.Time          `json:"createdAt"`
}

// NotificationRepository stores consumed notifications
type NotificationRepository interface {
	Create(ctx context.Context, notification *Notification) error
}
