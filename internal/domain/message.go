package domain

import (
	"context"
	"time"
)

// Message represents a persisted chat message
type Message struct {
	ID         int64      `json:"id"`
	ChatID     int64      `json:"chatId"`
	SenderID   int64      `json:"senderId"`
	ReceiverID *int64     `json:"receiverId,omitempty"`
	Body       string     `json:"body"`
	IsRead     bool       `json:"isRead"`
	ReadAt     *time.Time `json:"readAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// MessageStore persists chat messages and returns their canonical stored form
type MessageStore interface {
	Save(ctx context.Context, chatID, senderID int64, receiverID *int64, body string) (*Message, error)
	Edit(ctx context.Context, id, chatID, senderID int64, body string) (*Message, error)
	Delete(ctx context.Context, id, chatID, senderID int64) (bool, error)
}

// ReadMarker records that a message of a chat has been read
type ReadMarker interface {
	MarkRead(ctx context.Context, id, chatID int64) error
}
