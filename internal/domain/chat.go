package domain

import (
	"context"
	"fmt"
)

// RoomName returns the broadcast group name for a chat
func RoomName(chatID int64) string {
	return fmt.Sprintf("chat_%d", chatID)
}

// ParticipantReader answers whether a user may take part in a chat.
// Implementations must read persistent participant data on every call.
type ParticipantReader interface {
	IsUserInChat(ctx context.Context, chatID, userID int64) (bool, error)
}
