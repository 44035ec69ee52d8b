package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// ParticipantRepository answers chat membership questions from chat_participants
type ParticipantRepository struct {
	db *sql.DB
}

// NewParticipantRepository creates a new PostgreSQL participant repository
func NewParticipantRepository(db *sql.DB) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// IsUserInChat checks if a user is a participant of a chat
func (r *ParticipantRepository) IsUserInChat(ctx context.Context, chatID, userID int64) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM chat_participants
			WHERE chat_id = $1 AND user_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, chatID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check chat participant: %w", err)
	}
	return exists, nil
}
