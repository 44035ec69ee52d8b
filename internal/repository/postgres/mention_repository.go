package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"social-chat/internal/domain"
)

// MentionRepository implements domain.MentionRepository for PostgreSQL
type MentionRepository struct {
	db *sql.DB
}

// NewMentionRepository creates a new PostgreSQL mention repository
func NewMentionRepository(db *sql.DB) *MentionRepository {
	return &MentionRepository{db: db}
}

// Create inserts a mention row. Repeated calls create repeated rows.
func (r *MentionRepository) Create(ctx context.Context, mention *domain.Mention) error {
	query := `
		INSERT INTO mentions (source_id, source_type, mentioned_user_id, created_by_user_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		mention.SourceID,
		string(mention.SourceType),
		mention.MentionedUserID,
		mention.CreatedByUserID,
	).Scan(&mention.ID, &mention.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err, "") {
			return fmt.Errorf("failed to create mention: %w", domain.ErrUserNotFound)
		}
		return fmt.Errorf("failed to create mention: %w", err)
	}
	return nil
}
