package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"social-chat/internal/domain"
)

// NotificationRepository stores notifications delivered by the queue consumer
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new PostgreSQL notification repository
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification row
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (recipient_id, sender_id, action, target_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		n.RecipientID,
		n.SenderID,
		string(n.Action),
		n.TargetID,
		n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		if IsForeignKeyViolation(err, "") || IsCheckViolation(err, "") {
			return fmt.Errorf("failed to create notification: %w", domain.ErrInvalidInput)
		}
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}
