package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"social-chat/internal/domain"
)

const messageColumns = `id, chat_id, sender_id, receiver_id, body, is_read, read_at, created_at, updated_at`

// MessageRepository implements domain.MessageStore and domain.ReadMarker for PostgreSQL
type MessageRepository struct {
	db *sql.DB
}

// NewMessageRepository creates a new PostgreSQL message repository
func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Save inserts a new message and returns its stored representation
func (r *MessageRepository) Save(ctx context.Context, chatID, senderID int64, receiverID *int64, body string) (*domain.Message, error) {
	query := `
		INSERT INTO messages (chat_id, sender_id, receiver_id, body)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + messageColumns

	var receiver sql.NullInt64
	if receiverID != nil {
		receiver = sql.NullInt64{Int64: *receiverID, Valid: true}
	}

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, chatID, senderID, receiver, body))
	if err != nil {
		if IsForeignKeyViolation(err, "") || IsCheckViolation(err, "") {
			return nil, fmt.Errorf("failed to create message: %w", domain.ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	return msg, nil
}

// Edit replaces the body of a message of chatID owned by senderID
func (r *MessageRepository) Edit(ctx context.Context, id, chatID, senderID int64, body string) (*domain.Message, error) {
	query := `
		UPDATE messages
		SET body = $1, updated_at = NOW()
		WHERE id = $2 AND chat_id = $3 AND sender_id = $4
		RETURNING ` + messageColumns

	msg, err := scanMessage(r.db.QueryRowContext(ctx, query, body, id, chatID, senderID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrMessageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}
	return msg, nil
}

// Delete removes a message of chatID owned by senderID and reports whether a row was removed
func (r *MessageRepository) Delete(ctx context.Context, id, chatID, senderID int64) (bool, error) {
	query := `DELETE FROM messages WHERE id = $1 AND chat_id = $2 AND sender_id = $3`

	result, err := r.db.ExecContext(ctx, query, id, chatID, senderID)
	if err != nil {
		return false, fmt.Errorf("failed to delete message: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return count > 0, nil
}

// MarkRead flags a message of chatID as read; the first read time is kept
func (r *MessageRepository) MarkRead(ctx context.Context, id, chatID int64) error {
	query := `
		UPDATE messages
		SET is_read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE id = $1 AND chat_id = $2
	`
	result, err := r.db.ExecContext(ctx, query, id, chatID)
	if err != nil {
		return fmt.Errorf("failed to mark message read: %w", err)
	}

	count, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if count == 0 {
		return domain.ErrMessageNotFound
	}
	return nil
}

func scanMessage(row *sql.Row) (*domain.Message, error) {
	var (
		msg      domain.Message
		receiver sql.NullInt64
		readAt   sql.NullTime
	)
	err := row.Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.SenderID,
		&receiver,
		&msg.Body,
		&msg.IsRead,
		&readAt,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if receiver.Valid {
		msg.ReceiverID = &receiver.Int64
	}
	if readAt.Valid {
		msg.ReadAt = &readAt.Time
	}
	return &msg, nil
}
