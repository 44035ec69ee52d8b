package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"social-chat/internal/domain"
)

// UserRepository resolves users for mention processing
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByHandle retrieves a user by exact handle match.
// It returns nil, nil when no user owns the handle.
func (r *UserRepository) FindByHandle(ctx context.Context, handle string) (*domain.User, error) {
	query := `
		SELECT id, handle, created_at
		FROM users
		WHERE handle = $1
	`
	user := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, handle).Scan(
		&user.ID,
		&user.Handle,
		&user.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by handle: %w", err)
	}
	return user, nil
}
