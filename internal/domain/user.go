package domain

import (
	"context"
	"time"
)

// User is the subset of a user record the gateway needs
type User struct {
	ID        int64     `json:"id"`
	Handle    string    `json:"handle"`
	CreatedAt time.Time `json:"createdAt"`
}

// UserLookup resolves handles to users.
// FindByHandle returns nil, nil when no user owns the handle.
type UserLookup interface {
	FindByHandle(ctx context.Context, handle string) (*User, error)
}

// Identity is the verified caller bound to a connection or request
type Identity struct {
	UserID int64
	Handle string
}
