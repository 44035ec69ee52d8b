package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"social-chat/internal/domain"
	"social-chat/internal/security"
)

// TestJWTSecret signs tokens produced by NewToken
const TestJWTSecret = "test-secret-with-at-least-32-characters!"

// Counter for generating unique IDs
var idCounter atomic.Int64

func nextID() int64 {
	return idCounter.Add(1)
}

// UserOptions allows customizing user fixture creation
type UserOptions struct {
	ID        int64
	Handle    string
	CreatedAt time.Time
}

// NewTestUser creates a test user with sensible defaults
// Pass options to override specific fields
func NewTestUser(opts ...func(*UserOptions)) *domain.User {
	o := &UserOptions{ID: nextID()}
	for _, opt := range opts {
		opt(o)
	}

	if o.Handle == "" {
		o.Handle = fmt.Sprintf("user%d", o.ID)
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}

	return &domain.User{
		ID:        o.ID,
		Handle:    o.Handle,
		CreatedAt: o.CreatedAt,
	}
}

// WithUserID sets the user id
func WithUserID(id int64) func(*UserOptions) {
	return func(o *UserOptions) {
		o.ID = id
	}
}

// WithHandle sets the user handle
func WithHandle(handle string) func(*UserOptions) {
	return func(o *UserOptions) {
		o.Handle = handle
	}
}

// NewToken signs an HS256 bearer token for userID with TestJWTSecret
func NewToken(userID int64, handle string, ttl time.Duration) string {
	return NewTokenWithSecret(TestJWTSecret, userID, handle, ttl)
}

// NewTokenWithSecret signs an HS256 bearer token with an explicit secret.
// A negative ttl yields an already expired token.
func NewTokenWithSecret(secret string, userID int64, handle string, ttl time.Duration) string {
	now := time.Now()
	claims := security.Claims{
		Handle: handle,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		panic(err)
	}
	return signed
}
