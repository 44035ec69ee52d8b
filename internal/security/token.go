package security

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"social-chat/internal/domain"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the payload of a bearer credential issued by the identity service.
// The subject carries the numeric user id.
type Claims struct {
	Handle string `json:"handle,omitempty"`
	jwt.RegisteredClaims
}

// TokenVerifier checks HS256 bearer credentials
type TokenVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenVerifier creates a verifier for tokens signed with secret
func NewTokenVerifier(secret string) *TokenVerifier {
	return &TokenVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify validates the token signature and expiry and returns the bound identity
func (v *TokenVerifier) Verify(raw string) (*domain.Identity, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, domain.ErrNotAuthenticated
	}

	claims := &Claims{}
	token, err := v.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrNotAuthenticated, err)
	}
	if !token.Valid {
		return nil, domain.ErrNotAuthenticated
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 {
		return nil, fmt.Errorf("%w: invalid subject", domain.ErrNotAuthenticated)
	}

	return &domain.Identity{UserID: userID, Handle: claims.Handle}, nil
}

// IsAuthError reports whether err is a credential rejection
func IsAuthError(err error) bool {
	return errors.Is(err, domain.ErrNotAuthenticated)
}
