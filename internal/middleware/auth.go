package middleware

import (
	"context"
	"net/http"
	"strings"

	"social-chat/internal/domain"
	"social-chat/internal/observability"
)

type contextKey string

const IdentityKey contextKey = "identity"

// TokenVerifier turns a bearer credential into a verified identity
type TokenVerifier interface {
	Verify(raw string) (*domain.Identity, error)
}

// Auth requires an "Authorization: Bearer" credential and stores the identity in the request context
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := BearerToken(r)
			if raw == "" {
				writeJSONError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			identity, err := verifier.Verify(raw)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx := WithIdentity(r.Context(), *identity)
			ctx = observability.WithUserID(ctx, identity.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// BearerToken extracts the credential from the Authorization header
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < 7 || !strings.EqualFold(header[:7], "Bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}

func GetIdentity(ctx context.Context) (domain.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(domain.Identity)
	return identity, ok
}

func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
