package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-chat/internal/domain"
	"social-chat/internal/security"
	"social-chat/internal/testutil"
)

func newAuthHandler(t *testing.T) (http.Handler, *domain.Identity) {
	t.Helper()
	verifier := security.NewTokenVerifier(testutil.TestJWTSecret)

	seen := &domain.Identity{}
	h := Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := GetIdentity(r.Context())
		require.True(t, ok)
		*seen = identity
		w.WriteHeader(http.StatusOK)
	}))
	return h, seen
}

func TestAuth_ValidToken(t *testing.T) {
	h, seen := newAuthHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/mentions", nil)
	req.Header.Set("Authorization", "Bearer "+testutil.NewToken(42, "alice", time.Hour))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(42), seen.UserID)
	assert.Equal(t, "alice", seen.Handle)
}

func TestAuth_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", "Not authenticated"},
		{"wrong scheme", "Basic abc", "Not authenticated"},
		{"garbage token", "Bearer not-a-jwt", "Invalid or expired token"},
		{"expired token", "Bearer " + testutil.NewToken(42, "alice", -time.Minute), "Invalid or expired token"},
		{"wrong secret", "Bearer " + testutil.NewTokenWithSecret("another-secret-with-32-characters!!", 42, "alice", time.Hour), "Invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newAuthHandler(t)
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.JSONEq(t, `{"error":"`+tt.want+`"}`, w.Body.String())
		})
	}
}

func TestBearerToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, BearerToken(req))

	req.Header.Set("Authorization", "bearer  abc.def ")
	assert.Equal(t, "abc.def", BearerToken(req))
}

func TestGetIdentity_Missing(t *testing.T) {
	_, ok := GetIdentity(context.Background())
	assert.False(t, ok)

	ctx := context.WithValue(context.Background(), IdentityKey, "wrong type")
	_, ok = GetIdentity(ctx)
	assert.False(t, ok)
}

func TestWithIdentity(t *testing.T) {
	ctx := WithIdentity(context.Background(), domain.Identity{UserID: 3, Handle: "carol"})
	identity, ok := GetIdentity(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), identity.UserID)
}
