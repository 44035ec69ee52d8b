package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"social-chat/internal/domain"
	"social-chat/internal/mention"
	"social-chat/internal/messaging"
	"social-chat/internal/middleware"
	"social-chat/internal/observability"
)

// MentionProcessor records mentions for a newly created post or comment
type MentionProcessor interface {
	Process(ctx context.Context, src mention.Source) ([]*domain.Mention, error)
}

// MentionHandler exposes mention processing to the services that create posts and comments
type MentionHandler struct {
	mentions MentionProcessor
	validate *validator.Validate
}

// NewMentionHandler creates a new mention handler
func NewMentionHandler(mentions MentionProcessor) *MentionHandler {
	return &MentionHandler{
		mentions: mentions,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// CreateMentionsRequest is the body of POST /api/v1/mentions
type CreateMentionsRequest struct {
	SourceID   int64  `json:"sourceId" validate:"required,gt=0"`
	SourceType string `json:"sourceType" validate:"required,oneof=COMMENT POST"`
	Text       string `json:"text" validate:"max=10000"`
}

// CreateMentionsResponse lists the mentions recorded
type CreateMentionsResponse struct {
	Mentions []*domain.Mention `json:"mentions"`
}

// Create processes the text of a source authored by the caller
func (h *MentionHandler) Create(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
		return
	}

	var req CreateMentionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}
	if err := h.validate.StructCtx(r.Context(), &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		return
	}

	created, err := h.mentions.Process(r.Context(), mention.Source{
		ID:       req.SourceID,
		Type:     domain.SourceType(req.SourceType),
		AuthorID: identity.UserID,
		Text:     req.Text,
	})
	if err != nil {
		log := observability.FromContext(r.Context())
		switch {
		case errors.Is(err, domain.ErrInvalidInput):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"})
		case errors.Is(err, messaging.ErrBrokerUnavailable):
			log.Error("notification publish failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Notification broker unavailable"})
		default:
			log.Error("mention processing failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to record mentions"})
		}
		return
	}

	if created == nil {
		created = []*domain.Mention{}
	}
	writeJSON(w, http.StatusCreated, CreateMentionsResponse{Mentions: created})
}
