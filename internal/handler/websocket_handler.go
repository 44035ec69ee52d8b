package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"social-chat/internal/middleware"
	"social-chat/internal/observability"
	"social-chat/internal/security"
	ws "social-chat/internal/websocket"
)

// WebSocketHandler authenticates and upgrades gateway connections
type WebSocketHandler struct {
	hub             *ws.Hub
	dispatcher      *ws.Dispatcher
	verifier        middleware.TokenVerifier
	upgrader        websocket.Upgrader
	eventsPerSecond float64
	eventBurst      int
}

// NewWebSocketHandler creates a new WebSocket handler.
// Browser origins must appear in allowedOrigins; requests without an Origin header are accepted.
func NewWebSocketHandler(hub *ws.Hub, dispatcher *ws.Dispatcher, verifier middleware.TokenVerifier,
	allowedOrigins []string, eventsPerSecond float64, eventBurst int) *WebSocketHandler {
	return &WebSocketHandler{
		hub:        hub,
		dispatcher: dispatcher,
		verifier:   verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || middleware.OriginAllowed(allowedOrigins, origin)
			},
		},
		eventsPerSecond: eventsPerSecond,
		eventBurst:      eventBurst,
	}
}

// HandleConnection verifies the bearer credential, then upgrades and serves the connection.
// The credential comes from the Authorization header or, for browsers, the token query parameter.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	raw := middleware.BearerToken(r)
	if raw == "" {
		raw = r.URL.Query().Get("token")
	}
	if raw == "" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "No token provided"})
		return
	}

	identity, err := h.verifier.Verify(raw)
	if err != nil {
		if security.IsAuthError(err) {
			slog.Debug("websocket credential rejected", slog.String("error", err.Error()))
		} else {
			slog.Warn("websocket credential check failed", slog.String("error", err.Error()))
		}
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := ws.NewClient(h.hub, conn, *identity, h.eventsPerSecond, h.eventBurst)
	if err := h.hub.Register(client); err != nil {
		conn.Close()
		return
	}

	// The request context ends with this handler; the connection outlives it
	ctx := context.WithoutCancel(r.Context())
	ctx = observability.WithUserID(ctx, identity.UserID)
	ctx = observability.WithConnID(ctx, client.ID())
	observability.FromContext(ctx).Info("websocket connected")

	go client.WritePump()
	go func() {
		client.ReadPump(ctx, h.dispatcher)
		observability.FromContext(ctx).Info("websocket disconnected")
	}()
}
