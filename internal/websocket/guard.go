package websocket

import (
	"context"
	"errors"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"social-chat/internal/domain"
	"social-chat/internal/observability"
)

// Denial reasons returned to the caller
var (
	ReasonNotAuthenticated = domain.ErrNotAuthenticated.Error()
	ReasonNotParticipant   = domain.ErrNotParticipant.Error()
)

const (
	ReasonInvalidPayload  = "invalid payload"
	ReasonRateLimited     = "rate limit exceeded"
	ReasonAuthUnavailable = "authorization check failed"
)

// Decision is the outcome of an interceptor
type Decision struct {
	Allowed bool
	Reason  string
}

func Allow() Decision { return Decision{Allowed: true} }

func Deny(reason string) Decision { return Decision{Reason: reason} }

// Request is a decoded inbound event on its way to a handler
type Request struct {
	Client  *Client
	Event   string
	Payload interface{}
}

// Interceptor inspects a request before its handler runs
type Interceptor func(ctx context.Context, req *Request) Decision

// RequireIdentity rejects events from connections without a bound user
func RequireIdentity() Interceptor {
	return func(ctx context.Context, req *Request) Decision {
		if req.Client == nil || req.Client.identity.UserID <= 0 {
			return Deny(ReasonNotAuthenticated)
		}
		return Allow()
	}
}

// ValidatePayload applies the payload's struct tags
func ValidatePayload(v *validator.Validate) Interceptor {
	return func(ctx context.Context, req *Request) Decision {
		if req.Payload == nil {
			return Allow()
		}
		if err := v.StructCtx(ctx, req.Payload); err != nil {
			return Deny(ReasonInvalidPayload)
		}
		return Allow()
	}
}

// RateLimit spends one token of the connection's event budget
func RateLimit() Interceptor {
	return func(ctx context.Context, req *Request) Decision {
		if !req.Client.limiter.Allow() {
			return Deny(ReasonRateLimited)
		}
		return Allow()
	}
}

// RequireParticipant asks the reader on every event that names a chat.
// Events listed in skip are not checked.
func RequireParticipant(reader domain.ParticipantReader, skip ...string) Interceptor {
	exempt := make(map[string]struct{}, len(skip))
	for _, event := range skip {
		exempt[event] = struct{}{}
	}

	return func(ctx context.Context, req *Request) Decision {
		if _, ok := exempt[req.Event]; ok {
			return Allow()
		}
		scoped, ok := req.Payload.(roomScoped)
		if !ok {
			return Allow()
		}

		userID := req.Client.identity.UserID
		allowed, err := reader.IsUserInChat(ctx, scoped.Room(), userID)
		if err != nil {
			observability.FromContext(ctx).Error("participant lookup failed",
				slog.Int64("chat_id", scoped.Room()),
				slog.String("error", err.Error()))
			return Deny(ReasonAuthUnavailable)
		}
		if !allowed {
			observability.FromContext(ctx).Debug("event denied",
				slog.String("event", req.Event),
				slog.Int64("chat_id", scoped.Room()))
			return Deny(ReasonNotParticipant)
		}
		return Allow()
	}
}

// reasonFor maps a handler error onto the text returned to the caller
func reasonFor(err error) string {
	switch {
	case errors.Is(err, domain.ErrMessageNotFound):
		return domain.ErrMessageNotFound.Error()
	case errors.Is(err, domain.ErrInvalidInput):
		return domain.ErrInvalidInput.Error()
	case errors.Is(err, ErrHubClosed):
		return "server shutting down"
	default:
		return "failed to process event"
	}
}
