package mention

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"social-chat/internal/domain"
	"social-chat/internal/observability"
)

// Source is a freshly created post or comment to scan for mentions
type Source struct {
	ID       int64
	Type     domain.SourceType
	AuthorID int64
	Text     string
}

// Service resolves extracted handles and records mentions.
// It keeps no state between calls: processing the same source twice
// creates duplicate mentions and duplicate notifications.
type Service struct {
	users    domain.UserLookup
	mentions domain.MentionRepository
	notifier domain.NotificationSender
	now      func() time.Time
}

// NewService creates a mention service
func NewService(users domain.UserLookup, mentions domain.MentionRepository, notifier domain.NotificationSender) *Service {
	return &Service{
		users:    users,
		mentions: mentions,
		notifier: notifier,
		now:      time.Now,
	}
}

// Process extracts handles from src.Text and, for every handle that resolves to
// a user other than the author, stores a mention and publishes a notification.
// Unknown handles are skipped without error. The first persistence or broker
// failure stops processing and is returned with the mentions created so far.
func (s *Service) Process(ctx context.Context, src Source) ([]*domain.Mention, error) {
	if !src.Type.Valid() || src.ID <= 0 || src.AuthorID <= 0 {
		return nil, domain.ErrInvalidInput
	}

	log := observability.FromContext(ctx)
	handles := Extract(src.Text)
	created := make([]*domain.Mention, 0, len(handles))

	for _, handle := range handles {
		user, err := s.users.FindByHandle(ctx, handle)
		if err != nil {
			return created, fmt.Errorf("failed to resolve handle %q: %w", handle, err)
		}
		if user == nil {
			log.Debug("mention of unknown handle dropped", slog.String("handle", handle))
			continue
		}
		if user.ID == src.AuthorID {
			continue
		}

		m := &domain.Mention{
			SourceID:        src.ID,
			SourceType:      src.Type,
			MentionedUserID: user.ID,
			CreatedByUserID: src.AuthorID,
		}
		if err := s.mentions.Create(ctx, m); err != nil {
			return created, err
		}
		created = append(created, m)
		observability.MentionsCreated.WithLabelValues(string(src.Type)).Inc()

		createdAt := m.CreatedAt
		if createdAt.IsZero() {
			createdAt = s.now().UTC()
		}
		event := &domain.NotificationEvent{
			RecipientID: user.ID,
			SenderID:    src.AuthorID,
			Action:      domain.MentionAction(src.Type),
			TargetID:    src.ID,
			CreatedAt:   createdAt,
		}
		if err := s.notifier.Publish(ctx, event); err != nil {
			return created, err
		}
	}

	if len(created) > 0 {
		log.Info("mentions recorded",
			slog.Int64("source_id", src.ID),
			slog.String("source_type", string(src.Type)),
			slog.Int("count", len(created)))
	}
	return created, nil
}
