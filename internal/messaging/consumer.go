package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"social-chat/internal/domain"
	"social-chat/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrDeliveriesClosed is returned by Run when the broker closes the delivery stream
var ErrDeliveriesClosed = errors.New("notification deliveries closed")

const defaultPrefetch = 10

// NotificationConsumer reads notification events from the durable queue
// and stores them as notifications
type NotificationConsumer struct {
	ch       Channel
	queue    string
	repo     domain.NotificationRepository
	prefetch int
}

// NewNotificationConsumer creates a consumer on an open channel
func NewNotificationConsumer(ch Channel, queue string, repo domain.NotificationRepository) *NotificationConsumer {
	return &NotificationConsumer{
		ch:       ch,
		queue:    queue,
		repo:     repo,
		prefetch: defaultPrefetch,
	}
}

// Run consumes until ctx is cancelled or the delivery channel closes
func (c *NotificationConsumer) Run(ctx context.Context) error {
	if err := DeclareQueue(c.ch, c.queue); err != nil {
		return err
	}

	if err := c.ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("failed to set prefetch: %w", err)
	}

	msgs, err := c.ch.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	slog.Info("started consuming notifications", slog.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			slog.Info("stopping notification consumer")
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				slog.Warn("notification consumer channel closed")
				return ErrDeliveriesClosed
			}
			c.handle(ctx, msg)
		}
	}
}

func (c *NotificationConsumer) handle(ctx context.Context, msg amqp.Delivery) {
	var event domain.NotificationEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil || event.RecipientID == 0 {
		slog.Error("discarding malformed notification",
			slog.Int("body_size", len(msg.Body)))
		observability.NotificationsConsumed.WithLabelValues("malformed").Inc()
		if err := msg.Nack(false, false); err != nil {
			slog.Error("failed to nack message", slog.String("error", err.Error()))
		}
		return
	}

	notification := &domain.Notification{
		RecipientID: event.RecipientID,
		SenderID:    event.SenderID,
		Action:      event.Action,
		TargetID:    event.TargetID,
		CreatedAt:   event.CreatedAt,
	}

	if err := c.repo.Create(ctx, notification); err != nil {
		// Rows the schema rejects will never store; only transient failures go back on the queue
		requeue := !errors.Is(err, domain.ErrInvalidInput)
		slog.Error("failed to store notification",
			slog.String("error", err.Error()),
			slog.Int64("recipient_id", event.RecipientID),
			slog.Bool("requeue", requeue))
		observability.NotificationsConsumed.WithLabelValues("error").Inc()
		if err := msg.Nack(false, requeue); err != nil {
			slog.Error("failed to nack message", slog.String("error", err.Error()))
		}
		return
	}

	observability.NotificationsConsumed.WithLabelValues("ok").Inc()
	if err := msg.Ack(false); err != nil {
		slog.Error("failed to ack message", slog.String("error", err.Error()))
	}
}
