package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"social-chat/internal/domain"
	"social-chat/internal/observability"

	amqp "github.com/rabbitmq/amqp091-go"
	"golang.org/x/sync/singleflight"
)

// NotificationProducer publishes notification events to a durable queue.
// The broker connection is opened on first publish and reopened when the
// cached channel is no longer usable. Concurrent reconnects share one dial.
type NotificationProducer struct {
	url   string
	queue string
	dial  Dialer

	mu      sync.RWMutex
	current *session
	closed  bool
	connect singleflight.Group
}

// ProducerOption customizes a NotificationProducer
type ProducerOption func(*NotificationProducer)

// WithDialer replaces the broker dialer
func WithDialer(dial Dialer) ProducerOption {
	return func(p *NotificationProducer) {
		p.dial = dial
	}
}

// NewNotificationProducer creates a producer for queue on the broker at url.
// No connection is made until the first Publish.
func NewNotificationProducer(url, queue string, opts ...ProducerOption) *NotificationProducer {
	p := &NotificationProducer{
		url:   url,
		queue: queue,
		dial:  DialAMQP,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish serializes the event and sends it as a persistent message.
// It does not wait for any consumer.
func (p *NotificationProducer) Publish(ctx context.Context, event *domain.NotificationEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	ch, err := p.channel()
	if err != nil {
		observability.NotificationsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
	}

	err = ch.PublishWithContext(
		ctx,
		"",      // default exchange
		p.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    event.CreatedAt,
			Type:         string(event.Action),
			Body:         body,
		},
	)
	if err != nil {
		observability.NotificationsPublished.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: failed to publish notification: %w", ErrBrokerUnavailable, err)
	}

	observability.NotificationsPublished.WithLabelValues("ok").Inc()
	slog.Debug("published notification",
		slog.String("action", string(event.Action)),
		slog.Int64("recipient_id", event.RecipientID),
		slog.Int64("target_id", event.TargetID))
	return nil
}

// channel returns the cached channel, establishing a new session if needed
func (p *NotificationProducer) channel() (Channel, error) {
	p.mu.RLock()
	s, closed := p.current, p.closed
	p.mu.RUnlock()

	if closed {
		return nil, fmt.Errorf("producer closed")
	}
	if s.usable() {
		return s.ch, nil
	}

	v, err, _ := p.connect.Do("connect", func() (interface{}, error) {
		p.mu.RLock()
		s := p.current
		p.mu.RUnlock()
		if s.usable() {
			return s, nil
		}

		fresh, err := openSession(p.dial, p.url, p.queue)
		if err != nil {
			return nil, err
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			fresh.close()
			return nil, fmt.Errorf("producer closed")
		}
		stale := p.current
		p.current = fresh
		if stale != nil {
			stale.close()
		}

		observability.BrokerConnects.Inc()
		slog.Info("notification producer connected", slog.String("queue", p.queue))
		return fresh, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*session).ch, nil
}

// IsClosed reports whether the producer currently has no usable channel
func (p *NotificationProducer) IsClosed() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.current.usable()
}

// Broker states reported by State
const (
	StateIdle   = "idle"
	StateUp     = "up"
	StateDown   = "down"
	StateClosed = "closed"
)

// State describes the broker session without dialing. A producer that has not
// published yet is idle, not down.
func (p *NotificationProducer) State() string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	switch {
	case p.closed:
		return StateClosed
	case p.current == nil:
		return StateIdle
	case p.current.usable():
		return StateUp
	default:
		return StateDown
	}
}

// Close releases the broker connection. Later publishes fail.
func (p *NotificationProducer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	s := p.current
	p.current = nil
	return s.close()
}
