package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrBrokerUnavailable wraps every failure to reach or publish to the broker
var ErrBrokerUnavailable = errors.New("message broker unavailable")

// Channel is the subset of *amqp.Channel used by the producer and consumer
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	IsClosed() bool
	Close() error
}

// Connection is the subset of *amqp.Connection used here
type Connection interface {
	Channel() (Channel, error)
	IsClosed() bool
	Close() error
}

// Dialer opens a broker connection
type Dialer func(url string) (Connection, error)

type amqpConnection struct {
	*amqp.Connection
}

func (c amqpConnection) Channel() (Channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// DialAMQP connects to RabbitMQ
func DialAMQP(url string) (Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return amqpConnection{Connection: conn}, nil
}

// DialWithRetry keeps dialing with a doubling delay until it succeeds or ctx ends
func DialWithRetry(ctx context.Context, dial Dialer, url string) (Connection, error) {
	delay := 500 * time.Millisecond
	const maxDelay = 8 * time.Second

	for attempt := 1; ; attempt++ {
		conn, err := dial(url)
		if err == nil {
			return conn, nil
		}

		slog.Warn("rabbitmq connection attempt failed",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", delay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrBrokerUnavailable, err)
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxDelay {
			delay = maxDelay
		}
	}
}

// DeclareQueue declares the durable notification queue
func DeclareQueue(ch Channel, name string) error {
	if _, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	); err != nil {
		return fmt.Errorf("failed to declare %s queue: %w", name, err)
	}
	return nil
}

// session is an open connection with its channel
type session struct {
	conn Connection
	ch   Channel
}

func (s *session) usable() bool {
	return s != nil && !s.conn.IsClosed() && !s.ch.IsClosed()
}

func (s *session) close() error {
	if s == nil {
		return nil
	}
	if s.ch != nil {
		s.ch.Close()
	}
	if s.conn != nil && !s.conn.IsClosed() {
		return s.conn.Close()
	}
	return nil
}

func openSession(dial Dialer, url, queue string) (*session, error) {
	conn, err := dial(url)
	if err != nil {
		return nil, err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	s := &session{conn: conn, ch: ch}
	if err := DeclareQueue(ch, queue); err != nil {
		s.close()
		return nil, err
	}
	return s, nil
}
