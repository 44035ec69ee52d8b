// Package relay fans room broadcasts out across gateway instances through
// Redis pub/sub. Each instance publishes to chat_{id} and forwards every
// chat_* message it receives into its local hub.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"social-chat/internal/domain"
	"social-chat/internal/websocket"
)

const roomPattern = "chat_*"

var errBadEnvelope = errors.New("relay: malformed envelope")

type envelope struct {
	ChatID  int64           `json:"chatId"`
	Exclude string          `json:"exclude,omitempty"`
	Frame   json.RawMessage `json:"frame"`
}

// Relay implements websocket.RoomPublisher on top of Redis
type Relay struct {
	rdb   *redis.Client
	local websocket.RoomPublisher
}

// New connects to the Redis server at redisURL
func New(redisURL string, local websocket.RoomPublisher) (*Relay, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewWithClient(redis.NewClient(opt), local), nil
}

// NewWithClient wraps an existing client
func NewWithClient(rdb *redis.Client, local websocket.RoomPublisher) *Relay {
	return &Relay{rdb: rdb, local: local}
}

// Ping checks the Redis connection
func (r *Relay) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

// PublishToRoom sends msg to every instance subscribed to its room
func (r *Relay) PublishToRoom(ctx context.Context, msg *websocket.RoomMessage) error {
	data, err := encodeEnvelope(msg)
	if err != nil {
		return err
	}
	if err := r.rdb.Publish(ctx, domain.RoomName(msg.ChatID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish to redis: %w", err)
	}
	return nil
}

// Run forwards subscribed room messages into the local hub until ctx ends
func (r *Relay) Run(ctx context.Context) error {
	pubsub := r.rdb.PSubscribe(ctx, roomPattern)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", roomPattern, err)
	}
	slog.Info("room relay subscribed", slog.String("pattern", roomPattern))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			msg, err := decodeEnvelope(m.Channel, m.Payload)
			if err != nil {
				slog.Warn("dropping relayed message",
					slog.String("channel", m.Channel),
					slog.String("error", err.Error()))
				continue
			}
			if err := r.local.PublishToRoom(ctx, msg); err != nil {
				return err
			}
		}
	}
}

// Close releases the Redis client
func (r *Relay) Close() error {
	return r.rdb.Close()
}

func encodeEnvelope(msg *websocket.RoomMessage) ([]byte, error) {
	if !json.Valid(msg.Payload) {
		return nil, errBadEnvelope
	}
	return json.Marshal(envelope{ChatID: msg.ChatID, Exclude: msg.ExcludeConnID, Frame: msg.Payload})
}

// decodeEnvelope rejects payloads whose chat id disagrees with the channel name
func decodeEnvelope(channel, payload string) (*websocket.RoomMessage, error) {
	var env envelope
	if err := json.Unmarshal([]byte(payload), &env); err != nil {
		return nil, fmt.Errorf("%w: %w", errBadEnvelope, err)
	}

	chatID, err := strconv.ParseInt(strings.TrimPrefix(channel, "chat_"), 10, 64)
	if err != nil || chatID != env.ChatID || len(env.Frame) == 0 {
		return nil, errBadEnvelope
	}

	return &websocket.RoomMessage{
		ChatID:        env.ChatID,
		Payload:       []byte(env.Frame),
		ExcludeConnID: env.Exclude,
	}, nil
}
