package websocket

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"social-chat/internal/domain"
	"social-chat/internal/observability"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second // Must be less than pongWait
	maxMessageSize = 8192
	sendBufferSize = 256
)

// Client is one authenticated gateway connection. Identity is fixed at handshake.
type Client struct {
	id       string
	identity domain.Identity
	conn     *websocket.Conn
	hub      *Hub
	limiter  *rate.Limiter

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient binds a verified identity to an upgraded connection.
// eventsPerSecond and burst size the per-connection event budget.
func NewClient(hub *Hub, conn *websocket.Conn, identity domain.Identity, eventsPerSecond float64, burst int) *Client {
	return &Client{
		id:       uuid.NewString(),
		identity: identity,
		conn:     conn,
		hub:      hub,
		limiter:  rate.NewLimiter(rate.Limit(eventsPerSecond), burst),
		send:     make(chan []byte, sendBufferSize),
		done:     make(chan struct{}),
	}
}

// ID returns the connection id
func (c *Client) ID() string { return c.id }

// Identity returns the user bound to the connection
func (c *Client) Identity() domain.Identity { return c.identity }

// Enqueue queues a frame for the writer. It never blocks and reports
// false when the connection is closed or its buffer is full.
func (c *Client) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close stops the writer; safe to call more than once
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// Closed reports whether Close has been called
func (c *Client) Closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ReadPump reads frames and dispatches them in arrival order until the
// connection fails, then detaches the client from the hub.
func (c *Client) ReadPump(ctx context.Context, dispatcher *Dispatcher) {
	log := observability.FromContext(ctx)
	defer func() {
		c.hub.Unregister(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Warn("failed to set read deadline", slog.String("error", err.Error()))
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Warn("websocket read error", slog.String("error", err.Error()))
			}
			return
		}
		dispatcher.Handle(ctx, c, raw)
	}
}

// WritePump pumps queued frames to the connection and keeps it alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			if err := c.write(websocket.TextMessage, frame); err != nil {
				c.Close()
				return
			}

		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.Close()
				return
			}

		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// write is only called from WritePump, which makes it the single writer
func (c *Client) write(messageType int, data []byte) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}
