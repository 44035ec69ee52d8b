package websocket

import (
	"context"
	"errors"
	"log/slog"

	"social-chat/internal/observability"
)

// ErrHubClosed is returned once the hub has stopped running
var ErrHubClosed = errors.New("hub closed")

// RoomMessage is an encoded frame addressed to every connection joined to a chat.
// ExcludeConnID, when set, skips that one connection.
type RoomMessage struct {
	ChatID        int64
	Payload       []byte
	ExcludeConnID string
}

// RoomPublisher delivers frames to a room's broadcast group
type RoomPublisher interface {
	PublishToRoom(ctx context.Context, msg *RoomMessage) error
}

type membership struct {
	client *Client
	chatID int64
}

type roomQuery struct {
	chatID int64
	reply  chan int
}

// Hub owns all connection and room state. Only the Run goroutine touches the maps.
type Hub struct {
	clients map[*Client]map[int64]struct{}
	rooms   map[int64]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan *RoomMessage
	query      chan roomQuery

	// Shutdown signal
	done chan struct{}
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]map[int64]struct{}),
		rooms:      make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan *RoomMessage, 256),
		query:      make(chan roomQuery),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run(ctx context.Context) error {
	defer h.shutdown()

	for {
		select {
		case <-ctx.Done():
			slog.Info("hub shutting down gracefully")
			return ctx.Err()

		case client := <-h.register:
			h.clients[client] = make(map[int64]struct{})
			observability.WebSocketConnectionsActive.Inc()
			slog.Debug("client registered",
				slog.String("conn_id", client.id),
				slog.Int64("user_id", client.identity.UserID))

		case client := <-h.unregister:
			h.removeClient(client)

		case m := <-h.join:
			h.addToRoom(m.client, m.chatID)

		case m := <-h.leave:
			h.removeFromRoom(m.client, m.chatID)

		case msg := <-h.broadcast:
			h.deliver(msg)

		case q := <-h.query:
			q.reply <- len(h.rooms[q.chatID])
		}
	}
}

func (h *Hub) addToRoom(client *Client, chatID int64) {
	joined, ok := h.clients[client]
	if !ok {
		return
	}
	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[*Client]struct{})
		observability.WebSocketRoomsActive.Inc()
	}
	h.rooms[chatID][client] = struct{}{}
	joined[chatID] = struct{}{}
}

func (h *Hub) removeFromRoom(client *Client, chatID int64) {
	if joined, ok := h.clients[client]; ok {
		delete(joined, chatID)
	}
	members, ok := h.rooms[chatID]
	if !ok {
		return
	}
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, chatID)
		observability.WebSocketRoomsActive.Dec()
	}
}

// removeClient drops a connection and every room membership it held
func (h *Hub) removeClient(client *Client) {
	joined, ok := h.clients[client]
	if !ok {
		return
	}
	for chatID := range joined {
		h.removeFromRoom(client, chatID)
	}
	delete(h.clients, client)
	client.Close()
	observability.WebSocketConnectionsActive.Dec()
	slog.Debug("client unregistered",
		slog.String("conn_id", client.id),
		slog.Int64("user_id", client.identity.UserID))
}

func (h *Hub) deliver(msg *RoomMessage) {
	members, ok := h.rooms[msg.ChatID]
	if !ok {
		return
	}

	for client := range members {
		if msg.ExcludeConnID != "" && client.id == msg.ExcludeConnID {
			continue
		}
		if client.Enqueue(msg.Payload) {
			continue
		}
		if client.Closed() {
			continue
		}
		// Client's send buffer is full; drop the connection
		slog.Warn("client send buffer full, dropping connection",
			slog.String("conn_id", client.id),
			slog.Int64("chat_id", msg.ChatID))
		observability.WebSocketDroppedClients.Inc()
		h.removeClient(client)
	}
}

// shutdown closes every connection still registered
func (h *Hub) shutdown() {
	close(h.done)

	for client := range h.clients {
		client.Close()
	}
	observability.WebSocketConnectionsActive.Sub(float64(len(h.clients)))
	observability.WebSocketRoomsActive.Sub(float64(len(h.rooms)))
	h.clients = make(map[*Client]map[int64]struct{})
	h.rooms = make(map[int64]map[*Client]struct{})

	slog.Info("hub shutdown complete")
}

// Register adds a connection to the hub
func (h *Hub) Register(client *Client) error {
	select {
	case h.register <- client:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Unregister removes a connection from the hub and from all its rooms
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Join subscribes a registered connection to a chat's broadcast group.
// The membership is in place for every broadcast published after Join returns.
func (h *Hub) Join(client *Client, chatID int64) error {
	select {
	case h.join <- membership{client: client, chatID: chatID}:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// Leave unsubscribes a connection from a chat's broadcast group
func (h *Hub) Leave(client *Client, chatID int64) error {
	select {
	case h.leave <- membership{client: client, chatID: chatID}:
		return nil
	case <-h.done:
		return ErrHubClosed
	}
}

// PublishToRoom queues msg for delivery to the local members of its chat
func (h *Hub) PublishToRoom(ctx context.Context, msg *RoomMessage) error {
	select {
	case <-h.done:
		return ErrHubClosed
	default:
	}

	select {
	case h.broadcast <- msg:
		return nil
	case <-h.done:
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RoomSize returns how many local connections are joined to chatID
func (h *Hub) RoomSize(chatID int64) int {
	reply := make(chan int, 1)
	select {
	case h.query <- roomQuery{chatID: chatID, reply: reply}:
		return <-reply
	case <-h.done:
		return 0
	}
}
