package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"social-chat/internal/domain"
	"social-chat/internal/observability"
)

const defaultOperationTimeout = 10 * time.Second

// Deps are the collaborators the gateway delegates to
type Deps struct {
	Participants domain.ParticipantReader
	Messages     domain.MessageStore
	Reads        domain.ReadMarker
	// Rooms delivers broadcasts; the hub itself when nil
	Rooms RoomPublisher
}

type handlerFunc func(ctx context.Context, c *Client, payload interface{}) (interface{}, error)

type route struct {
	newPayload func() interface{}
	handle     handlerFunc
}

// Dispatcher decodes inbound frames, runs the guard chain and invokes handlers
type Dispatcher struct {
	hub     *Hub
	deps    Deps
	chain   []Interceptor
	routes  map[string]route
	timeout time.Duration
}

// NewDispatcher wires the event handlers against deps
func NewDispatcher(hub *Hub, deps Deps) *Dispatcher {
	if deps.Rooms == nil {
		deps.Rooms = hub
	}

	d := &Dispatcher{
		hub:     hub,
		deps:    deps,
		timeout: defaultOperationTimeout,
	}
	d.chain = []Interceptor{
		RequireIdentity(),
		ValidatePayload(validator.New(validator.WithRequiredStructEnabled())),
		RateLimit(),
		RequireParticipant(deps.Participants, EventLeaveRoom),
	}
	d.routes = map[string]route{
		EventJoinRoom:      {func() interface{} { return &RoomPayload{} }, d.joinRoom},
		EventLeaveRoom:     {func() interface{} { return &RoomPayload{} }, d.leaveRoom},
		EventSendMessage:   {func() interface{} { return &SendMessagePayload{} }, d.sendMessage},
		EventEditMessage:   {func() interface{} { return &EditMessagePayload{} }, d.editMessage},
		EventDeleteMessage: {func() interface{} { return &DeleteMessagePayload{} }, d.deleteMessage},
		EventMessageRead:   {func() interface{} { return &MessageReadPayload{} }, d.messageRead},
		EventTyping:        {func() interface{} { return &RoomPayload{} }, d.typing(EventUserTyping)},
		EventStopTyping:    {func() interface{} { return &RoomPayload{} }, d.typing(EventUserStopTyping)},
	}
	return d
}

// Handle processes one raw frame from c. Replies go only to c.
func (d *Dispatcher) Handle(ctx context.Context, c *Client, raw []byte) {
	log := observability.FromContext(ctx)

	var frame InboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		log.Debug("malformed frame", slog.String("error", err.Error()))
		d.reject(c, &frame, ReasonInvalidPayload)
		return
	}

	r, ok := d.routes[frame.Event]
	if !ok {
		observability.WebSocketEventsTotal.WithLabelValues("unknown", "denied").Inc()
		d.reject(c, &frame, "unknown event")
		return
	}

	payload := r.newPayload()
	if len(frame.Data) > 0 {
		if err := json.Unmarshal(frame.Data, payload); err != nil {
			observability.WebSocketEventsTotal.WithLabelValues(frame.Event, "denied").Inc()
			d.reject(c, &frame, ReasonInvalidPayload)
			return
		}
	}

	req := &Request{Client: c, Event: frame.Event, Payload: payload}
	for _, intercept := range d.chain {
		if decision := intercept(ctx, req); !decision.Allowed {
			observability.WebSocketEventsTotal.WithLabelValues(frame.Event, "denied").Inc()
			d.reject(c, &frame, decision.Reason)
			return
		}
	}

	// A disconnect must not abort persistence or the broadcast that follows it
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
	defer cancel()

	result, err := r.handle(opCtx, c, payload)
	if err != nil {
		log.Warn("event failed",
			slog.String("event", frame.Event),
			slog.String("error", err.Error()))
		observability.WebSocketEventsTotal.WithLabelValues(frame.Event, "error").Inc()
		d.reject(c, &frame, reasonFor(err))
		return
	}

	observability.WebSocketEventsTotal.WithLabelValues(frame.Event, "ok").Inc()
	if frame.Ack != nil && result != nil {
		d.reply(c, frame.Ack, result)
	}
}

func (d *Dispatcher) reject(c *Client, frame *InboundFrame, reason string) {
	if frame.Ack != nil {
		d.reply(c, frame.Ack, ErrorAck{Error: reason})
		return
	}
	data, err := encodeFrame(EventError, nil, ErrorEvent{Event: frame.Event, Error: reason})
	if err != nil {
		return
	}
	c.Enqueue(data)
}

func (d *Dispatcher) reply(c *Client, ack *int64, body interface{}) {
	data, err := encodeFrame(EventAck, ack, body)
	if err != nil {
		slog.Error("failed to marshal ack", slog.String("error", err.Error()))
		return
	}
	c.Enqueue(data)
}

// broadcast encodes data as event and publishes it to chatID
func (d *Dispatcher) broadcast(ctx context.Context, chatID int64, event string, data interface{}, exclude string) error {
	payload, err := encodeFrame(event, nil, data)
	if err != nil {
		return err
	}
	if err := d.deps.Rooms.PublishToRoom(ctx, &RoomMessage{ChatID: chatID, Payload: payload, ExcludeConnID: exclude}); err != nil {
		return err
	}
	observability.WebSocketBroadcastsTotal.WithLabelValues(event).Inc()
	return nil
}

func (d *Dispatcher) joinRoom(ctx context.Context, c *Client, payload interface{}) (interface{}, error) {
	p := payload.(*RoomPayload)
	if err := d.hub.Join(c, p.ChatID); err != nil {
		return nil, err
	}
	observability.FromContext(ctx).Debug("joined room", slog.Int64("chat_id", p.ChatID))
	return JoinAck{Joined: true, Room: domain.RoomName(p.ChatID)}, nil
}

func (d *Dispatcher) leaveRoom(ctx context.Context, c *Client, payload interface{}) (interface{}, error) {
	p := payload.(*RoomPayload)
	if err := d.hub.Leave(c, p.ChatID); err != nil {
		return nil, err
	}
	return LeaveAck{Left: true, Room: domain.RoomName(p.ChatID)}, nil
}

func (d *Dispatcher) sendMessage(ctx context.Context, c *Client, payload interface{}) (interface{}, error) {
	p := payload.(*SendMessagePayload)
	msg, err := d.deps.Messages.Save(ctx, p.ChatID, c.identity.UserID, p.ReceiverID, p.Text)
	if err != nil {
		return nil, err
	}

	if err := d.broadcast(ctx, p.ChatID, EventNewMessage, msg, ""); err != nil {
		observability.FromContext(ctx).Warn("stored message not broadcast",
			slog.Int64("message_id", msg.ID),
			slog.String("error", err.Error()))
	}
	return DeliveredAck{Delivered: true}, nil
}

func (d *Dispatcher) editMessage(ctx context.Context, c *Client, payload interface{}) (interface{}, error) {
	p := payload.(*EditMessagePayload)
	msg, err := d.deps.Messages.Edit(ctx, p.MessageID, p.ChatID, c.identity.UserID, p.Text)
	if err != nil {
		return nil, err
	}

	if err := d.broadcast(ctx, p.ChatID, EventMessageEdited, msg, ""); err != nil {
		return nil, err
	}
	return OKAck{OK: true}, nil
}

func (d *Dispatcher) deleteMessage(ctx context.Context, c *Client, payload interface{}) (interface{}, error) {
	p := payload.(*DeleteMessagePayload)
	deleted, err := d.deps.Messages.Delete(ctx, p.MessageID, p.ChatID, c.identity.UserID)
	if err != nil {
		return nil, err
	}
	if !deleted {
		return nil, domain.ErrMessageNotFound
	}

	if err := d.broadcast(ctx, p.ChatID, EventMessageDeleted, MessageDeleted{ChatID: p.ChatID, MessageID: p.MessageID}, ""); err != nil {
		return nil, err
	}
	return OKAck{OK: true}, nil
}

func (d *Dispatcher) messageRead(ctx context.Context, c *Client, payload interface{}) (interface{}, error) {
	p := payload.(*MessageReadPayload)
	if err := d.deps.Reads.MarkRead(ctx, p.MessageID, p.ChatID); err != nil {
		return nil, err
	}

	receipt := ReadReceipt{MessageID: p.MessageID, UserID: c.identity.UserID}
	if err := d.broadcast(ctx, p.ChatID, EventMessageReadBroadcast, receipt, ""); err != nil {
		return nil, err
	}
	return OKAck{OK: true}, nil
}

// typing relays presence to the other members; the sender gets no reply
func (d *Dispatcher) typing(event string) handlerFunc {
	return func(ctx context.Context, c *Client, payload interface{}) (interface{}, error) {
		p := payload.(*RoomPayload)
		notice := TypingNotice{ChatID: p.ChatID, UserID: c.identity.UserID}
		return nil, d.broadcast(ctx, p.ChatID, event, notice, c.id)
	}
}
