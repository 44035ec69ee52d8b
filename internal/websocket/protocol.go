package websocket

import (
	"encoding/json"

	"social-chat/internal/domain"
)

// Inbound events
const (
	EventJoinRoom      = "join_room"
	EventLeaveRoom     = "leave_room"
	EventSendMessage   = "send_message"
	EventEditMessage   = "edit_message"
	EventDeleteMessage = "delete_message"
	EventMessageRead   = "message_read"
	EventTyping        = "typing"
	EventStopTyping    = "stop_typing"
)

// Outbound events
const (
	EventAck                  = "ack"
	EventError                = "error"
	EventNewMessage           = "new_message"
	EventMessageEdited        = "message_edited"
	EventMessageDeleted       = "message_deleted"
	EventMessageReadBroadcast = "message_read_broadcast"
	EventUserTyping           = "user_typing"
	EventUserStopTyping       = "user_stop_typing"
)

// InboundFrame is a client event. Ack, when present, is echoed on the reply.
type InboundFrame struct {
	Event string          `json:"event"`
	Ack   *int64          `json:"ack,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// OutboundFrame is an ack, error or room broadcast sent to a client
type OutboundFrame struct {
	Event string      `json:"event"`
	Ack   *int64      `json:"ack,omitempty"`
	Data  interface{} `json:"data,omitempty"`
}

// roomScoped is implemented by payloads that name a chat
type roomScoped interface {
	Room() int64
}

// RoomPayload carries just the target chat
type RoomPayload struct {
	ChatID int64 `json:"chatId" validate:"required,gt=0"`
}

func (p *RoomPayload) Room() int64 { return p.ChatID }

type SendMessagePayload struct {
	ChatID     int64  `json:"chatId" validate:"required,gt=0"`
	ReceiverID *int64 `json:"receiverId" validate:"omitempty,gt=0"`
	Text       string `json:"text" validate:"required,max=4000"`
}

func (p *SendMessagePayload) Room() int64 { return p.ChatID }

type EditMessagePayload struct {
	ChatID    int64  `json:"chatId" validate:"required,gt=0"`
	MessageID int64  `json:"messageId" validate:"required,gt=0"`
	Text      string `json:"text" validate:"required,max=4000"`
}

func (p *EditMessagePayload) Room() int64 { return p.ChatID }

type DeleteMessagePayload struct {
	ChatID    int64 `json:"chatId" validate:"required,gt=0"`
	MessageID int64 `json:"messageId" validate:"required,gt=0"`
}

func (p *DeleteMessagePayload) Room() int64 { return p.ChatID }

type MessageReadPayload struct {
	MessageID int64 `json:"messageId" validate:"required,gt=0"`
	ChatID    int64 `json:"chatId" validate:"required,gt=0"`
}

func (p *MessageReadPayload) Room() int64 { return p.ChatID }

// Ack bodies

type JoinAck struct {
	Joined bool   `json:"joined"`
	Room   string `json:"room"`
}

type LeaveAck struct {
	Left bool   `json:"left"`
	Room string `json:"room"`
}

type DeliveredAck struct {
	Delivered bool `json:"delivered"`
}

type OKAck struct {
	OK bool `json:"ok"`
}

type ErrorAck struct {
	Error string `json:"error"`
}

// ErrorEvent reports a rejected event that carried no ack id
type ErrorEvent struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

// Broadcast bodies

type ReadReceipt struct {
	MessageID int64 `json:"messageId"`
	UserID    int64 `json:"userId"`
}

type TypingNotice struct {
	ChatID int64 `json:"chatId"`
	UserID int64 `json:"userId"`
}

type MessageDeleted struct {
	ChatID    int64 `json:"chatId"`
	MessageID int64 `json:"messageId"`
}

// newMessageEvent wraps a stored message for room delivery
func newMessageEvent(event string, msg *domain.Message) ([]byte, error) {
	return encodeFrame(event, nil, msg)
}

func encodeFrame(event string, ack *int64, data interface{}) ([]byte, error) {
	return json.Marshal(OutboundFrame{Event: event, Ack: ack, Data: data})
}
