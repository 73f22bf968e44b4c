package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
)

// Event types - Client → Server
const (
	EventTypeSubscribe   = "conversation.subscribe"
	EventTypeUnsubscribe = "conversation.unsubscribe"
	EventTypePing        = "ping"
)

// Event types - Server → Client
const (
	EventTypeMessageNew          = "message.new"
	EventTypeMemberJoined        = "conversation.joined"
	EventTypeConversationDeleted = "conversation.deleted"
	EventTypePresence            = "presence"
	EventTypePong                = "pong"
	EventTypeError               = "error"
)

// Event is the envelope for all WebSocket traffic. ConversationID set
// on server→client events names the filtered slice the event belongs to.
type Event struct {
	Type           string          `json:"type"`
	ConversationID *uuid.UUID      `json:"conversation_id,omitempty"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      int64           `json:"ts,omitempty"`
}

// --- Client → Server payloads ---

type SubscribePayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

// --- Server → Client payloads ---

type MessagePayload struct {
	domain.Message
}

type MemberJoinedPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
	UserID         uuid.UUID `json:"user_id"`
}

type ConversationDeletedPayload struct {
	ConversationID uuid.UUID `json:"conversation_id"`
}

type PresencePayload struct {
	UserID uuid.UUID `json:"user_id"`
	Status string    `json:"status"` // "online" | "offline"
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewEvent creates a server→client event with the current timestamp.
func NewEvent(eventType string, conversationID *uuid.UUID, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:           eventType,
		ConversationID: conversationID,
		Payload:        data,
		Timestamp:      time.Now().Unix(),
	}, nil
}
