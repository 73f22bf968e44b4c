package domain

import (
	"time"

	"github.com/google/uuid"
)

type Message struct {
	ID             uuid.UUID    `json:"id"`
	ConversationID uuid.UUID    `json:"conversation_id"`
	SenderID       *uuid.UUID   `json:"sender_id,omitempty"` // nil for system messages
	Content        *string      `json:"content,omitempty"`
	Attachments    []Attachment `json:"attachments,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
	// Sender is resolved by the message stream, not stored.
	Sender *ProfileSummary `json:"sender,omitempty"`
}

// Before orders messages by creation time with the id as tiebreak, so
// the timeline stays stable for equal timestamps.
func (m *Message) Before(other *Message) bool {
	if m.CreatedAt.Equal(other.CreatedAt) {
		return m.ID.String() < other.ID.String()
	}
	return m.CreatedAt.Before(other.CreatedAt)
}
