package service

import (
	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
)

// Notifier delivers realtime change events. The WebSocket hub provides
// the implementation; services stay transport-agnostic.
type Notifier interface {
	// NotifyNewMessage fans a committed message insert out to every
	// subscriber of its conversation, the sender included. There is no
	// optimistic local echo anywhere; this event is the delivery path.
	NotifyNewMessage(msg *domain.Message)
	// NotifyMemberJoined tells a user that a membership row now exists
	// for them, so their registry can re-list.
	NotifyMemberJoined(userID, conversationID uuid.UUID)
	// NotifyConversationDeleted tells former members the conversation
	// is gone.
	NotifyConversationDeleted(conversationID uuid.UUID, memberIDs []uuid.UUID)
}
