package ws

import (
	"log"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
)

// HubNotifier implements service.Notifier using the WebSocket Hub.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(msg *domain.Message) {
	evt, err := NewEvent(EventTypeMessageNew, &msg.ConversationID, MessagePayload{Message: *msg})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToConversation(msg.ConversationID, evt)
}

func (n *HubNotifier) NotifyMemberJoined(userID, conversationID uuid.UUID) {
	evt, err := NewEvent(EventTypeMemberJoined, &conversationID, MemberJoinedPayload{
		ConversationID: conversationID,
		UserID:         userID,
	})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	n.hub.BroadcastToUser(userID, evt)
}

func (n *HubNotifier) NotifyConversationDeleted(conversationID uuid.UUID, memberIDs []uuid.UUID) {
	evt, err := NewEvent(EventTypeConversationDeleted, &conversationID, ConversationDeletedPayload{
		ConversationID: conversationID,
	})
	if err != nil {
		log.Printf("ws notifier: marshal error: %v", err)
		return
	}
	for _, userID := range memberIDs {
		n.hub.BroadcastToUser(userID, evt)
	}
}
