package ws

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/metrics"
	"github.com/mivanic/parley/internal/presence"
)

const presenceRefresh = time.Minute

// Hub manages all connected WebSocket clients and routes events to the
// subscribers of each conversation. It is the realtime change feed:
// subscriptions are keyed by conversation id and deliver insert events
// as they commit.
type Hub struct {
	// clients maps userID → client.
	clients map[uuid.UUID]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg

	presence *presence.Tracker
}

type broadcastMsg struct {
	conversationID *uuid.UUID // nil: filter by user instead
	userID         *uuid.UUID
	data           []byte
}

func NewHub(tracker *presence.Tracker) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		presence:   tracker,
	}
}

// Run starts the Hub's main event loop. Call this in a goroutine.
func (h *Hub) Run() {
	ticker := time.NewTicker(presenceRefresh)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.register:
			h.clients[client.userID] = client
			metrics.WSConnections.Set(float64(len(h.clients)))
			log.Printf("ws hub: user %s connected (%d total)", client.userID, len(h.clients))

			h.setPresence(client.userID, true)
			h.broadcastPresence(client.userID, "online")

		case client := <-h.unregister:
			if _, ok := h.clients[client.userID]; ok {
				delete(h.clients, client.userID)
				close(client.send)
				close(client.done)
				metrics.WSConnections.Set(float64(len(h.clients)))
				log.Printf("ws hub: user %s disconnected (%d total)", client.userID, len(h.clients))

				h.setPresence(client.userID, false)
				h.broadcastPresence(client.userID, "offline")
			}

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-ticker.C:
			// Keep presence entries alive while clients stay connected.
			for userID := range h.clients {
				h.setPresence(userID, true)
			}
		}
	}
}

func (h *Hub) deliver(msg *broadcastMsg) {
	for _, client := range h.clients {
		if msg.userID != nil && client.userID != *msg.userID {
			continue
		}
		if msg.conversationID != nil && !client.IsSubscribed(*msg.conversationID) {
			continue
		}
		select {
		case client.send <- msg.data:
		default:
			// Client buffer full - disconnect
			delete(h.clients, client.userID)
			close(client.send)
			close(client.done)
			metrics.WSConnections.Set(float64(len(h.clients)))
		}
	}
}

// BroadcastToConversation sends an event to every subscriber of a
// conversation, the originating user included.
func (h *Hub) BroadcastToConversation(conversationID uuid.UUID, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	metrics.RealtimeEvents.WithLabelValues(event.Type).Inc()
	h.broadcast <- &broadcastMsg{conversationID: &conversationID, data: data}
}

// BroadcastToUser sends an event directly to a specific user,
// regardless of conversation subscriptions.
func (h *Hub) BroadcastToUser(userID uuid.UUID, event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("ws hub: marshal error: %v", err)
		return
	}
	metrics.RealtimeEvents.WithLabelValues(event.Type).Inc()
	h.broadcast <- &broadcastMsg{userID: &userID, data: data}
}

func (h *Hub) setPresence(userID uuid.UUID, online bool) {
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	var err error
	if online {
		err = h.presence.SetOnline(ctx, userID)
	} else {
		err = h.presence.SetOffline(ctx, userID)
	}
	if err != nil {
		log.Printf("ws hub: presence update for %s: %v", userID, err)
	}
}

// broadcastPresence sends online/offline to all other connected clients.
func (h *Hub) broadcastPresence(userID uuid.UUID, status string) {
	evt, err := NewEvent(EventTypePresence, nil, PresencePayload{
		UserID: userID,
		Status: status,
	})
	if err != nil {
		return
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return
	}
	for _, client := range h.clients {
		if client.userID == userID {
			continue
		}
		select {
		case client.send <- data:
		default:
		}
	}
}
