package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/transport/ws"
)

const (
	feedWriteWait = 10 * time.Second
	feedPing      = 30 * time.Second
)

// FeedHandler receives the server→client events the read loop dispatches.
// Nil callbacks are skipped.
type FeedHandler struct {
	OnMessage             func(domain.Message)
	OnMemberJoined        func(conversationID, userID uuid.UUID)
	OnConversationDeleted func(conversationID uuid.UUID)
	OnPresence            func(userID uuid.UUID, status string)
}

// Feed is the realtime side of the client: one WebSocket connection
// carrying subscription-filtered events. Implements Realtime.
type Feed struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// DialFeed connects to the realtime endpoint of the server at baseURL,
// authenticating with the session token.
func DialFeed(ctx context.Context, baseURL, token string) (*Feed, error) {
	wsURL := strings.Replace(baseURL, "http", "ws", 1) + "/ws?token=" + token
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing realtime feed: %w", err)
	}
	return &Feed{conn: conn, done: make(chan struct{})}, nil
}

// Listen reads events until the connection drops or ctx is cancelled.
// It blocks, so run it in its own goroutine.
func (f *Feed) Listen(ctx context.Context, h FeedHandler) error {
	go f.pingLoop(ctx)
	for {
		var event ws.Event
		if err := wsjson.Read(ctx, f.conn, &event); err != nil {
			f.Close()
			return err
		}
		f.dispatch(event, h)
	}
}

func (f *Feed) dispatch(event ws.Event, h FeedHandler) {
	switch event.Type {
	case ws.EventTypeMessageNew:
		if h.OnMessage == nil {
			return
		}
		var payload ws.MessagePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			log.Printf("realtime feed: bad message payload: %v", err)
			return
		}
		h.OnMessage(payload.Message)
	case ws.EventTypeMemberJoined:
		if h.OnMemberJoined == nil {
			return
		}
		var payload ws.MemberJoinedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		h.OnMemberJoined(payload.ConversationID, payload.UserID)
	case ws.EventTypeConversationDeleted:
		if h.OnConversationDeleted == nil {
			return
		}
		var payload ws.ConversationDeletedPayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		h.OnConversationDeleted(payload.ConversationID)
	case ws.EventTypePresence:
		if h.OnPresence == nil {
			return
		}
		var payload ws.PresencePayload
		if err := json.Unmarshal(event.Payload, &payload); err != nil {
			return
		}
		h.OnPresence(payload.UserID, payload.Status)
	case ws.EventTypeError:
		var payload ws.ErrorPayload
		if err := json.Unmarshal(event.Payload, &payload); err == nil {
			log.Printf("realtime feed: server error %s: %s", payload.Code, payload.Message)
		}
	case ws.EventTypePong:
	default:
		log.Printf("realtime feed: unknown event type %q", event.Type)
	}
}

// Subscribe implements Realtime. The returned handle unsubscribes on
// Release.
func (f *Feed) Subscribe(conversationID uuid.UUID) (*Subscription, error) {
	if err := f.write(ws.EventTypeSubscribe, conversationID); err != nil {
		return nil, err
	}
	return NewSubscription(conversationID, func() {
		if err := f.write(ws.EventTypeUnsubscribe, conversationID); err != nil {
			log.Printf("realtime feed: unsubscribe %s: %v", conversationID, err)
		}
	}), nil
}

func (f *Feed) write(eventType string, conversationID uuid.UUID) error {
	payload, err := json.Marshal(ws.SubscribePayload{ConversationID: conversationID})
	if err != nil {
		return err
	}
	event := ws.Event{Type: eventType, Payload: payload}

	ctx, cancel := context.WithTimeout(context.Background(), feedWriteWait)
	defer cancel()

	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return wsjson.Write(ctx, f.conn, &event)
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(feedPing)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, feedWriteWait)
			err := f.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		case <-ctx.Done():
			return
		case <-f.done:
			return
		}
	}
}

// Close tears the connection down. Safe to call more than once.
func (f *Feed) Close() {
	f.once.Do(func() {
		close(f.done)
		f.conn.Close(websocket.StatusNormalClosure, "client closing")
	})
}
