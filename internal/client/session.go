package client

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
)

// State is the lifecycle of the selected conversation view.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateReady
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	default:
		return "idle"
	}
}

// Backend is the slice of the API the session drives directly.
type Backend interface {
	History(ctx context.Context, conversationID uuid.UUID) (*domain.Conversation, []domain.Message, error)
	SendMessage(ctx context.Context, conversationID uuid.UUID, content string, attachments []domain.Attachment) error
}

// Realtime acquires per-conversation subscription handles.
type Realtime interface {
	Subscribe(conversationID uuid.UUID) (*Subscription, error)
}

// Subscription is an owned realtime handle for one conversation.
// Release is idempotent.
type Subscription struct {
	ConversationID uuid.UUID

	once    sync.Once
	release func()
}

func NewSubscription(conversationID uuid.UUID, release func()) *Subscription {
	return &Subscription{ConversationID: conversationID, release: release}
}

func (s *Subscription) Release() {
	s.once.Do(func() {
		if s.release != nil {
			s.release()
		}
	})
}

// Session is the explicit context shared by the registry, stream and
// composer views: the current user, the single selected conversation
// id, and the map of owned subscription handles keyed by conversation
// id. The invariant is exactly one active handle per id, enforced by
// releasing the previous handle before acquiring the next.
type Session struct {
	CurrentUser domain.ProfileSummary

	backend  Backend
	realtime Realtime

	mu           sync.Mutex
	selected     uuid.UUID
	conversation *domain.Conversation
	timeline     *Timeline
	state        State
	subs         map[uuid.UUID]*Subscription
	loadCancel   context.CancelFunc
}

func NewSession(user domain.ProfileSummary, backend Backend, realtime Realtime) *Session {
	return &Session{
		CurrentUser: user,
		backend:     backend,
		realtime:    realtime,
		timeline:    NewTimeline(),
		subs:        make(map[uuid.UUID]*Subscription),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Selected() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Conversation returns the header metadata of the selected view.
func (s *Session) Conversation() *domain.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversation
}

func (s *Session) Messages() []domain.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timeline.Messages()
}

// Subscriptions returns the conversation ids with an active handle.
func (s *Session) Subscriptions() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]uuid.UUID, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	return ids
}

// Select switches the view to a conversation: it cancels any in-flight
// load, releases the previous subscription handle, loads the history
// and acquires the new handle. A load that resolves after the selection
// moved on is discarded instead of overwriting the current view.
func (s *Session) Select(ctx context.Context, conversationID uuid.UUID) error {
	s.mu.Lock()
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	if prev, ok := s.subs[s.selected]; ok && s.selected != conversationID {
		prev.Release()
		delete(s.subs, s.selected)
	}
	s.selected = conversationID
	s.conversation = nil
	s.timeline.Reset(nil)
	s.state = StateLoading

	loadCtx, cancel := context.WithCancel(ctx)
	s.loadCancel = cancel
	s.mu.Unlock()

	conv, msgs, err := s.backend.History(loadCtx, conversationID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if loadCtx.Err() != nil || s.selected != conversationID {
		// Stale result for a conversation that is no longer selected.
		return nil
	}
	if err != nil {
		// Re-selecting the current conversation can fail its reload
		// while the old handle is still held; Idle owns no handles.
		if sub, ok := s.subs[conversationID]; ok {
			sub.Release()
			delete(s.subs, conversationID)
		}
		s.state = StateIdle
		return err
	}

	s.conversation = conv
	s.timeline.Reset(msgs)

	if _, ok := s.subs[conversationID]; !ok {
		sub, err := s.realtime.Subscribe(conversationID)
		if err != nil {
			s.state = StateIdle
			return err
		}
		s.subs[conversationID] = sub
	}

	s.state = StateReady
	return nil
}

// Deselect releases the current handle and returns the view to Idle.
func (s *Session) Deselect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	if sub, ok := s.subs[s.selected]; ok {
		sub.Release()
		delete(s.subs, s.selected)
	}
	s.selected = uuid.Nil
	s.conversation = nil
	s.timeline.Reset(nil)
	s.state = StateIdle
}

// Close releases every owned handle.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadCancel != nil {
		s.loadCancel()
		s.loadCancel = nil
	}
	for id, sub := range s.subs {
		sub.Release()
		delete(s.subs, id)
	}
	s.state = StateIdle
}

// HandleMessage feeds one realtime insert event into the view. Events
// for other conversations are ignored. Reports whether the visible
// sequence changed.
func (s *Session) HandleMessage(msg domain.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady || msg.ConversationID != s.selected {
		return false
	}
	return s.timeline.Add(msg)
}

// Send submits a message. An empty trimmed content with no attachments
// is a local no-op: no call leaves the client. The sent message is not
// appended locally; it arrives through the realtime feed like any
// other insert.
func (s *Session) Send(ctx context.Context, content string, attachments []domain.Attachment) error {
	if strings.TrimSpace(content) == "" && len(attachments) == 0 {
		return nil
	}
	s.mu.Lock()
	conversationID := s.selected
	s.mu.Unlock()
	if conversationID == uuid.Nil {
		return nil
	}
	return s.backend.SendMessage(ctx, conversationID, content, attachments)
}
