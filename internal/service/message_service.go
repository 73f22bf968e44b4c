package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/repository"
	"golang.org/x/sync/errgroup"
)

var ErrEmptyMessage = errors.New("message needs content or attachments")

// MessageService loads conversation history and accepts sends. Realtime
// delivery back to clients goes through the Notifier only; Send never
// echoes into any client-side sequence itself.
type MessageService struct {
	messages      repository.MessageRepository
	conversations repository.ConversationRepository
	directory     *DirectoryService
	notifier      Notifier
}

func NewMessageService(messages repository.MessageRepository, conversations repository.ConversationRepository, directory *DirectoryService) *MessageService {
	return &MessageService{
		messages:      messages,
		conversations: conversations,
		directory:     directory,
	}
}

func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

// History returns the conversation (with counterpart resolved for the
// header) and its full message history in ascending created_at order,
// each message enriched with its sender profile. Sender lookups fan out
// one per message and join before returning.
func (s *MessageService) History(ctx context.Context, userID, conversationID uuid.UUID) (*domain.Conversation, []domain.Message, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}
	if conv == nil {
		return nil, nil, ErrConversationNotFound
	}

	ok, err := s.conversations.IsMember(ctx, conversationID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNotMember
	}

	msgs, err := s.messages.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveLimit)
	for i := range msgs {
		if msgs[i].SenderID == nil {
			continue
		}
		msg := &msgs[i]
		g.Go(func() error {
			msg.Sender = s.directory.Resolve(gctx, *msg.SenderID)
			return nil
		})
	}
	if !conv.IsGroup {
		g.Go(func() error {
			counterpartID, err := s.conversations.GetCounterpartID(gctx, conversationID, userID)
			if err != nil {
				return err
			}
			if counterpartID != nil {
				conv.Counterpart = s.directory.Resolve(gctx, *counterpartID)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if msgs == nil {
		msgs = []domain.Message{}
	}
	return conv, msgs, nil
}

// Send inserts a message. An empty trimmed content with no attachments
// is rejected before any store call. Content is persisted trimmed or
// NULL; attachments as the given list or NULL, never an empty list.
func (s *MessageService) Send(ctx context.Context, senderID, conversationID uuid.UUID, content string, attachments []domain.Attachment) (*domain.Message, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" && len(attachments) == 0 {
		return nil, ErrEmptyMessage
	}

	for i := range attachments {
		if err := attachments[i].Validate(); err != nil {
			return nil, err
		}
	}

	ok, err := s.conversations.IsMember(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}

	msg := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SenderID:       &senderID,
		CreatedAt:      time.Now(),
	}
	if trimmed != "" {
		msg.Content = &trimmed
	}
	if len(attachments) > 0 {
		msg.Attachments = attachments
	}

	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}

	msg.Sender = s.directory.Resolve(ctx, senderID)

	if s.notifier != nil {
		s.notifier.NotifyNewMessage(msg)
	}

	return msg, nil
}
