package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/repository"
	"golang.org/x/sync/errgroup"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotMember            = errors.New("you are not a member of this conversation")
	ErrNothingSelected      = errors.New("no conversations selected")
)

// resolveLimit bounds the counterpart/sender lookup fan-out.
const resolveLimit = 8

// RegistryService lists a user's conversations with resolved display
// metadata and performs bulk deletion.
type RegistryService struct {
	conversations repository.ConversationRepository
	directory     *DirectoryService
	notifier      Notifier
}

func NewRegistryService(conversations repository.ConversationRepository, directory *DirectoryService) *RegistryService {
	return &RegistryService{
		conversations: conversations,
		directory:     directory,
	}
}

func (s *RegistryService) SetNotifier(n Notifier) {
	s.notifier = n
}

// List returns every conversation the user belongs to. For each direct
// conversation the counterpart membership row and its profile are
// resolved concurrently; a missing counterpart degrades to the
// placeholder instead of failing the listing.
func (s *RegistryService) List(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	convs, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveLimit)
	for i := range convs {
		if convs[i].IsGroup {
			continue
		}
		conv := &convs[i]
		g.Go(func() error {
			counterpartID, err := s.conversations.GetCounterpartID(gctx, conv.ID, userID)
			if err != nil {
				return err
			}
			if counterpartID == nil {
				return nil
			}
			conv.Counterpart = s.directory.Resolve(gctx, *counterpartID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if convs == nil {
		convs = []domain.Conversation{}
	}
	return convs, nil
}

// BulkDelete removes the given conversations. For each id the cascade
// runs messages, then memberships, then the conversation row, in one
// transaction per call. Every id must belong to the calling user.
func (s *RegistryService) BulkDelete(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return ErrNothingSelected
	}

	members := make(map[uuid.UUID][]uuid.UUID, len(ids))
	for _, id := range ids {
		ok, err := s.conversations.IsMember(ctx, id, userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrNotMember
		}
		ms, err := s.conversations.ListMemberIDs(ctx, id)
		if err != nil {
			return err
		}
		members[id] = ms
	}

	if err := s.conversations.DeleteCascade(ctx, ids); err != nil {
		return fmt.Errorf("deleting conversations: %w", err)
	}

	if s.notifier != nil {
		for _, id := range ids {
			s.notifier.NotifyConversationDeleted(id, members[id])
		}
	}

	return nil
}
