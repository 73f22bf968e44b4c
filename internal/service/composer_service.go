package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/repository"
	"golang.org/x/sync/errgroup"
)

var (
	ErrSelfConversation = errors.New("cannot start a conversation with yourself")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrGroupNameMissing = errors.New("group conversations need a name")
	ErrNoGroupMembers   = errors.New("group conversations need at least one other member")
)

// ComposerService starts new conversations, deduplicating direct chats
// against the existing pair.
type ComposerService struct {
	conversations repository.ConversationRepository
	directory     *DirectoryService
	notifier      Notifier
}

func NewComposerService(conversations repository.ConversationRepository, directory *DirectoryService) *ComposerService {
	return &ComposerService{
		conversations: conversations,
		directory:     directory,
	}
}

func (s *ComposerService) SetNotifier(n Notifier) {
	s.notifier = n
}

// ListCandidates returns every profile except the caller's, minus any
// profile that is already the counterpart of one of the caller's
// direct conversations.
func (s *ComposerService) ListCandidates(ctx context.Context, userID uuid.UUID) ([]domain.Profile, error) {
	profiles, err := s.directory.ListAllExcept(ctx, userID)
	if err != nil {
		return nil, err
	}

	convs, err := s.conversations.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	taken := make(map[uuid.UUID]struct{})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(resolveLimit)
	for i := range convs {
		if convs[i].IsGroup {
			continue
		}
		convID := convs[i].ID
		g.Go(func() error {
			counterpartID, err := s.conversations.GetCounterpartID(gctx, convID, userID)
			if err != nil {
				return err
			}
			if counterpartID != nil {
				mu.Lock()
				taken[*counterpartID] = struct{}{}
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	candidates := make([]domain.Profile, 0, len(profiles))
	for _, p := range profiles {
		if _, ok := taken[p.ID]; ok {
			continue
		}
		candidates = append(candidates, p)
	}
	return candidates, nil
}

// CreateDirect starts a direct conversation with the counterpart. The
// existence check runs at call time, not against any cached candidate
// list: when a direct conversation for the pair already exists it is
// returned with created=false and nothing is inserted.
func (s *ComposerService) CreateDirect(ctx context.Context, userID, counterpartID uuid.UUID) (conv *domain.Conversation, created bool, err error) {
	if userID == counterpartID {
		return nil, false, ErrSelfConversation
	}

	counterpart, err := s.directory.Lookup(ctx, counterpartID)
	if err != nil {
		return nil, false, err
	}
	if counterpart == nil {
		return nil, false, ErrProfileNotFound
	}

	existing, err := s.conversations.FindDirectByMembers(ctx, userID, counterpartID)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		existing.Counterpart = counterpart
		return existing, false, nil
	}

	conv = &domain.Conversation{
		ID:          uuid.New(),
		IsGroup:     false,
		CreatedBy:   userID,
		CreatedAt:   time.Now(),
		Counterpart: counterpart,
	}

	// Conversation plus both membership rows land in one batch. If a
	// concurrent create won the race, read back the winner instead.
	if err := s.conversations.Create(ctx, conv, []uuid.UUID{userID, counterpartID}); err != nil {
		if errors.Is(err, repository.ErrDuplicateDirect) {
			existing, lookupErr := s.conversations.FindDirectByMembers(ctx, userID, counterpartID)
			if lookupErr != nil {
				return nil, false, lookupErr
			}
			if existing != nil {
				existing.Counterpart = counterpart
				return existing, false, nil
			}
		}
		return nil, false, fmt.Errorf("creating conversation: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyMemberJoined(userID, conv.ID)
		s.notifier.NotifyMemberJoined(counterpartID, conv.ID)
	}

	return conv, true, nil
}

// CreateGroup starts a named group conversation containing the creator
// and the given members.
func (s *ComposerService) CreateGroup(ctx context.Context, userID uuid.UUID, name string, memberIDs []uuid.UUID) (*domain.Conversation, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrGroupNameMissing
	}

	members := []uuid.UUID{userID}
	seen := map[uuid.UUID]struct{}{userID: {}}
	for _, id := range memberIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		members = append(members, id)
	}
	if len(members) < 2 {
		return nil, ErrNoGroupMembers
	}

	conv := &domain.Conversation{
		ID:        uuid.New(),
		IsGroup:   true,
		Name:      &name,
		CreatedBy: userID,
		CreatedAt: time.Now(),
	}

	if err := s.conversations.Create(ctx, conv, members); err != nil {
		return nil, fmt.Errorf("creating group conversation: %w", err)
	}

	if s.notifier != nil {
		for _, id := range members {
			s.notifier.NotifyMemberJoined(id, conv.ID)
		}
	}

	return conv, nil
}
