package service

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/repository"
)

// In-memory repository fakes backing the service tests.

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]domain.Profile
}

func newFakeProfileRepo(profiles ...domain.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[uuid.UUID]domain.Profile)}
	for _, p := range profiles {
		r.profiles[p.ID] = p
	}
	return r
}

func (r *fakeProfileRepo) Create(ctx context.Context, profile *domain.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profiles[profile.ID] = *profile
	return nil
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeProfileRepo) GetByEmail(ctx context.Context, email string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Email == email {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakeProfileRepo) GetByUsername(ctx context.Context, username string) (*domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.Username == username {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (r *fakeProfileRepo) ListAllExcept(ctx context.Context, id uuid.UUID) ([]domain.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Profile
	for _, p := range r.profiles {
		if p.ID != id {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

type fakeConversationRepo struct {
	mu       sync.Mutex
	convs    map[uuid.UUID]domain.Conversation
	members  map[uuid.UUID][]uuid.UUID
	messages *fakeMessageRepo // cascade target, may be nil

	deleted [][]uuid.UUID
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		convs:   make(map[uuid.UUID]domain.Conversation),
		members: make(map[uuid.UUID][]uuid.UUID),
	}
}

func (r *fakeConversationRepo) Create(ctx context.Context, conv *domain.Conversation, memberIDs []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !conv.IsGroup {
		for id := range r.convs {
			if r.convs[id].IsGroup {
				continue
			}
			if samePair(r.members[id], memberIDs) {
				return repository.ErrDuplicateDirect
			}
		}
	}
	stored := *conv
	stored.Counterpart = nil
	r.convs[conv.ID] = stored
	r.members[conv.ID] = append([]uuid.UUID(nil), memberIDs...)
	return nil
}

func samePair(a, b []uuid.UUID) bool {
	if len(a) != 2 || len(b) != 2 {
		return false
	}
	return (a[0] == b[0] && a[1] == b[1]) || (a[0] == b[1] && a[1] == b[0])
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conv, ok := r.convs[id]
	if !ok {
		return nil, nil
	}
	return &conv, nil
}

func (r *fakeConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Conversation
	for id, conv := range r.convs {
		for _, m := range r.members[id] {
			if m == userID {
				out = append(out, conv)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeConversationRepo) GetCounterpartID(ctx context.Context, conversationID, userID uuid.UUID) (*uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members[conversationID] {
		if m != userID {
			m := m
			return &m, nil
		}
	}
	return nil, nil
}

func (r *fakeConversationRepo) FindDirectByMembers(ctx context.Context, userID, counterpartID uuid.UUID) (*domain.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, conv := range r.convs {
		if conv.IsGroup {
			continue
		}
		if samePair(r.members[id], []uuid.UUID{userID, counterpartID}) {
			return &conv, nil
		}
	}
	return nil, nil
}

func (r *fakeConversationRepo) IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.members[conversationID] {
		if m == userID {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeConversationRepo) ListMemberIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uuid.UUID(nil), r.members[conversationID]...), nil
}

func (r *fakeConversationRepo) DeleteCascade(ctx context.Context, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if r.messages != nil {
			r.messages.deleteByConversation(id)
		}
		delete(r.members, id)
		delete(r.convs, id)
	}
	r.deleted = append(r.deleted, ids)
	return nil
}

type fakeMessageRepo struct {
	mu      sync.Mutex
	msgs    []domain.Message
	creates int
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	stored := *msg
	stored.Sender = nil
	r.msgs = append(r.msgs, stored)
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.msgs {
		if r.msgs[i].ID == id {
			msg := r.msgs[i]
			return &msg, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Message
	for _, m := range r.msgs {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(&out[j]) })
	return out, nil
}

func (r *fakeMessageRepo) deleteByConversation(conversationID uuid.UUID) {
	kept := r.msgs[:0]
	for _, m := range r.msgs {
		if m.ConversationID != conversationID {
			kept = append(kept, m)
		}
	}
	r.msgs = kept
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages []*domain.Message
	joined   []uuid.UUID
	deleted  []uuid.UUID
}

func (n *fakeNotifier) NotifyNewMessage(msg *domain.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, msg)
}

func (n *fakeNotifier) NotifyMemberJoined(userID, conversationID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.joined = append(n.joined, conversationID)
}

func (n *fakeNotifier) NotifyConversationDeleted(conversationID uuid.UUID, memberIDs []uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.deleted = append(n.deleted, conversationID)
}
