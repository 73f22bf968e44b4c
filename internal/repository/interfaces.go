package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/mivanic/parley/internal/domain"
)

// ErrDuplicateDirect is returned by ConversationRepository.Create when a
// direct conversation for the same pair already exists.
var ErrDuplicateDirect = errors.New("direct conversation already exists")

type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetByEmail(ctx context.Context, email string) (*domain.Profile, error)
	GetByUsername(ctx context.Context, username string) (*domain.Profile, error)
	ListAllExcept(ctx context.Context, id uuid.UUID) ([]domain.Profile, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, conv *domain.Conversation, memberIDs []uuid.UUID) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error)
	GetCounterpartID(ctx context.Context, conversationID, userID uuid.UUID) (*uuid.UUID, error)
	FindDirectByMembers(ctx context.Context, userID, counterpartID uuid.UUID) (*domain.Conversation, error)
	IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	ListMemberIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error)
	// DeleteCascade removes messages, then memberships, then the
	// conversation rows for every id, inside a single transaction.
	DeleteCascade(ctx context.Context, ids []uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error)
}
