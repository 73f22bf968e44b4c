package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mivanic/parley/internal/domain"
	"github.com/mivanic/parley/internal/repository"
)

type ConversationRepo struct {
	pool *pgxpool.Pool
}

func NewConversationRepo(pool *pgxpool.Pool) *ConversationRepo {
	return &ConversationRepo{pool: pool}
}

// Create inserts the conversation and its membership rows in one
// transaction, so a half-created conversation can never be observed.
// Direct conversations get a canonical pair key backed by a unique
// index, which turns the concurrent-create race into ErrDuplicateDirect.
func (r *ConversationRepo) Create(ctx context.Context, conv *domain.Conversation, memberIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO conversations (id, is_group, name, avatar_url, created_by, created_at, direct_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		conv.ID, conv.IsGroup, conv.Name, conv.AvatarURL, conv.CreatedBy, conv.CreatedAt,
		directKey(conv.IsGroup, memberIDs),
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return repository.ErrDuplicateDirect
		}
		return err
	}

	for _, userID := range memberIDs {
		_, err = tx.Exec(ctx, `
			INSERT INTO conversation_members (conversation_id, user_id)
			VALUES ($1, $2)`,
			conv.ID, userID,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// directKey is the canonical identity of a direct pair: both member ids
// sorted and joined, nil for groups.
func directKey(isGroup bool, memberIDs []uuid.UUID) *string {
	if isGroup || len(memberIDs) != 2 {
		return nil
	}
	a, b := memberIDs[0].String(), memberIDs[1].String()
	if a > b {
		a, b = b, a
	}
	key := strings.Join([]string{a, b}, ":")
	return &key
}

func (r *ConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, is_group, name, avatar_url, created_by, created_at
		FROM conversations
		WHERE id = $1`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&conv.ID, &conv.IsGroup, &conv.Name, &conv.AvatarURL, &conv.CreatedBy, &conv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Conversation, error) {
	query := `
		SELECT c.id, c.is_group, c.name, c.avatar_url, c.created_by, c.created_at
		FROM conversations c
		JOIN conversation_members m ON m.conversation_id = c.id
		WHERE m.user_id = $1
		ORDER BY c.created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var convs []domain.Conversation
	for rows.Next() {
		var conv domain.Conversation
		if err := rows.Scan(
			&conv.ID, &conv.IsGroup, &conv.Name, &conv.AvatarURL, &conv.CreatedBy, &conv.CreatedAt,
		); err != nil {
			return nil, err
		}
		convs = append(convs, conv)
	}
	return convs, rows.Err()
}

// GetCounterpartID returns the other membership row of a direct
// conversation, or nil when there is none.
func (r *ConversationRepo) GetCounterpartID(ctx context.Context, conversationID, userID uuid.UUID) (*uuid.UUID, error) {
	query := `
		SELECT user_id
		FROM conversation_members
		WHERE conversation_id = $1 AND user_id <> $2
		LIMIT 1`
	var id uuid.UUID
	err := r.pool.QueryRow(ctx, query, conversationID, userID).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// FindDirectByMembers looks up an existing non-group conversation whose
// two members are exactly the given pair.
func (r *ConversationRepo) FindDirectByMembers(ctx context.Context, userID, counterpartID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT c.id, c.is_group, c.name, c.avatar_url, c.created_by, c.created_at
		FROM conversations c
		JOIN conversation_members m1 ON m1.conversation_id = c.id AND m1.user_id = $1
		JOIN conversation_members m2 ON m2.conversation_id = c.id AND m2.user_id = $2
		WHERE c.is_group = FALSE
		LIMIT 1`
	var conv domain.Conversation
	err := r.pool.QueryRow(ctx, query, userID, counterpartID).Scan(
		&conv.ID, &conv.IsGroup, &conv.Name, &conv.AvatarURL, &conv.CreatedBy, &conv.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *ConversationRepo) IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM conversation_members
			WHERE conversation_id = $1 AND user_id = $2
		)`, conversationID, userID).Scan(&exists)
	return exists, err
}

func (r *ConversationRepo) ListMemberIDs(ctx context.Context, conversationID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM conversation_members WHERE conversation_id = $1`,
		conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCascade deletes messages, then memberships, then the
// conversation row for each id, all inside one transaction. The fixed
// order respects the referential dependency; the transaction removes
// the orphan-row failure mode of running the three deletes separately.
func (r *ConversationRepo) DeleteCascade(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, id := range ids {
		if _, err := tx.Exec(ctx, `DELETE FROM messages WHERE conversation_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM conversation_members WHERE conversation_id = $1`, id); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM conversations WHERE id = $1`, id); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
