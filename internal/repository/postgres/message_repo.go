package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mivanic/parley/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	attachments, err := marshalAttachments(msg.Attachments)
	if err != nil {
		return fmt.Errorf("encoding attachments: %w", err)
	}

	query := `
		INSERT INTO messages (id, conversation_id, sender_id, content, attachments, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.pool.Exec(ctx, query,
		msg.ID, msg.ConversationID, msg.SenderID, msg.Content, attachments, msg.CreatedAt,
	)
	return err
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, attachments, created_at
		FROM messages
		WHERE id = $1`
	var msg domain.Message
	var attachments []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &attachments, &msg.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := unmarshalAttachments(attachments, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ListByConversation returns the full history in ascending creation
// order. The id tiebreak keeps equal timestamps stable.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID uuid.UUID) ([]domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, attachments, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message
		var attachments []byte
		if err := rows.Scan(
			&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &attachments, &msg.CreatedAt,
		); err != nil {
			return nil, err
		}
		if err := unmarshalAttachments(attachments, &msg); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// marshalAttachments encodes the list for the jsonb column. An empty
// list is stored as NULL, never as [].
func marshalAttachments(list []domain.Attachment) ([]byte, error) {
	if len(list) == 0 {
		return nil, nil
	}
	return json.Marshal(list)
}

func unmarshalAttachments(data []byte, msg *domain.Message) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, &msg.Attachments); err != nil {
		return fmt.Errorf("decoding attachments for message %s: %w", msg.ID, err)
	}
	return nil
}
