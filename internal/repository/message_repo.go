package repository

import (
	"context"

	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
)

type MessageRepository struct {
	db DBTX
}

func NewMessageRepository(db DBTX) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create appends a message to the conversation. When a client ref is
// supplied the insert is idempotent: a retry carrying the same ref returns
// the already-persisted row instead of appending a duplicate.
func (r *MessageRepository) Create(
	ctx context.Context,
	conversationID int64,
	senderID int64,
	content string,
	clientRef *string,
) (*models.ChatMessage, error) {
	query := `
		INSERT INTO messages (conversation_id, sender_id, content, client_ref, is_seen)
		VALUES ($1, $2, $3, $4, FALSE)
		ON CONFLICT (client_ref) WHERE client_ref IS NOT NULL
		DO UPDATE SET client_ref = messages.client_ref
		RETURNING id, conversation_id, sender_id, content, client_ref, is_seen, created_at
	`

	var message models.ChatMessage
	err := r.db.QueryRow(ctx, query, conversationID, senderID, content, clientRef).Scan(
		&message.ID,
		&message.ConversationID,
		&message.SenderID,
		&message.Content,
		&message.ClientRef,
		&message.IsSeen,
		&message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &message, nil
}

// ListByConversation returns messages oldest first. afterID narrows the
// read to messages newer than a cursor; zero means the full history.
func (r *MessageRepository) ListByConversation(
	ctx context.Context,
	conversationID int64,
	afterID int64,
) ([]models.ChatMessage, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, client_ref, is_seen, created_at
		FROM messages
		WHERE conversation_id = $1
		  AND id > $2
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.Query(ctx, query, conversationID, afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]models.ChatMessage, 0)
	for rows.Next() {
		var message models.ChatMessage
		if err := rows.Scan(
			&message.ID,
			&message.ConversationID,
			&message.SenderID,
			&message.Content,
			&message.ClientRef,
			&message.IsSeen,
			&message.CreatedAt,
		); err != nil {
			return nil, err
		}

		messages = append(messages, message)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// MarkConversationSeen flips every message sent to viewerID by their
// partner to seen. Repeated calls are no-ops; the transition only ever goes
// unseen to seen.
func (r *MessageRepository) MarkConversationSeen(
	ctx context.Context,
	conversationID int64,
	viewerID int64,
) error {
	_, err := r.db.Exec(ctx, `
		UPDATE messages
		SET is_seen = TRUE
		WHERE conversation_id = $1
		  AND sender_id <> $2
		  AND is_seen = FALSE
	`, conversationID, viewerID)
	return err
}
