package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
)

type ConversationRepository struct {
	db DBTX
}

func NewConversationRepository(db DBTX) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// CreateOrGet resolves the single conversation for an unordered pair of
// members, creating it on first contact. The pair is stored canonically
// (lower id first) under a unique constraint, so two members opening the
// chat at the same time converge on one row: the losing insert falls into
// the no-op DO UPDATE and reads back the winner's id.
func (r *ConversationRepository) CreateOrGet(
	ctx context.Context,
	userA int64,
	userB int64,
) (*models.Conversation, error) {
	first, second := userA, userB
	if first > second {
		first, second = second, first
	}

	query := `
		INSERT INTO conversations (user_a_id, user_b_id)
		VALUES ($1, $2)
		ON CONFLICT (user_a_id, user_b_id)
		DO UPDATE SET updated_at = conversations.updated_at
		RETURNING id, user_a_id, user_b_id, created_at, updated_at
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, first, second).Scan(
		&conversation.ID,
		&conversation.UserAID,
		&conversation.UserBID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, conversationID int64) (*models.Conversation, error) {
	query := `
		SELECT id, user_a_id, user_b_id, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`

	var conversation models.Conversation
	err := r.db.QueryRow(ctx, query, conversationID).Scan(
		&conversation.ID,
		&conversation.UserAID,
		&conversation.UserBID,
		&conversation.CreatedAt,
		&conversation.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &conversation, nil
}

// ListForParticipant returns every conversation the member takes part in,
// enriched with the partner's public identity and presence, the latest
// message, the unread count, and the partner's raw typing signal. Ordering
// is by latest-message recency; conversations without messages fall back
// to their creation time.
func (r *ConversationRepository) ListForParticipant(
	ctx context.Context,
	participantID int64,
) ([]models.ConversationSummary, error) {
	query := `
		SELECT
			c.id,
			c.user_a_id,
			c.user_b_id,
			c.created_at,
			c.updated_at,
			p.id,
			p.display_name,
			p.avatar_url,
			p.is_online,
			p.last_seen_at,
			lm.id,
			lm.conversation_id,
			lm.sender_id,
			lm.content,
			lm.is_seen,
			lm.created_at,
			COALESCE(uc.unread_count, 0),
			ts.last_typed_at
		FROM conversations c
		JOIN users p
			ON p.id = CASE WHEN c.user_a_id = $1 THEN c.user_b_id ELSE c.user_a_id END
		LEFT JOIN LATERAL (
			SELECT id, conversation_id, sender_id, content, is_seen, created_at
			FROM messages
			WHERE conversation_id = c.id
			ORDER BY created_at DESC, id DESC
			LIMIT 1
		) lm ON TRUE
		LEFT JOIN LATERAL (
			SELECT COUNT(*) AS unread_count
			FROM messages
			WHERE conversation_id = c.id
			  AND sender_id = p.id
			  AND is_seen = FALSE
		) uc ON TRUE
		LEFT JOIN typing_signals ts
			ON ts.conversation_id = c.id AND ts.user_id = p.id
		WHERE c.user_a_id = $1 OR c.user_b_id = $1
		ORDER BY COALESCE(lm.created_at, c.created_at) DESC, c.id DESC
	`

	rows, err := r.db.Query(ctx, query, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	now := time.Now()
	summaries := make([]models.ConversationSummary, 0)
	for rows.Next() {
		var summary models.ConversationSummary
		var messageID sql.NullInt64
		var messageConversationID sql.NullInt64
		var messageSenderID sql.NullInt64
		var messageContent sql.NullString
		var messageIsSeen sql.NullBool
		var messageCreatedAt sql.NullTime
		var lastTypedAt sql.NullTime

		if err := rows.Scan(
			&summary.ID,
			&summary.UserAID,
			&summary.UserBID,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.Partner.ID,
			&summary.Partner.DisplayName,
			&summary.Partner.AvatarURL,
			&summary.Partner.IsOnline,
			&summary.Partner.LastSeenAt,
			&messageID,
			&messageConversationID,
			&messageSenderID,
			&messageContent,
			&messageIsSeen,
			&messageCreatedAt,
			&summary.UnreadCount,
			&lastTypedAt,
		); err != nil {
			return nil, err
		}

		if messageID.Valid {
			summary.LastMessage = &models.ChatMessage{
				ID:             messageID.Int64,
				ConversationID: messageConversationID.Int64,
				SenderID:       messageSenderID.Int64,
				Content:        messageContent.String,
				IsSeen:         messageIsSeen.Bool,
				CreatedAt:      messageCreatedAt.Time,
			}
		}
		if lastTypedAt.Valid {
			summary.PartnerTyping = models.TypingActive(lastTypedAt.Time, now)
		}

		summaries = append(summaries, summary)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return summaries, nil
}

func (r *ConversationRepository) Touch(ctx context.Context, conversationID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE conversations
		SET updated_at = NOW()
		WHERE id = $1
	`, conversationID)
	return err
}
