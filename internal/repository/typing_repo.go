package repository

import (
	"context"

	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
)

type TypingRepository struct {
	db DBTX
}

func NewTypingRepository(db DBTX) *TypingRepository {
	return &TypingRepository{db: db}
}

// Upsert stamps now() as the member's last keystroke in the conversation.
func (r *TypingRepository) Upsert(ctx context.Context, conversationID, userID int64) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO typing_signals (conversation_id, user_id, last_typed_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (conversation_id, user_id)
		DO UPDATE SET last_typed_at = NOW()
	`, conversationID, userID)
	return err
}

// Clear removes the signal eagerly. Staleness alone would also retire it
// within the typing window, so a lost clear is harmless.
func (r *TypingRepository) Clear(ctx context.Context, conversationID, userID int64) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM typing_signals
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID)
	return err
}

func (r *TypingRepository) Get(
	ctx context.Context,
	conversationID int64,
	userID int64,
) (*models.TypingSignal, error) {
	var signal models.TypingSignal
	err := r.db.QueryRow(ctx, `
		SELECT conversation_id, user_id, last_typed_at
		FROM typing_signals
		WHERE conversation_id = $1 AND user_id = $2
	`, conversationID, userID).Scan(
		&signal.ConversationID,
		&signal.UserID,
		&signal.LastTypedAt,
	)
	if err != nil {
		return nil, err
	}
	return &signal, nil
}
