package repository

import (
	"context"
	"time"

	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
)

type NotificationRepository struct {
	db DBTX
}

func NewNotificationRepository(db DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// CreateIfFresh inserts a notification unless an unread one with the same
// recipient, actor, type and link was created after the cutoff. This is the
// shared anti-spam policy for message, like, follow and comment
// notifications. Returns whether a row was inserted.
func (r *NotificationRepository) CreateIfFresh(
	ctx context.Context,
	notification *models.Notification,
	cutoff time.Time,
) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO notifications (recipient_id, actor_id, type, link)
		SELECT $1, $2, $3, $4
		WHERE NOT EXISTS (
			SELECT 1
			FROM notifications
			WHERE recipient_id = $1
			  AND actor_id = $2
			  AND type = $3
			  AND link = $4
			  AND is_read = FALSE
			  AND created_at > $5
		)
	`,
		notification.RecipientID,
		notification.ActorID,
		notification.Type,
		notification.Link,
		cutoff,
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *NotificationRepository) ListForRecipient(
	ctx context.Context,
	recipientID int64,
	limit int,
	offset int,
) ([]models.Notification, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM notifications
		WHERE recipient_id = $1
	`, recipientID).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, recipient_id, actor_id, type, link, is_read, created_at
		FROM notifications
		WHERE recipient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`, recipientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	notifications := make([]models.Notification, 0)
	for rows.Next() {
		var notification models.Notification
		if err := rows.Scan(
			&notification.ID,
			&notification.RecipientID,
			&notification.ActorID,
			&notification.Type,
			&notification.Link,
			&notification.IsRead,
			&notification.CreatedAt,
		); err != nil {
			return nil, 0, err
		}

		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return notifications, total, nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID int64) error {
	_, err := r.db.Exec(ctx, `
		UPDATE notifications
		SET is_read = TRUE
		WHERE recipient_id = $1
		  AND is_read = FALSE
	`, recipientID)
	return err
}
