package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/repository"
)

// notificationDedupWindow bounds the anti-spam check: a second unread
// notification with the same recipient, actor, type and link inside this
// window is dropped instead of inserted.
const notificationDedupWindow = 5 * time.Minute

type NotificationService struct {
	notificationRepo *repository.NotificationRepository
}

func NewNotificationService(notificationRepo *repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

func (s *NotificationService) NotifyMessage(
	ctx context.Context,
	recipientID int64,
	actorID int64,
	conversationID int64,
) error {
	_, err := s.notificationRepo.CreateIfFresh(ctx, &models.Notification{
		RecipientID: recipientID,
		ActorID:     actorID,
		Type:        models.NotificationTypeMessage,
		Link:        fmt.Sprintf("/messages?conversation=%d", conversationID),
	}, time.Now().Add(-notificationDedupWindow))
	return err
}

func (s *NotificationService) List(
	ctx context.Context,
	recipientID int64,
	page int,
	limit int,
) ([]models.Notification, int, error) {
	if page <= 0 || limit <= 0 {
		return nil, 0, ErrInvalidInput
	}
	return s.notificationRepo.ListForRecipient(ctx, recipientID, limit, (page-1)*limit)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID int64) error {
	return s.notificationRepo.MarkAllRead(ctx, recipientID)
}
