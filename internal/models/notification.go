package models

import "time"

const (
	NotificationTypeMessage = "message"
	NotificationTypeLike    = "like"
	NotificationTypeFollow  = "follow"
	NotificationTypeComment = "comment"
)

type Notification struct {
	ID          int64     `json:"id"`
	RecipientID int64     `json:"recipient_id"`
	ActorID     int64     `json:"actor_id"`
	Type        string    `json:"type"`
	Link        string    `json:"link"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
