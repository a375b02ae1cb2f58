package models

import "time"

// TypingWindow is how long a typing signal stays live after the last
// recorded keystroke. It must stay at twice the client debounce interval
// so one missed debounce tick does not drop the indicator.
const TypingWindow = 3 * time.Second

type Conversation struct {
	ID        int64     `json:"id"`
	UserAID   int64     `json:"user_a_id"`
	UserBID   int64     `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PartnerID returns the participant that is not viewerID.
func (c *Conversation) PartnerID(viewerID int64) int64 {
	if viewerID == c.UserAID {
		return c.UserBID
	}
	return c.UserAID
}

func (c *Conversation) HasParticipant(userID int64) bool {
	return userID == c.UserAID || userID == c.UserBID
}

type ChatMessage struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	SenderID       int64     `json:"sender_id"`
	Content        string    `json:"content"`
	ClientRef      *string   `json:"client_ref,omitempty"`
	IsSeen         bool      `json:"is_seen"`
	CreatedAt      time.Time `json:"created_at"`
}

type ConversationSummary struct {
	Conversation
	Partner       PublicUser   `json:"partner"`
	LastMessage   *ChatMessage `json:"last_message,omitempty"`
	UnreadCount   int          `json:"unread_count"`
	PartnerTyping bool         `json:"partner_typing"`
}

type TypingSignal struct {
	ConversationID int64     `json:"conversation_id"`
	UserID         int64     `json:"user_id"`
	LastTypedAt    time.Time `json:"last_typed_at"`
}

// TypingActive reports whether a signal recorded at lastTypedAt is still
// live at now.
func TypingActive(lastTypedAt, now time.Time) bool {
	return now.Sub(lastTypedAt) < TypingWindow
}
