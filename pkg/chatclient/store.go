// Package chatclient holds the client-resident messaging core: a
// session-scoped coordinator that polls the server for conversation and
// message state, reconciles optimistic local sends with server truth, and
// tracks which conversation is active. It owns no durable state; the
// server is always the source of record.
package chatclient

import (
	"context"
	"errors"

	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
)

var (
	ErrNotStarted           = errors.New("session not started")
	ErrNoActiveConversation = errors.New("no active conversation")
	ErrEmptyMessage         = errors.New("message content is empty")
	ErrUnknownClientRef     = errors.New("unknown client ref")
)

// Store is the remote operation surface the session polls and writes
// through. HTTPStore implements it over the REST API; tests substitute an
// in-memory fake.
type Store interface {
	StartConversation(ctx context.Context, partnerID int64) (*models.Conversation, error)
	Conversations(ctx context.Context) ([]models.ConversationSummary, error)
	Messages(ctx context.Context, conversationID int64) ([]models.ChatMessage, error)
	SendMessage(ctx context.Context, conversationID int64, content, clientRef string) (*models.ChatMessage, error)
	MarkSeen(ctx context.Context, conversationID int64) error
	SetTyping(ctx context.Context, conversationID int64, isTyping bool) error
}
