package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/repository"
)

var (
	ErrForbidden    = errors.New("forbidden")
	ErrInvalidInput = errors.New("invalid input")
	ErrUserNotFound = errors.New("user not found")
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type messageNotifier interface {
	NotifyMessage(ctx context.Context, recipientID, actorID, conversationID int64) error
}

type ChatService struct {
	db               *pgxpool.Pool
	conversationRepo *repository.ConversationRepository
	messageRepo      *repository.MessageRepository
	typingRepo       *repository.TypingRepository
	userRepo         userReader
	notifier         messageNotifier
}

type ChatDelivery struct {
	Conversation *models.Conversation
	Message      *models.ChatMessage
	RecipientID  int64
}

func NewChatService(
	db *pgxpool.Pool,
	conversationRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
	typingRepo *repository.TypingRepository,
	userRepo userReader,
	notifier messageNotifier,
) *ChatService {
	return &ChatService{
		db:               db,
		conversationRepo: conversationRepo,
		messageRepo:      messageRepo,
		typingRepo:       typingRepo,
		userRepo:         userRepo,
		notifier:         notifier,
	}
}

// StartConversation resolves the single conversation between the actor and
// partner, creating it on first contact. Safe under concurrent calls from
// both sides: the pair is canonicalized and upserted, so both callers get
// the same id.
func (s *ChatService) StartConversation(
	ctx context.Context,
	actorID int64,
	partnerID int64,
) (*models.Conversation, error) {
	if partnerID <= 0 || partnerID == actorID {
		return nil, ErrInvalidInput
	}

	if _, err := s.userRepo.GetByID(ctx, partnerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	return s.conversationRepo.CreateOrGet(ctx, actorID, partnerID)
}

func (s *ChatService) ListConversations(
	ctx context.Context,
	actorID int64,
) ([]models.ConversationSummary, error) {
	return s.conversationRepo.ListForParticipant(ctx, actorID)
}

// ListMessages returns the conversation transcript oldest first. Reading
// never mutates seen state; the viewer marks messages seen through
// MarkSeen so polling reads stay side-effect free.
func (s *ChatService) ListMessages(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	afterID int64,
) ([]models.ChatMessage, error) {
	if conversationID <= 0 || afterID < 0 {
		return nil, ErrInvalidInput
	}

	if _, err := s.requireParticipant(ctx, actorID, conversationID); err != nil {
		return nil, err
	}

	return s.messageRepo.ListByConversation(ctx, conversationID, afterID)
}

func (s *ChatService) SendMessage(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	content string,
	clientRef *string,
) (*ChatDelivery, error) {
	if conversationID <= 0 {
		return nil, ErrInvalidInput
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrInvalidInput
	}

	if clientRef != nil {
		if _, err := uuid.Parse(*clientRef); err != nil {
			return nil, ErrInvalidInput
		}
	}

	conversation, err := s.requireParticipant(ctx, actorID, conversationID)
	if err != nil {
		return nil, err
	}
	recipientID := conversation.PartnerID(actorID)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txMessageRepo := repository.NewMessageRepository(tx)
	txConversationRepo := repository.NewConversationRepository(tx)

	message, err := txMessageRepo.Create(ctx, conversationID, actorID, trimmed, clientRef)
	if err != nil {
		return nil, err
	}

	if err := txConversationRepo.Touch(ctx, conversationID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyMessage(ctx, recipientID, actorID, conversationID); err != nil {
			log.Printf("chat: notify recipient %d: %v", recipientID, err)
		}
	}

	return &ChatDelivery{
		Conversation: conversation,
		Message:      message,
		RecipientID:  recipientID,
	}, nil
}

// MarkSeen flips every message the partner sent in the conversation to
// seen. Idempotent: the client calls it on every poll that finds unseen
// inbound messages.
func (s *ChatService) MarkSeen(ctx context.Context, actorID, conversationID int64) error {
	if conversationID <= 0 {
		return ErrInvalidInput
	}

	if _, err := s.requireParticipant(ctx, actorID, conversationID); err != nil {
		return err
	}

	return s.messageRepo.MarkConversationSeen(ctx, conversationID, actorID)
}

// SetTyping records or clears the actor's typing signal and returns the
// partner the signal concerns.
func (s *ChatService) SetTyping(
	ctx context.Context,
	actorID int64,
	conversationID int64,
	isTyping bool,
) (int64, error) {
	if conversationID <= 0 {
		return 0, ErrInvalidInput
	}

	conversation, err := s.requireParticipant(ctx, actorID, conversationID)
	if err != nil {
		return 0, err
	}

	if isTyping {
		err = s.typingRepo.Upsert(ctx, conversationID, actorID)
	} else {
		err = s.typingRepo.Clear(ctx, conversationID, actorID)
	}
	if err != nil {
		return 0, err
	}

	return conversation.PartnerID(actorID), nil
}

func (s *ChatService) requireParticipant(
	ctx context.Context,
	actorID int64,
	conversationID int64,
) (*models.Conversation, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if !conversation.HasParticipant(actorID) {
		return nil, ErrForbidden
	}
	return conversation, nil
}

func FormatChatTimestamp(ts time.Time) string {
	return ts.UTC().Format(time.RFC3339)
}
