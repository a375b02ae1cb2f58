package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/services"
	chatws "github.com/rachidsanda61-hub/CulturePlusBack/internal/websocket"
)

type stubChatService struct {
	conversationsResult []models.ConversationSummary
	conversationsErr    error
	startResult         *models.Conversation
	startErr            error
	messagesResult      []models.ChatMessage
	messagesErr         error
	sendResult          *services.ChatDelivery
	sendErr             error
	markSeenErr         error
	typingRecipient     int64
	typingErr           error
	lastActorID         int64
	lastPartnerID       int64
	lastConversationID  int64
	lastAfterID         int64
	lastContent         string
	lastClientRef       *string
	lastIsTyping        bool
	markSeenCalls       int
}

func (s *stubChatService) StartConversation(_ context.Context, actorID, partnerID int64) (*models.Conversation, error) {
	s.lastActorID = actorID
	s.lastPartnerID = partnerID
	return s.startResult, s.startErr
}

func (s *stubChatService) ListConversations(_ context.Context, actorID int64) ([]models.ConversationSummary, error) {
	s.lastActorID = actorID
	return s.conversationsResult, s.conversationsErr
}

func (s *stubChatService) ListMessages(_ context.Context, actorID, conversationID, afterID int64) ([]models.ChatMessage, error) {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	s.lastAfterID = afterID
	return s.messagesResult, s.messagesErr
}

func (s *stubChatService) SendMessage(_ context.Context, actorID, conversationID int64, content string, clientRef *string) (*services.ChatDelivery, error) {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	s.lastContent = content
	s.lastClientRef = clientRef
	return s.sendResult, s.sendErr
}

func (s *stubChatService) MarkSeen(_ context.Context, actorID, conversationID int64) error {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	s.markSeenCalls++
	return s.markSeenErr
}

func (s *stubChatService) SetTyping(_ context.Context, actorID, conversationID int64, isTyping bool) (int64, error) {
	s.lastActorID = actorID
	s.lastConversationID = conversationID
	s.lastIsTyping = isTyping
	return s.typingRecipient, s.typingErr
}

func newChatTestApp(service chatApplicationService) *fiber.App {
	handler := NewChatHandler(service, chatws.NewHub(nil), "secret")

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "42")
		c.Locals("role", "user")
		return c.Next()
	})
	app.Get("/api/v1/conversations", handler.ListConversations)
	app.Post("/api/v1/conversations", handler.StartConversation)
	app.Get("/api/v1/conversations/:id/messages", handler.GetMessages)
	app.Post("/api/v1/conversations/:id/messages", handler.SendMessage)
	app.Post("/api/v1/conversations/:id/seen", handler.MarkSeen)
	app.Post("/api/v1/conversations/:id/typing", handler.SetTyping)
	return app
}

func TestListConversationsReturnsConversationSummaries(t *testing.T) {
	service := &stubChatService{
		conversationsResult: []models.ConversationSummary{
			{
				Conversation: models.Conversation{ID: 17, UserAID: 8, UserBID: 42},
				Partner:      models.PublicUser{ID: 8, DisplayName: "Awa", IsOnline: true},
				LastMessage: &models.ChatMessage{
					ID:             3,
					ConversationID: 17,
					SenderID:       8,
					Content:        "On se voit demain",
					CreatedAt:      time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
				},
				UnreadCount:   2,
				PartnerTyping: true,
			},
		},
	}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastActorID != 42 {
		t.Fatalf("unexpected actor: %d", service.lastActorID)
	}

	var body struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Conversations) != 1 {
		t.Fatalf("expected 1 conversation, got %d", len(body.Conversations))
	}
	entry := body.Conversations[0]
	if entry.UnreadCount != 2 || !entry.PartnerTyping || entry.Partner.DisplayName != "Awa" {
		t.Fatalf("unexpected summary: %+v", entry)
	}
}

func TestStartConversationReturnsCreatedConversation(t *testing.T) {
	service := &stubChatService{
		startResult: &models.Conversation{ID: 9, UserAID: 7, UserBID: 42},
	}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", strings.NewReader(`{"partner_id":7}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastPartnerID != 7 {
		t.Fatalf("expected partner id 7, got %d", service.lastPartnerID)
	}
}

func TestStartConversationWithSelfReturnsBadRequest(t *testing.T) {
	service := &stubChatService{startErr: services.ErrInvalidInput}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations", strings.NewReader(`{"partner_id":42}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestGetMessagesForwardsCursor(t *testing.T) {
	service := &stubChatService{
		messagesResult: []models.ChatMessage{
			{ID: 5, ConversationID: 11, SenderID: 7, Content: "Salut", CreatedAt: time.Now().UTC()},
		},
	}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/11/messages?after=4", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastConversationID != 11 || service.lastAfterID != 4 {
		t.Fatalf("unexpected forwarded args: conversation=%d after=%d", service.lastConversationID, service.lastAfterID)
	}

	var body struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Messages) != 1 || body.Messages[0].Content != "Salut" {
		t.Fatalf("unexpected messages: %+v", body.Messages)
	}
}

func TestGetMessagesReturnsNotFound(t *testing.T) {
	service := &stubChatService{messagesErr: pgx.ErrNoRows}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/99/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestGetMessagesReturnsForbiddenForOutsider(t *testing.T) {
	service := &stubChatService{messagesErr: services.ErrForbidden}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/conversations/11/messages", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestSendMessageForwardsContentAndClientRef(t *testing.T) {
	clientRef := "8e0ba420-4adf-4a4c-9f46-7f2e5a2cfa63"
	service := &stubChatService{
		sendResult: &services.ChatDelivery{
			Conversation: &models.Conversation{ID: 11, UserAID: 7, UserBID: 42},
			Message: &models.ChatMessage{
				ID:             6,
				ConversationID: 11,
				SenderID:       42,
				Content:        "Bonjour",
				ClientRef:      &clientRef,
				CreatedAt:      time.Now().UTC(),
			},
			RecipientID: 7,
		},
	}
	app := newChatTestApp(service)

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/v1/conversations/11/messages",
		strings.NewReader(`{"content":"Bonjour","client_ref":"`+clientRef+`"}`),
	)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastContent != "Bonjour" {
		t.Fatalf("expected content forwarded, got %q", service.lastContent)
	}
	if service.lastClientRef == nil || *service.lastClientRef != clientRef {
		t.Fatalf("expected client ref forwarded, got %v", service.lastClientRef)
	}

	var body struct {
		Message models.ChatMessage `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if body.Message.IsSeen {
		t.Fatalf("expected freshly created message to be unseen")
	}
}

func TestMarkSeenReturnsNoContent(t *testing.T) {
	service := &stubChatService{}
	app := newChatTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/conversations/11/seen", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if service.markSeenCalls != 1 || service.lastConversationID != 11 {
		t.Fatalf("expected one mark-seen call for conversation 11, got %d for %d", service.markSeenCalls, service.lastConversationID)
	}
}

func TestSetTypingForwardsFlag(t *testing.T) {
	service := &stubChatService{typingRecipient: 7}
	app := newChatTestApp(service)

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/v1/conversations/11/typing",
		strings.NewReader(`{"is_typing":true}`),
	)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if !service.lastIsTyping || service.lastConversationID != 11 {
		t.Fatalf("unexpected typing forwarding: typing=%v conversation=%d", service.lastIsTyping, service.lastConversationID)
	}
}
