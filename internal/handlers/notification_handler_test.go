package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
)

type stubNotificationService struct {
	listResult    []models.Notification
	listTotal     int
	listErr       error
	lastRecipient int64
	lastPage      int
	lastLimit     int
	markAllCalls  int
}

func (s *stubNotificationService) List(_ context.Context, recipientID int64, page, limit int) ([]models.Notification, int, error) {
	s.lastRecipient = recipientID
	s.lastPage = page
	s.lastLimit = limit
	return s.listResult, s.listTotal, s.listErr
}

func (s *stubNotificationService) MarkAllRead(_ context.Context, recipientID int64) error {
	s.lastRecipient = recipientID
	s.markAllCalls++
	return nil
}

func newNotificationTestApp(service notificationApplicationService) *fiber.App {
	handler := NewNotificationHandler(service)

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", "42")
		return c.Next()
	})
	app.Get("/api/v1/notifications", handler.List)
	app.Post("/api/v1/notifications/read", handler.MarkAllRead)
	return app
}

func TestListNotificationsReturnsPagination(t *testing.T) {
	service := &stubNotificationService{
		listResult: []models.Notification{
			{
				ID:          1,
				RecipientID: 42,
				ActorID:     7,
				Type:        models.NotificationTypeMessage,
				Link:        "/messages?conversation=11",
				CreatedAt:   time.Now().UTC(),
			},
		},
		listTotal: 12,
	}
	app := newNotificationTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?page=2&limit=5", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastRecipient != 42 || service.lastPage != 2 || service.lastLimit != 5 {
		t.Fatalf("unexpected forwarded args: recipient=%d page=%d limit=%d", service.lastRecipient, service.lastPage, service.lastLimit)
	}

	var body struct {
		Notifications []models.Notification `json:"notifications"`
		Pagination    models.PaginationMeta `json:"pagination"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(body.Notifications) != 1 || body.Pagination.Total != 12 || body.Pagination.TotalPages != 3 {
		t.Fatalf("unexpected response body: %+v %+v", body.Notifications, body.Pagination)
	}
}

func TestListNotificationsCapsLimit(t *testing.T) {
	service := &stubNotificationService{}
	app := newNotificationTestApp(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications?limit=500", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if service.lastLimit != maxPageLimit {
		t.Fatalf("expected limit capped at %d, got %d", maxPageLimit, service.lastLimit)
	}
}

func TestMarkAllNotificationsRead(t *testing.T) {
	service := &stubNotificationService{}
	app := newNotificationTestApp(service)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notifications/read", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if service.markAllCalls != 1 {
		t.Fatalf("expected one mark-all call, got %d", service.markAllCalls)
	}
}
