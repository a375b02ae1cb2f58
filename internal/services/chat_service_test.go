package services

import (
	"context"
	"errors"
	"testing"
)

func TestStartConversationRejectsSelf(t *testing.T) {
	service := NewChatService(nil, nil, nil, nil, nil, nil)

	_, err := service.StartConversation(context.Background(), 42, 42)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestStartConversationRejectsNonPositivePartner(t *testing.T) {
	service := NewChatService(nil, nil, nil, nil, nil, nil)

	for _, partnerID := range []int64{0, -3} {
		_, err := service.StartConversation(context.Background(), 42, partnerID)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("partner %d: expected ErrInvalidInput, got %v", partnerID, err)
		}
	}
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	service := NewChatService(nil, nil, nil, nil, nil, nil)

	for _, content := range []string{"", "   ", "\n\t"} {
		_, err := service.SendMessage(context.Background(), 42, 7, content, nil)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("content %q: expected ErrInvalidInput, got %v", content, err)
		}
	}
}

func TestSendMessageRejectsMalformedClientRef(t *testing.T) {
	service := NewChatService(nil, nil, nil, nil, nil, nil)

	ref := "not-a-uuid"
	_, err := service.SendMessage(context.Background(), 42, 7, "Bonjour", &ref)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSendMessageRejectsInvalidConversationID(t *testing.T) {
	service := NewChatService(nil, nil, nil, nil, nil, nil)

	_, err := service.SendMessage(context.Background(), 42, 0, "Bonjour", nil)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestMarkSeenRejectsInvalidConversationID(t *testing.T) {
	service := NewChatService(nil, nil, nil, nil, nil, nil)

	if err := service.MarkSeen(context.Background(), 42, -1); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestSetTypingRejectsInvalidConversationID(t *testing.T) {
	service := NewChatService(nil, nil, nil, nil, nil, nil)

	if _, err := service.SetTyping(context.Background(), 42, 0, true); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestListMessagesRejectsNegativeCursor(t *testing.T) {
	service := NewChatService(nil, nil, nil, nil, nil, nil)

	_, err := service.ListMessages(context.Background(), 42, 7, -1)
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestNotificationListRejectsInvalidPagination(t *testing.T) {
	service := NewNotificationService(nil)

	if _, _, err := service.List(context.Background(), 42, 0, 10); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for page 0, got %v", err)
	}
	if _, _, err := service.List(context.Background(), 42, 1, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for limit 0, got %v", err)
	}
}
