package chatclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
)

// HTTPStore implements Store against the REST API, authenticated with the
// session's bearer token.
type HTTPStore struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewHTTPStore(baseURL, token string) *HTTPStore {
	return &HTTPStore{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: http.DefaultClient,
	}
}

func (s *HTTPStore) StartConversation(ctx context.Context, partnerID int64) (*models.Conversation, error) {
	var result struct {
		Conversation *models.Conversation `json:"conversation"`
	}
	payload := map[string]int64{"partner_id": partnerID}
	if err := s.do(ctx, http.MethodPost, "/api/v1/conversations", payload, &result); err != nil {
		return nil, fmt.Errorf("start conversation: %w", err)
	}
	return result.Conversation, nil
}

func (s *HTTPStore) Conversations(ctx context.Context) ([]models.ConversationSummary, error) {
	var result struct {
		Conversations []models.ConversationSummary `json:"conversations"`
	}
	if err := s.do(ctx, http.MethodGet, "/api/v1/conversations", nil, &result); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return result.Conversations, nil
}

func (s *HTTPStore) Messages(ctx context.Context, conversationID int64) ([]models.ChatMessage, error) {
	var result struct {
		Messages []models.ChatMessage `json:"messages"`
	}
	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conversationID)
	if err := s.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return result.Messages, nil
}

func (s *HTTPStore) SendMessage(ctx context.Context, conversationID int64, content, clientRef string) (*models.ChatMessage, error) {
	var result struct {
		Message *models.ChatMessage `json:"message"`
	}
	payload := map[string]string{"content": content}
	if clientRef != "" {
		payload["client_ref"] = clientRef
	}
	path := fmt.Sprintf("/api/v1/conversations/%d/messages", conversationID)
	if err := s.do(ctx, http.MethodPost, path, payload, &result); err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	return result.Message, nil
}

func (s *HTTPStore) MarkSeen(ctx context.Context, conversationID int64) error {
	path := fmt.Sprintf("/api/v1/conversations/%d/seen", conversationID)
	if err := s.do(ctx, http.MethodPost, path, nil, nil); err != nil {
		return fmt.Errorf("mark seen: %w", err)
	}
	return nil
}

func (s *HTTPStore) SetTyping(ctx context.Context, conversationID int64, isTyping bool) error {
	path := fmt.Sprintf("/api/v1/conversations/%d/typing", conversationID)
	payload := map[string]bool{"is_typing": isTyping}
	if err := s.do(ctx, http.MethodPost, path, payload, nil); err != nil {
		return fmt.Errorf("set typing: %w", err)
	}
	return nil
}

func (s *HTTPStore) do(ctx context.Context, method, path string, payload, result any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("status %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	if result == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(result)
}
