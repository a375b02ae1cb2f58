package chatws

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	websocket "github.com/gofiber/contrib/websocket"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/services"
)

type presenceStore interface {
	SetOnline(ctx context.Context, userID int64, online bool) error
}

type chatService interface {
	SendMessage(
		ctx context.Context,
		actorID int64,
		conversationID int64,
		content string,
		clientRef *string,
	) (*services.ChatDelivery, error)
	SetTyping(
		ctx context.Context,
		actorID int64,
		conversationID int64,
		isTyping bool,
	) (int64, error)
}

type Hub struct {
	clients    map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan *Event
	presence   presenceStore
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID string
	send   chan []byte
}

// Event is the wire frame pushed to connected clients. Message events reach
// both participants; typing events only the partner.
type Event struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	RecipientID    string `json:"recipient_id,omitempty"`
	Content        string `json:"content,omitempty"`
	ClientRef      string `json:"client_ref,omitempty"`
	IsTyping       bool   `json:"is_typing,omitempty"`
	Timestamp      string `json:"timestamp"`
}

func NewHub(presence presenceStore) *Hub {
	return &Hub{
		clients:    make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *Event, 64),
		presence:   presence,
	}
}

func NewClient(hub *Hub, conn *websocket.Conn, userID string) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, 32),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			set, ok := h.clients[client.userID]
			if !ok {
				set = make(map[*Client]struct{})
				h.clients[client.userID] = set
				h.setOnline(client.userID, true)
			}
			set[client] = struct{}{}
		case client := <-h.unregister:
			set, ok := h.clients[client.userID]
			if !ok {
				continue
			}
			if _, exists := set[client]; exists {
				delete(set, client)
				close(client.send)
			}
			if len(set) == 0 {
				delete(h.clients, client.userID)
				h.setOnline(client.userID, false)
			}
		case event := <-h.broadcast:
			h.deliver(event)
		}
	}
}

func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// BroadcastMessage fans a persisted message out to both participants'
// open sockets.
func (h *Hub) BroadcastMessage(delivery *services.ChatDelivery) {
	clientRef := ""
	if delivery.Message.ClientRef != nil {
		clientRef = *delivery.Message.ClientRef
	}
	h.broadcast <- &Event{
		Type:           "message",
		ConversationID: strconv.FormatInt(delivery.Message.ConversationID, 10),
		SenderID:       strconv.FormatInt(delivery.Message.SenderID, 10),
		RecipientID:    strconv.FormatInt(delivery.RecipientID, 10),
		Content:        delivery.Message.Content,
		ClientRef:      clientRef,
		Timestamp:      services.FormatChatTimestamp(delivery.Message.CreatedAt),
	}
}

// BroadcastTyping forwards a typing signal to the partner only; the typist
// already knows.
func (h *Hub) BroadcastTyping(conversationID, actorID, recipientID int64, isTyping bool) {
	h.broadcast <- &Event{
		Type:           "typing",
		ConversationID: strconv.FormatInt(conversationID, 10),
		SenderID:       strconv.FormatInt(actorID, 10),
		RecipientID:    strconv.FormatInt(recipientID, 10),
		IsTyping:       isTyping,
		Timestamp:      services.FormatChatTimestamp(time.Now().UTC()),
	}
}

func (h *Hub) deliver(event *Event) {
	encoded, err := json.Marshal(event)
	if err != nil {
		log.Printf("chat hub encode event: %v", err)
		return
	}

	if event.Type != "typing" {
		h.sendToUser(event.SenderID, encoded)
	}
	if event.RecipientID != "" && event.RecipientID != event.SenderID {
		h.sendToUser(event.RecipientID, encoded)
	}
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	set, ok := h.clients[userID]
	if !ok {
		return
	}

	for client := range set {
		select {
		case client.send <- payload:
		default:
			delete(set, client)
			close(client.send)
		}
	}
	if len(set) == 0 {
		delete(h.clients, userID)
		h.setOnline(userID, false)
	}
}

func (h *Hub) setOnline(userID string, online bool) {
	if h.presence == nil {
		return
	}
	id, err := strconv.ParseInt(userID, 10, 64)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.presence.SetOnline(ctx, id, online); err != nil {
		log.Printf("chat hub presence update for %s: %v", userID, err)
	}
}

func (c *Client) ReadPump(service chatService) {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	actorID, err := strconv.ParseInt(c.userID, 10, 64)
	if err != nil {
		writeError(c, "invalid user")
		return
	}

	for {
		_, payload, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var incoming struct {
			Type           string `json:"type"`
			ConversationID string `json:"conversation_id"`
			Content        string `json:"content"`
			ClientRef      string `json:"client_ref"`
			IsTyping       bool   `json:"is_typing"`
		}
		if err := json.Unmarshal(payload, &incoming); err != nil {
			writeError(c, "invalid message payload")
			continue
		}

		conversationID, err := strconv.ParseInt(incoming.ConversationID, 10, 64)
		if err != nil || conversationID <= 0 {
			writeError(c, "invalid conversation id")
			continue
		}

		switch incoming.Type {
		case "message":
			var clientRef *string
			if incoming.ClientRef != "" {
				clientRef = &incoming.ClientRef
			}
			delivery, err := service.SendMessage(
				context.Background(),
				actorID,
				conversationID,
				incoming.Content,
				clientRef,
			)
			if err != nil {
				writeError(c, "failed to send message")
				continue
			}
			c.hub.BroadcastMessage(delivery)
		case "typing":
			recipientID, err := service.SetTyping(
				context.Background(),
				actorID,
				conversationID,
				incoming.IsTyping,
			)
			if err != nil {
				writeError(c, "failed to update typing status")
				continue
			}
			c.hub.BroadcastTyping(conversationID, actorID, recipientID, incoming.IsTyping)
		default:
			writeError(c, "unsupported message type")
		}
	}
}

func (c *Client) WritePump() {
	defer func() {
		_ = c.conn.Close()
	}()

	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func writeError(client *Client, message string) {
	payload, err := json.Marshal(Event{
		Type:      "error",
		Content:   message,
		Timestamp: services.FormatChatTimestamp(time.Now().UTC()),
	})
	if err != nil {
		return
	}
	select {
	case client.send <- payload:
	default:
		client.hub.Unregister(client)
	}
}
