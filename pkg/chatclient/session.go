package chatclient

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rachidsanda61-hub/CulturePlusBack/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	defaultListPollInterval    = time.Second
	defaultMessagePollInterval = time.Second
	// defaultTypingDebounce is half the server-side typing window
	// (models.TypingWindow), so the indicator survives one missed tick.
	defaultTypingDebounce = 1500 * time.Millisecond
)

type DeliveryState int

const (
	DeliveryConfirmed DeliveryState = iota
	DeliveryPending
	DeliveryFailed
)

// TranscriptEntry is one line of the active conversation as the UI should
// render it: either a server-confirmed message or a local optimistic send
// still awaiting (or denied) confirmation.
type TranscriptEntry struct {
	models.ChatMessage
	Ref   string
	State DeliveryState
}

type Config struct {
	ListPollInterval    time.Duration
	MessagePollInterval time.Duration
	TypingDebounce      time.Duration

	Logger *logrus.Logger

	// OnUpdate fires after every state change, outside the session lock.
	OnUpdate func()
	// OnSendFailure fires when a user-initiated send is rejected or lost;
	// the optimistic entry stays in the transcript marked failed.
	OnSendFailure func(clientRef string, err error)
}

type pendingSend struct {
	clientRef      string
	conversationID int64
	content        string
	createdAt      time.Time
	failed         bool
}

// Session coordinates one signed-in user's messaging view. Created when
// the user session starts, torn down with Close on logout. Two repeating
// polls run at a time at most: the conversation-list poll for the whole
// session, and one poll scoped to the active conversation.
type Session struct {
	store  Store
	userID int64
	cfg    Config
	log    *logrus.Logger

	mu             sync.Mutex
	rootCtx        context.Context
	rootCancel     context.CancelFunc
	conversations  []models.ConversationSummary
	activeID       int64
	activeMessages []models.ChatMessage
	activeCancel   context.CancelFunc
	pending        []pendingSend
	marking        map[int64]bool
	typingTimer    *time.Timer
}

func NewSession(store Store, userID int64, cfg Config) *Session {
	if cfg.ListPollInterval <= 0 {
		cfg.ListPollInterval = defaultListPollInterval
	}
	if cfg.MessagePollInterval <= 0 {
		cfg.MessagePollInterval = defaultMessagePollInterval
	}
	if cfg.TypingDebounce <= 0 {
		cfg.TypingDebounce = defaultTypingDebounce
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	return &Session{
		store:   store,
		userID:  userID,
		cfg:     cfg,
		log:     cfg.Logger,
		marking: make(map[int64]bool),
	}
}

// Start begins the conversation-list poll. The session stops when ctx is
// canceled or Close is called.
func (s *Session) Start(ctx context.Context) {
	s.mu.Lock()
	if s.rootCtx != nil {
		s.mu.Unlock()
		return
	}
	s.rootCtx, s.rootCancel = context.WithCancel(ctx)
	rootCtx := s.rootCtx
	s.mu.Unlock()

	go s.listLoop(rootCtx)
}

func (s *Session) Close() {
	s.mu.Lock()
	if s.rootCancel != nil {
		s.rootCancel()
	}
	if s.activeCancel != nil {
		s.activeCancel()
		s.activeCancel = nil
	}
	if s.typingTimer != nil {
		s.typingTimer.Stop()
		s.typingTimer = nil
	}
	s.activeID = 0
	s.mu.Unlock()
}

// OpenWith resolves (creating if needed) the conversation with partnerID
// and makes it active. Both sides calling this at once converge on the
// same conversation; the server canonicalizes the pair.
func (s *Session) OpenWith(partnerID int64) (int64, error) {
	ctx, err := s.root()
	if err != nil {
		return 0, err
	}

	conversation, err := s.store.StartConversation(ctx, partnerID)
	if err != nil {
		return 0, err
	}
	if err := s.SetActive(conversation.ID); err != nil {
		return 0, err
	}
	return conversation.ID, nil
}

// SetActive switches the active conversation, fetching its transcript
// before activation so an externally supplied id (a deep link) is
// validated by the server: ids the user does not belong to are rejected
// here and never become active. Passing 0 deactivates.
func (s *Session) SetActive(conversationID int64) error {
	if conversationID == 0 {
		s.ClearActive()
		return nil
	}

	ctx, err := s.root()
	if err != nil {
		return err
	}

	messages, err := s.store.Messages(ctx, conversationID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.activeCancel != nil {
		s.activeCancel()
	}
	pollCtx, cancel := context.WithCancel(s.rootCtx)
	s.activeCancel = cancel
	s.activeID = conversationID
	s.activeMessages = nil
	s.mu.Unlock()

	s.applyMessages(conversationID, messages)
	go s.messageLoop(pollCtx, conversationID)
	return nil
}

// ClearActive stops the scoped poll and drops the active transcript. The
// conversation-list poll keeps running.
func (s *Session) ClearActive() {
	s.mu.Lock()
	if s.activeCancel != nil {
		s.activeCancel()
		s.activeCancel = nil
	}
	s.activeID = 0
	s.activeMessages = nil
	s.mu.Unlock()
	s.notify()
}

// Send appends an optimistic entry to the active transcript and delivers
// it in the background. The returned client ref identifies the entry until
// the authoritative re-read replaces it; on failure the entry turns Failed
// and can be retried or discarded by ref.
func (s *Session) Send(content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", ErrEmptyMessage
	}

	if _, err := s.root(); err != nil {
		return "", err
	}

	s.mu.Lock()
	conversationID := s.activeID
	if conversationID == 0 {
		s.mu.Unlock()
		return "", ErrNoActiveConversation
	}
	clientRef := uuid.NewString()
	s.pending = append(s.pending, pendingSend{
		clientRef:      clientRef,
		conversationID: conversationID,
		content:        trimmed,
		createdAt:      time.Now(),
	})
	s.applyPendingPreviewsLocked()
	s.mu.Unlock()
	s.notify()

	go s.deliver(conversationID, trimmed, clientRef)
	return clientRef, nil
}

// Retry re-delivers a failed optimistic send under its original client
// ref; the server deduplicates by ref, so a send that actually landed is
// not duplicated.
func (s *Session) Retry(clientRef string) error {
	s.mu.Lock()
	var target *pendingSend
	for i := range s.pending {
		if s.pending[i].clientRef == clientRef {
			target = &s.pending[i]
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		return ErrUnknownClientRef
	}
	target.failed = false
	conversationID, content := target.conversationID, target.content
	s.mu.Unlock()
	s.notify()

	go s.deliver(conversationID, content, clientRef)
	return nil
}

// Discard drops a failed optimistic send from the transcript.
func (s *Session) Discard(clientRef string) {
	s.mu.Lock()
	kept := s.pending[:0]
	for _, p := range s.pending {
		if p.clientRef != clientRef {
			kept = append(kept, p)
		}
	}
	s.pending = kept
	s.applyPendingPreviewsLocked()
	s.mu.Unlock()
	s.notify()
}

// InputChanged records a keystroke in the active conversation's compose
// box: the typing signal is set immediately and cleared once no further
// keystroke arrives within the debounce interval.
func (s *Session) InputChanged() {
	ctx, err := s.root()
	if err != nil {
		return
	}

	s.mu.Lock()
	conversationID := s.activeID
	if conversationID == 0 {
		s.mu.Unlock()
		return
	}
	if s.typingTimer != nil {
		s.typingTimer.Stop()
	}
	s.typingTimer = time.AfterFunc(s.cfg.TypingDebounce, func() {
		s.stopTyping(conversationID)
	})
	s.mu.Unlock()

	go func() {
		if err := s.store.SetTyping(ctx, conversationID, true); err != nil {
			s.log.WithFields(logrus.Fields{
				"conversation_id": conversationID,
				"error":           err.Error(),
			}).Debug("typing signal dropped")
		}
	}()
}

// Conversations returns the current conversation list view, newest
// activity first, with optimistic previews applied.
func (s *Session) Conversations() []models.ConversationSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.ConversationSummary, len(s.conversations))
	copy(out, s.conversations)
	return out
}

func (s *Session) ActiveConversationID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

// Transcript returns the active conversation's messages oldest first:
// server-confirmed entries followed by optimistic sends not yet
// confirmed.
func (s *Session) Transcript() []TranscriptEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make([]TranscriptEntry, 0, len(s.activeMessages)+len(s.pending))
	for _, message := range s.activeMessages {
		ref := ""
		if message.ClientRef != nil {
			ref = *message.ClientRef
		}
		entries = append(entries, TranscriptEntry{
			ChatMessage: message,
			Ref:         ref,
			State:       DeliveryConfirmed,
		})
	}
	for _, p := range s.pending {
		if p.conversationID != s.activeID {
			continue
		}
		state := DeliveryPending
		if p.failed {
			state = DeliveryFailed
		}
		entries = append(entries, TranscriptEntry{
			ChatMessage: models.ChatMessage{
				ConversationID: p.conversationID,
				SenderID:       s.userID,
				Content:        p.content,
				CreatedAt:      p.createdAt,
			},
			Ref:   p.clientRef,
			State: state,
		})
	}
	return entries
}

func (s *Session) root() (context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rootCtx == nil {
		return nil, ErrNotStarted
	}
	return s.rootCtx, nil
}

func (s *Session) listLoop(ctx context.Context) {
	s.refreshConversations(ctx)

	ticker := time.NewTicker(s.cfg.ListPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refreshConversations(ctx)
		}
	}
}

func (s *Session) messageLoop(ctx context.Context, conversationID int64) {
	ticker := time.NewTicker(s.cfg.MessagePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			messages, err := s.store.Messages(ctx, conversationID)
			if err != nil {
				if ctx.Err() == nil {
					s.log.WithFields(logrus.Fields{
						"conversation_id": conversationID,
						"error":           err.Error(),
					}).Debug("message poll tick failed")
				}
				continue
			}
			s.applyMessages(conversationID, messages)
		}
	}
}

// refreshConversations replaces the conversation list wholesale with
// server truth, then re-derives the optimistic previews on top.
func (s *Session) refreshConversations(ctx context.Context) {
	conversations, err := s.store.Conversations(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.WithFields(logrus.Fields{
				"error": err.Error(),
			}).Debug("conversation list poll tick failed")
		}
		return
	}

	s.mu.Lock()
	s.conversations = conversations
	s.applyPendingPreviewsLocked()
	s.mu.Unlock()
	s.notify()
}

// applyMessages installs a fetched transcript if it still belongs to the
// active conversation. Responses issued for a conversation that is no
// longer active are discarded, never merged.
func (s *Session) applyMessages(conversationID int64, messages []models.ChatMessage) {
	s.mu.Lock()
	if s.activeID != conversationID {
		s.mu.Unlock()
		return
	}
	s.activeMessages = messages
	s.reconcilePendingLocked(messages)

	unseenInbound := false
	for _, message := range messages {
		if message.SenderID != s.userID && !message.IsSeen {
			unseenInbound = true
			break
		}
	}
	shouldMark := unseenInbound && !s.marking[conversationID]
	if shouldMark {
		s.marking[conversationID] = true
	}
	ctx := s.rootCtx
	s.mu.Unlock()
	s.notify()

	if shouldMark {
		go s.markSeen(ctx, conversationID)
	}
}

// markSeen clears the partner's unseen flags and forces a list refresh so
// the unread badge drops without waiting for the next tick.
func (s *Session) markSeen(ctx context.Context, conversationID int64) {
	if err := s.store.MarkSeen(ctx, conversationID); err != nil && ctx.Err() == nil {
		s.log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"error":           err.Error(),
		}).Debug("mark seen failed")
	}

	s.mu.Lock()
	delete(s.marking, conversationID)
	s.mu.Unlock()

	s.refreshConversations(ctx)
}

func (s *Session) deliver(conversationID int64, content, clientRef string) {
	ctx, err := s.root()
	if err != nil {
		return
	}

	if _, err := s.store.SendMessage(ctx, conversationID, content, clientRef); err != nil {
		s.log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"client_ref":      clientRef,
			"error":           err.Error(),
		}).Warn("send failed")

		s.mu.Lock()
		for i := range s.pending {
			if s.pending[i].clientRef == clientRef {
				s.pending[i].failed = true
			}
		}
		s.mu.Unlock()
		if s.cfg.OnSendFailure != nil {
			s.cfg.OnSendFailure(clientRef, err)
		}
		s.notify()
		return
	}

	if messages, err := s.store.Messages(ctx, conversationID); err == nil {
		s.applyMessages(conversationID, messages)
	}
	s.refreshConversations(ctx)
}

func (s *Session) stopTyping(conversationID int64) {
	ctx, err := s.root()
	if err != nil {
		return
	}
	if err := s.store.SetTyping(ctx, conversationID, false); err != nil && ctx.Err() == nil {
		s.log.WithFields(logrus.Fields{
			"conversation_id": conversationID,
			"error":           err.Error(),
		}).Debug("typing clear dropped")
	}
}

// reconcilePendingLocked retires optimistic entries whose client ref now
// appears in the authoritative transcript.
func (s *Session) reconcilePendingLocked(messages []models.ChatMessage) {
	if len(s.pending) == 0 {
		return
	}

	confirmed := make(map[string]struct{}, len(messages))
	for _, message := range messages {
		if message.ClientRef != nil {
			confirmed[*message.ClientRef] = struct{}{}
		}
	}

	kept := s.pending[:0]
	for _, p := range s.pending {
		if _, ok := confirmed[p.clientRef]; ok {
			continue
		}
		kept = append(kept, p)
	}
	s.pending = kept
}

// applyPendingPreviewsLocked re-derives the optimistic last-message
// previews after a wholesale list replacement.
func (s *Session) applyPendingPreviewsLocked() {
	for _, p := range s.pending {
		for i := range s.conversations {
			entry := &s.conversations[i]
			if entry.ID != p.conversationID {
				continue
			}
			if entry.LastMessage == nil || entry.LastMessage.CreatedAt.Before(p.createdAt) {
				entry.LastMessage = &models.ChatMessage{
					ConversationID: p.conversationID,
					SenderID:       s.userID,
					Content:        p.content,
					CreatedAt:      p.createdAt,
				}
			}
		}
	}
}

func (s *Session) notify() {
	if s.cfg.OnUpdate != nil {
		s.cfg.OnUpdate()
	}
}
