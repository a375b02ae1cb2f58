package models

import (
	"testing"
	"time"
)

func TestTypingActiveWindow(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	if !TypingActive(now, now) {
		t.Fatalf("expected signal stamped now to be active")
	}
	if !TypingActive(now.Add(-1500*time.Millisecond), now) {
		t.Fatalf("expected signal within one debounce interval to be active")
	}
	if !TypingActive(now.Add(-TypingWindow+time.Millisecond), now) {
		t.Fatalf("expected signal just inside the window to be active")
	}
	if TypingActive(now.Add(-TypingWindow), now) {
		t.Fatalf("expected signal at the window edge to be stale")
	}
	if TypingActive(now.Add(-10*time.Second), now) {
		t.Fatalf("expected old signal to be stale")
	}
}

func TestTypingWindowIsTwiceTheDebounceInterval(t *testing.T) {
	// The client debounces the stop-typing call at 1500 ms; the window must
	// tolerate exactly one missed tick.
	if TypingWindow != 2*1500*time.Millisecond {
		t.Fatalf("typing window drifted from twice the debounce interval: %v", TypingWindow)
	}
}

func TestConversationPartnerID(t *testing.T) {
	conversation := Conversation{ID: 1, UserAID: 3, UserBID: 9}

	if got := conversation.PartnerID(3); got != 9 {
		t.Fatalf("expected partner 9, got %d", got)
	}
	if got := conversation.PartnerID(9); got != 3 {
		t.Fatalf("expected partner 3, got %d", got)
	}
	if !conversation.HasParticipant(3) || !conversation.HasParticipant(9) {
		t.Fatalf("expected both members to be participants")
	}
	if conversation.HasParticipant(5) {
		t.Fatalf("expected outsider to not be a participant")
	}
}
