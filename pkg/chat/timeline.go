package chat

import (
	"sync"
	"time"
)

// DefaultReconcileWindow bounds how far apart an optimistic message and its
// server copy may be when they can only be matched on content.
const DefaultReconcileWindow = 30 * time.Second

// Timeline is an ordered message list, most recent first, that holds
// optimistic messages until the server's copy arrives.
type Timeline struct {
	mu       sync.Mutex
	messages []Message
	window   time.Duration
}

// NewTimeline creates an empty Timeline. A zero window uses DefaultReconcileWindow.
func NewTimeline(window time.Duration) *Timeline {
	if window <= 0 {
		window = DefaultReconcileWindow
	}
	return &Timeline{window: window}
}

// AddPending prepends an optimistic message
func (t *Timeline) AddPending(message Message) {
	message.Pending = true
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = prepend(t.messages, message)
}

// Receive applies a message from the server. It replaces the entry already
// holding its id or the pending entry it confirms and returns true, or
// prepends it and returns false.
func (t *Timeline) Receive(message Message) bool {
	message.Pending = false
	t.mu.Lock()
	defer t.mu.Unlock()

	if message.ID != "" {
		for i, existing := range t.messages {
			if existing.ID == message.ID {
				t.messages[i] = message
				return true
			}
		}
	}
	if idx := t.matchPending(t.messages, message); idx >= 0 {
		t.messages[idx] = message
		return true
	}
	t.messages = prepend(t.messages, message)
	return false
}

// Reset replaces the list with an authoritative history. Pending messages
// not confirmed by that history are kept in front of it.
func (t *Timeline) Reset(history []Message) {
	t.mu.Lock()
	defer t.mu.Unlock()

	confirmed := make([]Message, len(history))
	copy(confirmed, history)
	for i := range confirmed {
		confirmed[i].Pending = false
	}

	var stillPending []Message
	claimed := make(map[int]bool)
	for _, pending := range t.messages {
		if !pending.Pending {
			continue
		}
		if idx := t.matchConfirmed(confirmed, pending, claimed); idx >= 0 {
			claimed[idx] = true
			continue
		}
		stillPending = append(stillPending, pending)
	}
	t.messages = append(stillPending, confirmed...)
}

// Messages returns a copy of the list
func (t *Timeline) Messages() []Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len is the number of messages held
func (t *Timeline) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.messages)
}

// First returns the most recent message
func (t *Timeline) First() (Message, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.messages) == 0 {
		return Message{}, false
	}
	return t.messages[0], true
}

// matchPending finds the pending entry confirmed by message. A client id
// match wins; otherwise the oldest pending entry with the same content
// inside the window is chosen.
func (t *Timeline) matchPending(messages []Message, message Message) int {
	fallback := -1
	for i, candidate := range messages {
		if !candidate.Pending {
			continue
		}
		if message.ClientID != "" && candidate.ClientID == message.ClientID {
			return i
		}
		if correlatable(candidate, message) && t.sameContent(candidate, message) {
			// list is newest first, so later hits are older
			fallback = i
		}
	}
	return fallback
}

func (t *Timeline) matchConfirmed(confirmed []Message, pending Message, claimed map[int]bool) int {
	fallback := -1
	for i, candidate := range confirmed {
		if claimed[i] {
			continue
		}
		if pending.ClientID != "" && candidate.ClientID == pending.ClientID {
			return i
		}
		if fallback < 0 && correlatable(pending, candidate) && t.sameContent(pending, candidate) {
			fallback = i
		}
	}
	return fallback
}

func (t *Timeline) sameContent(pending, confirmed Message) bool {
	if pending.Content != confirmed.Content || pending.SenderType != confirmed.SenderType {
		return false
	}
	if pending.ConversationID != "" && confirmed.ConversationID != "" && pending.ConversationID != confirmed.ConversationID {
		return false
	}
	sent, got := pending.timestamp(), confirmed.timestamp()
	if sent.IsZero() || got.IsZero() {
		return true
	}
	delta := got.Sub(sent)
	if delta < 0 {
		delta = -delta
	}
	return delta <= t.window
}

// correlatable is false when both sides carry different correlation ids
func correlatable(a, b Message) bool {
	return a.ClientID == "" || b.ClientID == "" || a.ClientID == b.ClientID
}

func prepend(messages []Message, message Message) []Message {
	out := make([]Message, 0, len(messages)+1)
	out = append(out, message)
	return append(out, messages...)
}
