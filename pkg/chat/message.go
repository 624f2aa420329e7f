package chat

import (
	"encoding/json"
	"fmt"
	"time"
)

// SenderType identifies which side of a Conversation wrote a Message
type SenderType string

const (
	SenderUser  SenderType = "user"
	SenderAdmin SenderType = "admin"
)

// Valid reports whether s is one of the known sender types
func (s SenderType) Valid() bool {
	return s == SenderUser || s == SenderAdmin
}

// UnmarshalJSON rejects sender types the backend does not define
func (s *SenderType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	sender := SenderType(raw)
	if !sender.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidSenderType, raw)
	}
	*s = sender
	return nil
}

// Message is a single message exchanged in a Conversation
type Message struct {
	ID             string     `json:"id,omitempty"`
	ConversationID string     `json:"conversationId,omitempty"`
	Content        string     `json:"content"`
	SenderType     SenderType `json:"senderType"`
	IsRead         bool       `json:"isRead"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
	// ClientID correlates an optimistic message with the server's copy
	ClientID string `json:"clientId,omitempty"`
	// Pending is set on locally constructed messages until reconciled
	Pending bool `json:"-"`
}

// NewPendingMessage builds the optimistic copy of a message about to be sent
func NewPendingMessage(conversationID, content string, sender SenderType, clientID string, now time.Time) Message {
	createdAt := now
	return Message{
		ConversationID: conversationID,
		Content:        content,
		SenderType:     sender,
		IsRead:         sender == SenderAdmin,
		CreatedAt:      &createdAt,
		ClientID:       clientID,
		Pending:        true,
	}
}

func (m Message) timestamp() time.Time {
	if m.CreatedAt == nil {
		return time.Time{}
	}
	return *m.CreatedAt
}
