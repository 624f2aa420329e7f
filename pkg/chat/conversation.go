package chat

import (
	"encoding/json"
	"time"
)

// Status is the lifecycle state the backend reports for a Conversation
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// Conversation is the client's read-only copy of a backend conversation.
// Messages are ordered most recent first, so the first one is the preview.
type Conversation struct {
	ID        string     `json:"id"`
	Status    Status     `json:"status"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Messages  []Message  `json:"messages"`
}

// UnmarshalJSON accepts conversationId as an alias for id, which is how
// some pushed events name the conversation.
func (c *Conversation) UnmarshalJSON(data []byte) error {
	type conversationJSON Conversation
	var raw struct {
		conversationJSON
		ConversationID string `json:"conversationId"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*c = Conversation(raw.conversationJSON)
	if c.ID == "" {
		c.ID = raw.ConversationID
	}
	return nil
}

// Preview returns the most recent message, if any
func (c Conversation) Preview() (Message, bool) {
	if len(c.Messages) == 0 {
		return Message{}, false
	}
	return c.Messages[0], true
}

// Unread is true when the latest message came from the user and nobody has read it
func (c Conversation) Unread() bool {
	preview, ok := c.Preview()
	return ok && preview.SenderType == SenderUser && !preview.IsRead
}
