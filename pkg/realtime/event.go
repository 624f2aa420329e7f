package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/City-Bureau/supportchat/pkg/chat"
)

// EventType is the envelope discriminator on the wire
type EventType string

const (
	TypeJoinRoom            EventType = "join_room"
	TypeJoinDashboard       EventType = "join_dashboard"
	TypeSendMessage         EventType = "send_message"
	TypeNewMessage          EventType = "new_message"
	TypeConversationUpdated EventType = "conversation_updated"
	TypeNewConversation     EventType = "new_conversation"
)

// ErrUnknownEvent is returned when decoding an envelope with an unrecognized type
var ErrUnknownEvent = errors.New("unknown event type")

// Event is one of the six protocol events. The set is closed: only the
// types declared in this file implement it.
type Event interface {
	Type() EventType
	isEvent()
}

// JoinRoom subscribes an end user to one conversation
type JoinRoom struct {
	ConversationID string `json:"conversationId"`
}

// JoinDashboard subscribes an admin to every conversation
type JoinDashboard struct{}

// SendMessage submits a new message
type SendMessage struct {
	ConversationID string          `json:"conversationId"`
	Content        string          `json:"content"`
	SenderType     chat.SenderType `json:"senderType"`
	ClientID       string          `json:"clientId,omitempty"`
}

// NewMessage is pushed after the backend persisted a message
type NewMessage struct {
	Message chat.Message
}

// ConversationUpdated is pushed when conversation metadata changed
type ConversationUpdated struct {
	ConversationID string      `json:"conversationId"`
	Status         chat.Status `json:"status,omitempty"`
	UpdatedAt      *time.Time  `json:"updatedAt,omitempty"`
}

// NewConversation is pushed when a conversation is created
type NewConversation struct {
	Conversation chat.Conversation
}

func (JoinRoom) Type() EventType            { return TypeJoinRoom }
func (JoinDashboard) Type() EventType       { return TypeJoinDashboard }
func (SendMessage) Type() EventType         { return TypeSendMessage }
func (NewMessage) Type() EventType          { return TypeNewMessage }
func (ConversationUpdated) Type() EventType { return TypeConversationUpdated }
func (NewConversation) Type() EventType     { return TypeNewConversation }

func (JoinRoom) isEvent()            {}
func (JoinDashboard) isEvent()       {}
func (SendMessage) isEvent()         {}
func (NewMessage) isEvent()          {}
func (ConversationUpdated) isEvent() {}
func (NewConversation) isEvent()     {}

// ConversationID names the conversation an inbound event concerns
func ConversationID(event Event) string {
	switch e := event.(type) {
	case JoinRoom:
		return e.ConversationID
	case SendMessage:
		return e.ConversationID
	case NewMessage:
		return e.Message.ConversationID
	case ConversationUpdated:
		return e.ConversationID
	case NewConversation:
		return e.Conversation.ID
	}
	return ""
}

type envelope struct {
	Type EventType       `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Encode wraps an event in its {type, data} envelope
func Encode(event Event) ([]byte, error) {
	var payload interface{}
	switch e := event.(type) {
	case NewMessage:
		payload = e.Message
	case NewConversation:
		payload = e.Conversation
	case JoinDashboard:
		payload = struct{}{}
	default:
		payload = e
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", event.Type(), err)
	}
	return json.Marshal(envelope{Type: event.Type(), Data: data})
}

// Decode parses an envelope into its typed event
func Decode(frame []byte) (Event, error) {
	var env envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("decode envelope: %w", err)
	}
	data := env.Data
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	var (
		event Event
		err   error
	)
	switch env.Type {
	case TypeJoinRoom:
		var e JoinRoom
		err = json.Unmarshal(data, &e)
		event = e
	case TypeJoinDashboard:
		event = JoinDashboard{}
	case TypeSendMessage:
		var e SendMessage
		err = json.Unmarshal(data, &e)
		event = e
	case TypeNewMessage:
		var e NewMessage
		err = json.Unmarshal(data, &e.Message)
		event = e
	case TypeConversationUpdated:
		var e ConversationUpdated
		err = json.Unmarshal(data, &e)
		event = e
	case TypeNewConversation:
		var e NewConversation
		err = json.Unmarshal(data, &e.Conversation)
		event = e
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", env.Type, err)
	}
	return event, nil
}
