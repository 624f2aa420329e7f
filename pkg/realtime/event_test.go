package realtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-Bureau/supportchat/pkg/chat"
)

func TestEncodeJoinDashboardHasEmptyObject(t *testing.T) {
	frame, err := Encode(JoinDashboard{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"join_dashboard","data":{}}`, string(frame))
}

func TestEncodeSendMessage(t *testing.T) {
	frame, err := Encode(SendMessage{ConversationID: "abc123", Content: "hello", SenderType: chat.SenderUser})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"send_message","data":{"conversationId":"abc123","content":"hello","senderType":"user"}}`, string(frame))
}

func TestDecodeNewMessage(t *testing.T) {
	event, err := Decode([]byte(`{"type":"new_message","data":{"id":"m1","conversationId":"abc123","content":"hi","senderType":"admin","isRead":false,"createdAt":"2024-05-01T10:00:00Z"}}`))
	require.NoError(t, err)

	msg, ok := event.(NewMessage)
	require.True(t, ok, "got %T", event)
	assert.Equal(t, "m1", msg.Message.ID)
	assert.Equal(t, chat.SenderAdmin, msg.Message.SenderType)
	assert.Equal(t, "abc123", ConversationID(event))
}

func TestDecodeNewConversationWithConversationID(t *testing.T) {
	event, err := Decode([]byte(`{"type":"new_conversation","data":{"conversationId":"xyz"}}`))
	require.NoError(t, err)
	assert.Equal(t, TypeNewConversation, event.Type())
	assert.Equal(t, "xyz", ConversationID(event))
}

func TestDecodeConversationUpdatedKeepsExtraFields(t *testing.T) {
	event, err := Decode([]byte(`{"type":"conversation_updated","data":{"conversationId":"abc123","status":"closed","unreadCount":3}}`))
	require.NoError(t, err)
	assert.Equal(t, ConversationUpdated{ConversationID: "abc123", Status: chat.StatusClosed}, event)
}

func TestDecodeUnknownType(t *testing.T) {
	_, err := Decode([]byte(`{"type":"typing","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestDecodeRejectsBadSender(t *testing.T) {
	_, err := Decode([]byte(`{"type":"new_message","data":{"content":"x","senderType":"robot"}}`))
	assert.ErrorIs(t, err, chat.ErrInvalidSenderType)
}
