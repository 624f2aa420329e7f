package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/City-Bureau/supportchat/pkg/chat"
)

// BackendMock is a mock for the chat backend REST API
type BackendMock struct {
	mock.Mock
}

// CreateConversation mocks starting a conversation
func (m *BackendMock) CreateConversation(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// ListConversations mocks listing conversations
func (m *BackendMock) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	args := m.Called(ctx)
	conversations, _ := args.Get(0).([]chat.Conversation)
	return conversations, args.Error(1)
}

// ListMessages mocks loading a conversation's history
func (m *BackendMock) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	args := m.Called(ctx, conversationID)
	messages, _ := args.Get(0).([]chat.Message)
	return messages, args.Error(1)
}

// MarkRead mocks marking a conversation read
func (m *BackendMock) MarkRead(ctx context.Context, conversationID string) error {
	args := m.Called(ctx, conversationID)
	return args.Error(0)
}
