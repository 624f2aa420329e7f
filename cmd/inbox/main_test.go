package main

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-Bureau/supportchat/pkg/chat"
	"github.com/City-Bureau/supportchat/pkg/locale"
)

type fakeSelector struct {
	conversations []chat.Conversation
	err           error
	selected      string
}

func (f *fakeSelector) Select(_ context.Context, conversationID string) error {
	f.selected = conversationID
	return f.err
}

func (f *fakeSelector) Conversations() []chat.Conversation {
	return f.conversations
}

func TestOpenConversationReportsFailure(t *testing.T) {
	l, err := locale.NewLocalizer("en")
	require.NoError(t, err)
	dashboard := &fakeSelector{
		conversations: []chat.Conversation{{ID: "abc123"}, {ID: "def456"}},
		err:           errors.New("status 500"),
	}
	var out bytes.Buffer

	err = openConversation(context.Background(), dashboard, "2", &out, l)

	assert.Error(t, err)
	assert.Equal(t, "def456", dashboard.selected)
	assert.Equal(t, "Could not open conversation def456\n", out.String())
}

func TestOpenConversationIsQuietOnSuccess(t *testing.T) {
	l, err := locale.NewLocalizer("en")
	require.NoError(t, err)
	dashboard := &fakeSelector{}
	var out bytes.Buffer

	require.NoError(t, openConversation(context.Background(), dashboard, "abc123", &out, l))
	assert.Equal(t, "abc123", dashboard.selected)
	assert.Empty(t, out.String())
}
