package realtime_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/City-Bureau/supportchat/pkg/chat"
	"github.com/City-Bureau/supportchat/pkg/realtime"
	"github.com/City-Bureau/supportchat/pkg/realtime/realtimetest"
)

type recorder struct {
	mu     sync.Mutex
	events []realtime.Event
	signal chan struct{}
}

func newRecorder() *recorder {
	return &recorder{signal: make(chan struct{}, 64)}
}

func (r *recorder) handle(event realtime.Event) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	r.signal <- struct{}{}
}

func (r *recorder) wait(t *testing.T, n int) []realtime.Event {
	t.Helper()
	deadline := time.After(realtimetest.Timeout)
	for {
		r.mu.Lock()
		if len(r.events) >= n {
			out := append([]realtime.Event(nil), r.events...)
			r.mu.Unlock()
			return out
		}
		r.mu.Unlock()
		select {
		case <-r.signal:
		case <-deadline:
			t.Fatalf("expected %d events", n)
		}
	}
}

func TestOpenAnnouncesConversationScope(t *testing.T) {
	backend := realtimetest.NewBackend(t)
	session, err := realtime.Open(context.Background(), realtime.Options{
		URL:   backend.URL(),
		Scope: realtime.ConversationScope("abc123"),
	})
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, realtime.StateOpen, session.State())
	assert.Equal(t, realtime.JoinRoom{ConversationID: "abc123"}, backend.Next(t))
}

func TestOpenAnnouncesDashboardScope(t *testing.T) {
	backend := realtimetest.NewBackend(t)
	session, err := realtime.Open(context.Background(), realtime.Options{
		URL:   backend.URL(),
		Scope: realtime.DashboardScope(),
	})
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, realtime.JoinDashboard{}, backend.Next(t))
}

func TestOpenRequiresConversationID(t *testing.T) {
	session, err := realtime.Open(context.Background(), realtime.Options{
		URL:   "ws://127.0.0.1:1/ws",
		Scope: realtime.ConversationScope(""),
	})
	assert.ErrorIs(t, err, realtime.ErrNoConversation)
	assert.Nil(t, session)
}

func TestOpenFailureLeavesNoSession(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	session, err := realtime.Open(ctx, realtime.Options{
		URL:   "ws://127.0.0.1:1/ws",
		Scope: realtime.DashboardScope(),
	})
	require.Error(t, err)
	assert.Equal(t, realtime.StateClosed, session.State())
	assert.NotPanics(t, session.Close)
	assert.ErrorIs(t, session.Send(ctx, realtime.SendMessage{ConversationID: "abc123", Content: "hi"}), realtime.ErrNotConnected)
}

func TestCloseLeavesNoOpenConnection(t *testing.T) {
	backend := realtimetest.NewBackend(t)
	session, err := realtime.Open(context.Background(), realtime.Options{
		URL:   backend.URL(),
		Scope: realtime.ConversationScope("abc123"),
	})
	require.NoError(t, err)
	backend.Next(t)

	session.Close()
	session.Close()

	assert.Equal(t, realtime.StateClosed, session.State())
	backend.WaitDisconnect(t)
	select {
	case <-session.Done():
	case <-time.After(realtimetest.Timeout):
		t.Fatal("read loop still running after close")
	}
}

func TestSendWritesOneFrame(t *testing.T) {
	backend := realtimetest.NewBackend(t)
	session, err := realtime.Open(context.Background(), realtime.Options{
		URL:   backend.URL(),
		Scope: realtime.ConversationScope("abc123"),
	})
	require.NoError(t, err)
	defer session.Close()
	backend.Next(t)

	msg := realtime.SendMessage{ConversationID: "abc123", Content: "hello", SenderType: chat.SenderUser, ClientID: "c-1"}
	require.NoError(t, session.Send(context.Background(), msg))

	assert.Equal(t, msg, backend.Next(t))
	backend.ExpectNoFrame(t, 100*time.Millisecond)
}

func TestSendAfterCloseWritesNothing(t *testing.T) {
	backend := realtimetest.NewBackend(t)
	session, err := realtime.Open(context.Background(), realtime.Options{
		URL:   backend.URL(),
		Scope: realtime.ConversationScope("abc123"),
	})
	require.NoError(t, err)
	backend.Next(t)
	session.Close()

	err = session.Send(context.Background(), realtime.SendMessage{ConversationID: "abc123", Content: "hello", SenderType: chat.SenderUser})
	assert.ErrorIs(t, err, realtime.ErrNotConnected)
	backend.ExpectNoFrame(t, 100*time.Millisecond)
}

func TestInboundEventsDispatchInOrder(t *testing.T) {
	backend := realtimetest.NewBackend(t)
	events := newRecorder()
	session, err := realtime.Open(context.Background(), realtime.Options{
		URL:     backend.URL(),
		Scope:   realtime.DashboardScope(),
		Handler: events.handle,
	})
	require.NoError(t, err)
	defer session.Close()
	backend.Next(t)

	backend.Push(t, realtime.NewConversation{Conversation: chat.Conversation{ID: "xyz"}})
	backend.PushRaw(t, []byte(`{"type":"typing","data":{}}`))
	backend.PushRaw(t, []byte(`not json`))
	backend.Push(t, realtime.ConversationUpdated{ConversationID: "abc123"})

	got := events.wait(t, 2)
	require.Len(t, got, 2)
	assert.Equal(t, "xyz", realtime.ConversationID(got[0]))
	assert.Equal(t, realtime.ConversationUpdated{ConversationID: "abc123"}, got[1])
}

func TestPeerDropClosesSession(t *testing.T) {
	backend := realtimetest.NewBackend(t)
	session, err := realtime.Open(context.Background(), realtime.Options{
		URL:   backend.URL(),
		Scope: realtime.ConversationScope("abc123"),
	})
	require.NoError(t, err)
	backend.Next(t)

	backend.Drop(t)

	select {
	case <-session.Done():
	case <-time.After(realtimetest.Timeout):
		t.Fatal("session did not notice the dropped connection")
	}
	assert.Equal(t, realtime.StateClosed, session.State())
	assert.Equal(t, 1, backend.Connections())
}
