// Package realtimetest runs an in-process WebSocket backend for tests of
// code built on realtime sessions.
package realtimetest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/City-Bureau/supportchat/pkg/realtime"
)

// Timeout bounds every wait in this package
const Timeout = 2 * time.Second

// Backend accepts WebSocket connections and records every frame clients send
type Backend struct {
	server *httptest.Server

	frames       chan realtime.Event
	connects     chan *websocket.Conn
	disconnects  chan struct{}
	mu           sync.Mutex
	current      *websocket.Conn
	connectCount int
}

// NewBackend starts a backend that is shut down when the test ends
func NewBackend(t testing.TB) *Backend {
	t.Helper()
	b := &Backend{
		frames:      make(chan realtime.Event, 64),
		connects:    make(chan *websocket.Conn, 8),
		disconnects: make(chan struct{}, 8),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	b.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		b.mu.Lock()
		b.connectCount++
		b.mu.Unlock()
		b.connects <- conn
		defer func() {
			conn.Close()
			b.disconnects <- struct{}{}
		}()
		for {
			_, frame, err := conn.ReadMessage()
			if err != nil {
				return
			}
			event, err := realtime.Decode(frame)
			if err != nil {
				t.Errorf("backend received undecodable frame %q: %v", frame, err)
				continue
			}
			b.frames <- event
		}
	}))
	t.Cleanup(b.server.Close)
	return b
}

// URL is the ws:// address clients dial
func (b *Backend) URL() string {
	return "ws" + strings.TrimPrefix(b.server.URL, "http") + "/ws"
}

// Connections is how many clients have connected so far
func (b *Backend) Connections() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectCount
}

// Next waits for the next frame a client sent
func (b *Backend) Next(t testing.TB) realtime.Event {
	t.Helper()
	select {
	case event := <-b.frames:
		return event
	case <-time.After(Timeout):
		t.Fatalf("no frame received within %s", Timeout)
		return nil
	}
}

// ExpectNoFrame fails if a client sends anything within wait
func (b *Backend) ExpectNoFrame(t testing.TB, wait time.Duration) {
	t.Helper()
	select {
	case event := <-b.frames:
		t.Fatalf("unexpected frame %s: %+v", event.Type(), event)
	case <-time.After(wait):
	}
}

// WaitDisconnect waits for a client connection to end
func (b *Backend) WaitDisconnect(t testing.TB) {
	t.Helper()
	select {
	case <-b.disconnects:
	case <-time.After(Timeout):
		t.Fatalf("client did not disconnect within %s", Timeout)
	}
}

// Push sends an event to the most recently connected client
func (b *Backend) Push(t testing.TB, event realtime.Event) {
	t.Helper()
	frame, err := realtime.Encode(event)
	if err != nil {
		t.Fatalf("encode %s: %v", event.Type(), err)
	}
	b.PushRaw(t, frame)
}

// PushRaw sends an arbitrary text frame to the most recently connected client
func (b *Backend) PushRaw(t testing.TB, frame []byte) {
	t.Helper()
	conn := b.conn(t)
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		t.Fatalf("push frame: %v", err)
	}
}

// Drop closes the most recent connection from the server side
func (b *Backend) Drop(t testing.TB) {
	t.Helper()
	conn := b.conn(t)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
		time.Now().Add(Timeout))
	_ = conn.Close()
}

func (b *Backend) conn(t testing.TB) *websocket.Conn {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
drain:
	for {
		select {
		case conn := <-b.connects:
			b.current = conn
		default:
			break drain
		}
	}
	if b.current != nil {
		return b.current
	}
	select {
	case conn := <-b.connects:
		b.current = conn
		return conn
	case <-time.After(Timeout):
		t.Fatalf("no client connected within %s", Timeout)
		return nil
	}
}
