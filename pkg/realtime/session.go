// Package realtime implements the WebSocket session the widget and the
// inbox open against the chat backend.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	maxFrameSize   = 1 << 20
	closeGraceTime = time.Second
)

var (
	// ErrNotConnected is returned by Send when the session is not open
	ErrNotConnected = errors.New("websocket is not connected")
	// ErrNoConversation is returned when a conversation scope has no id
	ErrNoConversation = errors.New("conversation id is required")
)

// State is the lifecycle position of a Session
type State int32

const (
	StateClosed State = iota
	StateConnecting
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	default:
		return "closed"
	}
}

// Scope is what a session subscribes to: one conversation or the dashboard
type Scope struct {
	conversationID string
	dashboard      bool
}

// ConversationScope subscribes as an end user to one conversation
func ConversationScope(conversationID string) Scope {
	return Scope{conversationID: conversationID}
}

// DashboardScope subscribes as an admin to every conversation
func DashboardScope() Scope {
	return Scope{dashboard: true}
}

// ConversationID is empty for the dashboard scope
func (s Scope) ConversationID() string { return s.conversationID }

// Dashboard reports whether this is the admin scope
func (s Scope) Dashboard() bool { return s.dashboard }

func (s Scope) String() string {
	if s.dashboard {
		return "dashboard"
	}
	return "conversation:" + s.conversationID
}

func (s Scope) join() Event {
	if s.dashboard {
		return JoinDashboard{}
	}
	return JoinRoom{ConversationID: s.conversationID}
}

// Handler receives inbound events in arrival order on the session's read goroutine
type Handler func(Event)

// Options configure Open
type Options struct {
	URL     string
	Scope   Scope
	Dialer  *websocket.Dialer
	Header  http.Header
	Logger  *slog.Logger
	Handler Handler
}

// Session is one live connection scoped to a conversation or the dashboard.
// A nil *Session behaves as a closed one.
type Session struct {
	scope   Scope
	conn    *websocket.Conn
	logger  *slog.Logger
	handler Handler

	state     atomic.Int32
	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

// Open dials the backend and announces the scope as the first frame. On
// failure the error is logged and returned with a nil session.
func Open(ctx context.Context, opts Options) (*Session, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("scope", opts.Scope.String())

	if !opts.Scope.dashboard && opts.Scope.conversationID == "" {
		return nil, ErrNoConversation
	}
	dialer := opts.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	s := &Session{
		scope:   opts.Scope,
		logger:  logger,
		handler: opts.Handler,
		done:    make(chan struct{}),
	}
	s.state.Store(int32(StateConnecting))

	conn, resp, err := dialer.DialContext(ctx, opts.URL, opts.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		s.state.Store(int32(StateClosed))
		logger.Error("websocket connect failed", "url", opts.URL, "error", err)
		return nil, fmt.Errorf("dial %s: %w", opts.URL, err)
	}
	conn.SetReadLimit(maxFrameSize)
	s.conn = conn

	if err := s.write(ctx, opts.Scope.join()); err != nil {
		logger.Error("join announcement failed", "error", err)
		s.Close()
		return nil, err
	}
	s.state.Store(int32(StateOpen))
	logger.Info("websocket connected")

	go s.readLoop()
	return s, nil
}

// Scope is what the session joined
func (s *Session) Scope() Scope {
	if s == nil {
		return Scope{}
	}
	return s.scope
}

// State is the current lifecycle position
func (s *Session) State() State {
	if s == nil {
		return StateClosed
	}
	return State(s.state.Load())
}

// Done is closed once the read loop has exited
func (s *Session) Done() <-chan struct{} {
	if s == nil {
		closed := make(chan struct{})
		close(closed)
		return closed
	}
	return s.done
}

// Send transmits a send_message frame. It returns ErrNotConnected without
// writing anything when the session is not open.
func (s *Session) Send(ctx context.Context, message SendMessage) error {
	if s.State() != StateOpen {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.write(ctx, message)
}

// Close ends the session. It is idempotent and safe on a nil or failed
// session. Frames read after Close are not dispatched.
func (s *Session) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		s.state.Store(int32(StateClosed))
		if s.conn == nil {
			close(s.done)
			return
		}
		// WriteControl may run concurrently with a pending write
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(closeGraceTime))
		_ = s.conn.Close()
		s.logger.Info("websocket closed")
	})
}

func (s *Session) write(ctx context.Context, event Event) error {
	frame, err := Encode(event)
	if err != nil {
		return err
	}
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("write %s: %w", event.Type(), err)
	}
	if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("write %s: %w", event.Type(), err)
	}
	return nil
}

func (s *Session) readLoop() {
	defer close(s.done)
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			if s.State() != StateClosed && !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Error("websocket read failed", "error", err)
			}
			s.Close()
			return
		}

		event, err := Decode(frame)
		if err != nil {
			s.logger.Warn("dropping inbound frame", "error", err)
			continue
		}
		if s.State() != StateOpen {
			return
		}
		if s.handler != nil {
			s.handler(event)
		}
	}
}
