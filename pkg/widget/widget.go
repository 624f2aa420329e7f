// Package widget is the end-user side of support chat: one conversation,
// one session, optimistic sends.
package widget

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/City-Bureau/supportchat/pkg/api"
	"github.com/City-Bureau/supportchat/pkg/chat"
	"github.com/City-Bureau/supportchat/pkg/realtime"
)

// Options configure a Widget
type Options struct {
	API             api.Backend
	SocketURL       string
	Dialer          *websocket.Dialer
	Logger          *slog.Logger
	ReconcileWindow time.Duration
	// OnChange receives a snapshot after every change to the message list
	OnChange func([]chat.Message)
}

// Widget holds the end user's conversation
type Widget struct {
	opts     Options
	logger   *slog.Logger
	timeline *chat.Timeline
	newID    func() string
	now      func() time.Time

	mu             sync.Mutex
	conversationID string
	session        *realtime.Session
}

// New creates a Widget with no conversation yet
func New(opts Options) *Widget {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Widget{
		opts:     opts,
		logger:   logger.With("mode", "user"),
		timeline: chat.NewTimeline(opts.ReconcileWindow),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// SetConversation resumes a conversation started earlier
func (w *Widget) SetConversation(conversationID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conversationID = conversationID
}

// ConversationID is empty until Start succeeds or SetConversation is called
func (w *Widget) ConversationID() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conversationID
}

// Start creates a conversation if none is set, loads its history and opens
// the session. Errors are logged and returned; the widget stays usable.
func (w *Widget) Start(ctx context.Context) error {
	conversationID := w.ConversationID()
	if conversationID != "" {
		history, err := w.opts.API.ListMessages(ctx, conversationID)
		switch {
		case api.IsNotFound(err):
			w.logger.Warn("stored conversation is gone, starting a new one", "conversation", conversationID)
			conversationID = ""
		case err != nil:
			w.logger.Error("failed to load messages", "conversation", conversationID, "error", err)
		default:
			w.timeline.Reset(history)
			w.notify()
		}
	}

	if conversationID == "" {
		id, err := w.opts.API.CreateConversation(ctx)
		if err != nil {
			w.logger.Error("failed to start chat", "error", err)
			return err
		}
		conversationID = id
		w.SetConversation(id)
		w.timeline.Reset(nil)
		w.notify()
	}

	return w.connect(ctx, conversationID)
}

func (w *Widget) connect(ctx context.Context, conversationID string) error {
	w.mu.Lock()
	previous := w.session
	w.session = nil
	w.mu.Unlock()
	previous.Close()

	session, err := realtime.Open(ctx, realtime.Options{
		URL:     w.opts.SocketURL,
		Scope:   realtime.ConversationScope(conversationID),
		Dialer:  w.opts.Dialer,
		Logger:  w.logger,
		Handler: w.handle,
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.session = session
	w.mu.Unlock()
	return nil
}

// State is the state of the current session
func (w *Widget) State() realtime.State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.session.State()
}

// Send shows the message immediately and transmits it as the user. On a
// disconnected session the message is dropped without an error; the
// return value reports whether it went out.
func (w *Widget) Send(ctx context.Context, content string) bool {
	if strings.TrimSpace(content) == "" {
		return false
	}
	w.mu.Lock()
	session, conversationID := w.session, w.conversationID
	w.mu.Unlock()

	if conversationID == "" || session.State() != realtime.StateOpen {
		w.logger.Debug("dropping message, not connected")
		return false
	}

	clientID := w.newID()
	w.timeline.AddPending(chat.NewPendingMessage(conversationID, content, chat.SenderUser, clientID, w.now()))
	w.notify()

	err := session.Send(ctx, realtime.SendMessage{
		ConversationID: conversationID,
		Content:        content,
		SenderType:     chat.SenderUser,
		ClientID:       clientID,
	})
	if err != nil {
		w.logger.Debug("message not sent", "error", err)
		return false
	}
	return true
}

// Messages is a snapshot of the conversation, most recent first
func (w *Widget) Messages() []chat.Message {
	return w.timeline.Messages()
}

// Close ends the session. The conversation id is kept so Start can resume it.
func (w *Widget) Close() {
	w.mu.Lock()
	session := w.session
	w.session = nil
	w.mu.Unlock()
	session.Close()
}

func (w *Widget) handle(event realtime.Event) {
	switch e := event.(type) {
	case realtime.NewMessage:
		if id := w.ConversationID(); e.Message.ConversationID != "" && e.Message.ConversationID != id {
			return
		}
		w.timeline.Receive(e.Message)
		w.notify()
	case realtime.ConversationUpdated, realtime.NewConversation:
		// dashboard events, not meant for end users
	case realtime.JoinRoom, realtime.JoinDashboard, realtime.SendMessage:
		w.logger.Warn("unexpected outbound event from backend", "type", e.Type())
	}
}

func (w *Widget) notify() {
	if w.opts.OnChange != nil {
		w.opts.OnChange(w.timeline.Messages())
	}
}
