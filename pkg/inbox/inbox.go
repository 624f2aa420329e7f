// Package inbox is the admin dashboard: every conversation, one selected
// conversation's messages, and a dashboard-wide session that keeps both fresh.
package inbox

import (
	"context"
	"errors"
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

// ErrNoSelection is returned by Reply when no conversation is selected
var ErrNoSelection = errors.New("no conversation selected")

// Notifier is told about every event the dashboard receives
type Notifier interface {
	Notify(ctx context.Context, event realtime.Event) error
}

// Cache mirrors the conversation list somewhere durable
type Cache interface {
	SaveConversations(conversations []chat.Conversation) error
}

// Options configure an Inbox
type Options struct {
	API             api.Backend
	SocketURL       string
	Dialer          *websocket.Dialer
	Logger          *slog.Logger
	ReconcileWindow time.Duration
	Notifier        Notifier
	Cache           Cache
	// OnChange is called after the list, the selection or its messages change
	OnChange func()
}

// Inbox is the admin view over all conversations
type Inbox struct {
	opts   Options
	logger *slog.Logger
	newID  func() string
	now    func() time.Time

	mu            sync.Mutex
	ctx           context.Context
	cancel        context.CancelFunc
	session       *realtime.Session
	conversations []chat.Conversation
	selected      string
	timeline      *chat.Timeline
}

// New creates an Inbox. Nothing is fetched until Open.
func New(opts Options) *Inbox {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{
		opts:     opts,
		logger:   logger.With("mode", "admin"),
		newID:    uuid.NewString,
		now:      time.Now,
		ctx:      context.Background(),
		cancel:   func() {},
		timeline: chat.NewTimeline(opts.ReconcileWindow),
	}
}

// Open joins the dashboard and loads the conversation list. A failed
// connection is logged and returned; the list is still loaded.
func (d *Inbox) Open(ctx context.Context) error {
	eventCtx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	previous, previousCancel := d.session, d.cancel
	d.session = nil
	d.ctx, d.cancel = eventCtx, cancel
	d.mu.Unlock()
	previousCancel()
	previous.Close()

	session, connErr := realtime.Open(ctx, realtime.Options{
		URL:     d.opts.SocketURL,
		Scope:   realtime.DashboardScope(),
		Dialer:  d.opts.Dialer,
		Logger:  d.logger,
		Handler: d.handle,
	})
	if connErr == nil {
		d.mu.Lock()
		d.session = session
		d.mu.Unlock()
	}

	if err := d.RefreshConversations(ctx); err != nil && connErr == nil {
		return err
	}
	return connErr
}

// Close ends the session and cancels work started by pushed events
func (d *Inbox) Close() {
	d.mu.Lock()
	session, cancel := d.session, d.cancel
	d.session = nil
	d.mu.Unlock()
	cancel()
	session.Close()
}

// State is the state of the dashboard session
func (d *Inbox) State() realtime.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.session.State()
}

// RefreshConversations reloads the conversation list
func (d *Inbox) RefreshConversations(ctx context.Context) error {
	conversations, err := d.opts.API.ListConversations(ctx)
	if err != nil {
		d.logger.Error("failed to load conversations", "error", err)
		return err
	}
	d.mu.Lock()
	d.conversations = conversations
	d.mu.Unlock()

	if d.opts.Cache != nil {
		if err := d.opts.Cache.SaveConversations(conversations); err != nil {
			d.logger.Warn("failed to cache conversations", "error", err)
		}
	}
	d.changed()
	return nil
}

// Select makes a conversation current: it is marked read, its messages
// are loaded and the list is refreshed to drop its unread flag.
func (d *Inbox) Select(ctx context.Context, conversationID string) error {
	d.mu.Lock()
	if d.selected != conversationID {
		d.selected = conversationID
		d.timeline = chat.NewTimeline(d.opts.ReconcileWindow)
	}
	d.mu.Unlock()
	d.changed()

	if conversationID == "" {
		return nil
	}
	return d.loadMessages(ctx, conversationID, true)
}

func (d *Inbox) loadMessages(ctx context.Context, conversationID string, refreshList bool) error {
	if err := d.opts.API.MarkRead(ctx, conversationID); err != nil {
		d.logger.Error("failed to mark conversation read", "conversation", conversationID, "error", err)
		return err
	}
	messages, err := d.opts.API.ListMessages(ctx, conversationID)
	if err != nil {
		d.logger.Error("failed to load messages", "conversation", conversationID, "error", err)
		return err
	}

	d.mu.Lock()
	current := d.selected == conversationID
	timeline := d.timeline
	d.mu.Unlock()
	if !current {
		return nil
	}
	timeline.Reset(messages)
	d.changed()

	if refreshList {
		return d.RefreshConversations(ctx)
	}
	return nil
}

// Reply sends an admin message to the selected conversation and shows it
// immediately. A disconnected session is logged and reported.
func (d *Inbox) Reply(ctx context.Context, content string) error {
	if strings.TrimSpace(content) == "" {
		return nil
	}
	d.mu.Lock()
	session, conversationID, timeline := d.session, d.selected, d.timeline
	d.mu.Unlock()

	if conversationID == "" {
		return ErrNoSelection
	}
	if session.State() != realtime.StateOpen {
		d.logger.Error("websocket is not connected", "conversation", conversationID)
		return realtime.ErrNotConnected
	}

	clientID := d.newID()
	timeline.AddPending(chat.NewPendingMessage(conversationID, content, chat.SenderAdmin, clientID, d.now()))
	d.changed()

	err := session.Send(ctx, realtime.SendMessage{
		ConversationID: conversationID,
		Content:        content,
		SenderType:     chat.SenderAdmin,
		ClientID:       clientID,
	})
	if err != nil {
		d.logger.Error("failed to send reply", "conversation", conversationID, "error", err)
	}
	return err
}

// Conversations is a snapshot of the list
func (d *Inbox) Conversations() []chat.Conversation {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]chat.Conversation, len(d.conversations))
	copy(out, d.conversations)
	return out
}

// Selected is the current conversation id, empty when none
func (d *Inbox) Selected() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected
}

// Messages is a snapshot of the selected conversation, most recent first
func (d *Inbox) Messages() []chat.Message {
	d.mu.Lock()
	timeline := d.timeline
	d.mu.Unlock()
	return timeline.Messages()
}

func (d *Inbox) handle(event realtime.Event) {
	d.mu.Lock()
	ctx, selected, timeline := d.ctx, d.selected, d.timeline
	d.mu.Unlock()

	switch e := event.(type) {
	case realtime.NewConversation:
		_ = d.RefreshConversations(ctx)
	case realtime.ConversationUpdated:
		_ = d.RefreshConversations(ctx)
		if e.ConversationID != "" && e.ConversationID == selected {
			_ = d.loadMessages(ctx, selected, false)
		}
	case realtime.NewMessage:
		if e.Message.ConversationID != "" && e.Message.ConversationID == selected && d.selects(selected, timeline) {
			timeline.Receive(e.Message)
			d.changed()
		}
	case realtime.JoinRoom, realtime.JoinDashboard, realtime.SendMessage:
		d.logger.Warn("unexpected outbound event from backend", "type", e.Type())
		return
	}

	if d.opts.Notifier != nil {
		if err := d.opts.Notifier.Notify(ctx, event); err != nil {
			d.logger.Warn("failed to forward event", "type", event.Type(), "error", err)
		}
	}
}

// selects reports whether conversationID is still selected and shown on timeline
func (d *Inbox) selects(conversationID string, timeline *chat.Timeline) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.selected == conversationID && d.timeline == timeline
}

func (d *Inbox) changed() {
	if d.opts.OnChange != nil {
		d.opts.OnChange()
	}
}
