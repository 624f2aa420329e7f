package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/City-Bureau/supportchat/pkg/api"
	"github.com/City-Bureau/supportchat/pkg/chat"
	"github.com/City-Bureau/supportchat/pkg/config"
	"github.com/City-Bureau/supportchat/pkg/inbox"
	"github.com/City-Bureau/supportchat/pkg/locale"
	"github.com/City-Bureau/supportchat/pkg/realtime"
	"github.com/City-Bureau/supportchat/pkg/store"
	"github.com/City-Bureau/supportchat/pkg/svc"
)

type console struct {
	mu       sync.Mutex
	out      io.Writer
	l        *locale.Localizer
	selected string
	seen     map[string]bool
}

func (c *console) senderLabel(sender chat.SenderType) string {
	if sender == chat.SenderAdmin {
		return c.l.T("SenderAdmin")
	}
	return c.l.T("SenderUser")
}

// list prints the conversations with a number usable by /open
func (c *console) list(conversations []chat.Conversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "== %s ==\n", c.l.T("InboxTitle"))
	if len(conversations) == 0 {
		fmt.Fprintln(c.out, c.l.T("NoConversations"))
		return
	}
	for i, conversation := range conversations {
		marker := " "
		if conversation.ID == c.selected {
			marker = ">"
		}
		preview := c.l.T("NoMessages")
		if message, ok := conversation.Preview(); ok {
			preview = message.Content
		}
		unread := ""
		if conversation.Unread() {
			unread = fmt.Sprintf(" (%s)", c.l.T("UnreadMarker"))
		}
		fmt.Fprintf(c.out, "%s %d. %s [%s]%s %s\n", marker, i+1, conversation.ID, conversation.Status, unread, preview)
	}
}

// messages prints confirmed messages of the selected conversation not shown yet
func (c *console) messages(selected string, messages []chat.Message) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if selected != c.selected {
		c.selected = selected
		c.seen = map[string]bool{}
		if selected != "" {
			fmt.Fprintf(c.out, "== %s ==\n", selected)
		}
	}
	for i := len(messages) - 1; i >= 0; i-- {
		message := messages[i]
		if message.Pending || message.ID == "" || c.seen[message.ID] {
			continue
		}
		c.seen[message.ID] = true
		fmt.Fprintf(c.out, "[%s] %s\n", c.senderLabel(message.SenderType), message.Content)
	}
}

// resolve accepts a list number or a conversation id
func resolve(arg string, conversations []chat.Conversation) string {
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(conversations) {
		return conversations[n-1].ID
	}
	return arg
}

type selector interface {
	Select(ctx context.Context, conversationID string) error
	Conversations() []chat.Conversation
}

// openConversation selects by list number or id and tells the user when it fails
func openConversation(ctx context.Context, dashboard selector, arg string, out io.Writer, l *locale.Localizer) error {
	conversationID := resolve(arg, dashboard.Conversations())
	err := dashboard.Select(ctx, conversationID)
	if err != nil {
		fmt.Fprintln(out, l.Format("SelectFailed", map[string]interface{}{"ConversationID": conversationID}))
	}
	return err
}

func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}

func newOptions(cfg config.Config, logger *slog.Logger) (inbox.Options, func()) {
	opts := inbox.Options{
		API:             api.NewClient(cfg.APIURL, cfg.RequestTimeout, logger),
		SocketURL:       cfg.SocketURL,
		Dialer:          &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: cfg.DialTimeout},
		Logger:          logger,
		ReconcileWindow: cfg.ReconcileWindow,
	}
	cleanup := func() {}
	if cfg.HasDatabase() {
		cache, err := store.Open(cfg.DatabaseURL())
		if err != nil {
			logger.Warn("conversation cache unavailable", "error", err)
		} else {
			opts.Cache = cache
			cleanup = func() { cache.Close() }
		}
	}
	if cfg.SNSTopicArn != "" {
		opts.Notifier = svc.NewEventPublisher(svc.NewSNSClient(), cfg.SNSTopicArn)
	}
	return opts, cleanup
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)
	localizer, err := locale.NewLocalizer(cfg.Lang)
	if err != nil {
		logger.Error("failed to load translations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	screen := &console{out: os.Stdout, l: localizer, seen: map[string]bool{}}
	opts, cleanup := newOptions(cfg, logger)
	defer cleanup()

	var dashboard *inbox.Inbox
	opts.OnChange = func() {
		screen.messages(dashboard.Selected(), dashboard.Messages())
	}
	dashboard = inbox.New(opts)
	if err := dashboard.Open(ctx); err != nil {
		logger.Error("inbox opened with errors", "error", err)
	}
	defer dashboard.Close()

	screen.list(dashboard.Conversations())
	fmt.Println(localizer.T("SelectConversation"))

	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			line = strings.TrimSpace(line)
			fields := strings.Fields(line)
			switch {
			case line == "":
			case fields[0] == "/quit":
				return
			case fields[0] == "/list":
				screen.list(dashboard.Conversations())
			case fields[0] == "/refresh":
				if err := dashboard.RefreshConversations(ctx); err == nil {
					screen.list(dashboard.Conversations())
				}
			case fields[0] == "/open" && len(fields) == 2:
				_ = openConversation(ctx, dashboard, fields[1], os.Stderr, localizer)
			default:
				err := dashboard.Reply(ctx, line)
				switch {
				case errors.Is(err, inbox.ErrNoSelection):
					fmt.Println(localizer.T("SelectConversation"))
				case errors.Is(err, realtime.ErrNotConnected):
					fmt.Fprintln(os.Stderr, localizer.T("NotConnected"))
				}
			}
		}
	}
}
