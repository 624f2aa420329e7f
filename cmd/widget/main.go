package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"github.com/gorilla/websocket"

	"github.com/City-Bureau/supportchat/pkg/api"
	"github.com/City-Bureau/supportchat/pkg/chat"
	"github.com/City-Bureau/supportchat/pkg/config"
	"github.com/City-Bureau/supportchat/pkg/locale"
	"github.com/City-Bureau/supportchat/pkg/widget"
)

// transcript prints confirmed messages once each, oldest first
type transcript struct {
	mu      sync.Mutex
	out     io.Writer
	l       *locale.Localizer
	seen    map[string]bool
	started bool
}

func (t *transcript) show(messages []chat.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(messages) == 0 {
		if !t.started {
			fmt.Fprintln(t.out, t.l.T("StartChatting"))
			t.started = true
		}
		return
	}
	for i := len(messages) - 1; i >= 0; i-- {
		message := messages[i]
		if message.Pending || message.ID == "" || t.seen[message.ID] {
			continue
		}
		t.seen[message.ID] = true
		label := "SenderUser"
		if message.SenderType == chat.SenderAdmin {
			label = "SenderAdmin"
		}
		fmt.Fprintf(t.out, "[%s] %s\n", t.l.T(label), message.Content)
	}
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

	screen := &transcript{out: os.Stdout, l: localizer, seen: map[string]bool{}}
	chatWidget := widget.New(widget.Options{
		API:             api.NewClient(cfg.APIURL, cfg.RequestTimeout, logger),
		SocketURL:       cfg.SocketURL,
		Dialer:          &websocket.Dialer{Proxy: http.ProxyFromEnvironment, HandshakeTimeout: cfg.DialTimeout},
		Logger:          logger,
		ReconcileWindow: cfg.ReconcileWindow,
		OnChange:        screen.show,
	})
	chatWidget.SetConversation(cfg.Conversation)

	fmt.Println(localizer.T("SupportChatTitle"))
	if err := chatWidget.Start(ctx); err != nil {
		fmt.Fprintln(os.Stderr, localizer.T("StartChatFailed"))
		if chatWidget.ConversationID() == "" {
			os.Exit(1)
		}
	}
	defer chatWidget.Close()
	logger.Info("chat started", "conversation", chatWidget.ConversationID())
	fmt.Println(localizer.T("MessagePlaceholder"))

	lines := readLines(os.Stdin)
	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !chatWidget.Send(ctx, line) {
				fmt.Fprintln(os.Stderr, localizer.T("NotConnected"))
			}
		}
	}
}
