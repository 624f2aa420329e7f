package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/City-Bureau/supportchat/pkg/chat"
	"github.com/City-Bureau/supportchat/pkg/config"
	"github.com/City-Bureau/supportchat/pkg/realtime"
	"github.com/City-Bureau/supportchat/pkg/store"
	"github.com/City-Bureau/supportchat/pkg/svc"
)

type conversationCache interface {
	Conversation(conversationID string) (chat.Conversation, bool, error)
	SaveConversation(conversation chat.Conversation) error
}

type eventHandler struct {
	cache    conversationCache
	sns      svc.SNS
	topicArn string
	logger   *slog.Logger
}

// feedOf reads the feed attribute, which SNS delivers as {"Type", "Value"}
func feedOf(attributes map[string]interface{}) string {
	switch attr := attributes[svc.FeedAttribute].(type) {
	case string:
		return attr
	case map[string]interface{}:
		value, _ := attr["Value"].(string)
		return value
	}
	return ""
}

func (h *eventHandler) handle(ctx context.Context, request events.SNSEvent) error {
	for _, record := range request.Records {
		feed := feedOf(record.SNS.MessageAttributes)
		event, err := realtime.Decode([]byte(record.SNS.Message))
		if err != nil {
			h.logger.Warn("skipping undecodable event", "feed", feed, "error", err)
			continue
		}
		if string(event.Type()) != feed {
			h.logger.Info("no handler for feed", "feed", feed, "type", event.Type())
			continue
		}
		if realtime.ConversationID(event) == "" {
			h.logger.Warn("skipping event without conversation id", "type", event.Type())
			continue
		}
		if err := h.handleEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

func (h *eventHandler) handleEvent(ctx context.Context, event realtime.Event) error {
	switch e := event.(type) {
	case realtime.NewConversation:
		return h.cache.SaveConversation(e.Conversation)
	case realtime.ConversationUpdated:
		conversation, _, err := h.cache.Conversation(e.ConversationID)
		if err != nil {
			return err
		}
		conversation.ID = e.ConversationID
		if e.Status != "" {
			conversation.Status = e.Status
		}
		if e.UpdatedAt != nil {
			conversation.UpdatedAt = e.UpdatedAt
		}
		return h.cache.SaveConversation(conversation)
	case realtime.NewMessage:
		return h.handleMessage(ctx, e.Message)
	}
	return nil
}

// handleMessage prepends the message to the cached conversation and pages
// the on-call agent on the first message a user sends
func (h *eventHandler) handleMessage(ctx context.Context, message chat.Message) error {
	conversation, _, err := h.cache.Conversation(message.ConversationID)
	if err != nil {
		return err
	}
	conversation.ID = message.ConversationID
	if conversation.Status == "" {
		conversation.Status = chat.StatusOpen
	}

	firstFromUser := message.SenderType == chat.SenderUser
	for _, existing := range conversation.Messages {
		if message.ID != "" && existing.ID == message.ID {
			return nil
		}
		if existing.SenderType == chat.SenderUser {
			firstFromUser = false
		}
	}
	conversation.Messages = append([]chat.Message{message}, conversation.Messages...)
	if message.CreatedAt != nil {
		conversation.UpdatedAt = message.CreatedAt
	}
	if err := h.cache.SaveConversation(conversation); err != nil {
		return err
	}

	if !firstFromUser {
		return nil
	}
	alertJSON, _ := json.Marshal(svc.Alert{
		ConversationID: conversation.ID,
		Preview:        message.Content,
		CreatedAt:      message.CreatedAt,
	})
	return h.sns.Publish(ctx, string(alertJSON), h.topicArn, svc.AlertFeed)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)

	cache, err := store.Open(cfg.DatabaseURL())
	if err != nil {
		logger.Error("failed to open conversation cache", "error", err)
		os.Exit(1)
	}
	defer cache.Close()

	h := &eventHandler{
		cache:    cache,
		sns:      svc.NewSNSClient(),
		topicArn: cfg.SNSTopicArn,
		logger:   logger,
	}
	lambda.Start(h.handle)
}
