package svc

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sns"
	"github.com/aws/aws-sdk-go/service/sns/snsiface"

	"github.com/City-Bureau/supportchat/pkg/realtime"
)

// FeedAttribute is the SNS message attribute used to route messages to handlers
const FeedAttribute = "feed"

// Feed names. Inbox events are published on the feed named after their type.
const (
	NewConversationFeed     = string(realtime.TypeNewConversation)
	ConversationUpdatedFeed = string(realtime.TypeConversationUpdated)
	NewMessageFeed          = string(realtime.TypeNewMessage)
	// AlertFeed is the feed name for paging the on-call agent
	AlertFeed = "alert_agent"
)

// SNS is an interface for the SNSClient and associated mock
type SNS interface {
	Publish(ctx context.Context, message, topicArn, feed string) error
}

// SNSClient implements SNS for a generic way of managing the SNS service
type SNSClient struct {
	Client snsiface.SNSAPI
}

// NewSNSClient creates an SNSClient object
func NewSNSClient() *SNSClient {
	client := sns.New(session.Must(session.NewSession()))
	return &SNSClient{Client: client}
}

// Publish sends a message to a given topic and feed
func (c *SNSClient) Publish(ctx context.Context, message, topicArn, feed string) error {
	_, err := c.Client.PublishWithContext(ctx, &sns.PublishInput{
		Message:  aws.String(message),
		TopicArn: aws.String(topicArn),
		MessageAttributes: map[string]*sns.MessageAttributeValue{
			FeedAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(feed),
			},
		},
	})
	return err
}

// EventPublisher forwards events pushed to the inbox onto an SNS topic
type EventPublisher struct {
	SNS      SNS
	TopicArn string
}

// NewEventPublisher is a constructor for EventPublisher structs
func NewEventPublisher(client SNS, topicArn string) *EventPublisher {
	return &EventPublisher{SNS: client, TopicArn: topicArn}
}

// Notify publishes the event envelope on its feed. Outbound events are skipped.
func (p *EventPublisher) Notify(ctx context.Context, event realtime.Event) error {
	feed, ok := FeedForEvent(event)
	if !ok {
		return nil
	}
	body, err := realtime.Encode(event)
	if err != nil {
		return err
	}
	if err := p.SNS.Publish(ctx, string(body), p.TopicArn, feed); err != nil {
		return fmt.Errorf("publish %s: %w", feed, err)
	}
	return nil
}

// FeedForEvent returns the feed a pushed event is published on
func FeedForEvent(event realtime.Event) (string, bool) {
	switch event.(type) {
	case realtime.NewConversation:
		return NewConversationFeed, true
	case realtime.ConversationUpdated:
		return ConversationUpdatedFeed, true
	case realtime.NewMessage:
		return NewMessageFeed, true
	}
	return "", false
}
