// Package api is the REST client for the chat backend
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/City-Bureau/supportchat/pkg/chat"
)

// DefaultTimeout applies when NewClient is given no timeout
const DefaultTimeout = 10 * time.Second

// Backend is the subset of the REST API the widget and the inbox consume
type Backend interface {
	CreateConversation(ctx context.Context) (string, error)
	ListConversations(ctx context.Context) ([]chat.Conversation, error)
	ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error)
	MarkRead(ctx context.Context, conversationID string) error
}

// StatusError is returned when the backend answers with a non-2xx status
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d", e.Method, e.URL, e.StatusCode)
}

// Client implements Backend over resty
type Client struct {
	rest   *resty.Client
	logger *slog.Logger
}

// NewClient creates a Client for baseURL. Failed requests are logged once
// here so callers only need to decide what to do next.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	logger = logger.With("component", "api")

	rest := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	rest.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		if resp.IsError() {
			logger.Error("api request failed",
				"method", resp.Request.Method,
				"url", resp.Request.URL,
				"status", resp.StatusCode(),
			)
		}
		return nil
	})
	rest.OnError(func(req *resty.Request, err error) {
		logger.Error("api request failed", "method", req.Method, "url", req.URL, "error", err)
	})

	return &Client{rest: rest, logger: logger}
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.rest.R().SetContext(ctx).ForceContentType("application/json")
}

func checkResponse(resp *resty.Response, err error) error {
	if err != nil {
		return err
	}
	if resp.IsError() {
		return &StatusError{
			Method:     resp.Request.Method,
			URL:        resp.Request.URL,
			StatusCode: resp.StatusCode(),
			Body:       string(resp.Body()),
		}
	}
	return nil
}

// CreateConversation starts a new conversation and returns its id
func (c *Client) CreateConversation(ctx context.Context) (string, error) {
	var created struct {
		ID string `json:"id"`
	}
	resp, err := c.request(ctx).SetResult(&created).Post("/conversations")
	if err := checkResponse(resp, err); err != nil {
		return "", err
	}
	if created.ID == "" {
		return "", fmt.Errorf("create conversation: backend returned no id (status %d)", resp.StatusCode())
	}
	return created.ID, nil
}

// ListConversations returns every conversation with its latest message info
func (c *Client) ListConversations(ctx context.Context) ([]chat.Conversation, error) {
	var conversations []chat.Conversation
	resp, err := c.request(ctx).SetResult(&conversations).Get("/conversations")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return conversations, nil
}

// ListMessages returns a conversation's history in the order the backend keeps it
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var messages []chat.Message
	resp, err := c.request(ctx).
		SetPathParam("id", conversationID).
		SetResult(&messages).
		Get("/conversations/{id}/messages")
	if err := checkResponse(resp, err); err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkRead marks every message of a conversation as read
func (c *Client) MarkRead(ctx context.Context, conversationID string) error {
	resp, err := c.request(ctx).
		SetPathParam("id", conversationID).
		Post("/conversations/{id}/read")
	return checkResponse(resp, err)
}

var _ Backend = (*Client)(nil)

// IsNotFound reports whether err is a 404 from the backend
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}
