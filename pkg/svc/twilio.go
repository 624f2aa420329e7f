package svc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/sfreiberg/gotwilio"
)

// ErrNoRecipient is returned when no on-call number is configured
var ErrNoRecipient = errors.New("no on-call number configured")

// TwilioClient generalizes access to Twilio
type TwilioClient interface {
	SendSMS(string, string, string, string, string) (*gotwilio.SmsResponse, *gotwilio.Exception, error)
}

// Alert asks the on-call agent to look at a conversation
type Alert struct {
	ConversationID string     `json:"conversationId"`
	Preview        string     `json:"preview,omitempty"`
	CreatedAt      *time.Time `json:"createdAt,omitempty"`
}

// ParseAlert decodes an alert published on AlertFeed
func ParseAlert(message string) (Alert, error) {
	var alert Alert
	if err := json.Unmarshal([]byte(message), &alert); err != nil {
		return alert, err
	}
	if alert.ConversationID == "" {
		return alert, errors.New("alert without conversation id")
	}
	return alert, nil
}

// TwilioAlerter pages the on-call agent over SMS
type TwilioAlerter struct {
	Client TwilioClient
	From   string // The Twilio automated number
	To     string // The on-call agent
}

// NewTwilioAlerter is a constructor for TwilioAlerter structs
func NewTwilioAlerter(client TwilioClient, from, to string) *TwilioAlerter {
	return &TwilioAlerter{
		Client: client,
		From:   from,
		To:     to,
	}
}

// SendSMS sends body to the on-call agent and returns the message sid
func (a *TwilioAlerter) SendSMS(body string) (string, error) {
	if a.To == "" {
		return "", ErrNoRecipient
	}
	res, twilioErr, err := a.Client.SendSMS(a.From, a.To, body, "", "")
	if err != nil {
		return "", err
	}
	if twilioErr != nil {
		return "", fmt.Errorf("Twilio returned error code %d: %s", twilioErr.Code, twilioErr.Message)
	}
	if res == nil {
		return "", nil
	}
	return res.Sid, nil
}
