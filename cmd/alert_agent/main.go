package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/sfreiberg/gotwilio"

	"github.com/City-Bureau/supportchat/pkg/config"
	"github.com/City-Bureau/supportchat/pkg/locale"
	"github.com/City-Bureau/supportchat/pkg/svc"
)

type smsSender interface {
	SendSMS(body string) (string, error)
}

type alertHandler struct {
	alerter   smsSender
	localizer *locale.Localizer
	logger    *slog.Logger
}

func (h *alertHandler) body(alert svc.Alert) string {
	data := map[string]interface{}{"ConversationID": alert.ConversationID, "Preview": alert.Preview}
	if alert.Preview == "" {
		return h.localizer.Format("ConversationAlertNoPreview", data)
	}
	return h.localizer.Format("ConversationAlert", data)
}

// handle pages the on-call agent once per alert. Malformed alerts are dropped
// so SNS does not retry them.
func (h *alertHandler) handle(ctx context.Context, request events.SNSEvent) error {
	for _, record := range request.Records {
		alert, err := svc.ParseAlert(record.SNS.Message)
		if err != nil {
			h.logger.Warn("dropping malformed alert", "error", err)
			continue
		}
		sid, err := h.alerter.SendSMS(h.body(alert))
		if err != nil {
			h.logger.Error("failed to page on-call agent", "conversation", alert.ConversationID, "error", err)
			return err
		}
		h.logger.Info("paged on-call agent", "conversation", alert.ConversationID, "sid", sid)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)
	localizer, err := locale.NewLocalizer(cfg.Lang)
	if err != nil {
		logger.Error("failed to load translations", "error", err)
		os.Exit(1)
	}

	client := gotwilio.NewTwilioClient(cfg.TwilioAccountSID, cfg.TwilioAuthToken)
	h := &alertHandler{
		alerter:   svc.NewTwilioAlerter(client, cfg.TwilioFrom, cfg.OnCallNumber),
		localizer: localizer,
		logger:    logger,
	}
	lambda.Start(h.handle)
}
