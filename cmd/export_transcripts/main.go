package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/City-Bureau/supportchat/pkg/api"
	"github.com/City-Bureau/supportchat/pkg/config"
	"github.com/City-Bureau/supportchat/pkg/svc"
)

type transcriptSaver interface {
	Save(ctx context.Context, transcript svc.Transcript) (string, error)
}

type exporter struct {
	api    api.Backend
	store  transcriptSaver
	logger *slog.Logger
	now    func() time.Time
}

// export writes one transcript per conversation. Conversations deleted
// between listing and loading are skipped.
func (e *exporter) export(ctx context.Context) (int, error) {
	conversations, err := e.api.ListConversations(ctx)
	if err != nil {
		return 0, err
	}
	exported := 0
	for _, conversation := range conversations {
		messages, err := e.api.ListMessages(ctx, conversation.ID)
		if api.IsNotFound(err) {
			e.logger.Warn("conversation disappeared before export", "conversation", conversation.ID)
			continue
		}
		if err != nil {
			return exported, err
		}
		key, err := e.store.Save(ctx, svc.NewTranscript(conversation, messages, e.now()))
		if err != nil {
			return exported, err
		}
		e.logger.Debug("exported transcript", "conversation", conversation.ID, "key", key)
		exported++
	}
	return exported, nil
}

func (e *exporter) handle(ctx context.Context, request events.CloudWatchEvent) error {
	exported, err := e.export(ctx)
	e.logger.Info("transcript export finished", "exported", exported, "error", err)
	return err
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stderr)

	e := &exporter{
		api:    api.NewClient(cfg.APIURL, cfg.RequestTimeout, logger),
		store:  svc.NewTranscriptStore(cfg.S3Bucket),
		logger: logger,
		now:    time.Now,
	}
	lambda.Start(e.handle)
}
