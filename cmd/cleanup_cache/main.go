package main

import (
	"os"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/City-Bureau/supportchat/pkg/config"
	"github.com/City-Bureau/supportchat/pkg/store"
)

func handler(request events.CloudWatchEvent) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := cfg.NewLogger(os.Stderr)

	cache, err := store.Open(cfg.DatabaseURL())
	if err != nil {
		return err
	}
	defer cache.Close()

	removed, err := cache.CleanupStaleConversations(time.Now().Add(-store.StaleAfter))
	if err != nil {
		logger.Error("failed to clean up conversation cache", "error", err)
		return err
	}
	logger.Info("cleaned up conversation cache", "removed", removed)
	return nil
}

func main() {
	lambda.Start(handler)
}
