package main

import (
	"os"

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

	if err := cache.Migrate(); err != nil {
		logger.Error("migration failed", "error", err)
		return err
	}
	logger.Info("conversation cache migrated")
	return nil
}

func main() {
	lambda.Start(handler)
}
