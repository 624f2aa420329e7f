// Package config reads settings from the environment. Terminal clients and
// Lambda handlers share the same struct.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the binaries read
type Config struct {
	APIURL          string        `env:"SUPPORTCHAT_API_URL"          envDefault:"http://localhost:4000"`
	SocketURL       string        `env:"SUPPORTCHAT_WS_URL"           envDefault:"ws://localhost:4000/ws"`
	Lang            string        `env:"SUPPORTCHAT_LANG"`
	RequestTimeout  time.Duration `env:"SUPPORTCHAT_REQUEST_TIMEOUT"  envDefault:"10s"`
	DialTimeout     time.Duration `env:"SUPPORTCHAT_DIAL_TIMEOUT"     envDefault:"10s"`
	ReconcileWindow time.Duration `env:"SUPPORTCHAT_RECONCILE_WINDOW" envDefault:"30s"`
	Conversation    string        `env:"SUPPORTCHAT_CONVERSATION"`
	LogLevel        slog.Level    `env:"SUPPORTCHAT_LOG_LEVEL"        envDefault:"INFO"`
	LogFormat       string        `env:"SUPPORTCHAT_LOG_FORMAT"       envDefault:"text"`

	RDSHost     string `env:"RDS_HOST"`
	RDSPort     string `env:"RDS_PORT" envDefault:"5432"`
	RDSUsername string `env:"RDS_USERNAME"`
	RDSPassword string `env:"RDS_PASSWORD"`
	RDSDBName   string `env:"RDS_DB_NAME"`

	SNSTopicArn string `env:"SNS_TOPIC_ARN"`
	S3Bucket    string `env:"S3_BUCKET"`

	TwilioAccountSID string `env:"TWILIO_ACCOUNT_SID"`
	TwilioAuthToken  string `env:"TWILIO_AUTH_TOKEN"`
	TwilioFrom       string `env:"TWILIO_FROM"`
	OnCallNumber     string `env:"ONCALL_NUMBER"`
}

// Load parses the environment
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// HasDatabase reports whether the conversation cache is configured
func (c Config) HasDatabase() bool {
	return c.RDSHost != ""
}

// DatabaseURL is the libpq connection string for the conversation cache
func (c Config) DatabaseURL() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s",
		c.RDSHost,
		c.RDSPort,
		c.RDSUsername,
		c.RDSDBName,
		c.RDSPassword,
	)
}

// NewLogger builds the process logger writing to w
func (c Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
