package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:4000", cfg.APIURL)
	assert.Equal(t, "ws://localhost:4000/ws", cfg.SocketURL)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 30*time.Second, cfg.ReconcileWindow)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.False(t, cfg.HasDatabase())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SUPPORTCHAT_API_URL", "https://chat.example.org")
	t.Setenv("SUPPORTCHAT_WS_URL", "wss://chat.example.org/ws")
	t.Setenv("SUPPORTCHAT_LANG", "es")
	t.Setenv("SUPPORTCHAT_RECONCILE_WINDOW", "5s")
	t.Setenv("SUPPORTCHAT_LOG_LEVEL", "debug")
	t.Setenv("RDS_HOST", "db.internal")
	t.Setenv("RDS_USERNAME", "chat")
	t.Setenv("RDS_DB_NAME", "supportchat")
	t.Setenv("RDS_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://chat.example.org", cfg.APIURL)
	assert.Equal(t, "wss://chat.example.org/ws", cfg.SocketURL)
	assert.Equal(t, "es", cfg.Lang)
	assert.Equal(t, 5*time.Second, cfg.ReconcileWindow)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.True(t, cfg.HasDatabase())
	assert.Equal(t, "host=db.internal port=5432 user=chat dbname=supportchat password=secret", cfg.DatabaseURL())
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SUPPORTCHAT_REQUEST_TIMEOUT", "soon")

	_, err := Load()
	assert.Error(t, err)
}

func TestNewLoggerFormat(t *testing.T) {
	var buf bytes.Buffer
	cfg := Config{LogLevel: slog.LevelInfo, LogFormat: "json"}

	cfg.NewLogger(&buf).Debug("hidden")
	cfg.NewLogger(&buf).Info("shown", "conversation", "abc123")

	out := buf.String()
	assert.False(t, strings.Contains(out, "hidden"))
	assert.Contains(t, out, `"conversation":"abc123"`)
}
