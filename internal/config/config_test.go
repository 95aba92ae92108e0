package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirosfoundation/go-wssec/pkg/security"
)

func TestLoad(t *testing.T) {
	t.Setenv("TEST_MONGODB_URI", "mongodb://db.example.com:27017")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  readTimeout: 5s
security:
  incomingSuite: Basic256Sha256
  outgoingSuite: Basic128
  detectReplays: true
  replayWindow: 10m
  maxClockSkew: 2m
  maxCachedNonces: 1000
  evictOldest: 0.1
  secureConversation: feb2005
storage:
  type: mongodb
  mongodb:
    uri: ${TEST_MONGODB_URI}
logging:
  level: debug
  format: text
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, "Basic256Sha256", cfg.Security.IncomingSuite)
	assert.Equal(t, "Basic128", cfg.Security.OutgoingSuite)
	assert.True(t, *cfg.Security.DetectReplays)
	assert.Equal(t, 1000, cfg.Security.MaxCachedNonces)
	assert.InDelta(t, 0.1, cfg.Security.EvictOldest, 1e-9)
	assert.Equal(t, security.SecureConversationFeb2005, cfg.Security.Version())
	assert.Equal(t, StorageMongoDB, cfg.Storage.Type)
	assert.Equal(t, "mongodb://db.example.com:27017", cfg.Storage.MongoDB.URI)
	assert.Equal(t, "wssec", cfg.Storage.MongoDB.Database)
	assert.Equal(t, "nonces", cfg.Storage.MongoDB.Collection)

	span, err := cfg.Security.CachingTimeSpan()
	require.NoError(t, err)
	assert.Equal(t, 14*time.Minute, span)

	level, err := cfg.Logging.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.validate())

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "Basic256", cfg.Security.IncomingSuite)
	assert.True(t, *cfg.Security.DetectReplays)
	assert.Equal(t, 5*time.Minute, cfg.Security.ReplayWindow)
	assert.Equal(t, 900000, cfg.Security.MaxCachedNonces)
	assert.Equal(t, security.SecureConversationDec2005, cfg.Security.Version())
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestParse_DetectReplaysOff(t *testing.T) {
	cfg, err := Parse([]byte("security:\n  detectReplays: false\n"))
	require.NoError(t, err)
	assert.False(t, *cfg.Security.DetectReplays)
}

func TestParse_ClockSkew(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want time.Duration
		span time.Duration
	}{
		{name: "unset", yaml: "security:\n  replayWindow: 5m\n", want: 5 * time.Minute, span: 15 * time.Minute},
		{name: "explicit zero", yaml: "security:\n  replayWindow: 5m\n  maxClockSkew: 0s\n", want: 0, span: 5 * time.Minute},
		{name: "explicit value", yaml: "security:\n  replayWindow: 5m\n  maxClockSkew: 30s\n", want: 30 * time.Second, span: 6 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.yaml))
			require.NoError(t, err)
			require.NotNil(t, cfg.Security.MaxClockSkew)
			assert.Equal(t, tt.want, cfg.Security.ClockSkew())

			span, err := cfg.Security.CachingTimeSpan()
			require.NoError(t, err)
			assert.Equal(t, tt.span, span)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "bad yaml", yaml: "server: [unterminated"},
		{name: "port out of range", yaml: "server:\n  port: 70000\n"},
		{name: "tls without files", yaml: "server:\n  tls:\n    enabled: true\n"},
		{name: "unknown incoming suite", yaml: "security:\n  incomingSuite: Basic512\n"},
		{name: "unknown outgoing suite", yaml: "security:\n  outgoingSuite: Rot13\n"},
		{name: "negative nonce count", yaml: "security:\n  maxCachedNonces: -1\n"},
		{name: "negative clock skew", yaml: "security:\n  maxClockSkew: -1m\n"},
		{name: "eviction fraction too large", yaml: "security:\n  evictOldest: 1.5\n"},
		{name: "unknown conversation version", yaml: "security:\n  secureConversation: 2004\n"},
		{name: "unknown storage", yaml: "storage:\n  type: redis\n"},
		{name: "badger without path", yaml: "storage:\n  type: badger\n"},
		{name: "mongodb without uri", yaml: "storage:\n  type: mongodb\n"},
		{name: "bad log level", yaml: "logging:\n  level: chatty\n"},
		{name: "bad log format", yaml: "logging:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}
