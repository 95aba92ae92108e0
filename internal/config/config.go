// Package config handles configuration loading for the replay-guard service.
//
// Configuration is loaded from a YAML file with support for environment
// variable expansion (${VAR} or $VAR syntax), so database credentials can
// be injected at runtime.
//
// # Configuration Sections
//
//   - server: HTTP listener settings (port, timeouts, TLS)
//   - security: algorithm suites, replay window, clock skew, nonce cache sizing
//   - storage: nonce cache backend (memory, badger or mongodb)
//   - logging: level and format
//
// # Example Configuration
//
//	server:
//	  port: 8080
//
//	security:
//	  incomingSuite: Basic256Sha256
//	  outgoingSuite: Basic256Sha256
//	  replayWindow: 5m
//	  maxClockSkew: 5m
//	  maxCachedNonces: 900000
//
//	storage:
//	  type: mongodb
//	  mongodb:
//	    uri: ${MONGODB_URI}
//	    database: wssec
//
// See [Load] for loading configuration from a file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sirosfoundation/go-wssec/pkg/nonce"
	"github.com/sirosfoundation/go-wssec/pkg/security"
	"github.com/sirosfoundation/go-wssec/pkg/suite"
)

// Storage backends
const (
	StorageMemory  = "memory"
	StorageBadger  = "badger"
	StorageMongoDB = "mongodb"
)

// Config is the root configuration structure
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Security SecurityConfig `yaml:"security"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// MaxBodyBytes limits request bodies on the verify endpoint
	MaxBodyBytes int64 `yaml:"maxBodyBytes"`
	TLS          struct {
		Enabled  bool   `yaml:"enabled"`
		CertFile string `yaml:"certFile"`
		KeyFile  string `yaml:"keyFile"`
	} `yaml:"tls"`
}

// SecurityConfig holds the protocol factory settings
type SecurityConfig struct {
	IncomingSuite string `yaml:"incomingSuite"`
	OutgoingSuite string `yaml:"outgoingSuite"`
	// DetectReplays defaults to true
	DetectReplays *bool         `yaml:"detectReplays"`
	ReplayWindow  time.Duration `yaml:"replayWindow"`
	// MaxClockSkew defaults to 5m. An explicit zero is kept.
	MaxClockSkew    *time.Duration `yaml:"maxClockSkew"`
	MaxCachedNonces int            `yaml:"maxCachedNonces"`
	// EvictOldest, when positive, is the fraction of nonces dropped when
	// the in-memory cache is full. Zero rejects new nonces instead.
	EvictOldest        float64 `yaml:"evictOldest"`
	SecureConversation string  `yaml:"secureConversation"`
}

// StorageConfig selects and configures the nonce cache backend
type StorageConfig struct {
	Type    string        `yaml:"type"`
	Badger  BadgerConfig  `yaml:"badger"`
	MongoDB MongoDBConfig `yaml:"mongodb"`
}

// BadgerConfig holds Badger settings
type BadgerConfig struct {
	Path     string `yaml:"path"`
	InMemory bool   `yaml:"inMemory"`
}

// MongoDBConfig holds MongoDB connection settings
type MongoDBConfig struct {
	URI        string        `yaml:"uri"`
	Database   string        `yaml:"database"`
	Collection string        `yaml:"collection"`
	Timeout    time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse reads configuration from YAML bytes, expanding environment
// variables, applying defaults and validating the result
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 30 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 30 * time.Second
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 15 * time.Second
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = 1 << 20
	}
	if c.Security.IncomingSuite == "" {
		c.Security.IncomingSuite = suite.Default.Name()
	}
	if c.Security.OutgoingSuite == "" {
		c.Security.OutgoingSuite = suite.Default.Name()
	}
	if c.Security.DetectReplays == nil {
		detect := true
		c.Security.DetectReplays = &detect
	}
	if c.Security.ReplayWindow == 0 {
		c.Security.ReplayWindow = 5 * time.Minute
	}
	if c.Security.MaxClockSkew == nil {
		skew := 5 * time.Minute
		c.Security.MaxClockSkew = &skew
	}
	if c.Security.MaxCachedNonces == 0 {
		c.Security.MaxCachedNonces = 900000
	}
	if c.Security.SecureConversation == "" {
		c.Security.SecureConversation = "dec2005"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageMemory
	}
	if c.Storage.MongoDB.Database == "" {
		c.Storage.MongoDB.Database = "wssec"
	}
	if c.Storage.MongoDB.Collection == "" {
		c.Storage.MongoDB.Collection = "nonces"
	}
	if c.Storage.MongoDB.Timeout == 0 {
		c.Storage.MongoDB.Timeout = 10 * time.Second
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.TLS.Enabled && (c.Server.TLS.CertFile == "" || c.Server.TLS.KeyFile == "") {
		return fmt.Errorf("server.tls.certFile and server.tls.keyFile are required when TLS is enabled")
	}

	if _, ok := suite.Lookup(c.Security.IncomingSuite); !ok {
		return fmt.Errorf("security.incomingSuite: unknown algorithm suite '%s'", c.Security.IncomingSuite)
	}
	if _, ok := suite.Lookup(c.Security.OutgoingSuite); !ok {
		return fmt.Errorf("security.outgoingSuite: unknown algorithm suite '%s'", c.Security.OutgoingSuite)
	}
	if c.Security.MaxCachedNonces <= 0 {
		return fmt.Errorf("security.maxCachedNonces must be positive, got %d", c.Security.MaxCachedNonces)
	}
	if *c.Security.DetectReplays {
		if _, err := c.Security.CachingTimeSpan(); err != nil {
			return fmt.Errorf("security: %w", err)
		}
	}
	if c.Security.EvictOldest < 0 || c.Security.EvictOldest > 1 {
		return fmt.Errorf("security.evictOldest must be between 0 and 1, got %v", c.Security.EvictOldest)
	}
	if _, ok := security.ParseSecureConversationVersion(c.Security.SecureConversation); !ok {
		return fmt.Errorf("security.secureConversation must be 'feb2005' or 'dec2005', got '%s'", c.Security.SecureConversation)
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageBadger:
		if c.Storage.Badger.Path == "" && !c.Storage.Badger.InMemory {
			return fmt.Errorf("storage.badger.path is required when type is 'badger'")
		}
	case StorageMongoDB:
		if c.Storage.MongoDB.URI == "" {
			return fmt.Errorf("storage.mongodb.uri is required when type is 'mongodb'")
		}
	default:
		return fmt.Errorf("storage.type must be 'memory', 'badger', or 'mongodb', got '%s'", c.Storage.Type)
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}
	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("logging.format must be 'json' or 'text', got '%s'", c.Logging.Format)
	}

	return nil
}

// CachingTimeSpan returns how long nonces are remembered
func (s SecurityConfig) CachingTimeSpan() (time.Duration, error) {
	return nonce.CachingTimeSpanFor(s.ReplayWindow, s.ClockSkew())
}

// ClockSkew returns the configured maximum clock skew, zero if unset
func (s SecurityConfig) ClockSkew() time.Duration {
	if s.MaxClockSkew == nil {
		return 0
	}
	return *s.MaxClockSkew
}

// Version returns the configured secure conversation version
func (s SecurityConfig) Version() security.SecureConversationVersion {
	v, _ := security.ParseSecureConversationVersion(s.SecureConversation)
	return v
}

// SlogLevel maps the configured level name to a slog.Level
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToUpper(l.Level))); err != nil {
		return 0, fmt.Errorf("logging.level: %w", err)
	}
	return level, nil
}
