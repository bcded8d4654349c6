// Package config provides configuration management for the todo API server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Default configuration values.
const (
	DefaultServerPort          = 5000
	DefaultLogLevel            = "info"
	DefaultShutdownTimeout     = 30 * time.Second
	DefaultMetricsEnabled      = true
	DefaultStoreBackend        = StoreBackendMongo
	DefaultMongoDatabase       = "todoapp"
	DefaultMongoCollection     = "todos"
	DefaultMongoConnectTimeout = 10 * time.Second
	DefaultCORSAllowedOrigins  = "*"
)

// Store backends.
const (
	StoreBackendMongo  = "mongo"
	StoreBackendMemory = "memory"
)

// Environment variable names.
const (
	EnvConfigFile          = "APP_CONFIG_FILE"
	EnvServerPort          = "PORT"
	EnvMongoURI            = "MONGODB_URI"
	EnvMongoDatabase       = "APP_MONGODB_DATABASE"
	EnvMongoCollection     = "APP_MONGODB_COLLECTION"
	EnvMongoConnectTimeout = "APP_MONGODB_CONNECT_TIMEOUT"
	EnvStoreBackend        = "APP_STORE_BACKEND"
	EnvLogLevel            = "APP_LOG_LEVEL"
	EnvShutdownTimeout     = "APP_SHUTDOWN_TIMEOUT"
	EnvMetricsEnabled      = "APP_METRICS_ENABLED"
	EnvCORSAllowedOrigins  = "APP_CORS_ALLOWED_ORIGINS"
)

// Config holds the application configuration.
type Config struct {
	// Server settings.
	ServerPort      int           `toml:"port"`
	LogLevel        string        `toml:"log_level"`
	ShutdownTimeout time.Duration `toml:"shutdown_timeout"`
	MetricsEnabled  bool          `toml:"metrics_enabled"`

	// CORSAllowedOrigins lists origins allowed for cross-origin requests.
	// A single "*" allows any origin.
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`

	// Store settings.
	StoreBackend        string        `toml:"store_backend"`
	MongoURI            string        `toml:"mongodb_uri"`
	MongoDatabase       string        `toml:"mongodb_database"`
	MongoCollection     string        `toml:"mongodb_collection"`
	MongoConnectTimeout time.Duration `toml:"mongodb_connect_timeout"`
}

// Validation errors.
var (
	ErrInvalidServerPort      = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel        = errors.New("log level must be one of: debug, info, warn, error")
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")
	ErrInvalidStoreBackend    = errors.New("store backend must be one of: mongo, memory")
	ErrMissingMongoURI        = errors.New(
		"MONGODB_URI must be set when the store backend is mongo",
	)
	ErrInvalidMongoDatabase   = errors.New("mongodb database name must not be empty")
	ErrInvalidMongoCollection = errors.New("mongodb collection name must not be empty")
	ErrInvalidConnectTimeout  = errors.New("mongodb connect timeout must be positive")
	ErrNoCORSOrigins          = errors.New("at least one CORS origin must be configured")
)

// Load reads configuration from defaults, an optional TOML file and
// environment variables. Environment variables take priority over the
// file, and the file over default values.
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:          DefaultServerPort,
		LogLevel:            DefaultLogLevel,
		ShutdownTimeout:     DefaultShutdownTimeout,
		MetricsEnabled:      DefaultMetricsEnabled,
		CORSAllowedOrigins:  splitList(DefaultCORSAllowedOrigins),
		StoreBackend:        DefaultStoreBackend,
		MongoDatabase:       DefaultMongoDatabase,
		MongoCollection:     DefaultMongoCollection,
		MongoConnectTimeout: DefaultMongoConnectTimeout,
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := cfg.loadFromEnv(); err != nil {
		return nil, fmt.Errorf("loading config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile overlays values present in the TOML file at path.
// Keys missing from the file keep their current values.
func (c *Config) loadFromFile(path string) error {
	if _, err := toml.DecodeFile(path, c); err != nil {
		return err
	}
	return nil
}

// loadFromEnv loads configuration values from environment variables.
func (c *Config) loadFromEnv() error {
	if err := c.loadServerEnv(); err != nil {
		return err
	}

	if err := c.loadStoreEnv(); err != nil {
		return err
	}

	return nil
}

// loadServerEnv loads server-related environment variables.
func (c *Config) loadServerEnv() error {
	if val := os.Getenv(EnvServerPort); val != "" {
		port, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvServerPort, err)
		}
		c.ServerPort = port
	}

	if val := os.Getenv(EnvLogLevel); val != "" {
		c.LogLevel = val
	}

	if val := os.Getenv(EnvShutdownTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvShutdownTimeout, err)
		}
		c.ShutdownTimeout = timeout
	}

	if val := os.Getenv(EnvMetricsEnabled); val != "" {
		enabled, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMetricsEnabled, err)
		}
		c.MetricsEnabled = enabled
	}

	if val := os.Getenv(EnvCORSAllowedOrigins); val != "" {
		c.CORSAllowedOrigins = splitList(val)
	}

	return nil
}

// loadStoreEnv loads persistent store environment variables.
func (c *Config) loadStoreEnv() error {
	if val := os.Getenv(EnvStoreBackend); val != "" {
		c.StoreBackend = val
	}

	if val := os.Getenv(EnvMongoURI); val != "" {
		c.MongoURI = val
	}

	if val := os.Getenv(EnvMongoDatabase); val != "" {
		c.MongoDatabase = val
	}

	if val := os.Getenv(EnvMongoCollection); val != "" {
		c.MongoCollection = val
	}

	if val := os.Getenv(EnvMongoConnectTimeout); val != "" {
		timeout, err := time.ParseDuration(val)
		if err != nil {
			return fmt.Errorf("parsing %s: %w", EnvMongoConnectTimeout, err)
		}
		c.MongoConnectTimeout = timeout
	}

	return nil
}

// Validate checks if the configuration values are valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateStore(); err != nil {
		return err
	}

	return nil
}

// validateServer validates server-related configuration.
func (c *Config) validateServer() error {
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return ErrInvalidServerPort
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return ErrInvalidLogLevel
	}

	if c.ShutdownTimeout <= 0 {
		return ErrInvalidShutdownTimeout
	}

	if len(c.CORSAllowedOrigins) == 0 {
		return ErrNoCORSOrigins
	}

	return nil
}

// validateStore validates persistent store configuration.
func (c *Config) validateStore() error {
	switch c.StoreBackend {
	case StoreBackendMemory:
		return nil
	case StoreBackendMongo:
	default:
		return ErrInvalidStoreBackend
	}

	if c.MongoURI == "" {
		return ErrMissingMongoURI
	}

	if c.MongoDatabase == "" {
		return ErrInvalidMongoDatabase
	}

	if c.MongoCollection == "" {
		return ErrInvalidMongoCollection
	}

	if c.MongoConnectTimeout <= 0 {
		return ErrInvalidConnectTimeout
	}

	return nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// splitList splits a comma-separated value, dropping blank entries.
func splitList(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
