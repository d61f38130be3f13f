// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Upload      UploadConfig
	Feed        FeedConfig
	Oracle      OracleConfig
	Marketplace MarketplaceConfig
	Rate        RateLimitConfig
	Security    SecurityConfig
	Logging     LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"0s"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown, including waiting for uploads (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for non-upload requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
	ConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT" default:"10s"`

	// Migrate applies the embedded schema on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`
}

// UploadConfig holds feed upload processing settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel uploads (default: 5)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long to wait for an upload slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout is the maximum duration for a single upload operation (default: 10m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"10m"`

	// Workers parse rows in parallel; 0 uses GOMAXPROCS
	Workers int `env:"UPLOAD_WORKERS" default:"0"`

	// RowErrors is "skip" (report and continue) or "abort" (fail the upload)
	RowErrors string `env:"UPLOAD_ROW_ERRORS" default:"skip"`

	// IDPolicy assigns product ids: "database", "sequence" or "random"
	IDPolicy string `env:"UPLOAD_ID_POLICY" default:"database"`

	// IDSequenceStart is the first id handed out by the sequence policy
	IDSequenceStart int64 `env:"UPLOAD_ID_SEQUENCE_START" default:"1"`

	// KeepFeedIDs keeps ids supplied by a mapped "id" column
	KeepFeedIDs bool `env:"UPLOAD_KEEP_FEED_IDS" default:"true"`

	// NormalizeConcurrency is how many products are normalized at once (default: 4)
	NormalizeConcurrency int `env:"UPLOAD_NORMALIZE_CONCURRENCY" default:"4"`
}

// FeedConfig holds feed file decoding settings.
type FeedConfig struct {
	// CSVSeparator is a single character or "tab" (default: ",")
	CSVSeparator string `env:"FEED_CSV_SEPARATOR" default:","`

	// Encoding is the CSV/XML charset name, e.g. "windows-1250" (default: utf-8)
	Encoding string `env:"FEED_ENCODING" default:"utf-8"`

	// XMLProductNode is the element holding one product (default: product)
	XMLProductNode string `env:"FEED_XML_PRODUCT_NODE" default:"product"`
}

// Separator returns CSVSeparator as a rune.
func (c *FeedConfig) Separator() (rune, error) {
	switch strings.ToLower(c.CSVSeparator) {
	case "tab", `\t`, "\t":
		return '\t', nil
	case "":
		return ',', nil
	}
	if utf8.RuneCountInString(c.CSVSeparator) != 1 {
		return 0, fmt.Errorf("separator %q must be a single character", c.CSVSeparator)
	}
	r, _ := utf8.DecodeRuneInString(c.CSVSeparator)
	return r, nil
}

// OracleConfig holds the attribute suggestion client settings.
type OracleConfig struct {
	// Enabled turns on oracle lookups during normalization (default: false)
	Enabled bool `env:"ORACLE_ENABLED" default:"false"`

	APIKey      string        `env:"ORACLE_API_KEY" envAlt:"OPENAI_API_KEY"`
	BaseURL     string        `env:"ORACLE_BASE_URL" default:"https://api.openai.com/v1"`
	Model       string        `env:"ORACLE_MODEL" default:"gpt-4o-mini"`
	Temperature float64       `env:"ORACLE_TEMPERATURE" default:"0"`
	MaxTokens   int           `env:"ORACLE_MAX_TOKENS" default:"100"`
	Timeout     time.Duration `env:"ORACLE_TIMEOUT" default:"30s"`
	MaxRetries  int           `env:"ORACLE_MAX_RETRIES" default:"2"`
	RetryDelay  time.Duration `env:"ORACLE_RETRY_DELAY" default:"500ms"`

	// RequestsPerSecond caps outgoing calls; 0 disables the limit (default: 5)
	RequestsPerSecond float64 `env:"ORACLE_RPS" default:"5"`
	Burst             int     `env:"ORACLE_BURST" default:"5"`
}

// MarketplaceConfig points at the eMAG files loaded on startup.
type MarketplaceConfig struct {
	// CatalogPath is an eMAG category template workbook; empty starts without a catalog
	CatalogPath string `env:"MARKETPLACE_CATALOG_PATH"`

	// TemplatePath is a YAML export layout; empty uses the built-in layout
	TemplatePath string `env:"MARKETPLACE_TEMPLATE_PATH"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// UploadLimit is requests per minute for upload endpoints (default: 10)
	UploadLimit int `env:"RATE_LIMIT_UPLOAD" default:"10"`
}

// SecurityConfig holds authentication settings.
type SecurityConfig struct {
	// RequireAuth rejects API requests without a valid bearer token (default: true)
	RequireAuth bool `env:"REQUIRE_AUTH" default:"true"`

	// JWTSecret signs HS256 tokens
	JWTSecret string `env:"JWT_SECRET"`

	// TokenTTL is how long a login token stays valid (default: 72h)
	TokenTTL time.Duration `env:"JWT_TTL" default:"72h"`

	// DefaultUserID owns uploads when auth is disabled (default: 1)
	DefaultUserID int64 `env:"DEFAULT_USER_ID" default:"1"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
