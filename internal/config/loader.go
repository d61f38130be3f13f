package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/JonMunkholm/feeduploader/internal/core"
)

var durationType = reflect.TypeOf(time.Duration(0))

// Load reads configuration from environment variables, applies defaults and
// validates the result. Every missing or malformed variable is reported in
// one error.
func Load() (*Config, error) {
	cfg := &Config{}

	var problems []string
	loadStruct(reflect.ValueOf(cfg).Elem(), &problems)
	if len(problems) > 0 {
		return nil, fmt.Errorf("config load: %s", strings.Join(problems, "; "))
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// loadStruct fills the tagged fields of v, recursing into section structs.
func loadStruct(v reflect.Value, problems *[]string) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		sf, fv := t.Field(i), v.Field(i)
		if !fv.CanSet() {
			continue
		}
		if sf.Type.Kind() == reflect.Struct {
			loadStruct(fv, problems)
			continue
		}

		name := sf.Tag.Get("env")
		if name == "" {
			continue
		}
		value, ok := lookup(sf.Tag)
		if !ok {
			if sf.Tag.Get("required") == "true" {
				*problems = append(*problems, fmt.Sprintf("required environment variable %s is not set", name))
			}
			continue
		}
		if err := setField(fv, value); err != nil {
			*problems = append(*problems, fmt.Sprintf("invalid value for %s=%q: %v", name, value, err))
		}
	}
}

// lookup returns the env value, then the envAlt value, then the default.
func lookup(tag reflect.StructTag) (string, bool) {
	for _, key := range []string{tag.Get("env"), tag.Get("envAlt")} {
		if key == "" {
			continue
		}
		if v := os.Getenv(key); v != "" {
			return v, true
		}
	}
	def := tag.Get("default")
	return def, def != ""
}

// setField parses value into field according to its kind.
func setField(field reflect.Value, value string) error {
	if field.Type() == durationType {
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration: %w", err)
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int64:
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid integer: %w", err)
		}
		field.SetInt(n)
	case reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid float: %w", err)
		}
		field.SetFloat(f)
	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)
	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}
	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, "DATABASE_URL is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		errs = append(errs, fmt.Sprintf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)",
			c.Database.MaxConns, c.Database.MinConns))
	}
	if c.Database.MaxConns <= 0 {
		errs = append(errs, "DB_MAX_CONNS must be positive")
	}
	if c.Database.MinConns < 0 {
		errs = append(errs, "DB_MIN_CONNS must be non-negative")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT (%d) must be 1-65535", c.Server.Port))
	}
	if c.Server.ReadTimeout < 0 {
		errs = append(errs, "SERVER_READ_TIMEOUT must be non-negative")
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, "SERVER_SHUTDOWN_TIMEOUT must be positive")
	}

	// Upload validation
	if c.Upload.MaxFileSize <= 0 {
		errs = append(errs, "UPLOAD_MAX_FILE_SIZE must be positive")
	}
	if c.Upload.MaxConcurrent <= 0 {
		errs = append(errs, "UPLOAD_MAX_CONCURRENT must be positive")
	}
	if c.Upload.MaxWaitTime <= 0 {
		errs = append(errs, "UPLOAD_MAX_WAIT_TIME must be positive")
	}
	if c.Upload.Timeout <= 0 {
		errs = append(errs, "UPLOAD_TIMEOUT must be positive")
	}
	if c.Upload.Workers < 0 {
		errs = append(errs, "UPLOAD_WORKERS must be non-negative")
	}
	if c.Upload.NormalizeConcurrency <= 0 {
		errs = append(errs, "UPLOAD_NORMALIZE_CONCURRENCY must be positive")
	}
	if _, err := core.ParseRowErrorPolicy(c.Upload.RowErrors); err != nil {
		errs = append(errs, fmt.Sprintf("UPLOAD_ROW_ERRORS: %v", err))
	}
	if _, err := core.ParseIDPolicy(c.Upload.IDPolicy, c.Upload.IDSequenceStart); err != nil {
		errs = append(errs, fmt.Sprintf("UPLOAD_ID_POLICY: %v", err))
	}

	// Feed validation
	if _, err := c.Feed.Separator(); err != nil {
		errs = append(errs, fmt.Sprintf("FEED_CSV_SEPARATOR: %v", err))
	}
	if _, err := htmlindex.Get(c.Feed.Encoding); err != nil {
		errs = append(errs, fmt.Sprintf("FEED_ENCODING (%q) is not a known charset", c.Feed.Encoding))
	}
	if strings.TrimSpace(c.Feed.XMLProductNode) == "" {
		errs = append(errs, "FEED_XML_PRODUCT_NODE must not be empty")
	}

	// Oracle validation
	if c.Oracle.Enabled {
		if c.Oracle.APIKey == "" {
			errs = append(errs, "ORACLE_API_KEY is required when ORACLE_ENABLED is true")
		}
		if c.Oracle.MaxRetries < 0 {
			errs = append(errs, "ORACLE_MAX_RETRIES must be non-negative")
		}
		if c.Oracle.RequestsPerSecond < 0 {
			errs = append(errs, "ORACLE_RPS must be non-negative")
		}
		if c.Oracle.Temperature < 0 || c.Oracle.Temperature > 2 {
			errs = append(errs, fmt.Sprintf("ORACLE_TEMPERATURE (%g) must be 0-2", c.Oracle.Temperature))
		}
	}

	// Rate limit validation
	if c.Rate.Enabled && c.Rate.RequestsPerMinute <= 0 {
		errs = append(errs, "RATE_LIMIT_REQUESTS_PER_MINUTE must be positive when rate limiting is enabled")
	}
	if c.Rate.Enabled && c.Rate.UploadLimit <= 0 {
		errs = append(errs, "RATE_LIMIT_UPLOAD must be positive when rate limiting is enabled")
	}

	// Security validation
	if c.Security.RequireAuth && len(c.Security.JWTSecret) < 32 {
		errs = append(errs, "JWT_SECRET must be at least 32 characters when REQUIRE_AUTH is true")
	}
	if c.Security.RequireAuth && c.Security.TokenTTL <= 0 {
		errs = append(errs, "JWT_TTL must be positive when REQUIRE_AUTH is true")
	}
	if !c.Security.RequireAuth && c.Security.DefaultUserID <= 0 {
		errs = append(errs, "DEFAULT_USER_ID must be positive when REQUIRE_AUTH is false")
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// String returns a safe string representation of the config for logging.
// Sensitive values like database URLs are masked.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Server: {Host: %q, Port: %d}, ", c.Server.Host, c.Server.Port))
	b.WriteString(fmt.Sprintf("Database: {URL: [MASKED], MaxConns: %d, MinConns: %d}, ",
		c.Database.MaxConns, c.Database.MinConns))
	b.WriteString(fmt.Sprintf("Upload: {MaxFileSize: %d, MaxConcurrent: %d, IDPolicy: %q, RowErrors: %q}, ",
		c.Upload.MaxFileSize, c.Upload.MaxConcurrent, c.Upload.IDPolicy, c.Upload.RowErrors))
	b.WriteString(fmt.Sprintf("Feed: {Separator: %q, Encoding: %q, XMLProductNode: %q}, ",
		c.Feed.CSVSeparator, c.Feed.Encoding, c.Feed.XMLProductNode))
	b.WriteString(fmt.Sprintf("Oracle: {Enabled: %v, APIKey: [MASKED], Model: %q}, ",
		c.Oracle.Enabled, c.Oracle.Model))
	b.WriteString(fmt.Sprintf("Rate: {Enabled: %v, RequestsPerMinute: %d}, ",
		c.Rate.Enabled, c.Rate.RequestsPerMinute))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
