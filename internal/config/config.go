// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Storage backends.
const (
	BackendGCS   = "gcs"
	BackendLocal = "local"
	BackendS3    = "s3"
	BackendAzure = "azure"
)

// Select response framings.
const (
	FramingEventStream = "eventstream"
	FramingRaw         = "raw"
)

// StorageConfig selects and configures the object storage backend.
type StorageConfig struct {
	Backend   string // gcs (default), local, s3 or azure
	CacheSize int    // number of objects held in the content cache (default 128)

	// Local filesystem
	LocalPath string // root directory; buckets are its subdirectories (default /data)

	// Google Cloud Storage
	GCSProject         string // default "PROJECT"
	GCSCredentialsFile string // service account key file (optional)
	EmulatorHost       string // STORAGE_EMULATOR_HOST; implies anonymous credentials

	// S3-compatible
	S3Endpoint string // host[:port] or full URL; empty means AWS
	S3Region   string
	S3KeyID    string
	S3Secret   string
	S3URLStyle string // "path" (default) or "vhost"

	// Azure Blob Storage
	AzureAccountName string
	AzureAccountKey  string
	AzureServiceURL  string // default https://<account>.blob.core.windows.net/
}

// HasS3Credentials returns true if a static S3 key pair is configured.
func (s *StorageConfig) HasS3Credentials() bool {
	return s.S3KeyID != "" && s.S3Secret != ""
}

// Config holds the configuration for the gateway.
type Config struct {
	Storage StorageConfig

	ListenAddr      string        // HTTP listen address (default ":8080")
	Region          string        // region reported by GetBucketLocation (default "eu-west-2")
	SelectFraming   string        // eventstream (default) or raw
	ShutdownTimeout time.Duration // graceful shutdown limit (default 15s)
	LogLevel        string        // log level: debug, info, warn, error (default "info")
	Env             string        // environment: "development" (default) or "production"

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 100)
	RateLimitBurst int     // burst capacity (default 200)

	// CORS
	CORSAllowedOrigins []string // allowed origins for CORS (default: ["*"])

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables and applies
// defaults. The result has been validated.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		Storage: StorageConfig{
			Backend:            strings.ToLower(strings.TrimSpace(os.Getenv("STORAGE_BACKEND"))),
			LocalPath:          os.Getenv("LOCAL_STORAGE_PATH"),
			GCSProject:         os.Getenv("GCS_PROJECT"),
			GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
			EmulatorHost:       os.Getenv("STORAGE_EMULATOR_HOST"),
			S3Endpoint:         os.Getenv("S3_ENDPOINT"),
			S3Region:           os.Getenv("S3_REGION"),
			S3KeyID:            os.Getenv("S3_KEY_ID"),
			S3Secret:           os.Getenv("S3_SECRET"),
			S3URLStyle:         strings.ToLower(os.Getenv("S3_URL_STYLE")),
			AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
			AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
			AzureServiceURL:    os.Getenv("AZURE_SERVICE_URL"),
		},
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		Region:        os.Getenv("REGION"),
		SelectFraming: strings.ToLower(os.Getenv("SELECT_FRAMING")),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		Env:           os.Getenv("ENV"),
	}

	if v := os.Getenv("STORAGE_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("STORAGE_CACHE_SIZE must be an integer, got %q", v)
		}
		if n < 1 {
			return nil, fmt.Errorf("STORAGE_CACHE_SIZE must be at least 1, got %d", n)
		}
		cfg.Storage.CacheSize = n
	}

	// Rate limiting
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("SHUTDOWN_TIMEOUT: %w", err)
		}
		cfg.ShutdownTimeout = d
	}

	// CORS
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = compactNonEmpty(origins)
	}

	// PORT is honoured for platforms that inject it (Cloud Run, Heroku).
	if cfg.ListenAddr == "" {
		if port := os.Getenv("PORT"); port != "" {
			cfg.ListenAddr = ":" + port
		}
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendGCS
	}
	if c.Storage.CacheSize == 0 {
		c.Storage.CacheSize = 128
	}
	if c.Storage.LocalPath == "" {
		c.Storage.LocalPath = "/data"
	}
	if c.Storage.GCSProject == "" {
		c.Storage.GCSProject = "PROJECT"
	}
	if c.Storage.S3URLStyle == "" {
		c.Storage.S3URLStyle = "path"
	}
	if c.Storage.S3Region == "" {
		c.Storage.S3Region = "us-east-1"
	}
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.Region == "" {
		c.Region = "eu-west-2"
	}
	if c.SelectFraming == "" {
		c.SelectFraming = FramingEventStream
	}
	if c.ShutdownTimeout == 0 {
		c.ShutdownTimeout = 15 * time.Second
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 100
	}
	if c.RateLimitBurst == 0 {
		c.RateLimitBurst = 200
	}
	if len(c.CORSAllowedOrigins) == 0 {
		c.CORSAllowedOrigins = []string{"*"}
	}

	switch c.Storage.Backend {
	case BackendS3:
		if !c.Storage.HasS3Credentials() {
			c.Warnings = append(c.Warnings, "S3_KEY_ID/S3_SECRET not set, falling back to anonymous S3 access")
		}
	case BackendGCS:
		if c.Storage.EmulatorHost != "" {
			c.Warnings = append(c.Warnings, "STORAGE_EMULATOR_HOST is set, using anonymous GCS credentials against "+c.Storage.EmulatorHost)
		}
	}
}

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendGCS, BackendLocal:
	case BackendS3:
		if (c.Storage.S3KeyID == "") != (c.Storage.S3Secret == "") {
			return fmt.Errorf("both S3_KEY_ID and S3_SECRET must be set together")
		}
		if c.Storage.S3URLStyle != "path" && c.Storage.S3URLStyle != "vhost" {
			return fmt.Errorf("S3_URL_STYLE must be path or vhost, got %q", c.Storage.S3URLStyle)
		}
	case BackendAzure:
		if c.Storage.AzureAccountName == "" || c.Storage.AzureAccountKey == "" {
			return fmt.Errorf("AZURE_ACCOUNT_NAME and AZURE_ACCOUNT_KEY are required for the azure backend")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q: use gcs, local, s3 or azure", c.Storage.Backend)
	}
	if c.Storage.CacheSize < 1 {
		return fmt.Errorf("STORAGE_CACHE_SIZE must be at least 1, got %d", c.Storage.CacheSize)
	}
	if c.SelectFraming != FramingEventStream && c.SelectFraming != FramingRaw {
		return fmt.Errorf("SELECT_FRAMING must be eventstream or raw, got %q", c.SelectFraming)
	}
	if c.IsProduction() && len(c.CORSAllowedOrigins) == 1 && c.CORSAllowedOrigins[0] == "*" {
		return fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
	}
	return nil
}

func compactNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = stripQuotes(strings.TrimSpace(value))
		if err := setDefaultEnv(key, value); err != nil {
			return err
		}
	}
	return scanner.Err()
}

// setDefaultEnv sets key unless the environment already has a value for it.
func setDefaultEnv(key, value string) error {
	if os.Getenv(key) != "" {
		return nil
	}
	if err := os.Setenv(key, value); err != nil {
		return fmt.Errorf("setenv %s: %w", key, err)
	}
	return nil
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
