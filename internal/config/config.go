// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Every field maps to an environment variable named PREFIX_FIELD, for
// example Server.Port is SERVER_PORT.
type Config struct {
	Server   ServerConfig    `envconfig:"SERVER"`
	Upload   UploadConfig    `envconfig:"UPLOAD"`
	Access   AccessConfig    `envconfig:"ACCESS"`
	Rate     RateLimitConfig `envconfig:"RATE_LIMIT"`
	Security SecurityConfig  `envconfig:"SECURITY"`
	Logging  LoggingConfig   `envconfig:"LOG"`
	Database DatabaseConfig  `envconfig:"DATABASE"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `envconfig:"PORT" default:"8080" validate:"min=1,max=65535"`

	// ReadTimeout is the maximum duration for reading the request, body included (default: 15s)
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"15s" validate:"gte=0"`

	// WriteTimeout is the maximum duration for writing the response (default: 60s)
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"60s" validate:"gte=0"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `envconfig:"IDLE_TIMEOUT" default:"60s" validate:"gte=0"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s" validate:"gt=0"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"60s" validate:"gt=0"`
}

// UploadConfig holds conversion settings.
type UploadConfig struct {
	// MaxFileSize is the per-file limit in bytes (default: 5 MiB)
	MaxFileSize int64 `envconfig:"MAX_FILE_SIZE" default:"5242880" validate:"gt=0"`

	// MaxRequestSize caps the whole multipart body (default: 64 MiB)
	MaxRequestSize int64 `envconfig:"MAX_REQUEST_SIZE" default:"67108864" validate:"gtefield=MaxFileSize"`

	// MaxFiles is the most files accepted per request (default: 20)
	MaxFiles int `envconfig:"MAX_FILES" default:"20" validate:"min=1"`

	// MaxConcurrent is the maximum number of batches converting at once (default: 4)
	MaxConcurrent int `envconfig:"MAX_CONCURRENT" default:"4" validate:"min=1"`

	// MaxWaitTime is how long a request waits for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `envconfig:"MAX_WAIT_TIME" default:"30s" validate:"gt=0"`

	// Encoding is the assumed text encoding of uploads (default: utf-8)
	Encoding string `envconfig:"ENCODING" default:"utf-8" validate:"encoding"`

	// SniffBytes is how much of each file delimiter detection reads (default: 2048)
	SniffBytes int `envconfig:"SNIFF_BYTES" default:"2048" validate:"min=64"`

	// PreviewRows is how many rows are shown per file (default: 5)
	PreviewRows int `envconfig:"PREVIEW_ROWS" default:"5" validate:"min=1,max=100"`
}

// AccessConfig holds the shared password.
type AccessConfig struct {
	// Password is the shared access password (required)
	Password string `envconfig:"PASSWORD" validate:"required"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `envconfig:"ENABLED" default:"true"`

	// RequestsPerMinute is the sustained rate per IP (default: 60)
	RequestsPerMinute int `envconfig:"REQUESTS_PER_MINUTE" default:"60" validate:"required_if=Enabled true,gte=0"`

	// Burst is how many requests may arrive at once (default: 10)
	Burst int `envconfig:"BURST" default:"10" validate:"required_if=Enabled true,gte=0"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `envconfig:"TRUSTED_PROXIES" validate:"dive,cidr"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `envconfig:"ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`

	// Format is the log format: text or json (default: text)
	Format string `envconfig:"FORMAT" default:"text" validate:"oneof=text json"`
}

// DatabaseConfig holds the optional history database settings.
// History is disabled when URL is empty.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (optional)
	URL string `envconfig:"URL"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int32 `envconfig:"MAX_CONNS" default:"4" validate:"gt=0,gtefield=MinConns"`

	// MinConns is the minimum number of connections to keep open (default: 0)
	MinConns int32 `envconfig:"MIN_CONNS" default:"0" validate:"gte=0"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// HistoryEnabled reports whether a history database is configured.
func (c *DatabaseConfig) HistoryEnabled() bool {
	return c.URL != ""
}
