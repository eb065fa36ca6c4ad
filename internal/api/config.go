// Package api provides the HTTP surface of the Ariadne service.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ariadne-io/ariadne/internal/api/middleware"
	"github.com/ariadne-io/ariadne/internal/config"
)

const (
	defaultPort       int    = 5175
	maxPort           int    = 65535
	defaultHost       string = "127.0.0.1"
	defaultCORSOrigin string = "http://localhost:5173"
	defaultCORSMaxAge int    = 86400

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	defaultShutdownTimeout   = 10 * time.Second
	defaultLogLevel          = slog.LevelInfo

	// defaultMaxRequestSize bounds POST /ingest bodies at 256 KiB.
	defaultMaxRequestSize int64 = 262144
)

var (
	// ErrInvalidPort indicates the port number is outside valid range (1-65535).
	ErrInvalidPort = errors.New("invalid port")

	// ErrEmptyHost indicates the server host address is empty.
	ErrEmptyHost = errors.New("host cannot be empty")

	// ErrInvalidShutdownTimeout indicates the shutdown timeout is zero or negative.
	ErrInvalidShutdownTimeout = errors.New("shutdown timeout must be positive")

	// ErrInvalidMaxRequestSize indicates the max request size is zero or negative.
	ErrInvalidMaxRequestSize = errors.New("max request size must be positive")
)

// ServerConfig holds HTTP server configuration.
// Pure configuration only - no runtime dependencies.
//
// There is deliberately no write timeout field: SSE responses are unbounded
// by design, so the server runs with WriteTimeout zero and relies on the
// read-header and idle timeouts instead.
type ServerConfig struct {
	Port              int
	Host              string
	ReadHeaderTimeout time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	LogLevel          slog.Level
	MaxRequestSize    int64
	CORSOrigin        string
	IngestRPS         int
}

// LoadServerConfig loads server configuration from environment variables
// with the documented defaults. The service binds loopback unless HOST says
// otherwise; it is not meant to be exposed beyond the local machine.
func LoadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:              config.GetEnvInt("PORT", defaultPort),
		Host:              config.GetEnvStr("HOST", defaultHost),
		ReadHeaderTimeout: config.GetEnvDuration("READ_HEADER_TIMEOUT", defaultReadHeaderTimeout),
		IdleTimeout:       config.GetEnvDuration("IDLE_TIMEOUT", defaultIdleTimeout),
		ShutdownTimeout:   config.GetEnvDuration("SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LogLevel:          config.GetEnvLogLevel("LOG_LEVEL", defaultLogLevel),
		MaxRequestSize:    config.GetEnvInt64("MAX_REQUEST_SIZE", defaultMaxRequestSize),
		CORSOrigin:        config.GetEnvStr("CORS_ORIGIN", defaultCORSOrigin),
		IngestRPS:         config.GetEnvInt("INGEST_RPS", 0),
	}
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ToCORSConfig converts the configured origin into the middleware CORS
// settings: single origin (plus its loopback alias, handled by the
// middleware), GET/POST/OPTIONS, Content-Type only, no credentials.
func (c *ServerConfig) ToCORSConfig() *middleware.CORSConfig {
	return &middleware.CORSConfig{
		AllowedOrigin:  c.CORSOrigin,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
		MaxAge:         defaultCORSMaxAge,
	}
}

// Validate validates the server configuration.
func (c *ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > maxPort {
		return fmt.Errorf("%w: %d, must be between 1 and %d", ErrInvalidPort, c.Port, maxPort)
	}

	if c.Host == "" {
		return ErrEmptyHost
	}

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: got %v", ErrInvalidShutdownTimeout, c.ShutdownTimeout)
	}

	if c.MaxRequestSize <= 0 {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidMaxRequestSize, c.MaxRequestSize)
	}

	return nil
}
