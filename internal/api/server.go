// Package api provides the HTTP surface of the Ariadne service.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ariadne-io/ariadne/internal/api/middleware"
	"github.com/ariadne-io/ariadne/internal/ingestion"
	"github.com/ariadne-io/ariadne/internal/storage"
	"github.com/ariadne-io/ariadne/internal/stream"
)

// Version identifies the service build in the index response and startup
// logs.
const Version = "0.1.0-dev"

// Server represents the HTTP API server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	config     *ServerConfig
	startTime  time.Time

	store    *storage.EventStore
	pipeline *ingestion.Pipeline
	streams  *stream.Manager
	limiter  middleware.Limiter
}

// NewServer creates a new HTTP server instance with structured logging and
// the middleware stack.
//
// Dependencies are injected explicitly rather than being part of
// ServerConfig: configuration says what to listen on, the collaborators say
// how requests are served. There are no package-level singletons; the store,
// pipeline and stream manager are built in main and passed down.
//
// Parameters:
//   - cfg: Pure server configuration (address, timeouts, CORS settings)
//   - store: the bounded event store backing /healthz and tooling
//   - pipeline: the ingest lane handling POST /ingest payloads
//   - streams: the SSE connection manager behind GET /events
//   - limiter: ingest rate limiter (nil disables rate limiting)
func NewServer(
	cfg *ServerConfig,
	store *storage.EventStore,
	pipeline *ingestion.Pipeline,
	streams *stream.Manager,
	limiter middleware.Limiter,
) *Server {
	// Create structured logger with configured log level
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	mux := http.NewServeMux()

	server := &Server{
		logger:   logger,
		config:   cfg,
		store:    store,
		pipeline: pipeline,
		streams:  streams,
		limiter:  limiter,
	}

	server.setupRoutes(mux)

	if limiter != nil {
		logger.Info("Ingest rate limiting enabled", slog.Int("rps", cfg.IngestRPS))
	}

	// Apply middleware chain using functional options pattern.
	// Middleware executes in the order listed (top-to-bottom):
	//   1. CorrelationID - tag every response for log correlation
	//   2. Recovery - catch panics in all downstream middleware
	//   3. RateLimit - shed producer floods before parsing (optional)
	//   4. RequestLogger - log admitted requests only
	//   5. CORS - lightweight header manipulation
	handler := middleware.Apply(mux,
		middleware.WithCorrelationID(),
		middleware.WithRecovery(logger),
		middleware.WithRateLimit(limiter, logger),
		middleware.WithRequestLogger(logger),
		middleware.WithCORS(cfg.ToCORSConfig()),
	)

	// WriteTimeout stays zero: SSE responses live for the whole
	// subscription and a write deadline would sever idle viewers.
	server.httpServer = &http.Server{
		Addr:              cfg.Address(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	return server
}

// Handler returns the fully wrapped HTTP handler. Used by integration tests
// to mount the server inside httptest without binding a port.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server and blocks until shutdown.
// It handles graceful shutdown on SIGINT and SIGTERM signals.
func (s *Server) Start() error {
	if err := s.config.Validate(); err != nil {
		return fmt.Errorf("invalid server configuration: %w", err)
	}

	// Record server start time for uptime calculation
	s.startTime = time.Now()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	// Start server in a goroutine
	go func() {
		s.logger.Info("Starting Ariadne API server",
			slog.String("address", s.config.Address()),
			slog.Duration("read_header_timeout", s.config.ReadHeaderTimeout),
			slog.Duration("idle_timeout", s.config.IdleTimeout),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed to start",
				slog.String("address", s.config.Address()),
				slog.String("error", err.Error()),
			)

			serverErrors <- fmt.Errorf("server failed to start: %w", err)
		}
	}()

	// Block until we receive a signal or server error
	select {
	case err := <-serverErrors:
		return err
	case sig := <-stop:
		s.logger.Info("Received shutdown signal",
			slog.String("signal", sig.String()),
		)

		return s.shutdown()
	}
}

// shutdown gracefully shuts down the server.
//
// The stream manager closes first: that releases every in-flight GET
// /events handler, without which http.Server.Shutdown would block on the
// open SSE connections until the grace period expired.
func (s *Server) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Initiating server shutdown",
		slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
	)

	for _, closer := range []io.Closer{s.streams} {
		if closer == nil {
			continue
		}

		if err := closer.Close(); err != nil {
			s.logger.Error("Failed to close component", slog.String("error", err.Error()))
		}
	}

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("Server shutdown failed",
			slog.String("error", err.Error()),
			slog.Duration("shutdown_timeout", s.config.ShutdownTimeout),
		)

		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.logger.Info("Server shutdown completed successfully")

	return nil
}
