// Package main provides the Ariadne telemetry service.
//
// Ariadne is a local-first observability backend for agent-framework
// telemetry: agent processes POST trace and span events to /ingest, viewers
// subscribe to the live SSE stream on /events, and the most recent events
// stay queryable through an in-memory ring buffer.
package main

import (
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/ariadne-io/ariadne/internal/aliasing"
	"github.com/ariadne-io/ariadne/internal/api"
	"github.com/ariadne-io/ariadne/internal/api/middleware"
	"github.com/ariadne-io/ariadne/internal/config"
	"github.com/ariadne-io/ariadne/internal/ingestion"
	"github.com/ariadne-io/ariadne/internal/metrics"
	"github.com/ariadne-io/ariadne/internal/storage"
	"github.com/ariadne-io/ariadne/internal/stream"
)

const name = "ariadne"

func main() {
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, api.Version)
		os.Exit(0)
	}

	serverConfig := api.LoadServerConfig()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: serverConfig.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting Ariadne service",
		slog.String("service", name),
		slog.String("version", api.Version),
	)

	logger.Info("Loaded server configuration",
		slog.String("host", serverConfig.Host),
		slog.Int("port", serverConfig.Port),
		slog.String("cors_origin", serverConfig.CORSOrigin),
		slog.Duration("shutdown_timeout", serverConfig.ShutdownTimeout),
		slog.String("log_level", serverConfig.LogLevel.String()),
	)

	metrics.Register()

	maxEvents := config.GetEnvInt("MAX_EVENTS", storage.DefaultCapacity)
	store := storage.NewEventStore(maxEvents)

	logger.Info("Event store initialized",
		slog.Int("capacity", store.Capacity()),
	)

	// Kind aliases are optional; a missing or malformed config file leaves
	// filter matching exact.
	aliasConfig, err := aliasing.LoadConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load kind alias config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	resolver := aliasing.NewResolver(aliasConfig)

	var canon stream.Canonicalizer
	if resolver.PatternCount() > 0 {
		canon = resolver.Resolve

		logger.Info("Kind aliasing enabled",
			slog.Int("patterns", resolver.PatternCount()),
		)
	}

	manager := stream.NewManager(stream.Config{
		QueueSize:     config.GetEnvInt("EVENT_QUEUE_SIZE", stream.DefaultQueueSize),
		Canonicalizer: canon,
		Logger:        logger,
	})

	pipeline := ingestion.NewPipeline(store, manager)

	// nil limiter disables rate limiting; the default keeps ingest
	// unthrottled for in-process producers.
	var limiter middleware.Limiter
	if il := middleware.NewIngestLimiter(serverConfig.IngestRPS); il != nil {
		limiter = il
	}

	server := api.NewServer(serverConfig, store, pipeline, manager, limiter)

	if err := server.Start(); err != nil {
		logger.Error("Server failed to start",
			slog.String("error", err.Error()),
		)
		os.Exit(1)
	}

	logger.Info("Ariadne service stopped")
}
