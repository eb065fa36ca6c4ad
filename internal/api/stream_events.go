package api

import (
	"log/slog"
	"net/http"

	"github.com/ariadne-io/ariadne/internal/api/middleware"
	"github.com/ariadne-io/ariadne/internal/config"
	"github.com/ariadne-io/ariadne/internal/stream"
)

// handleStreamEvents handles live SSE subscriptions.
// GET /events?traceId=&kinds=&since= - Subscribe to the live event stream
//
// The handler registers a subscription with the stream manager, emits the
// connected greeting, and then blocks for the lifetime of the connection
// while the manager writes event frames, heartbeat comments and
// backpressure warnings. It returns when the client disconnects, a write
// fails, or the manager shuts down.
//
// Responses:
//   - 200 text/event-stream on success
//   - 400 {"error": "Invalid since parameter"} for an unparseable since
//   - 500 when the connection cannot stream or the manager is shut down
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())
	query := r.URL.Query()

	filter, err := stream.NewFilter(
		query.Get("traceId"),
		config.ParseCommaSeparatedList(query.Get("kinds")),
		query.Get("since"),
	)
	if err != nil {
		WriteError(w, r, s.logger, http.StatusBadRequest, InvalidSince())

		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.logger.Error("Response writer does not support flushing",
			slog.String("correlation_id", correlationID),
		)
		WriteError(w, r, s.logger, http.StatusInternalServerError,
			InternalServerError("Streaming unsupported by this connection"))

		return
	}

	sub, err := s.streams.Subscribe(filter)
	if err != nil {
		WriteError(w, r, s.logger, http.StatusInternalServerError,
			InternalServerError("Event stream is shut down"))

		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	s.logger.Info("SSE subscription opened",
		slog.String("correlation_id", correlationID),
		slog.Int64("subscription_id", sub.ID()),
		slog.String("remote_addr", r.RemoteAddr),
	)

	// Blocks until client disconnect, write failure or manager shutdown;
	// Stream deregisters the subscription on every exit path.
	_ = s.streams.Stream(r.Context(), sub, &flushWriter{w: w, flusher: flusher})

	s.logger.Info("SSE subscription closed",
		slog.String("correlation_id", correlationID),
		slog.Int64("subscription_id", sub.ID()),
	)
}

// flushWriter adapts the response writer pair to stream.FrameWriter.
// http.Flusher reports no error; a dead connection surfaces through the
// next Write instead.
type flushWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

func (fw *flushWriter) Write(p []byte) (int, error) {
	return fw.w.Write(p)
}

func (fw *flushWriter) Flush() error {
	fw.flusher.Flush()

	return nil
}
