package api

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariadne-io/ariadne/internal/api/middleware"
	"github.com/ariadne-io/ariadne/internal/ingestion"
	"github.com/ariadne-io/ariadne/internal/storage"
	"github.com/ariadne-io/ariadne/internal/stream"
)

// newTestServer wires the full stack (store, pipeline, stream manager,
// middleware chain) behind an httptest server. Each test gets its own
// instance so state never leaks between tests.
func newTestServer(t *testing.T, mutate func(*ServerConfig)) (*httptest.Server, *storage.EventStore) {
	t.Helper()

	cfg := &ServerConfig{
		Port:              5175,
		Host:              "127.0.0.1",
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		LogLevel:          slog.LevelError,
		MaxRequestSize:    262144,
		CORSOrigin:        "http://localhost:5173",
	}

	if mutate != nil {
		mutate(cfg)
	}

	quiet := slog.New(slog.NewJSONHandler(io.Discard, nil))

	store := storage.NewEventStore(100)
	manager := stream.NewManager(stream.Config{QueueSize: 100, Logger: quiet})
	pipeline := ingestion.NewPipeline(store, manager)

	var limiter middleware.Limiter
	if l := middleware.NewIngestLimiter(cfg.IngestRPS); l != nil {
		limiter = l
	}

	server := NewServer(cfg, store, pipeline, manager, limiter)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		ts.Close()
		_ = manager.Close()
	})

	return ts, store
}

// sseClient consumes an open GET /events response frame by frame.
type sseClient struct {
	resp   *http.Response
	frames chan string
}

// openStream subscribes to the event stream and starts a frame reader.
func openStream(t *testing.T, baseURL, query string) *sseClient {
	t.Helper()

	resp, err := http.Get(baseURL + "/events" + query)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	client := &sseClient{resp: resp, frames: make(chan string, 64)}

	go client.readLoop()

	t.Cleanup(func() { _ = resp.Body.Close() })

	return client
}

// readLoop accumulates lines until the blank frame delimiter and publishes
// each complete frame.
func (c *sseClient) readLoop() {
	defer close(c.frames)

	reader := bufio.NewReader(c.resp.Body)

	var lines []string

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}

		line = strings.TrimRight(line, "\n")
		if line == "" {
			if len(lines) > 0 {
				c.frames <- strings.Join(lines, "\n")
				lines = nil
			}

			continue
		}

		lines = append(lines, line)
	}
}

// nextFrame blocks for the next frame or fails the test.
func (c *sseClient) nextFrame(t *testing.T) string {
	t.Helper()

	select {
	case frame, ok := <-c.frames:
		require.True(t, ok, "stream closed before the expected frame")

		return frame
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for an SSE frame")

		return ""
	}
}

// requireConnected consumes and checks the greeting frame.
func (c *sseClient) requireConnected(t *testing.T) {
	t.Helper()

	frame := c.nextFrame(t)
	require.Contains(t, frame, `"type":"connected"`)
}

func postIngest(t *testing.T, baseURL string, body []byte) (int, []byte) {
	t.Helper()

	resp, err := http.Post(baseURL+"/ingest", "application/json", bytes.NewReader(body))
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp.StatusCode, data
}

func decodeErrorResponse(t *testing.T, data []byte) ErrorResponse {
	t.Helper()

	var envelope ErrorResponse
	require.NoError(t, json.Unmarshal(data, &envelope))

	return envelope
}

func TestIngestAndStreamIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, store := newTestServer(t, nil)

	client := openStream(t, ts.URL, "")
	client.requireConnected(t)

	status, body := postIngest(t, ts.URL, []byte(`{
		"type": "span",
		"trace_id": "trace-1",
		"span_id": "span-1",
		"kind": "agent",
		"name": "triage",
		"started_at": "2025-06-01T12:00:00Z"
	}`))

	require.Equal(t, http.StatusOK, status)

	var ingestResp IngestResponse
	require.NoError(t, json.Unmarshal(body, &ingestResp))
	assert.True(t, ingestResp.Success)
	assert.Equal(t, 1, ingestResp.Count)

	frame := client.nextFrame(t)
	assert.True(t, strings.HasPrefix(frame, "data: "), "event frame must be a data frame: %q", frame)
	assert.Contains(t, frame, `"trace_id":"trace-1"`)
	assert.Contains(t, frame, `"span_id":"span-1"`)
	assert.Contains(t, frame, `"started_at":"2025-06-01T12:00:00Z"`)

	assert.Equal(t, 1, store.Count())
}

func TestBatchIngestIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, store := newTestServer(t, nil)

	client := openStream(t, ts.URL, "")
	client.requireConnected(t)

	t.Run("one invalid event rejects the whole batch", func(t *testing.T) {
		status, body := postIngest(t, ts.URL, []byte(`{"batch": [
			{"type": "trace", "trace_id": "t1"},
			{"type": "span", "trace_id": "", "span_id": "s1"}
		]}`))

		require.Equal(t, http.StatusBadRequest, status)

		envelope := decodeErrorResponse(t, body)
		assert.Equal(t, "Validation failed", envelope.Error)
		require.Len(t, envelope.Details, 1)
		assert.Equal(t, "batch[1].trace_id", envelope.Details[0].Path)

		assert.Equal(t, 0, store.Count(), "rejected batch must not store anything")
	})

	t.Run("valid batch stores and streams in order", func(t *testing.T) {
		status, body := postIngest(t, ts.URL, []byte(`{"batch": [
			{"type": "trace", "trace_id": "t1", "name": "run"},
			{"type": "span", "trace_id": "t1", "span_id": "s1"},
			{"type": "span", "trace_id": "t1", "span_id": "s2"}
		]}`))

		require.Equal(t, http.StatusOK, status)

		var ingestResp IngestResponse
		require.NoError(t, json.Unmarshal(body, &ingestResp))
		assert.Equal(t, 3, ingestResp.Count)
		assert.Equal(t, 3, store.Count())

		assert.Contains(t, client.nextFrame(t), `"type":"trace"`)
		assert.Contains(t, client.nextFrame(t), `"span_id":"s1"`)
		assert.Contains(t, client.nextFrame(t), `"span_id":"s2"`)
	})

	t.Run("empty batch succeeds with count zero", func(t *testing.T) {
		status, body := postIngest(t, ts.URL, []byte(`{"batch": []}`))

		require.Equal(t, http.StatusOK, status)

		var ingestResp IngestResponse
		require.NoError(t, json.Unmarshal(body, &ingestResp))
		assert.True(t, ingestResp.Success)
		assert.Equal(t, 0, ingestResp.Count)
	})
}

func TestIngestTimestampOrderingDetail(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, nil)

	status, body := postIngest(t, ts.URL, []byte(`{
		"type": "trace",
		"trace_id": "t1",
		"started_at": "2025-06-01T12:00:05Z",
		"ended_at": "2025-06-01T12:00:01Z"
	}`))

	require.Equal(t, http.StatusBadRequest, status)

	envelope := decodeErrorResponse(t, body)
	assert.Equal(t, "Validation failed", envelope.Error)
	require.Len(t, envelope.Details, 1)
	assert.Equal(t, "ended_at", envelope.Details[0].Path)
	assert.Equal(t, "ended_at must be >= started_at", envelope.Details[0].Message)
}

func TestStreamTraceFilterFanout(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, nil)

	filtered := openStream(t, ts.URL, "?traceId=t1")
	filtered.requireConnected(t)

	unfiltered := openStream(t, ts.URL, "")
	unfiltered.requireConnected(t)

	for _, body := range []string{
		`{"type": "span", "trace_id": "t1", "span_id": "a"}`,
		`{"type": "span", "trace_id": "t2", "span_id": "b"}`,
		`{"type": "span", "trace_id": "t1", "span_id": "c"}`,
	} {
		status, _ := postIngest(t, ts.URL, []byte(body))
		require.Equal(t, http.StatusOK, status)
	}

	// The unfiltered subscriber sees all three in ingest order
	assert.Contains(t, unfiltered.nextFrame(t), `"span_id":"a"`)
	assert.Contains(t, unfiltered.nextFrame(t), `"span_id":"b"`)
	assert.Contains(t, unfiltered.nextFrame(t), `"span_id":"c"`)

	// The filtered subscriber sees only t1 events; receiving "c" directly
	// after "a" proves "b" was never delivered.
	assert.Contains(t, filtered.nextFrame(t), `"span_id":"a"`)
	assert.Contains(t, filtered.nextFrame(t), `"span_id":"c"`)
}

func TestStreamKindsFilter(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, nil)

	client := openStream(t, ts.URL, "?kinds=agent,function")
	client.requireConnected(t)

	for _, body := range []string{
		`{"type": "span", "trace_id": "t1", "span_id": "a", "kind": "agent"}`,
		`{"type": "span", "trace_id": "t1", "span_id": "b", "kind": "generation"}`,
		`{"type": "trace", "trace_id": "t1"}`,
		`{"type": "span", "trace_id": "t1", "span_id": "d", "kind": "function"}`,
	} {
		status, _ := postIngest(t, ts.URL, []byte(body))
		require.Equal(t, http.StatusOK, status)
	}

	// Member kinds pass, trace envelopes always pass, other kinds do not
	assert.Contains(t, client.nextFrame(t), `"span_id":"a"`)
	assert.Contains(t, client.nextFrame(t), `"type":"trace"`)
	assert.Contains(t, client.nextFrame(t), `"span_id":"d"`)
}

func TestIngestBodySizeLimit(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	const limit = 512

	ts, store := newTestServer(t, func(cfg *ServerConfig) {
		cfg.MaxRequestSize = limit
	})

	// Pad the name so the body lands on an exact byte size
	buildBody := func(size int) []byte {
		prefix := `{"type": "trace", "trace_id": "t1", "name": "`
		suffix := `"}`
		padding := size - len(prefix) - len(suffix)
		require.Positive(t, padding)

		return []byte(prefix + strings.Repeat("x", padding) + suffix)
	}

	t.Run("body at the limit is accepted", func(t *testing.T) {
		status, _ := postIngest(t, ts.URL, buildBody(limit))
		assert.Equal(t, http.StatusOK, status)
	})

	t.Run("body one byte over is rejected", func(t *testing.T) {
		before := store.Count()

		status, body := postIngest(t, ts.URL, buildBody(limit+1))
		require.Equal(t, http.StatusRequestEntityTooLarge, status)

		envelope := decodeErrorResponse(t, body)
		assert.Equal(t, "Payload too large", envelope.Error)
		assert.Contains(t, envelope.Message, fmt.Sprintf("%d", limit))

		assert.Equal(t, before, store.Count(), "oversized payload must not be stored")
	})
}

func TestIngestMalformedJSON(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, store := newTestServer(t, nil)

	for _, body := range []string{`{`, `not json at all`, `{"batch": [{]}`} {
		status, data := postIngest(t, ts.URL, []byte(body))
		require.Equal(t, http.StatusBadRequest, status, "body: %s", body)

		envelope := decodeErrorResponse(t, data)
		assert.Equal(t, "Validation failed", envelope.Error)
		require.NotEmpty(t, envelope.Details)
		assert.Equal(t, "body", envelope.Details[0].Path)
	}

	assert.Equal(t, 0, store.Count())
}

func TestStreamInvalidSince(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/events?since=next-tuesday")
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	envelope := decodeErrorResponse(t, data)
	assert.Equal(t, "Invalid since parameter", envelope.Error)
}

func TestHealthzEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, nil)

	fetchHealth := func() HealthResponse {
		resp, err := http.Get(ts.URL + "/healthz")
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Equal(t, "application/json", resp.Header.Get("Content-Type"))

		var health HealthResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))

		return health
	}

	health := fetchHealth()
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, 0, health.Events.Count)
	assert.Equal(t, 100, health.Events.Capacity)

	_, err := time.Parse(time.RFC3339, health.Timestamp)
	assert.NoError(t, err, "timestamp must be RFC 3339")

	status, _ := postIngest(t, ts.URL, []byte(`{"type": "trace", "trace_id": "t1"}`))
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, 1, fetchHealth().Events.Count)
}

func TestIndexAndNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, nil)

	t.Run("index describes the service", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/")
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var index IndexResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&index))
		assert.Equal(t, "ariadne", index.Service)
		assert.Equal(t, Version, index.Version)
		assert.Contains(t, index.Endpoints, "POST /ingest")
		assert.Contains(t, index.Endpoints, "GET /events")
	})

	t.Run("unknown paths get the 404 envelope", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/unknown")
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		require.Equal(t, http.StatusNotFound, resp.StatusCode)

		data, err := io.ReadAll(resp.Body)
		require.NoError(t, err)

		envelope := decodeErrorResponse(t, data)
		assert.Equal(t, "Not found", envelope.Error)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(data), "go_goroutines", "Prometheus text exposition expected")
}

func TestCORSIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, nil)

	t.Run("allowed origin echoed", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:5173")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight returns 204", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+"/ingest", nil)
		require.NoError(t, err)
		req.Header.Set("Origin", "http://localhost:5173")

		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)

		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		assert.Equal(t, "GET, POST, OPTIONS", resp.Header.Get("Access-Control-Allow-Methods"))
	})
}

func TestRateLimitIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, func(cfg *ServerConfig) {
		cfg.IngestRPS = 1 // burst of 2
	})

	body := []byte(`{"type": "trace", "trace_id": "t1"}`)

	statuses := make([]int, 0, 3)

	for i := 0; i < 3; i++ {
		status, _ := postIngest(t, ts.URL, body)
		statuses = append(statuses, status)
	}

	assert.Equal(t, http.StatusOK, statuses[0])
	assert.Equal(t, http.StatusOK, statuses[1])

	require.Equal(t, http.StatusTooManyRequests, statuses[2])

	// Non-ingest endpoints stay reachable while producers are throttled
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestCorrelationIDIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ts, _ := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/healthz", nil)
	require.NoError(t, err)
	req.Header.Set("X-Correlation-ID", "my-request-id")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, "my-request-id", resp.Header.Get("X-Correlation-ID"))
}
