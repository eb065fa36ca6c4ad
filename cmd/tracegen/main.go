// Package main provides tracegen, a demo producer for Ariadne.
//
// tracegen synthesizes realistic agent traces (a trace envelope plus nested
// agent, llm and tool spans) and POSTs them to a running Ariadne instance,
// either one event per request or wrapped in {"batch": [...]}. It exercises
// the wire format end to end and doubles as a manual-testing fixture for
// the SSE viewer.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ariadne-io/ariadne/internal/ingestion"
)

const (
	name           = "tracegen"
	version        = "0.1.0-dev"
	requestTimeout = 5 * time.Second
)

func main() {
	addr := flag.String("addr", "http://127.0.0.1:5175", "Ariadne base URL")
	traces := flag.Int("traces", 1, "number of traces to generate")
	spans := flag.Int("spans", 3, "tool spans per trace")
	batch := flag.Bool("batch", true, "send each trace as one batch request")
	versionFlag := flag.Bool("version", false, "show version information")
	flag.Parse()

	if *versionFlag {
		log.Printf("%s v%s\n", name, version)
		os.Exit(0)
	}

	client := &http.Client{Timeout: requestTimeout}

	for i := 0; i < *traces; i++ {
		events := synthesizeTrace(i, *spans)

		if err := send(client, *addr, events, *batch); err != nil {
			log.Printf("trace %d: %v", i, err)
			os.Exit(1)
		}

		log.Printf("trace %d: sent %d events", i, len(events))
	}
}

// synthesizeTrace builds one trace envelope plus an agent run span, an llm
// call and n tool spans, with timestamps laid out like a real agent run.
func synthesizeTrace(index, tools int) []*ingestion.Event {
	traceID := uuid.NewString()
	agentSpanID := uuid.NewString()
	start := time.Now().UTC().Add(-time.Minute)

	events := []*ingestion.Event{
		{
			Type:      ingestion.TypeTrace,
			TraceID:   traceID,
			Name:      fmt.Sprintf("demo run %d", index),
			GroupID:   "tracegen",
			StartedAt: stamp(start),
			Metadata:  map[string]string{"generator": name},
		},
		{
			Type:      ingestion.TypeSpan,
			TraceID:   traceID,
			SpanID:    agentSpanID,
			Kind:      "agent",
			Name:      "demo agent",
			StartedAt: stamp(start),
			EndedAt:   stamp(start.Add(30 * time.Second)),
			Status:    ingestion.StatusOK,
		},
		{
			Type:      ingestion.TypeSpan,
			TraceID:   traceID,
			SpanID:    uuid.NewString(),
			ParentID:  agentSpanID,
			Kind:      "generation",
			Name:      "plan next step",
			StartedAt: stamp(start.Add(time.Second)),
			EndedAt:   stamp(start.Add(3 * time.Second)),
			Status:    ingestion.StatusOK,
			Data: map[string]any{
				"model":  "demo-model",
				"tokens": 128,
			},
		},
	}

	for i := 0; i < tools; i++ {
		toolStart := start.Add(time.Duration(4+i*2) * time.Second)
		events = append(events, &ingestion.Event{
			Type:      ingestion.TypeSpan,
			TraceID:   traceID,
			SpanID:    uuid.NewString(),
			ParentID:  agentSpanID,
			Kind:      "function",
			Name:      fmt.Sprintf("tool_%d", i),
			StartedAt: stamp(toolStart),
			EndedAt:   stamp(toolStart.Add(time.Second)),
			Status:    ingestion.StatusOK,
			Data: map[string]any{
				"arguments": map[string]any{"index": i},
				"result":    "ok",
			},
		})
	}

	return events
}

func stamp(t time.Time) string {
	return t.Format(time.RFC3339)
}

// send posts the events to /ingest, either as one batch request or as one
// request per event.
func send(client *http.Client, addr string, events []*ingestion.Event, batch bool) error {
	if batch {
		return post(client, addr, map[string]any{"batch": events})
	}

	for _, event := range events {
		if err := post(client, addr, event); err != nil {
			return err
		}
	}

	return nil
}

func post(client *http.Client, addr string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	resp, err := client.Post(addr+"/ingest", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("post ingest: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var errBody bytes.Buffer

		_, _ = errBody.ReadFrom(resp.Body)

		return fmt.Errorf("ingest rejected: %s: %s", resp.Status, errBody.String())
	}

	return nil
}
