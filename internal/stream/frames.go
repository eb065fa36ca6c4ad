package stream

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/ariadne-io/ariadne/internal/ingestion"
)

// SSE comment frames. The backpressure text is matched byte-for-byte by
// log scrapers; never reword it.
const (
	heartbeatComment    = ": heartbeat\n\n"
	backpressureComment = ":warning stream backpressure; events skipped\n\n"
)

// FrameWriter is the byte sink for one subscription's frames. Flush pushes
// buffered bytes to the client; a flush failure terminates the subscription
// exactly like a write failure.
type FrameWriter interface {
	io.Writer
	Flush() error
}

// connectedGreeting is the first frame on every subscription. It rides a
// data: frame with a type discriminator; consumers filter it by type.
type connectedGreeting struct {
	Type      string `json:"type"`
	Timestamp string `json:"timestamp"`
}

// writeEvent emits one event as `data: <compact JSON>\n\n`. encoding/json
// escapes newlines inside string values, so the payload always occupies a
// single physical line.
func writeEvent(w FrameWriter, e *ingestion.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	return writeData(w, payload)
}

// writeConnected emits the greeting control frame with the current time.
func writeConnected(w FrameWriter, now time.Time) error {
	payload, err := json.Marshal(connectedGreeting{
		Type:      "connected",
		Timestamp: now.Format(time.RFC3339),
	})
	if err != nil {
		return fmt.Errorf("marshal greeting: %w", err)
	}

	return writeData(w, payload)
}

func writeData(w FrameWriter, payload []byte) error {
	if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
		return err
	}

	return w.Flush()
}

func writeComment(w FrameWriter, comment string) error {
	if _, err := io.WriteString(w, comment); err != nil {
		return err
	}

	return w.Flush()
}
