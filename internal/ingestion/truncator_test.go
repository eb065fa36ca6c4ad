package ingestion

import (
	"strings"
	"testing"
)

func TestTruncatorName(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	truncator := NewTruncator()

	t.Run("name at cap is untouched", func(t *testing.T) {
		name := strings.Repeat("a", MaxNameBytes)
		event := &Event{Type: TypeTrace, TraceID: "t1", Name: name}

		truncator.Truncate(event)

		if event.Name != name {
			t.Errorf("Truncate() altered a name of exactly %d bytes", MaxNameBytes)
		}
	})

	t.Run("name over cap keeps leading bytes plus suffix", func(t *testing.T) {
		event := &Event{Type: TypeTrace, TraceID: "t1", Name: strings.Repeat("a", MaxNameBytes+1)}

		truncator.Truncate(event)

		wantLen := MaxNameBytes + len(TruncationSuffix)
		if len(event.Name) != wantLen {
			t.Errorf("len(Name) = %d, want %d", len(event.Name), wantLen)
		}

		if !strings.HasSuffix(event.Name, TruncationSuffix) {
			t.Errorf("Name does not end with %q", TruncationSuffix)
		}

		if event.Name[:MaxNameBytes] != strings.Repeat("a", MaxNameBytes) {
			t.Error("Name lost leading bytes")
		}
	})
}

func TestTruncatorData(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	truncator := NewTruncator()

	t.Run("caps string values", func(t *testing.T) {
		event := &Event{
			Type:    TypeSpan,
			TraceID: "t1",
			SpanID:  "s1",
			Data: map[string]any{
				"big":   strings.Repeat("x", MaxDataStringBytes+10),
				"small": "fits",
			},
		}

		truncator.Truncate(event)

		big, _ := event.Data["big"].(string)
		if len(big) != MaxDataStringBytes+len(TruncationSuffix) {
			t.Errorf("len(big) = %d, want %d", len(big), MaxDataStringBytes+len(TruncationSuffix))
		}

		if event.Data["small"] != "fits" {
			t.Errorf("small value altered: %v", event.Data["small"])
		}
	})

	t.Run("recurses into nested objects", func(t *testing.T) {
		event := &Event{
			Type:    TypeSpan,
			TraceID: "t1",
			SpanID:  "s1",
			Data: map[string]any{
				"outer": map[string]any{
					"inner": strings.Repeat("y", MaxDataStringBytes+1),
				},
			},
		}

		truncator.Truncate(event)

		inner, _ := event.Data["outer"].(map[string]any)["inner"].(string)
		if !strings.HasSuffix(inner, TruncationSuffix) {
			t.Error("nested string was not truncated")
		}
	})

	t.Run("passes arrays and non-strings through", func(t *testing.T) {
		oversized := strings.Repeat("z", MaxDataStringBytes+1)
		event := &Event{
			Type:    TypeSpan,
			TraceID: "t1",
			SpanID:  "s1",
			Data: map[string]any{
				"list":  []any{oversized, 1, true},
				"count": float64(7),
				"flag":  false,
				"none":  nil,
			},
		}

		truncator.Truncate(event)

		list, _ := event.Data["list"].([]any)
		if list[0] != oversized {
			t.Error("array element was truncated; arrays must pass through")
		}

		if event.Data["count"] != float64(7) || event.Data["flag"] != false || event.Data["none"] != nil {
			t.Error("non-string value altered")
		}
	})

	t.Run("leaves other fields alone", func(t *testing.T) {
		event := &Event{
			Type:      TypeSpan,
			TraceID:   strings.Repeat("t", 5000),
			SpanID:    strings.Repeat("s", 5000),
			Kind:      strings.Repeat("k", 5000),
			StartedAt: "2025-01-01T00:00:00Z",
		}

		truncator.Truncate(event)

		if len(event.TraceID) != 5000 || len(event.SpanID) != 5000 || len(event.Kind) != 5000 {
			t.Error("Truncate() altered a field outside name and data")
		}
	})
}

func TestTruncatorIdempotence(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	truncator := NewTruncator()

	event := &Event{
		Type:    TypeSpan,
		TraceID: "t1",
		SpanID:  "s1",
		Name:    strings.Repeat("n", MaxNameBytes*2),
		Data: map[string]any{
			"v": strings.Repeat("d", MaxDataStringBytes*2),
		},
	}

	truncator.Truncate(event)

	onceName := event.Name
	onceData := event.Data["v"]

	truncator.Truncate(event)

	if event.Name != onceName {
		t.Error("Truncate() is not idempotent on name")
	}

	if event.Data["v"] != onceData {
		t.Error("Truncate() is not idempotent on data strings")
	}
}

func TestTruncatorNilEvent(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	// Must not panic
	NewTruncator().Truncate(nil)
}
