package ingestion

// Payload size caps applied before validation.
const (
	// MaxNameBytes caps Event.Name for traces and spans.
	MaxNameBytes = 1024

	// MaxDataStringBytes caps every string value inside Event.Data,
	// recursively through nested objects.
	MaxDataStringBytes = 102400

	// TruncationSuffix is appended verbatim to every capped string.
	TruncationSuffix = "... [truncated]"
)

// Truncator bounds oversized strings in incoming events so that neither the
// store nor validation error payloads inflate on runaway producer output.
//
// Policy: a string longer than its cap keeps its leading cap bytes and gains
// TruncationSuffix. The cut is byte-oriented, so the stored value of an
// oversized input always has length cap+len(TruncationSuffix). Truncation is
// idempotent: re-truncating keeps the same leading bytes and the same suffix.
// Non-string values in Data (numbers, booleans, arrays, null) pass through;
// array elements are not descended into. No other field is altered.
type Truncator struct {
	nameCap int
	dataCap int
}

// NewTruncator returns a truncator with the production caps.
func NewTruncator() *Truncator {
	return &Truncator{
		nameCap: MaxNameBytes,
		dataCap: MaxDataStringBytes,
	}
}

// Truncate applies both caps to e in place. The event is freshly decoded
// request data at this point, so in-place mutation is safe; stored events are
// never touched again.
func (t *Truncator) Truncate(e *Event) {
	if e == nil {
		return
	}

	e.Name = truncateString(e.Name, t.nameCap)

	if len(e.Data) > 0 {
		t.truncateObject(e.Data)
	}
}

// truncateObject caps string values in place, recursing into nested objects.
// Arrays pass through untouched, including any objects inside them.
func (t *Truncator) truncateObject(obj map[string]any) {
	for key, value := range obj {
		switch v := value.(type) {
		case string:
			obj[key] = truncateString(v, t.dataCap)
		case map[string]any:
			t.truncateObject(v)
		}
	}
}

// truncateString enforces a single cap. Strings at or under the cap are
// returned unchanged, so values that already carry the suffix from an earlier
// pass are stable.
func truncateString(s string, limit int) string {
	if len(s) <= limit {
		return s
	}

	return s[:limit] + TruncationSuffix
}
