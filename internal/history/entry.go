// Package history persists the outcomes of past submissions as an ordered,
// newest-first list of entries under a single storage key.
package history

import (
	"time"
)

// Record is an opaque structured result: the endpoint's JSON object, or an
// error record built by the orchestrator.
type Record map[string]any

// Entry is one persisted submission outcome.
type Entry struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   Record    `json:"payload"`
}

// Error record keys.
const (
	KeyError      = "error"
	KeyErrorType  = "error_type"
	KeyStatusCode = "status_code"
	KeyFiles      = "files"
	KeyFileCount  = "file_count"
)

// IsError reports whether the payload carries a truthy "error" field.
func (e Entry) IsError() bool {
	return truthy(e.Payload[KeyError])
}

// ErrorMessage returns the "error" field rendered as a string, or "".
func (e Entry) ErrorMessage() string {
	if !e.IsError() {
		return ""
	}
	if s, ok := e.Payload[KeyError].(string); ok {
		return s
	}
	return stringify(e.Payload[KeyError])
}

// Clone returns a deep copy of the entry so callers can't mutate stored payloads.
func (e Entry) Clone() Entry {
	e.Payload = cloneRecord(e.Payload)
	return e
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	case int:
		return t != 0
	default:
		return true
	}
}

func cloneRecord(r Record) Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return map[string]any(cloneRecord(Record(t)))
	case Record:
		return cloneRecord(t)
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	default:
		return v
	}
}
