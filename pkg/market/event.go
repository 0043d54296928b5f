package market

import (
	"encoding/json"
	"time"
)

// NewEvent builds an envelope stamped with the current UTC time.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{Type: t, Timestamp: time.Now().UTC(), Data: data}
}

// MarshalJSON flattens Data into the envelope so consumers see a single
// object: {"type": ..., "timestamp": ..., <type-specific fields>}.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Data)+2)
	for k, v := range e.Data {
		out[k] = v
	}
	out["type"] = e.Type
	out["timestamp"] = e.Timestamp.Format(time.RFC3339)
	return json.Marshal(out)
}
