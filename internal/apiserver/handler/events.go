package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/nervelabs/nerve/internal/events"
	"github.com/nervelabs/nerve/internal/metrics"
)

// EventsHandler streams the event bus to clients over SSE.
type EventsHandler struct {
	bus *events.Bus
}

func NewEventsHandler(bus *events.Bus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

// Feed subscribes the client to the live event stream. The subscription
// is bounded; a client that cannot keep up is dropped by the bus.
func (h *EventsHandler) Feed(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch, cancel := h.bus.Subscribe()
	defer cancel()
	metrics.EventSubscribers.Inc()
	defer metrics.EventSubscribers.Dec()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
