package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/propchain/marketd/internal/domain"
)

// Known event channels; the durable streams mirror them 1:1.
var eventChannels = map[string]bool{
	"properties": true,
	"auctions":   true,
	"bids":       true,
	"escrows":    true,
}

// EventsHandler serves the durable event streams, letting clients replay
// events they missed while disconnected from the WebSocket feed.
type EventsHandler struct {
	bus    domain.SignalBus
	logger *slog.Logger
}

func NewEventsHandler(bus domain.SignalBus, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{bus: bus, logger: logger}
}

type streamEntry struct {
	ID    string          `json:"id"`
	Event json.RawMessage `json:"event"`
}

// List handles GET /api/events/{channel}?after=<stream id>&limit=. Events
// come back oldest first, starting after the given stream id ("0" from the
// beginning of the retained window).
func (h *EventsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		writeError(w, http.StatusServiceUnavailable, "event streams are not configured")
		return
	}

	channel := r.PathValue("channel")
	if !eventChannels[channel] {
		writeError(w, http.StatusNotFound, "unknown channel")
		return
	}

	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0"
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, 1000)
		}
	}

	msgs, err := h.bus.StreamRead(r.Context(), "stream:"+channel, after, limit)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	entries := make([]streamEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, streamEntry{ID: m.ID, Event: json.RawMessage(m.Payload)})
	}
	writeJSON(w, http.StatusOK, map[string]any{"channel": channel, "events": entries, "count": len(entries)})
}
