package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charliek/revive/internal/domain"
)

// StreamEvents handles GET /api/v1/events/stream (SSE)
func (h *Handlers) StreamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "streaming not supported",
			Code:  domain.ErrCodeStreamingNotSupported,
		})
		return
	}

	filter, _ := parseEventParams(r)

	subID, ch, err := h.journal.Subscribe(filter)
	if err != nil {
		h.writeError(w, err)
		return
	}
	defer h.journal.Unsubscribe(subID)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	// Slow clients lose events at the subscription buffer; a failed write
	// ends the handler and releases the subscription.
	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}

			data, err := json.Marshal(ToEventResponse(event))
			if err != nil {
				continue
			}

			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data); err != nil {
				h.logger.Debug("SSE write error, client likely disconnected", "sub_id", subID, "error", err)
				return
			}
			flusher.Flush()
		}
	}
}
