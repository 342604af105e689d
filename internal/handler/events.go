package handler

import (
	"fmt"
	"net/http"

	"github.com/viagemapp/tripledger/internal/domain"
)

// handleEvents handles GET /trips/{tripID}/events: a server-sent-events
// stream of ledger changes for one trip. Delivery is best-effort — clients
// must treat an event as a hint to re-read state, never as the state itself.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	tripID, ok := pathUUID(r, "tripID")
	if !ok {
		writeError(w, r, domain.ErrNotFound)
		return
	}
	if s.events == nil {
		writeJSON(w, http.StatusServiceUnavailable,
			ErrorResponse{Error: ErrorDetail{Code: "events_unavailable", Message: "event stream is not enabled"}})
		return
	}
	// Reject unknown trips up front so a client subscribing to garbage gets a
	// 404 instead of a silent empty stream.
	if _, err := s.trips.GetByID(r.Context(), tripID); err != nil {
		writeError(w, r, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, fmt.Errorf("response writer does not support streaming"))
		return
	}

	events, cancel := s.events.Subscribe()
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, open := <-events:
			if !open {
				return
			}
			if ev.TripID != tripID {
				continue
			}
			payload, err := ev.Payload()
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, payload)
			flusher.Flush()
		}
	}
}
