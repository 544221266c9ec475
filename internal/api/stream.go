package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// handleStream serves the SSE stream of sync lifecycle events.
// The connection stays open until the client disconnects or the hub stops.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	for {
		select {
		case <-r.Context().Done():
			return
		case <-sub.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				slog.Error("marshal sync event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: sync\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
