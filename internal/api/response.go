package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
)

type errorBody struct {
	Error string `json:"error"`
}

// writeJSON encodes v into a buffer first so an encoding failure can still
// produce a clean 500 instead of a half-written body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("internal error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Debug("write response", "error", err)
	}
}

// writeError sends a JSON error body. The public message is what clients
// see; err, when non-nil on a 5xx, only goes to the log.
func writeError(w http.ResponseWriter, status int, public string, err error) {
	if public == "" {
		public = http.StatusText(status)
	}
	if status >= 500 && err != nil {
		slog.Error("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, errorBody{Error: public})
}
