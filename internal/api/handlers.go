package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/graaaaa/vrcphoto-companion/internal/ingest"
	"github.com/graaaaa/vrcphoto-companion/internal/query"
	"github.com/graaaaa/vrcphoto-companion/internal/store"
)

const defaultSuggestLimit = 20

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.queries.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleGroups(w http.ResponseWriter, r *http.Request) {
	window, ok := parseWindow(w, r)
	if !ok {
		return
	}

	p := query.Pagination{Cursor: r.URL.Query().Get("cursor")}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		p.Limit = limit
	}

	page, err := s.queries.ListPhotoGroups(r.Context(), window, p)
	if err != nil {
		if errors.Is(err, store.ErrInvalidCursor) {
			writeError(w, http.StatusBadRequest, "invalid cursor", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handlePhotoCount(w http.ResponseWriter, r *http.Request) {
	window, ok := parseWindow(w, r)
	if !ok {
		return
	}

	count, err := s.queries.CountPhotos(r.Context(), store.PhotoFilter{
		Since: window.Since,
		Until: window.Until,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

func (s *Server) handleSessionPlayers(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("join_ts")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "join_ts is required", nil)
		return
	}
	joinTs, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid join_ts", nil)
		return
	}

	players, err := s.queries.GetPlayersForSession(r.Context(), joinTs)
	if err != nil {
		if errors.Is(err, query.ErrSessionNotFound) {
			writeError(w, http.StatusNotFound, "session not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"players": players})
}

func (s *Server) handleSuggestWorlds(w http.ResponseWriter, r *http.Request) {
	s.handleSuggest(w, r, s.queries.SuggestWorldNames)
}

func (s *Server) handleSuggestPlayers(w http.ResponseWriter, r *http.Request) {
	s.handleSuggest(w, r, s.queries.SuggestPlayerNames)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request,
	suggest func(ctx context.Context, prefix string, limit int) ([]string, error),
) {
	limit := defaultSuggestLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit", nil)
			return
		}
		limit = n
	}

	names, err := suggest(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": names})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	mode := ingest.ModeIncremental
	switch r.URL.Query().Get("mode") {
	case "", "incremental":
	case "full":
		mode = ingest.ModeFull
	default:
		writeError(w, http.StatusBadRequest, "invalid mode", nil)
		return
	}

	result, err := s.sync.RunSync(r.Context(), mode)
	if err != nil {
		if errors.Is(err, ingest.ErrSyncInFlight) {
			writeError(w, http.StatusConflict, "sync already in flight", nil)
			return
		}
		if errors.Is(err, ingest.ErrLogDirNotFound) {
			writeError(w, http.StatusFailedDependency, "log directory not found", nil)
			return
		}
		writeError(w, http.StatusInternalServerError, "internal error", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseWindow reads optional since/until RFC3339 query parameters.
// Writes an error response and returns false on malformed input.
func parseWindow(w http.ResponseWriter, r *http.Request) (query.Window, bool) {
	var window query.Window
	if v := r.URL.Query().Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid since", nil)
			return window, false
		}
		window.Since = t
	}
	if v := r.URL.Query().Get("until"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid until", nil)
			return window, false
		}
		window.Until = t
	}
	return window, true
}
