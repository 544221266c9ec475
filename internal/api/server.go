// Package api provides the local HTTP API consumed by the UI layer.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/graaaaa/vrcphoto-companion/internal/ingest"
	"github.com/graaaaa/vrcphoto-companion/internal/query"
	"github.com/graaaaa/vrcphoto-companion/internal/store"
)

// QueryUsecase is the read-side surface exposed over HTTP.
type QueryUsecase interface {
	CountPhotos(ctx context.Context, f store.PhotoFilter) (int64, error)
	ListPhotoGroups(ctx context.Context, w query.Window, p query.Pagination) (query.GroupPage, error)
	GetPlayersForSession(ctx context.Context, joinTs time.Time) ([]query.PlayerSession, error)
	SuggestWorldNames(ctx context.Context, prefix string, limit int) ([]string, error)
	SuggestPlayerNames(ctx context.Context, prefix string, limit int) ([]string, error)
	Stats(ctx context.Context) (*store.Stats, error)
}

// SyncUsecase triggers ingestion runs. Implementations must reject a second
// concurrent run with ingest.ErrSyncInFlight rather than queue it.
type SyncUsecase interface {
	RunSync(ctx context.Context, mode ingest.Mode) (*ingest.Result, error)
}

// HealthInfo is returned by the health endpoint.
type HealthInfo struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Server represents the HTTP API server.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux

	version string
	queries QueryUsecase
	sync    SyncUsecase
	hub     *Hub

	// Auth configuration
	authEnabled  bool
	authUsername string
	authPassword string
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithQueryUsecase sets the query use case.
func WithQueryUsecase(q QueryUsecase) ServerOption {
	return func(s *Server) { s.queries = q }
}

// WithSyncUsecase sets the sync use case.
func WithSyncUsecase(sync SyncUsecase) ServerOption {
	return func(s *Server) { s.sync = sync }
}

// WithHub sets the SSE hub.
func WithHub(hub *Hub) ServerOption {
	return func(s *Server) { s.hub = hub }
}

// WithBasicAuth enables HTTP Basic Auth.
func WithBasicAuth(username, password string) ServerOption {
	return func(s *Server) {
		if username != "" && password != "" {
			s.authEnabled = true
			s.authUsername = username
			s.authPassword = password
		}
	}
}

// NewServer creates a new API server with the given dependencies.
func NewServer(addr, version string, opts ...ServerOption) *Server {
	mux := http.NewServeMux()
	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 0, // Disable for SSE (long-lived connections)
			IdleTimeout:  60 * time.Second,
		},
		mux:     mux,
		version: version,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerRoutes()
	return s
}

// wrapAuth wraps a handler with auth middleware if auth is enabled.
func (s *Server) wrapAuth(h http.Handler) http.Handler {
	if !s.authEnabled {
		return h
	}
	return basicAuthMiddleware(s.authUsername, s.authPassword)(h)
}

func (s *Server) handle(pattern string, h http.HandlerFunc) {
	s.mux.Handle(pattern, s.wrapAuth(h))
}

// registerRoutes sets up the API routes.
func (s *Server) registerRoutes() {
	// Health endpoint (no auth required)
	s.mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	if s.queries != nil {
		s.handle("GET /api/v1/stats", s.handleStats)
		s.handle("GET /api/v1/groups", s.handleGroups)
		s.handle("GET /api/v1/photos/count", s.handlePhotoCount)
		s.handle("GET /api/v1/sessions/players", s.handleSessionPlayers)
		s.handle("GET /api/v1/suggest/worlds", s.handleSuggestWorlds)
		s.handle("GET /api/v1/suggest/players", s.handleSuggestPlayers)
	}
	if s.sync != nil {
		s.handle("POST /api/v1/sync", s.handleSync)
	}
	if s.hub != nil {
		s.handle("GET /api/v1/stream", s.handleStream)
	}
}

// handleHealth handles the health check endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthInfo{Status: "ok", Version: s.version})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the server address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Handler returns the root handler (for testing).
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
