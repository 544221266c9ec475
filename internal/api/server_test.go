package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/graaaaa/vrcphoto-companion/internal/group"
	"github.com/graaaaa/vrcphoto-companion/internal/ingest"
	"github.com/graaaaa/vrcphoto-companion/internal/query"
	"github.com/graaaaa/vrcphoto-companion/internal/store"
)

// stubQueries is a QueryUsecase returning canned values.
type stubQueries struct {
	stats      *store.Stats
	page       query.GroupPage
	pageErr    error
	players    []query.PlayerSession
	playersErr error
	count      int64

	lastWindow query.Window
	lastPaging query.Pagination
}

func (s *stubQueries) CountPhotos(ctx context.Context, f store.PhotoFilter) (int64, error) {
	return s.count, nil
}

func (s *stubQueries) ListPhotoGroups(ctx context.Context, w query.Window, p query.Pagination) (query.GroupPage, error) {
	s.lastWindow = w
	s.lastPaging = p
	return s.page, s.pageErr
}

func (s *stubQueries) GetPlayersForSession(ctx context.Context, joinTs time.Time) ([]query.PlayerSession, error) {
	return s.players, s.playersErr
}

func (s *stubQueries) SuggestWorldNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	return []string{"Amazing World"}, nil
}

func (s *stubQueries) SuggestPlayerNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	return []string{"Alice"}, nil
}

func (s *stubQueries) Stats(ctx context.Context) (*store.Stats, error) {
	return s.stats, nil
}

// stubSync is a SyncUsecase with a fixed outcome.
type stubSync struct {
	result   *ingest.Result
	err      error
	lastMode ingest.Mode
}

func (s *stubSync) RunSync(ctx context.Context, mode ingest.Mode) (*ingest.Result, error) {
	s.lastMode = mode
	return s.result, s.err
}

func doRequest(t *testing.T, s *Server, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s := NewServer("127.0.0.1:0", "1.2.3")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var health HealthInfo
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if health.Status != "ok" || health.Version != "1.2.3" {
		t.Errorf("health = %+v", health)
	}
}

func TestStats(t *testing.T) {
	q := &stubQueries{stats: &store.Stats{SessionCount: 3, PhotoCount: 7}}
	s := NewServer("127.0.0.1:0", "test", WithQueryUsecase(q))

	rec := doRequest(t, s, http.MethodGet, "/api/v1/stats")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var stats store.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.SessionCount != 3 || stats.PhotoCount != 7 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestGroups_ParsesQueryParams(t *testing.T) {
	q := &stubQueries{page: query.GroupPage{Groups: []group.PhotoGroup{}}}
	s := NewServer("127.0.0.1:0", "test", WithQueryUsecase(q))

	rec := doRequest(t, s, http.MethodGet,
		"/api/v1/groups?since=2024-01-15T10:00:00Z&until=2024-01-15T12:00:00Z&limit=25&cursor=abc")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body)
	}

	if !q.lastWindow.Since.Equal(time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("since = %v", q.lastWindow.Since)
	}
	if q.lastPaging.Limit != 25 || q.lastPaging.Cursor != "abc" {
		t.Errorf("pagination = %+v", q.lastPaging)
	}
}

func TestGroups_BadInput(t *testing.T) {
	q := &stubQueries{}
	s := NewServer("127.0.0.1:0", "test", WithQueryUsecase(q))

	for _, target := range []string{
		"/api/v1/groups?since=yesterday",
		"/api/v1/groups?until=not-a-time",
		"/api/v1/groups?limit=-1",
		"/api/v1/groups?limit=abc",
	} {
		if rec := doRequest(t, s, http.MethodGet, target); rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", target, rec.Code)
		}
	}
}

func TestGroups_InvalidCursor(t *testing.T) {
	q := &stubQueries{pageErr: store.ErrInvalidCursor}
	s := NewServer("127.0.0.1:0", "test", WithQueryUsecase(q))

	rec := doRequest(t, s, http.MethodGet, "/api/v1/groups?cursor=bad")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestSessionPlayers(t *testing.T) {
	joinTs := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	q := &stubQueries{players: []query.PlayerSession{{PlayerName: "Alice", JoinTs: joinTs}}}
	s := NewServer("127.0.0.1:0", "test", WithQueryUsecase(q))

	rec := doRequest(t, s, http.MethodGet, "/api/v1/sessions/players?join_ts=2024-01-15T10:00:00Z")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var body struct {
		Players []query.PlayerSession `json:"players"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Players) != 1 || body.Players[0].PlayerName != "Alice" {
		t.Errorf("players = %+v", body.Players)
	}
}

func TestSessionPlayers_Errors(t *testing.T) {
	q := &stubQueries{playersErr: query.ErrSessionNotFound}
	s := NewServer("127.0.0.1:0", "test", WithQueryUsecase(q))

	if rec := doRequest(t, s, http.MethodGet, "/api/v1/sessions/players"); rec.Code != http.StatusBadRequest {
		t.Errorf("missing join_ts: status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/api/v1/sessions/players?join_ts=nope"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad join_ts: status = %d, want 400", rec.Code)
	}
	if rec := doRequest(t, s, http.MethodGet, "/api/v1/sessions/players?join_ts=2024-01-15T10:00:00Z"); rec.Code != http.StatusNotFound {
		t.Errorf("unknown session: status = %d, want 404", rec.Code)
	}
}

func TestSuggest(t *testing.T) {
	q := &stubQueries{}
	s := NewServer("127.0.0.1:0", "test", WithQueryUsecase(q))

	rec := doRequest(t, s, http.MethodGet, "/api/v1/suggest/worlds?q=Ama")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Suggestions) != 1 || body.Suggestions[0] != "Amazing World" {
		t.Errorf("suggestions = %v", body.Suggestions)
	}

	if rec := doRequest(t, s, http.MethodGet, "/api/v1/suggest/players?limit=0"); rec.Code != http.StatusBadRequest {
		t.Errorf("limit=0: status = %d, want 400", rec.Code)
	}
}

func TestSync(t *testing.T) {
	sync := &stubSync{result: &ingest.Result{RunID: "run-1", Mode: "full"}}
	s := NewServer("127.0.0.1:0", "test", WithSyncUsecase(sync))

	rec := doRequest(t, s, http.MethodPost, "/api/v1/sync?mode=full")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body %s", rec.Code, rec.Body)
	}
	if sync.lastMode != ingest.ModeFull {
		t.Errorf("mode = %v, want ModeFull", sync.lastMode)
	}

	var res ingest.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.RunID != "run-1" {
		t.Errorf("result = %+v", res)
	}
}

func TestSync_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		err        error
		wantStatus int
	}{
		{"bad mode", "/api/v1/sync?mode=sideways", nil, http.StatusBadRequest},
		{"in flight", "/api/v1/sync", ingest.ErrSyncInFlight, http.StatusConflict},
		{"log dir missing", "/api/v1/sync", ingest.ErrLogDirNotFound, http.StatusFailedDependency},
		{"internal", "/api/v1/sync", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewServer("127.0.0.1:0", "test", WithSyncUsecase(&stubSync{err: tt.err}))
			rec := doRequest(t, s, http.MethodPost, tt.target)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestBasicAuth(t *testing.T) {
	q := &stubQueries{stats: &store.Stats{}}
	s := NewServer("127.0.0.1:0", "test",
		WithQueryUsecase(q),
		WithBasicAuth("user", "secret"),
	)

	// Health stays open.
	if rec := doRequest(t, s, http.MethodGet, "/api/v1/health"); rec.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200", rec.Code)
	}

	// No credentials.
	if rec := doRequest(t, s, http.MethodGet, "/api/v1/stats"); rec.Code != http.StatusUnauthorized {
		t.Errorf("no creds: status = %d, want 401", rec.Code)
	}

	// Wrong credentials.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.SetBasicAuth("user", "wrong")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong creds: status = %d, want 401", rec.Code)
	}

	// Valid credentials.
	req = httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil)
	req.SetBasicAuth("user", "secret")
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid creds: status = %d, want 200", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	q := &stubQueries{stats: &store.Stats{}}
	s := NewServer("127.0.0.1:0", "test", WithQueryUsecase(q))

	rec := doRequest(t, s, http.MethodPost, "/api/v1/stats")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}
