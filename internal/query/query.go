// Package query is the read-side façade over the derived store.
//
// Every call reads a consistent snapshot from SQLite and computes groupings
// statelessly, so queries are safe to run while ingestion is writing; a
// caller may observe a partially-updated session set and re-queries after
// the sync-completion signal.
package query

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/graaaaa/vrcphoto-companion/internal/group"
	"github.com/graaaaa/vrcphoto-companion/internal/store"
)

// DefaultGroupLimit is the default number of sessions per group page.
const DefaultGroupLimit = 50

// ErrSessionNotFound reports a join timestamp with no matching session.
var ErrSessionNotFound = errors.New("session not found")

// Store defines the store operations the query service reads from.
type Store interface {
	ListSessionsPage(ctx context.Context, opts store.SessionPageOpts) ([]store.Session, error)
	ListSessionsInRange(ctx context.Context, start, end time.Time) ([]store.Session, error)
	LatestSessionBefore(ctx context.Context, ts time.Time) (*store.Session, error)
	NextSessionAfter(ctx context.Context, ts time.Time) (*store.Session, error)
	GetSessionByJoinTs(ctx context.Context, ts time.Time) (*store.Session, error)
	ListPhotosInRange(ctx context.Context, start, end time.Time) ([]store.Photo, error)
	CountPhotos(ctx context.Context, f store.PhotoFilter) (int64, error)
	ListPlayerEventsInRange(ctx context.Context, start, end time.Time) ([]store.PlayerEvent, error)
	SuggestWorldNames(ctx context.Context, prefix string, limit int) ([]string, error)
	SuggestPlayerNames(ctx context.Context, prefix string, limit int) ([]string, error)
	GetStats(ctx context.Context) (*store.Stats, error)
}

// Window bounds a query by time. Zero values are unbounded.
type Window struct {
	Since time.Time
	Until time.Time
}

// Pagination selects a page of grouped results.
type Pagination struct {
	Limit  int
	Cursor string
}

// GroupPage is one page of photo groups.
type GroupPage struct {
	Groups     []group.PhotoGroup `json:"groups"`
	NextCursor *string            `json:"next_cursor,omitempty"`
}

// PlayerSession is a join/leave pair for one player within a session,
// derived at read time by interval containment. Consecutive rejoins collapse
// into a single entry here, at the presentation edge; storage keeps every
// raw fact.
type PlayerSession struct {
	PlayerName string     `json:"player_name"`
	PlayerID   *string    `json:"player_id,omitempty"`
	JoinTs     time.Time  `json:"join_ts"`
	LeaveTs    *time.Time `json:"leave_ts,omitempty"`
}

// Service implements the read-side API.
type Service struct {
	store  Store
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger for the Service.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a query Service.
func New(st Store, opts ...Option) *Service {
	s := &Service{store: st, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CountPhotos returns the number of photos matching the filter.
func (s *Service) CountPhotos(ctx context.Context, f store.PhotoFilter) (int64, error) {
	return s.store.CountPhotos(ctx, f)
}

// ListPhotoGroups returns a page of sessions with their photos attached,
// ordered ascending by session join time. The first page starts with the
// ungrouped bucket when photos precede every known session; it also surfaces
// the last session joined before the window so photos taken inside the
// window during that session keep their correct attribution. Sessions with
// zero photos are surfaced, not dropped.
func (s *Service) ListPhotoGroups(ctx context.Context, w Window, p Pagination) (GroupPage, error) {
	limit := p.Limit
	if limit <= 0 {
		limit = DefaultGroupLimit
	}

	opts := store.SessionPageOpts{
		Start: w.Since,
		End:   w.Until,
		Limit: limit + 1, // one extra to detect the next page
	}
	firstPage := p.Cursor == ""
	if !firstPage {
		cursorTs, cursorID, err := store.DecodeCursor(p.Cursor)
		if err != nil {
			return GroupPage{}, err
		}
		opts.CursorTs = cursorTs
		opts.CursorID = cursorID
	}

	sessions, err := s.store.ListSessionsPage(ctx, opts)
	if err != nil {
		return GroupPage{}, err
	}

	// The extra session is the next page's first; keep it around to bound
	// this page's photo range below. Looking the bound up by join time alone
	// would miss it when two sessions share a join_ts across the page break.
	var nextFirst *store.Session
	var nextCursor *string
	if len(sessions) > limit {
		nextFirst = &sessions[limit]
		last := sessions[limit-1]
		sessions = sessions[:limit]
		c := store.EncodeCursor(last.JoinTs, last.ID)
		nextCursor = &c
	}

	// On the first page, the session active when the window opens belongs in
	// front: photos inside the window but before the first in-window join
	// are its photos, not ungrouped.
	if firstPage && !w.Since.IsZero() {
		boundary, err := s.store.LatestSessionBefore(ctx, w.Since)
		if err != nil {
			return GroupPage{}, err
		}
		if boundary != nil && !containsSession(sessions, boundary.ID) {
			sessions = append([]store.Session{*boundary}, sessions...)
		}
	}

	photoStart := w.Since
	if !firstPage && len(sessions) > 0 {
		photoStart = sessions[0].JoinTs
	}
	photoEnd := w.Until
	if nextFirst != nil && (photoEnd.IsZero() || nextFirst.JoinTs.Before(photoEnd)) {
		// Photos at or past the next page's first session belong to that page.
		photoEnd = nextFirst.JoinTs
	}

	photos, err := s.store.ListPhotosInRange(ctx, photoStart, photoEnd)
	if err != nil {
		return GroupPage{}, err
	}

	return GroupPage{
		Groups:     group.Assign(sessions, photos),
		NextCursor: nextCursor,
	}, nil
}

// ListAllPhotoGroups returns every group in the window without pagination,
// with the same boundary-session handling as ListPhotoGroups. Meant for full
// dumps; interactive surfaces should page instead.
func (s *Service) ListAllPhotoGroups(ctx context.Context, w Window) ([]group.PhotoGroup, error) {
	sessions, err := s.store.ListSessionsInRange(ctx, w.Since, w.Until)
	if err != nil {
		return nil, err
	}

	if !w.Since.IsZero() {
		boundary, err := s.store.LatestSessionBefore(ctx, w.Since)
		if err != nil {
			return nil, err
		}
		if boundary != nil && !containsSession(sessions, boundary.ID) {
			sessions = append([]store.Session{*boundary}, sessions...)
		}
	}

	photos, err := s.store.ListPhotosInRange(ctx, w.Since, w.Until)
	if err != nil {
		return nil, err
	}
	return group.Assign(sessions, photos), nil
}

// GetPlayersForSession derives the players present during the session that
// started at joinTs. A leave with no prior join in the interval is dropped
// silently (the player predates logging); rejoins collapse into one entry
// keeping the first join and the last leave.
func (s *Service) GetPlayersForSession(ctx context.Context, joinTs time.Time) ([]PlayerSession, error) {
	sess, err := s.store.GetSessionByJoinTs(ctx, joinTs)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	var end time.Time
	next, err := s.store.NextSessionAfter(ctx, sess.JoinTs)
	if err != nil {
		return nil, err
	}
	if next != nil {
		end = next.JoinTs
	}

	events, err := s.store.ListPlayerEventsInRange(ctx, sess.JoinTs, end)
	if err != nil {
		return nil, err
	}

	byName := make(map[string]*PlayerSession)
	order := make([]string, 0, len(events))
	for i := range events {
		e := &events[i]
		switch e.Kind {
		case store.KindPlayerJoin:
			if ps, ok := byName[e.PlayerName]; ok {
				// Rejoin: keep the first join, reopen the presence.
				ps.LeaveTs = nil
				if ps.PlayerID == nil {
					ps.PlayerID = e.PlayerID
				}
				continue
			}
			byName[e.PlayerName] = &PlayerSession{
				PlayerName: e.PlayerName,
				PlayerID:   e.PlayerID,
				JoinTs:     e.Ts,
			}
			order = append(order, e.PlayerName)
		case store.KindPlayerLeft:
			ps, ok := byName[e.PlayerName]
			if !ok {
				// Player was already present before logging started.
				continue
			}
			leave := e.Ts
			ps.LeaveTs = &leave
		}
	}

	players := make([]PlayerSession, 0, len(order))
	for _, name := range order {
		players = append(players, *byName[name])
	}
	sort.SliceStable(players, func(i, j int) bool {
		if !players[i].JoinTs.Equal(players[j].JoinTs) {
			return players[i].JoinTs.Before(players[j].JoinTs)
		}
		return players[i].PlayerName < players[j].PlayerName
	})
	return players, nil
}

// SuggestWorldNames returns world-name completions for a prefix.
func (s *Service) SuggestWorldNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.store.SuggestWorldNames(ctx, prefix, limit)
}

// SuggestPlayerNames returns player-name completions for a prefix.
func (s *Service) SuggestPlayerNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.store.SuggestPlayerNames(ctx, prefix, limit)
}

// Stats returns aggregate store counts.
func (s *Service) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.GetStats(ctx)
}

func containsSession(sessions []store.Session, id int64) bool {
	for i := range sessions {
		if sessions[i].ID == id {
			return true
		}
	}
	return false
}
