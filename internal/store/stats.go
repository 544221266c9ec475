package store

import (
	"context"
	"database/sql"
	"fmt"
)

// Stats holds aggregate counts over the derived store.
type Stats struct {
	SessionCount     int64   `json:"session_count"`
	PhotoCount       int64   `json:"photo_count"`
	PlayerEventCount int64   `json:"player_event_count"`
	LastJoinTs       *string `json:"last_join_ts,omitempty"`
}

// GetStats retrieves aggregate counts in a single pass per table.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	var err error
	if stats.SessionCount, err = s.CountSessions(ctx); err != nil {
		return nil, err
	}
	if stats.PhotoCount, err = s.CountPhotos(ctx, PhotoFilter{}); err != nil {
		return nil, err
	}
	if stats.PlayerEventCount, err = s.CountPlayerEvents(ctx); err != nil {
		return nil, err
	}

	var lastJoin sql.NullString
	err = s.db.QueryRowContext(ctx, `
		SELECT join_ts FROM world_join_sessions
		ORDER BY join_ts DESC, id DESC
		LIMIT 1
	`).Scan(&lastJoin)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("last join ts: %w", err)
	}
	if lastJoin.Valid {
		stats.LastJoinTs = &lastJoin.String
	}

	return stats, nil
}
