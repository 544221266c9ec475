package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// InsertPlayerEvent inserts a player join/leave fact.
// Returns false if the event was a duplicate (same dedupe_key).
func (s *Store) InsertPlayerEvent(ctx context.Context, e *PlayerEvent) (inserted bool, err error) {
	if err := validatePlayerEvent(e); err != nil {
		return false, err
	}

	const query = `
	INSERT INTO player_events
	(ts, kind, player_name, player_id, dedupe_key, ingested_at, schema_version)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(dedupe_key) DO NOTHING
	`

	var playerID sql.NullString
	if e.PlayerID != nil {
		playerID = sql.NullString{String: *e.PlayerID, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query,
		e.Ts.UTC().Format(TimeFormat),
		e.Kind,
		e.PlayerName,
		playerID,
		e.DedupeKey,
		e.IngestedAt.UTC().Format(TimeFormat),
		CurrentSchemaVersion,
	)
	if err != nil {
		return false, fmt.Errorf("insert player event: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	if rowsAffected > 0 {
		id, err := result.LastInsertId()
		if err != nil {
			return false, fmt.Errorf("last insert id: %w", err)
		}
		e.ID = id
		return true, nil
	}
	return false, nil
}

// ListPlayerEventsInRange returns player events with ts in [start, end),
// ascending by (ts, id). Zero start or end means unbounded.
func (s *Store) ListPlayerEventsInRange(ctx context.Context, start, end time.Time) ([]PlayerEvent, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`
SELECT id, ts, kind, player_name, player_id, ingested_at
FROM player_events
WHERE 1=1
`)
	if !start.IsZero() {
		sb.WriteString(" AND ts >= ?")
		args = append(args, start.UTC().Format(TimeFormat))
	}
	if !end.IsZero() {
		sb.WriteString(" AND ts < ?")
		args = append(args, end.UTC().Format(TimeFormat))
	}
	sb.WriteString(" ORDER BY ts ASC, id ASC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list player events: %w", err)
	}
	defer rows.Close()

	var events []PlayerEvent
	for rows.Next() {
		var (
			e          PlayerEvent
			playerID   sql.NullString
			ts         string
			ingestedAt string
		)
		if err := rows.Scan(&e.ID, &ts, &e.Kind, &e.PlayerName, &playerID, &ingestedAt); err != nil {
			return nil, fmt.Errorf("scan player event: %w", err)
		}
		if e.Ts, err = time.Parse(TimeFormat, ts); err != nil {
			return nil, fmt.Errorf("parse ts %q: %w", ts, err)
		}
		if e.IngestedAt, err = time.Parse(TimeFormat, ingestedAt); err != nil {
			return nil, fmt.Errorf("parse ingested_at %q: %w", ingestedAt, err)
		}
		if playerID.Valid {
			e.PlayerID = &playerID.String
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// CountPlayerEvents returns the total number of player events.
func (s *Store) CountPlayerEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM player_events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count player events: %w", err)
	}
	return count, nil
}

// SuggestPlayerNames returns distinct player names starting with prefix,
// ascending, at most limit entries.
func (s *Store) SuggestPlayerNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.suggest(ctx, `
	SELECT DISTINCT player_name FROM player_events
	WHERE player_name LIKE ? ESCAPE '\'
	ORDER BY player_name ASC
	LIMIT ?
	`, prefix, limit)
}

func validatePlayerEvent(e *PlayerEvent) error {
	if e.Kind != KindPlayerJoin && e.Kind != KindPlayerLeft {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidPlayerEvent, e.Kind)
	}
	if e.PlayerName == "" {
		return fmt.Errorf("%w: player_name is required", ErrInvalidPlayerEvent)
	}
	if e.DedupeKey == "" {
		return fmt.Errorf("%w: dedupe_key is required", ErrInvalidPlayerEvent)
	}
	if e.Ts.IsZero() {
		return fmt.Errorf("%w: ts is required", ErrInvalidPlayerEvent)
	}
	if e.IngestedAt.IsZero() {
		return fmt.Errorf("%w: ingested_at is required", ErrInvalidPlayerEvent)
	}
	return nil
}
