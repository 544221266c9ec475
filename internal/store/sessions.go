package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	defaultLimit = 100
	maxLimit     = 500
)

// UpsertSession inserts a session if no row with the same
// (world_id, instance_id, join_ts) tuple exists, making replays no-ops.
// On return e.ID is set to the row's ID whether or not a row was inserted.
func (s *Store) UpsertSession(ctx context.Context, e *Session) (inserted bool, err error) {
	if err := validateSession(e); err != nil {
		return false, err
	}

	const query = `
	INSERT INTO world_join_sessions
	(world_id, instance_id, world_name, join_ts, created_at, schema_version)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(world_id, instance_id, join_ts) DO NOTHING
	`

	joinTs := e.JoinTs.UTC().Format(TimeFormat)
	createdAt := e.CreatedAt.UTC().Format(TimeFormat)
	var worldName sql.NullString
	if e.WorldName != nil {
		worldName = sql.NullString{String: *e.WorldName, Valid: true}
	}

	result, err := s.db.ExecContext(ctx, query,
		e.WorldID, e.InstanceID, worldName, joinTs, createdAt, CurrentSchemaVersion,
	)
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
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

	// Duplicate: resolve the existing row's ID so callers can still refer to it.
	const lookup = `
	SELECT id FROM world_join_sessions
	WHERE world_id = ? AND instance_id = ? AND join_ts = ?
	`
	if err := s.db.QueryRowContext(ctx, lookup, e.WorldID, e.InstanceID, joinTs).Scan(&e.ID); err != nil {
		return false, fmt.Errorf("lookup existing session: %w", err)
	}
	return false, nil
}

// SetSessionWorldName records the world display name for a session.
// The name is only filled in, never overwritten, so a replayed room-name
// line cannot clobber a name already attached.
func (s *Store) SetSessionWorldName(ctx context.Context, sessionID int64, name string) error {
	if name == "" {
		return nil
	}
	const query = `
	UPDATE world_join_sessions SET world_name = ?
	WHERE id = ? AND world_name IS NULL
	`
	if _, err := s.db.ExecContext(ctx, query, name, sessionID); err != nil {
		return fmt.Errorf("set session world name: %w", err)
	}
	return nil
}

// ListSessionsInRange returns sessions with join_ts in [start, end),
// ascending by (join_ts, id). Zero start or end means unbounded.
func (s *Store) ListSessionsInRange(ctx context.Context, start, end time.Time) ([]Session, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`
SELECT id, world_id, instance_id, world_name, join_ts, created_at
FROM world_join_sessions
WHERE 1=1
`)
	if !start.IsZero() {
		sb.WriteString(" AND join_ts >= ?")
		args = append(args, start.UTC().Format(TimeFormat))
	}
	if !end.IsZero() {
		sb.WriteString(" AND join_ts < ?")
		args = append(args, end.UTC().Format(TimeFormat))
	}
	sb.WriteString(" ORDER BY join_ts ASC, id ASC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// SessionPageOpts selects one page of sessions. Zero Start/End are
// unbounded; a zero CursorTs means no cursor.
type SessionPageOpts struct {
	Start    time.Time
	End      time.Time
	CursorTs time.Time
	CursorID int64
	Limit    int
}

// ListSessionsPage returns sessions in [Start, End) strictly after the
// cursor position, ascending by (join_ts, id), at most Limit rows.
func (s *Store) ListSessionsPage(ctx context.Context, opts SessionPageOpts) ([]Session, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultLimit
	} else if limit > maxLimit {
		limit = maxLimit
	}

	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`
SELECT id, world_id, instance_id, world_name, join_ts, created_at
FROM world_join_sessions
WHERE 1=1
`)
	if !opts.Start.IsZero() {
		sb.WriteString(" AND join_ts >= ?")
		args = append(args, opts.Start.UTC().Format(TimeFormat))
	}
	if !opts.End.IsZero() {
		sb.WriteString(" AND join_ts < ?")
		args = append(args, opts.End.UTC().Format(TimeFormat))
	}
	if !opts.CursorTs.IsZero() {
		cursorTs := opts.CursorTs.UTC().Format(TimeFormat)
		sb.WriteString(" AND (join_ts > ? OR (join_ts = ? AND id > ?))")
		args = append(args, cursorTs, cursorTs, opts.CursorID)
	}
	sb.WriteString(" ORDER BY join_ts ASC, id ASC")
	sb.WriteString(" LIMIT ?")
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions page: %w", err)
	}
	defer rows.Close()

	return scanSessions(rows)
}

// LatestSessionBefore returns the newest session with join_ts <= ts, or nil
// if none exists. Ties on join_ts resolve to the highest ID, matching the
// grouping engine's deterministic tie-break.
func (s *Store) LatestSessionBefore(ctx context.Context, ts time.Time) (*Session, error) {
	const query = `
	SELECT id, world_id, instance_id, world_name, join_ts, created_at
	FROM world_join_sessions
	WHERE join_ts <= ?
	ORDER BY join_ts DESC, id DESC
	LIMIT 1
	`
	row := s.db.QueryRowContext(ctx, query, ts.UTC().Format(TimeFormat))
	sess, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest session before: %w", err)
	}
	return sess, nil
}

// NextSessionAfter returns the oldest session with join_ts strictly after
// ts, or nil if none exists.
func (s *Store) NextSessionAfter(ctx context.Context, ts time.Time) (*Session, error) {
	const query = `
	SELECT id, world_id, instance_id, world_name, join_ts, created_at
	FROM world_join_sessions
	WHERE join_ts > ?
	ORDER BY join_ts ASC, id ASC
	LIMIT 1
	`
	row := s.db.QueryRowContext(ctx, query, ts.UTC().Format(TimeFormat))
	sess, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next session after: %w", err)
	}
	return sess, nil
}

// GetSessionByJoinTs returns the session with the given join_ts, or nil if
// no such session exists. With duplicate join timestamps the lowest ID wins.
func (s *Store) GetSessionByJoinTs(ctx context.Context, ts time.Time) (*Session, error) {
	const query = `
	SELECT id, world_id, instance_id, world_name, join_ts, created_at
	FROM world_join_sessions
	WHERE join_ts = ?
	ORDER BY id ASC
	LIMIT 1
	`
	row := s.db.QueryRowContext(ctx, query, ts.UTC().Format(TimeFormat))
	sess, err := scanSessionRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session by join_ts: %w", err)
	}
	return sess, nil
}

// CountSessions returns the total number of sessions.
func (s *Store) CountSessions(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM world_join_sessions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count sessions: %w", err)
	}
	return count, nil
}

// SuggestWorldNames returns distinct world names starting with prefix,
// case-insensitively, ascending, at most limit entries.
func (s *Store) SuggestWorldNames(ctx context.Context, prefix string, limit int) ([]string, error) {
	return s.suggest(ctx, `
	SELECT DISTINCT world_name FROM world_join_sessions
	WHERE world_name IS NOT NULL AND world_name LIKE ? ESCAPE '\'
	ORDER BY world_name ASC
	LIMIT ?
	`, prefix, limit)
}

func (s *Store) suggest(ctx context.Context, query, prefix string, limit int) ([]string, error) {
	if limit <= 0 {
		limit = defaultLimit
	} else if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := s.db.QueryContext(ctx, query, escapeLike(prefix)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("suggest: %w", err)
	}
	defer rows.Close()

	names := make([]string, 0, limit)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan suggestion: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return names, nil
}

// escapeLike escapes LIKE metacharacters so a prefix is matched literally.
func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// ClearDerived deletes all sessions and player events in one transaction.
// Used by full sync before replaying the ledger. Photos are untouched.
func (s *Store) ClearDerived(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM world_join_sessions`); err != nil {
		return fmt.Errorf("clear sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM player_events`); err != nil {
		return fmt.Errorf("clear player events: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSessionRow(row rowScanner) (*Session, error) {
	var (
		sess      Session
		worldName sql.NullString
		joinTs    string
		createdAt string
	)
	if err := row.Scan(&sess.ID, &sess.WorldID, &sess.InstanceID, &worldName, &joinTs, &createdAt); err != nil {
		return nil, err
	}

	var err error
	if sess.JoinTs, err = time.Parse(TimeFormat, joinTs); err != nil {
		return nil, fmt.Errorf("parse join_ts %q: %w", joinTs, err)
	}
	if sess.CreatedAt, err = time.Parse(TimeFormat, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	if worldName.Valid {
		sess.WorldName = &worldName.String
	}
	return &sess, nil
}

func scanSessions(rows *sql.Rows) ([]Session, error) {
	var sessions []Session
	for rows.Next() {
		sess, err := scanSessionRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sessions = append(sessions, *sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return sessions, nil
}

func validateSession(e *Session) error {
	if e.WorldID == "" {
		return fmt.Errorf("%w: world_id is required", ErrInvalidSession)
	}
	if e.JoinTs.IsZero() {
		return fmt.Errorf("%w: join_ts is required", ErrInvalidSession)
	}
	if e.CreatedAt.IsZero() {
		return fmt.Errorf("%w: created_at is required", ErrInvalidSession)
	}
	return nil
}
