package store

import (
	"context"
	"fmt"
)

// CurrentSchemaVersion is the current database schema version.
const CurrentSchemaVersion = 1

// migrate runs database migrations.
func (s *Store) migrate(ctx context.Context) error {
	if err := s.createSessionsTable(ctx); err != nil {
		return err
	}
	if err := s.createPlayerEventsTable(ctx); err != nil {
		return err
	}
	if err := s.createPhotosTable(ctx); err != nil {
		return err
	}
	if err := s.createMetadataTable(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Store) createSessionsTable(ctx context.Context) error {
	// instance_id uses '' instead of NULL so the uniqueness constraint holds
	// for instance-less joins (SQLite treats NULLs as distinct in UNIQUE).
	const schema = `
	CREATE TABLE IF NOT EXISTS world_join_sessions (
		id             INTEGER PRIMARY KEY,
		world_id       TEXT NOT NULL,
		instance_id    TEXT NOT NULL DEFAULT '',
		world_name     TEXT,
		join_ts        TEXT NOT NULL,
		created_at     TEXT NOT NULL,
		schema_version INTEGER NOT NULL,
		UNIQUE(world_id, instance_id, join_ts)
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_join_ts ON world_join_sessions(join_ts, id);
	CREATE INDEX IF NOT EXISTS idx_sessions_world_name ON world_join_sessions(world_name);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create world_join_sessions table: %w", err)
	}
	return nil
}

func (s *Store) createPlayerEventsTable(ctx context.Context) error {
	// Player join/leave facts carry no session foreign key; membership is
	// computed at query time by interval containment so late-arriving earlier
	// log lines never force association rewrites.
	const schema = `
	CREATE TABLE IF NOT EXISTS player_events (
		id             INTEGER PRIMARY KEY,
		ts             TEXT NOT NULL,
		kind           TEXT NOT NULL,
		player_name    TEXT NOT NULL,
		player_id      TEXT,
		dedupe_key     TEXT NOT NULL,
		ingested_at    TEXT NOT NULL,
		schema_version INTEGER NOT NULL,
		UNIQUE(dedupe_key)
	);

	CREATE INDEX IF NOT EXISTS idx_player_events_ts ON player_events(ts, id);
	CREATE INDEX IF NOT EXISTS idx_player_events_name ON player_events(player_name);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create player_events table: %w", err)
	}
	return nil
}

func (s *Store) createPhotosTable(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS photos (
		id             INTEGER PRIMARY KEY,
		photo_path     TEXT NOT NULL,
		taken_at       TEXT NOT NULL,
		width          INTEGER NOT NULL,
		height         INTEGER NOT NULL,
		created_at     TEXT NOT NULL,
		updated_at     TEXT NOT NULL,
		schema_version INTEGER NOT NULL,
		UNIQUE(photo_path)
	);

	CREATE INDEX IF NOT EXISTS idx_photos_taken_at ON photos(taken_at, id);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create photos table: %w", err)
	}
	return nil
}

func (s *Store) createMetadataTable(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS metadata (
		key   TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create metadata table: %w", err)
	}
	return nil
}
