package store

import (
	"context"
	"database/sql"
	"log/slog"
	"time"
)

// VacuumInterval is the minimum gap between VACUUM runs. The cache churns
// slowly (full rebuilds delete and reinsert everything), so monthly is plenty.
const VacuumInterval = 30 * 24 * time.Hour

const metadataKeyLastVacuum = "last_vacuum_at"

// VacuumIfNeeded runs VACUUM when the last run is older than VacuumInterval.
// It reports whether a VACUUM actually happened.
func (s *Store) VacuumIfNeeded(ctx context.Context) (bool, error) {
	last, err := s.lastVacuumAt(ctx)
	if err != nil {
		return false, err
	}
	if time.Since(last) < VacuumInterval {
		return false, nil
	}

	start := time.Now()
	if _, err := s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return false, err
	}
	slog.Info("vacuum completed", "elapsed", time.Since(start))

	if err := s.recordVacuumAt(ctx, time.Now()); err != nil {
		// The VACUUM itself succeeded; the worst case is an early rerun.
		slog.Warn("record vacuum time", "error", err)
	}
	return true, nil
}

func (s *Store) lastVacuumAt(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM metadata WHERE key = ?", metadataKeyLastVacuum,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return time.Parse(TimeFormat, value)
}

func (s *Store) recordVacuumAt(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, metadataKeyLastVacuum, t.UTC().Format(TimeFormat))
	return err
}
