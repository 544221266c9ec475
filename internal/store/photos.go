package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// UpsertPhoto inserts a photo record, or updates the existing record for the
// same path when its filename-derived metadata changed. Re-scanning an
// unchanged photo touches nothing, so repeated scans are no-ops.
// Returns true if a row was inserted or updated.
func (s *Store) UpsertPhoto(ctx context.Context, p *Photo) (changed bool, err error) {
	if err := validatePhoto(p); err != nil {
		return false, err
	}

	const query = `
	INSERT INTO photos
	(photo_path, taken_at, width, height, created_at, updated_at, schema_version)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(photo_path) DO UPDATE SET
		taken_at   = excluded.taken_at,
		width      = excluded.width,
		height     = excluded.height,
		updated_at = excluded.updated_at
	WHERE photos.taken_at != excluded.taken_at
	   OR photos.width != excluded.width
	   OR photos.height != excluded.height
	`

	result, err := s.db.ExecContext(ctx, query,
		p.Path,
		p.TakenAt.UTC().Format(TimeFormat),
		p.Width,
		p.Height,
		p.CreatedAt.UTC().Format(TimeFormat),
		p.UpdatedAt.UTC().Format(TimeFormat),
		CurrentSchemaVersion,
	)
	if err != nil {
		return false, fmt.Errorf("upsert photo: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// PhotoFilter bounds photo queries by taken_at. Zero values are unbounded.
type PhotoFilter struct {
	Since time.Time
	Until time.Time
}

// CountPhotos returns the number of photos matching the filter.
func (s *Store) CountPhotos(ctx context.Context, f PhotoFilter) (int64, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`SELECT COUNT(*) FROM photos WHERE 1=1`)
	if !f.Since.IsZero() {
		sb.WriteString(" AND taken_at >= ?")
		args = append(args, f.Since.UTC().Format(TimeFormat))
	}
	if !f.Until.IsZero() {
		sb.WriteString(" AND taken_at < ?")
		args = append(args, f.Until.UTC().Format(TimeFormat))
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sb.String(), args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count photos: %w", err)
	}
	return count, nil
}

// ListPhotosInRange returns photos with taken_at in [start, end), ascending
// by (taken_at, id). Zero start or end means unbounded.
func (s *Store) ListPhotosInRange(ctx context.Context, start, end time.Time) ([]Photo, error) {
	var (
		sb   strings.Builder
		args []any
	)
	sb.WriteString(`
SELECT id, photo_path, taken_at, width, height, created_at, updated_at
FROM photos
WHERE 1=1
`)
	if !start.IsZero() {
		sb.WriteString(" AND taken_at >= ?")
		args = append(args, start.UTC().Format(TimeFormat))
	}
	if !end.IsZero() {
		sb.WriteString(" AND taken_at < ?")
		args = append(args, end.UTC().Format(TimeFormat))
	}
	sb.WriteString(" ORDER BY taken_at ASC, id ASC")

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		var (
			p         Photo
			takenAt   string
			createdAt string
			updatedAt string
		)
		if err := rows.Scan(&p.ID, &p.Path, &takenAt, &p.Width, &p.Height, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan photo: %w", err)
		}
		if p.TakenAt, err = time.Parse(TimeFormat, takenAt); err != nil {
			return nil, fmt.Errorf("parse taken_at %q: %w", takenAt, err)
		}
		if p.CreatedAt, err = time.Parse(TimeFormat, createdAt); err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		if p.UpdatedAt, err = time.Parse(TimeFormat, updatedAt); err != nil {
			return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
		}
		photos = append(photos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return photos, nil
}

// ForEachPhotoPath streams all stored photo paths to fn, ascending by path.
// Used by the validation pass; avoids holding all records in memory.
func (s *Store) ForEachPhotoPath(ctx context.Context, fn func(path string) error) error {
	rows, err := s.db.QueryContext(ctx, `SELECT photo_path FROM photos ORDER BY photo_path ASC`)
	if err != nil {
		return fmt.Errorf("list photo paths: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var path string
		if err := rows.Scan(&path); err != nil {
			return fmt.Errorf("scan photo path: %w", err)
		}
		if err := fn(path); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("rows error: %w", err)
	}
	return nil
}

// DeletePhoto removes the record for the given path.
// Returns true if a row was deleted. Photos are never deleted automatically;
// this is reached only through an explicit validation pass or user action.
func (s *Store) DeletePhoto(ctx context.Context, path string) (bool, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM photos WHERE photo_path = ?`, path)
	if err != nil {
		return false, fmt.Errorf("delete photo: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

func validatePhoto(p *Photo) error {
	if p.Path == "" {
		return fmt.Errorf("%w: photo_path is required", ErrInvalidPhoto)
	}
	if p.TakenAt.IsZero() {
		return fmt.Errorf("%w: taken_at is required", ErrInvalidPhoto)
	}
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("%w: dimensions are required", ErrInvalidPhoto)
	}
	if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
		return fmt.Errorf("%w: created_at/updated_at are required", ErrInvalidPhoto)
	}
	return nil
}
