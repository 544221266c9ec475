// Package photoindex discovers VRChat screenshots under configured roots
// and maintains lightweight photo records.
//
// Only the path and filename-derived metadata are read; pixel data is never
// loaded here, which keeps indexing cheap for libraries of tens of
// thousands of files. Upserts are idempotent on path, so re-scanning an
// unchanged directory is a no-op and an interrupted scan loses nothing.
package photoindex

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/graaaaa/vrcphoto-companion/internal/store"
)

// DefaultBatchSize is the number of files upserted per batch. Batching caps
// peak memory on large libraries and bounds how long cancellation waits.
const DefaultBatchSize = 500

// ErrRootNotFound reports a configured photo root that does not exist.
var ErrRootNotFound = errors.New("photo root not found")

// PhotoStore defines the store operations needed by the Indexer.
type PhotoStore interface {
	UpsertPhoto(ctx context.Context, p *store.Photo) (bool, error)
	ForEachPhotoPath(ctx context.Context, fn func(path string) error) error
	DeletePhoto(ctx context.Context, path string) (bool, error)
}

// Clock provides time for deterministic testing.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Result summarizes one scan.
type Result struct {
	FilesSeen    int
	Upserted     int
	MissingRoots []string
}

// Indexer scans photo roots and upserts photo records.
type Indexer struct {
	store     PhotoStore
	logger    *slog.Logger
	clock     Clock
	batchSize int
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets the logger for the Indexer.
func WithLogger(logger *slog.Logger) Option {
	return func(ix *Indexer) {
		if logger != nil {
			ix.logger = logger
		}
	}
}

// WithClock sets the clock for the Indexer (for testing).
func WithClock(clock Clock) Option {
	return func(ix *Indexer) {
		if clock != nil {
			ix.clock = clock
		}
	}
}

// WithBatchSize sets the upsert batch size.
func WithBatchSize(size int) Option {
	return func(ix *Indexer) {
		if size > 0 {
			ix.batchSize = size
		}
	}
}

// New creates a new Indexer.
func New(s PhotoStore, opts ...Option) *Indexer {
	ix := &Indexer{
		store:     s,
		logger:    slog.Default(),
		clock:     realClock{},
		batchSize: DefaultBatchSize,
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

// Scan walks the given roots and upserts a record for every file matching
// the screenshot filename grammar. A missing root is recorded in the result
// and does not stop the other roots. Cancellation is honored between
// batches; records already upserted stay in place.
func (ix *Indexer) Scan(ctx context.Context, roots []string) (Result, error) {
	var res Result
	batch := make([]store.Photo, 0, ix.batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range batch {
			changed, err := ix.store.UpsertPhoto(ctx, &batch[i])
			if err != nil {
				// One bad record does not abort the batch.
				ix.logger.Error("failed to upsert photo",
					"path", batch[i].Path,
					"error", err,
				)
				continue
			}
			if changed {
				res.Upserted++
			}
		}
		batch = batch[:0]
		return nil
	}

	for _, root := range roots {
		if root == "" {
			continue
		}
		if _, err := os.Stat(root); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				ix.logger.Warn("photo root does not exist", "root", root)
				res.MissingRoots = append(res.MissingRoots, root)
				continue
			}
			return res, fmt.Errorf("stat photo root %q: %w", root, err)
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subdirectory: skip it, keep walking.
				ix.logger.Warn("skipping unreadable path", "path", path, "error", err)
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if d.IsDir() {
				return nil
			}

			meta, ok := ParseFilename(d.Name())
			if !ok {
				return nil
			}
			res.FilesSeen++

			now := ix.clock.Now()
			batch = append(batch, store.Photo{
				Path:      path,
				TakenAt:   meta.TakenAt,
				Width:     meta.Width,
				Height:    meta.Height,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if len(batch) >= ix.batchSize {
				return flush()
			}
			return nil
		})
		if err != nil {
			return res, err
		}
	}

	if err := flush(); err != nil {
		return res, err
	}
	return res, nil
}

// Validate removes records whose file no longer exists on disk. Records are
// never expired implicitly; this pass runs only when explicitly requested.
// Returns the number of records removed.
func (ix *Indexer) Validate(ctx context.Context) (int, error) {
	var stale []string
	err := ix.store.ForEachPhotoPath(ctx, func(path string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
			stale = append(stale, path)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, path := range stale {
		deleted, err := ix.store.DeletePhoto(ctx, path)
		if err != nil {
			ix.logger.Error("failed to delete stale photo record",
				"path", path,
				"error", err,
			)
			continue
		}
		if deleted {
			removed++
		}
	}
	return removed, nil
}
