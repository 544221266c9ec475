// Package ingest coordinates log ingestion from the VRChat log directory
// into the ledger and the derived store.
//
// VRChat rewrites and truncates output_log_*.txt across sessions, so files
// are always read in full and newness is decided by the ledger's content
// dedup, never by byte-offset cursors. The pipeline order is fixed: raw
// lines are appended to the ledger first, and only lines that are now
// durable are reconciled into derived state.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/graaaaa/vrcphoto-companion/internal/logline"
	"github.com/graaaaa/vrcphoto-companion/internal/logstore"
	"github.com/graaaaa/vrcphoto-companion/internal/reconcile"
)

// LogFilePattern matches VRChat log file names in the log directory.
const LogFilePattern = "output_log_*.txt"

// Mode selects how much derived state a sync rebuilds.
type Mode int

const (
	// ModeIncremental reconciles only lines appended during this run.
	ModeIncremental Mode = iota + 1
	// ModeFull rebuilds all derived session state from the entire ledger.
	ModeFull
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case ModeIncremental:
		return "incremental"
	case ModeFull:
		return "full"
	default:
		return "unknown"
	}
}

// State is the coordinator's observable phase.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateAppending
)

// Sentinel errors for the ingest package.
var (
	// ErrSyncInFlight is returned when a sync is requested while another is
	// running. Callers coalesce or reject; requests are never queued.
	ErrSyncInFlight = errors.New("sync already in flight")

	// ErrLogDirNotFound reports a missing or unconfigured log directory.
	ErrLogDirNotFound = errors.New("log directory not found")
)

// Ledger defines the log store operations needed by the Syncer.
type Ledger interface {
	Append(ctx context.Context, lines []logstore.Line) ([]logstore.Line, error)
	ReadRange(ctx context.Context, start, end time.Time, fn func(line string, ts time.Time) error) error
}

// DerivedStore defines the derived-store operations needed by the Syncer.
type DerivedStore interface {
	ClearDerived(ctx context.Context) error
}

// EventApplier consumes time-ordered events into derived state.
type EventApplier interface {
	Apply(ctx context.Context, events []logline.Event) (reconcile.Result, error)
}

// Result summarizes one sync run.
type Result struct {
	RunID                string        `json:"run_id"`
	Mode                 string        `json:"mode"`
	FilesScanned         int           `json:"files_scanned"`
	LinesSeen            int           `json:"lines_seen"`
	LinesAppended        int           `json:"lines_appended"`
	SessionsCreated      int           `json:"sessions_created"`
	PlayerEventsInserted int           `json:"player_events_inserted"`
	ReconcileErrors      int           `json:"reconcile_errors,omitempty"`
	StartedAt            time.Time     `json:"started_at"`
	Duration             time.Duration `json:"duration"`
}

// Syncer runs ingestion with mutual exclusion: at most one run in flight in
// this process (mutex) and across processes (lock file).
type Syncer struct {
	logDir     string
	ledger     Ledger
	derived    DerivedStore
	reconciler EventApplier
	logger     *slog.Logger

	mu       sync.Mutex
	fileLock *flock.Flock

	stateMu sync.Mutex
	state   State
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithLogger sets the logger for the Syncer.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Syncer) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithLockFile guards sync runs across processes with a lock file.
func WithLockFile(path string) Option {
	return func(s *Syncer) {
		if path != "" {
			s.fileLock = flock.New(path)
		}
	}
}

// New creates a Syncer for one log directory.
func New(logDir string, ledger Ledger, derived DerivedStore, reconciler EventApplier, opts ...Option) *Syncer {
	s := &Syncer{
		logDir:     logDir,
		ledger:     ledger,
		derived:    derived,
		reconciler: reconciler,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns the coordinator's current phase.
func (s *Syncer) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

func (s *Syncer) setState(st State) {
	s.stateMu.Lock()
	s.state = st
	s.stateMu.Unlock()
}

// Sync runs one ingestion pass. Returns ErrSyncInFlight without blocking if
// another run holds the guard.
func (s *Syncer) Sync(ctx context.Context, mode Mode) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, ErrSyncInFlight
	}
	defer s.mu.Unlock()

	if s.fileLock != nil {
		locked, err := s.fileLock.TryLock()
		if err != nil {
			return nil, fmt.Errorf("acquire sync lock: %w", err)
		}
		if !locked {
			return nil, ErrSyncInFlight
		}
		defer func() { _ = s.fileLock.Unlock() }()
	}

	defer s.setState(StateIdle)

	res := &Result{
		RunID:     uuid.NewString(),
		Mode:      mode.String(),
		StartedAt: time.Now(),
	}
	logger := s.logger.With("run_id", res.RunID, "mode", res.Mode)
	logger.Info("sync started", "log_dir", s.logDir)

	s.setState(StateScanning)
	lines, err := s.scanLogFiles(ctx, res)
	if err != nil {
		return nil, err
	}

	s.setState(StateAppending)
	appended, err := s.ledger.Append(ctx, lines)
	res.LinesAppended = len(appended)
	if err != nil {
		// Partial partition failures are non-fatal: derivation proceeds with
		// what became durable.
		logger.Error("ledger append incomplete", "error", err, "appended", len(appended))
		if len(appended) == 0 {
			return nil, fmt.Errorf("append to log store: %w", err)
		}
	}

	var events []logline.Event
	switch mode {
	case ModeFull:
		if err := s.derived.ClearDerived(ctx); err != nil {
			return nil, fmt.Errorf("clear derived state: %w", err)
		}
		events, err = s.readAllEvents(ctx)
		if err != nil {
			return nil, fmt.Errorf("read ledger: %w", err)
		}
	default:
		events = parseEvents(appended)
	}

	// Lines may come from multiple overlapping files; the reconciler
	// requires a single time-ordered stream.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.Before(events[j].Timestamp)
	})

	recRes, err := s.reconciler.Apply(ctx, events)
	res.SessionsCreated = recRes.SessionsCreated
	res.PlayerEventsInserted = recRes.PlayerEventsInserted
	res.ReconcileErrors = recRes.Errors
	if err != nil {
		return nil, fmt.Errorf("reconcile events: %w", err)
	}

	res.Duration = time.Since(res.StartedAt)
	logger.Info("sync finished",
		"files", res.FilesScanned,
		"lines_seen", res.LinesSeen,
		"lines_appended", res.LinesAppended,
		"sessions_created", res.SessionsCreated,
		"player_events", res.PlayerEventsInserted,
		"duration", res.Duration,
	)
	return res, nil
}

// scanLogFiles reads every candidate log file in full and returns the lines
// that parse as events. A single unreadable file is skipped, not fatal.
func (s *Syncer) scanLogFiles(ctx context.Context, res *Result) ([]logstore.Line, error) {
	if _, err := os.Stat(s.logDir); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrLogDirNotFound, s.logDir)
		}
		return nil, fmt.Errorf("stat log dir %q: %w", s.logDir, err)
	}

	paths, err := filepath.Glob(filepath.Join(s.logDir, LogFilePattern))
	if err != nil {
		return nil, fmt.Errorf("glob log files: %w", err)
	}
	sort.Strings(paths)

	var lines []logstore.Line
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileLines, seen, err := readLogFile(path)
		if err != nil {
			s.logger.Warn("skipping unreadable log file", "path", path, "error", err)
			continue
		}
		res.FilesScanned++
		res.LinesSeen += seen
		lines = append(lines, fileLines...)
	}
	return lines, nil
}

func (s *Syncer) readAllEvents(ctx context.Context) ([]logline.Event, error) {
	var events []logline.Event
	err := s.ledger.ReadRange(ctx, time.Time{}, time.Time{}, func(line string, _ time.Time) error {
		if ev, ok := logline.Parse(line); ok {
			events = append(events, ev)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

func parseEvents(lines []logstore.Line) []logline.Event {
	events := make([]logline.Event, 0, len(lines))
	for _, ln := range lines {
		if ev, ok := logline.Parse(ln.Content); ok {
			events = append(events, ev)
		}
	}
	return events
}
