// Package logstore provides the durable, append-only ledger of raw VRChat
// log lines.
//
// Lines are partitioned into one plain-text file per month so individual
// files stay small and ranges export cheaply. Files contain raw log lines,
// byte for byte, one per line; the format doubles as the backup/export
// payload and must stay stable across versions.
//
// Deduplication is content based: VRChat truncates and rewrites its log
// files unpredictably, so callers re-read whole files and the ledger keeps a
// SHA-256 set per partition to make repeated appends idempotent. The set for
// a partition is built lazily the first time an append touches that month,
// which bounds the working set to the months present in one batch rather
// than the full history.
package logstore

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/graaaaa/vrcphoto-companion/internal/logline"
)

// PartitionFormat is the month layout used in partition file names.
const PartitionFormat = "2006-01"

const filePrefix = "logStore-"

// ErrStop can be returned from a ReadRange callback to stop iteration early
// without surfacing an error.
var ErrStop = errors.New("stop iteration")

// Line is one raw log line destined for the ledger. Timestamp decides the
// partition and must be the timestamp parsed from the line itself.
type Line struct {
	Content   string
	Timestamp time.Time
}

// Store is a month-partitioned append-only line ledger rooted at one
// directory. Safe for concurrent use.
type Store struct {
	dir    string
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]map[string]struct{} // partition -> set of line content hashes
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger for the Store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Open opens (creating if needed) a ledger rooted at dir.
func Open(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log store dir %q: %w", dir, err)
	}
	s := &Store{
		dir:    dir,
		logger: slog.Default(),
		seen:   make(map[string]map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Dir returns the ledger root directory.
func (s *Store) Dir() string { return s.dir }

// Append inserts the given lines, skipping any whose exact content is
// already present in the target partition. Returns the subset of lines
// actually written, in partition-then-input order; callers use it to derive
// only from data that is now durable. Safe to call repeatedly with
// overlapping input.
//
// A write failure on one partition does not affect the others; the returned
// error joins the per-partition failures while the appended subset still
// reflects what was written elsewhere.
func (s *Store) Append(ctx context.Context, lines []Line) ([]Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Group by partition, preserving input order within each.
	order := make([]string, 0, 4)
	byPart := make(map[string][]Line)
	for _, ln := range lines {
		content := strings.TrimRight(ln.Content, "\r\n")
		if content == "" || ln.Timestamp.IsZero() {
			continue
		}
		part := ln.Timestamp.Format(PartitionFormat)
		if _, ok := byPart[part]; !ok {
			order = append(order, part)
		}
		byPart[part] = append(byPart[part], Line{Content: content, Timestamp: ln.Timestamp})
	}
	sort.Strings(order)

	var appended []Line
	var errs []error
	for _, part := range order {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		written, err := s.appendPartition(part, byPart[part])
		appended = append(appended, written...)
		if err != nil {
			errs = append(errs, fmt.Errorf("partition %s: %w", part, err))
		}
	}
	return appended, errors.Join(errs...)
}

func (s *Store) appendPartition(part string, lines []Line) ([]Line, error) {
	set, err := s.partitionSet(part)
	if err != nil {
		return nil, err
	}

	path := s.partitionPath(part)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	// On any write failure the whole partition batch is reported as not
	// appended and its keys are rolled back from the in-memory set, so a
	// later retry is not blocked by lines that never reached disk.
	var appended []Line
	var addedKeys []string
	rollback := func() {
		for _, key := range addedKeys {
			delete(set, key)
		}
	}

	w := bufio.NewWriter(f)
	for _, ln := range lines {
		key := hashLine(ln.Content)
		if _, dup := set[key]; dup {
			continue
		}
		if _, err := w.WriteString(ln.Content + "\n"); err != nil {
			rollback()
			return nil, fmt.Errorf("write: %w", err)
		}
		set[key] = struct{}{}
		addedKeys = append(addedKeys, key)
		appended = append(appended, ln)
	}
	if err := w.Flush(); err != nil {
		rollback()
		return nil, fmt.Errorf("flush: %w", err)
	}
	if err := f.Sync(); err != nil {
		rollback()
		return nil, fmt.Errorf("sync: %w", err)
	}
	return appended, nil
}

// partitionSet returns the content-hash set for a partition, building it
// from disk on first use. Caller must hold s.mu.
func (s *Store) partitionSet(part string) (map[string]struct{}, error) {
	if set, ok := s.seen[part]; ok {
		return set, nil
	}

	set := make(map[string]struct{})
	f, err := os.Open(s.partitionPath(part))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.seen[part] = set
			return set, nil
		}
		return nil, fmt.Errorf("open for index: %w", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		set[hashLine(line)] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("index scan: %w", err)
	}

	s.seen[part] = set
	return set, nil
}

// ReadRange streams stored lines whose timestamps fall in [start, end) to fn
// in ascending time order. Zero start or end means unbounded on that side.
// Lines that no longer parse (a truncated trailing write, stray bytes) are
// dropped with a debug log, not treated as fatal.
//
// fn may return ErrStop to end iteration early; any other error aborts and
// is returned. Each call re-opens the files, so iteration is restartable.
func (s *Store) ReadRange(ctx context.Context, start, end time.Time, fn func(line string, ts time.Time) error) error {
	parts, err := s.partitionsInRange(start, end)
	if err != nil {
		return err
	}

	for _, part := range parts {
		if err := ctx.Err(); err != nil {
			return err
		}
		stop, err := s.readPartition(part, start, end, fn)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
	}
	return nil
}

func (s *Store) readPartition(part string, start, end time.Time, fn func(string, time.Time) error) (stopped bool, err error) {
	f, err := os.Open(s.partitionPath(part))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("open partition %s: %w", part, err)
	}
	defer f.Close()

	// File order is append order, and later syncs may append lines with
	// earlier timestamps (overlapping logs from a second install). Collect
	// the in-range lines and sort before yielding; the buffer is bounded by
	// one month of lines.
	var buf []Line
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		ev, ok := logline.Parse(line)
		if !ok {
			s.logger.Debug("dropping unparseable ledger line",
				"partition", part,
				"line_length", len(line),
			)
			continue
		}
		if !start.IsZero() && ev.Timestamp.Before(start) {
			continue
		}
		if !end.IsZero() && !ev.Timestamp.Before(end) {
			continue
		}
		buf = append(buf, Line{Content: line, Timestamp: ev.Timestamp})
	}
	if err := sc.Err(); err != nil {
		return false, fmt.Errorf("scan partition %s: %w", part, err)
	}

	sort.SliceStable(buf, func(i, j int) bool {
		return buf[i].Timestamp.Before(buf[j].Timestamp)
	})
	for _, ln := range buf {
		if err := fn(ln.Content, ln.Timestamp); err != nil {
			if errors.Is(err, ErrStop) {
				return true, nil
			}
			return false, err
		}
	}
	return false, nil
}

// ImportFiles merges lines from externally exported ledger files, applying
// the same content dedup rule. Lines that do not parse as log events are
// skipped silently. Returns the number of lines actually appended.
func (s *Store) ImportFiles(ctx context.Context, paths []string) (int, error) {
	total := 0
	var errs []error
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		lines, err := readEventLines(path)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		appended, err := s.Append(ctx, lines)
		total += len(appended)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}

func readEventLines(path string) ([]Line, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open import file: %w", err)
	}
	defer f.Close()

	var lines []Line
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		ev, ok := logline.Parse(line)
		if !ok {
			continue
		}
		lines = append(lines, Line{Content: line, Timestamp: ev.Timestamp})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan import file %q: %w", path, err)
	}
	return lines, nil
}

// PartitionFiles returns the paths of partition files overlapping
// [start, end), ascending by month. Used by export.
func (s *Store) PartitionFiles(start, end time.Time) ([]string, error) {
	parts, err := s.partitionsInRange(start, end)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(parts))
	for _, part := range parts {
		paths = append(paths, s.partitionPath(part))
	}
	return paths, nil
}

func (s *Store) partitionsInRange(start, end time.Time) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read log store dir: %w", err)
	}

	var parts []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".txt") {
			continue
		}
		part := strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), ".txt")
		month, err := time.ParseInLocation(PartitionFormat, part, time.Local)
		if err != nil {
			s.logger.Warn("ignoring malformed partition file", "name", name)
			continue
		}
		monthEnd := month.AddDate(0, 1, 0)
		if !start.IsZero() && monthEnd.Before(start) {
			continue
		}
		if !end.IsZero() && !month.Before(end) {
			continue
		}
		parts = append(parts, part)
	}

	// Lexicographic order of yyyy-MM is chronological.
	sort.Strings(parts)
	return parts, nil
}

func (s *Store) partitionPath(part string) string {
	return filepath.Join(s.dir, filePrefix+part+".txt")
}

func hashLine(content string) string {
	h := sha256.Sum256([]byte(content))
	return hex.EncodeToString(h[:])
}
