package logstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func testLine(t *testing.T, ts time.Time, text string) Line {
	t.Helper()
	content := fmt.Sprintf("%s Log        -  [Behaviour] %s", ts.Format("2006.01.02 15:04:05"), text)
	return Line{Content: content, Timestamp: ts}
}

func playerJoinAt(t *testing.T, ts time.Time, name string) Line {
	t.Helper()
	return testLine(t, ts, "OnPlayerJoined "+name)
}

func TestAppend_Dedupes(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local)
	lines := []Line{
		playerJoinAt(t, ts, "Alice"),
		playerJoinAt(t, ts.Add(time.Minute), "Bob"),
	}

	appended, err := store.Append(ctx, lines)
	if err != nil {
		t.Fatalf("first append: %v", err)
	}
	if len(appended) != 2 {
		t.Fatalf("first append wrote %d lines, want 2", len(appended))
	}

	// The same batch again should be a no-op.
	appended, err = store.Append(ctx, lines)
	if err != nil {
		t.Fatalf("second append: %v", err)
	}
	if len(appended) != 0 {
		t.Errorf("second append wrote %d lines, want 0", len(appended))
	}
}

func TestAppend_DedupeSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	ts := time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local)
	line := playerJoinAt(t, ts, "Alice")

	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := store.Append(ctx, []Line{line}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// A fresh Store rebuilds the hash set from disk.
	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	appended, err := reopened.Append(ctx, []Line{line})
	if err != nil {
		t.Fatalf("append after reopen: %v", err)
	}
	if len(appended) != 0 {
		t.Errorf("append after reopen wrote %d lines, want 0", len(appended))
	}
}

func TestAppend_PartitionsByMonth(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	jan := time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local)
	feb := time.Date(2024, 2, 2, 12, 0, 0, 0, time.Local)
	_, err = store.Append(ctx, []Line{
		playerJoinAt(t, jan, "Alice"),
		playerJoinAt(t, feb, "Bob"),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	for _, name := range []string{"logStore-2024-01.txt", "logStore-2024-02.txt"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected partition file %s: %v", name, err)
		}
	}
}

func TestAppend_SkipsEmptyAndZeroTimestamp(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	appended, err := store.Append(context.Background(), []Line{
		{Content: "", Timestamp: time.Now()},
		{Content: "something", Timestamp: time.Time{}},
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if len(appended) != 0 {
		t.Errorf("appended %d lines, want 0", len(appended))
	}
}

func TestReadRange_OrderAndBounds(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local)
	_, err = store.Append(ctx, []Line{
		playerJoinAt(t, base.AddDate(0, 1, 0), "Carol"), // february
		playerJoinAt(t, base, "Alice"),
		playerJoinAt(t, base.Add(time.Hour), "Bob"),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	var got []time.Time
	err = store.ReadRange(ctx, base.Add(30*time.Minute), time.Time{}, func(line string, ts time.Time) error {
		got = append(got, ts)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}

	want := []time.Time{base.Add(time.Hour), base.AddDate(0, 1, 0)}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("line %d ts = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadRange_SortsLaterAppendedEarlierLines(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	// A second sync can append lines older than ones already on disk, for
	// example logs copied over from another install. Read order must still
	// be chronological, not file order.
	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local)
	if _, err := store.Append(ctx, []Line{playerJoinAt(t, base, "Alice")}); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if _, err := store.Append(ctx, []Line{playerJoinAt(t, base.Add(-time.Hour), "Bob")}); err != nil {
		t.Fatalf("second append: %v", err)
	}

	var got []time.Time
	err = store.ReadRange(ctx, time.Time{}, time.Time{}, func(line string, ts time.Time) error {
		got = append(got, ts)
		return nil
	})
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}

	want := []time.Time{base.Add(-time.Hour), base}
	if len(got) != len(want) {
		t.Fatalf("got %d lines, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("line %d ts = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestReadRange_ErrStop(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local)
	_, err = store.Append(ctx, []Line{
		playerJoinAt(t, base, "Alice"),
		playerJoinAt(t, base.Add(time.Minute), "Bob"),
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	seen := 0
	err = store.ReadRange(ctx, time.Time{}, time.Time{}, func(line string, ts time.Time) error {
		seen++
		return ErrStop
	})
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if seen != 1 {
		t.Errorf("callback ran %d times, want 1", seen)
	}
}

func TestReadRange_DropsCorruptLine(t *testing.T) {
	dir := t.TempDir()
	store, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	ctx := context.Background()

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local)
	if _, err := store.Append(ctx, []Line{playerJoinAt(t, base, "Alice")}); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Simulate a truncated trailing write.
	path := filepath.Join(dir, "logStore-2024-01.txt")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		t.Fatalf("open partition: %v", err)
	}
	if _, err := f.WriteString("2024.01.15 10:0"); err != nil {
		t.Fatalf("write garbage: %v", err)
	}
	f.Close()

	count := 0
	err = store.ReadRange(ctx, time.Time{}, time.Time{}, func(line string, ts time.Time) error {
		count++
		return nil
	})
	if err != nil {
		t.Fatalf("ReadRange: %v", err)
	}
	if count != 1 {
		t.Errorf("got %d lines, want 1 (corrupt line dropped)", count)
	}
}

func TestImportFiles_RoundTrip(t *testing.T) {
	srcDir := t.TempDir()
	src, err := Open(srcDir)
	if err != nil {
		t.Fatalf("Open source: %v", err)
	}
	ctx := context.Background()

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.Local)
	lines := []Line{
		playerJoinAt(t, base, "Alice"),
		playerJoinAt(t, base.Add(time.Minute), "Bob"),
	}
	if _, err := src.Append(ctx, lines); err != nil {
		t.Fatalf("append: %v", err)
	}

	files, err := src.PartitionFiles(time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("PartitionFiles: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d partition files, want 1", len(files))
	}

	dst, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open destination: %v", err)
	}

	imported, err := dst.ImportFiles(ctx, files)
	if err != nil {
		t.Fatalf("ImportFiles: %v", err)
	}
	if imported != 2 {
		t.Errorf("imported %d lines, want 2", imported)
	}

	// Re-import should add nothing.
	imported, err = dst.ImportFiles(ctx, files)
	if err != nil {
		t.Fatalf("second ImportFiles: %v", err)
	}
	if imported != 0 {
		t.Errorf("second import added %d lines, want 0", imported)
	}
}

func TestImportFiles_SkipsNonEventLines(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "export.txt")
	content := strings.Join([]string{
		"not a log line",
		"2024.01.15 10:00:00 Log        -  [Behaviour] OnPlayerJoined Alice",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write export: %v", err)
	}

	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	imported, err := store.ImportFiles(context.Background(), []string{path})
	if err != nil {
		t.Fatalf("ImportFiles: %v", err)
	}
	if imported != 1 {
		t.Errorf("imported %d lines, want 1", imported)
	}
}

func TestImportFiles_MissingFile(t *testing.T) {
	store, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	_, err = store.ImportFiles(context.Background(), []string{"/nonexistent/export.txt"})
	if err == nil {
		t.Error("expected error for missing import file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("error = %v, want wrapped os.ErrNotExist", err)
	}
}
