package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(world string, joinTs time.Time) *Session {
	return &Session{
		WorldID:   world,
		JoinTs:    joinTs,
		CreatedAt: time.Now().UTC(),
	}
}

func mustUpsertSession(t *testing.T, s *Store, sess *Session) *Session {
	t.Helper()
	if _, err := s.UpsertSession(context.Background(), sess); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	return sess
}

func TestOpen_CreatesDatabase(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.sqlite")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("database file was not created")
	}

	journalMode, err := s.journalMode()
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q, want %q", journalMode, "wal")
	}
}

func TestOpen_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.sqlite")

	s, err := Open(dbPath)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	mustUpsertSession(t, s, testSession("wrld_a", time.Now().UTC()))
	s.Close()

	// Reopening must not re-run destructive migrations.
	s, err = Open(dbPath)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	defer s.Close()

	count, err := s.CountSessions(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count after reopen = %d, want 1", count)
	}
}

func TestTimeFormat_LexicographicOrdering(t *testing.T) {
	t1 := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	t3 := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	s1 := t1.Format(TimeFormat)
	s2 := t2.Format(TimeFormat)
	s3 := t3.Format(TimeFormat)

	if !(s1 < s2 && s2 < s3) {
		t.Errorf("formatted timestamps not lexicographically ordered: %q %q %q", s1, s2, s3)
	}
	if len(s1) != len(s2) || len(s2) != len(s3) {
		t.Error("formatted timestamps must be fixed width")
	}
}
