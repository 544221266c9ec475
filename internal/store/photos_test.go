package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPhoto(path string, takenAt time.Time) *Photo {
	now := time.Now().UTC()
	return &Photo{
		Path:      path,
		TakenAt:   takenAt,
		Width:     1920,
		Height:    1080,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestUpsertPhoto_RescanIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	takenAt := time.Date(2024, 1, 15, 10, 15, 30, 0, time.UTC)

	p := testPhoto("/pics/a.png", takenAt)
	changed, err := s.UpsertPhoto(ctx, p)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if !changed {
		t.Error("first upsert should report a change")
	}

	// Same metadata again must not touch the row.
	again := testPhoto("/pics/a.png", takenAt)
	changed, err = s.UpsertPhoto(ctx, again)
	if err != nil {
		t.Fatalf("rescan upsert: %v", err)
	}
	if changed {
		t.Error("unchanged rescan should be a no-op")
	}

	// Changed metadata updates in place without a second row.
	renamed := testPhoto("/pics/a.png", takenAt.Add(time.Second))
	changed, err = s.UpsertPhoto(ctx, renamed)
	if err != nil {
		t.Fatalf("changed upsert: %v", err)
	}
	if !changed {
		t.Error("metadata change should report a change")
	}

	count, err := s.CountPhotos(ctx, PhotoFilter{})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}

func TestUpsertPhoto_Validation(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	bad := []*Photo{
		{TakenAt: now, Width: 1, Height: 1, CreatedAt: now, UpdatedAt: now},
		{Path: "/p", Width: 1, Height: 1, CreatedAt: now, UpdatedAt: now},
		{Path: "/p", TakenAt: now, Width: 0, Height: 1080, CreatedAt: now, UpdatedAt: now},
	}
	for i, p := range bad {
		if _, err := s.UpsertPhoto(ctx, p); !errors.Is(err, ErrInvalidPhoto) {
			t.Errorf("case %d: err = %v, want ErrInvalidPhoto", i, err)
		}
	}
}

func TestListPhotosInRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	for i, path := range []string{"/pics/a.png", "/pics/b.png", "/pics/c.png"} {
		if _, err := s.UpsertPhoto(ctx, testPhoto(path, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("upsert %s: %v", path, err)
		}
	}

	// [base+1h, base+2h) holds exactly the middle photo.
	photos, err := s.ListPhotosInRange(ctx, base.Add(time.Hour), base.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(photos) != 1 || photos[0].Path != "/pics/b.png" {
		t.Errorf("photos = %+v, want only b.png", photos)
	}

	count, err := s.CountPhotos(ctx, PhotoFilter{Since: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count since base+1h = %d, want 2", count)
	}
}

func TestDeletePhoto(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.UpsertPhoto(ctx, testPhoto("/pics/a.png", time.Now().UTC())); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	deleted, err := s.DeletePhoto(ctx, "/pics/a.png")
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !deleted {
		t.Error("expected delete to remove a row")
	}

	deleted, err = s.DeletePhoto(ctx, "/pics/a.png")
	if err != nil {
		t.Fatalf("second delete: %v", err)
	}
	if deleted {
		t.Error("second delete should be a no-op")
	}
}

func TestForEachPhotoPath(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i, path := range []string{"/pics/b.png", "/pics/a.png"} {
		if _, err := s.UpsertPhoto(ctx, testPhoto(path, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	var paths []string
	err := s.ForEachPhotoPath(ctx, func(path string) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		t.Fatalf("ForEachPhotoPath: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/pics/a.png" || paths[1] != "/pics/b.png" {
		t.Errorf("paths = %v, want ascending by path", paths)
	}
}
