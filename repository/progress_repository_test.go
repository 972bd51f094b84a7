package repository

import (
	"testing"
	"time"

	"playshelf/model"
)

func TestSaveProgressUpserts(t *testing.T) {
	repo := NewSQLProgressRepository(createTestDB(t))

	first := &model.Progress{
		PlaylistID: "book_one",
		TrackIndex: 0,
		PositionMs: 15000,
		UpdatedAt:  time.Now().Add(-time.Hour),
	}
	if err := repo.SaveProgress(first); err != nil {
		t.Fatalf("save: %v", err)
	}

	second := &model.Progress{
		PlaylistID: "book_one",
		TrackIndex: 2,
		PositionMs: 90000,
		UpdatedAt:  time.Now(),
	}
	if err := repo.SaveProgress(second); err != nil {
		t.Fatalf("save again: %v", err)
	}

	got, err := repo.LoadProgress("book_one")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got == nil {
		t.Fatal("expected a progress record")
	}
	if got.TrackIndex != 2 || got.PositionMs != 90000 {
		t.Fatalf("expected the later record to win, got index=%d position=%d",
			got.TrackIndex, got.PositionMs)
	}
}

func TestLoadProgressMissingReturnsNil(t *testing.T) {
	repo := NewSQLProgressRepository(createTestDB(t))

	got, err := repo.LoadProgress("never_played")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for a playlist without progress, got %+v", got)
	}
}

func TestSaveProgressDefaultsUpdatedAt(t *testing.T) {
	repo := NewSQLProgressRepository(createTestDB(t))

	before := time.Now().Add(-time.Second)
	if err := repo.SaveProgress(&model.Progress{
		PlaylistID: "book_one",
		TrackIndex: 0,
		PositionMs: 5000,
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := repo.LoadProgress("book_one")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.UpdatedAt.Before(before) {
		t.Fatalf("expected UpdatedAt to default to now, got %v", got.UpdatedAt)
	}
}

func TestListAllProgressOrdersByRecency(t *testing.T) {
	repo := NewSQLProgressRepository(createTestDB(t))

	now := time.Now()
	records := []*model.Progress{
		{PlaylistID: "oldest", PositionMs: 1000, UpdatedAt: now.Add(-2 * time.Hour)},
		{PlaylistID: "newest", PositionMs: 2000, UpdatedAt: now},
		{PlaylistID: "middle", PositionMs: 3000, UpdatedAt: now.Add(-time.Hour)},
	}
	for _, rec := range records {
		if err := repo.SaveProgress(rec); err != nil {
			t.Fatalf("save %s: %v", rec.PlaylistID, err)
		}
	}

	got, err := repo.ListAllProgress()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	for i, want := range []string{"newest", "middle", "oldest"} {
		if got[i].PlaylistID != want {
			t.Errorf("position %d: expected %s, got %s", i, want, got[i].PlaylistID)
		}
	}
}

func TestFileCountRoundTrip(t *testing.T) {
	repo := NewSQLFileCountRepository(createTestDB(t))

	count, err := repo.GetFileCount(model.MediaTypeAudiobooks)
	if err != nil {
		t.Fatalf("get unset count: %v", err)
	}
	if count != -1 {
		t.Fatalf("expected -1 before any scan, got %d", count)
	}

	if err := repo.SetFileCount(model.MediaTypeAudiobooks, 42); err != nil {
		t.Fatalf("set count: %v", err)
	}
	if err := repo.SetFileCount(model.MediaTypeAudiobooks, 17); err != nil {
		t.Fatalf("overwrite count: %v", err)
	}

	count, err = repo.GetFileCount(model.MediaTypeAudiobooks)
	if err != nil {
		t.Fatalf("get count: %v", err)
	}
	if count != 17 {
		t.Fatalf("expected the latest count, got %d", count)
	}

	// Counts are per media type.
	other, err := repo.GetFileCount(model.MediaTypeMusic)
	if err != nil {
		t.Fatalf("get other type: %v", err)
	}
	if other != -1 {
		t.Fatalf("expected -1 for an unscanned type, got %d", other)
	}
}
