package repository

import (
	"database/sql"
	"testing"

	"playshelf/db"
	"playshelf/model"

	_ "modernc.org/sqlite"
)

// createTestDB opens an in-memory SQLite database with the full schema.
func createTestDB(t *testing.T) *sql.DB {
	t.Helper()

	handle, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { handle.Close() })

	if err := db.InitSchema(handle); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	return handle
}

func testTrack(id, playlistID string, mediaType model.MediaType, trackNumber int) *model.Track {
	return &model.Track{
		ID:          id,
		PlaylistID:  playlistID,
		MediaType:   mediaType,
		Title:       "Track " + id,
		Artist:      "Unknown Artist",
		TrackNumber: trackNumber,
		SourceURI:   "file:///media/" + playlistID + "/" + id + ".mp3",
	}
}
