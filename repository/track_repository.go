package repository

import (
	"database/sql"
	"fmt"

	"playshelf/model"
)

// TrackRepository defines the interface for library index operations.
// There is deliberately no update-in-place: all mutation goes through
// ReplaceTracks so the index stays scan-derived.
type TrackRepository interface {
	ReplaceTracks(mediaType model.MediaType, tracks []*model.Track) error
	GetTrackByID(id string) (*model.Track, error)
	GetTracksByMediaType(mediaType model.MediaType) ([]*model.Track, error)
	GetTracksByPlaylist(playlistID string) ([]*model.Track, error)
	DeleteAll() error
}

// sqlTrackRepository implements TrackRepository over database/sql.
type sqlTrackRepository struct {
	DB *sql.DB
}

// NewSQLTrackRepository creates a new instance of sqlTrackRepository.
func NewSQLTrackRepository(db *sql.DB) TrackRepository {
	return &sqlTrackRepository{DB: db}
}

const trackColumns = `id, playlist_id, media_type, title, artist, track_number, source_uri`

// ReplaceTracks atomically swaps the whole index for one media type: all
// prior tracks of that type are deleted and the new batch inserted in a
// single transaction, so a reader never observes the empty intermediate
// state.
func (r *sqlTrackRepository) ReplaceTracks(mediaType model.MediaType, tracks []*model.Track) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for ReplaceTracks: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM tracks WHERE media_type = ?`, string(mediaType)); err != nil {
		return fmt.Errorf("failed to delete tracks for media type %s: %w", mediaType, err)
	}

	stmt, err := tx.Prepare(`INSERT INTO tracks (` + trackColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert for ReplaceTracks: %w", err)
	}
	defer stmt.Close()

	for _, track := range tracks {
		if _, err := stmt.Exec(track.ID, track.PlaylistID, string(track.MediaType),
			track.Title, track.Artist, track.TrackNumber, track.SourceURI); err != nil {
			return fmt.Errorf("failed to insert track %s: %w", track.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit ReplaceTracks: %w", err)
	}
	return nil
}

// GetTrackByID retrieves a track by its ID. Returns nil when not found.
func (r *sqlTrackRepository) GetTrackByID(id string) (*model.Track, error) {
	row := r.DB.QueryRow(`SELECT `+trackColumns+` FROM tracks WHERE id = ?`, id)

	track, err := scanTrack(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan track by ID %s: %w", id, err)
	}
	return track, nil
}

// GetTracksByMediaType retrieves all tracks of a media type, ordered by
// playlist then track number.
func (r *sqlTrackRepository) GetTracksByMediaType(mediaType model.MediaType) ([]*model.Track, error) {
	rows, err := r.DB.Query(`SELECT `+trackColumns+` FROM tracks
		WHERE media_type = ? ORDER BY playlist_id, track_number ASC`, string(mediaType))
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for media type %s: %w", mediaType, err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

// GetTracksByPlaylist retrieves all tracks of one playlist, ordered by
// track number.
func (r *sqlTrackRepository) GetTracksByPlaylist(playlistID string) ([]*model.Track, error) {
	rows, err := r.DB.Query(`SELECT `+trackColumns+` FROM tracks
		WHERE playlist_id = ? ORDER BY track_number ASC`, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks for playlist %s: %w", playlistID, err)
	}
	defer rows.Close()

	return collectTracks(rows)
}

// DeleteAll removes every track in the index.
func (r *sqlTrackRepository) DeleteAll() error {
	if _, err := r.DB.Exec(`DELETE FROM tracks`); err != nil {
		return fmt.Errorf("failed to delete all tracks: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrack(row rowScanner) (*model.Track, error) {
	track := &model.Track{}
	var mediaType string
	if err := row.Scan(&track.ID, &track.PlaylistID, &mediaType,
		&track.Title, &track.Artist, &track.TrackNumber, &track.SourceURI); err != nil {
		return nil, err
	}
	track.MediaType = model.MediaType(mediaType)
	return track, nil
}

func collectTracks(rows *sql.Rows) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0)
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan track row: %w", err)
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during track rows iteration: %w", err)
	}
	return tracks, nil
}
