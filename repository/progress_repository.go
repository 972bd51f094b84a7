package repository

import (
	"database/sql"
	"fmt"
	"time"

	"playshelf/model"
)

// ProgressRepository persists resume positions, one record per playlist.
type ProgressRepository interface {
	SaveProgress(progress *model.Progress) error
	LoadProgress(playlistID string) (*model.Progress, error)
	ListAllProgress() ([]*model.Progress, error)
}

// sqlProgressRepository implements ProgressRepository over database/sql.
type sqlProgressRepository struct {
	DB *sql.DB
}

// NewSQLProgressRepository creates a new instance of sqlProgressRepository.
func NewSQLProgressRepository(db *sql.DB) ProgressRepository {
	return &sqlProgressRepository{DB: db}
}

// SaveProgress upserts the progress record for a playlist, replacing any
// prior record. No history is retained.
func (r *sqlProgressRepository) SaveProgress(progress *model.Progress) error {
	updatedAt := progress.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for SaveProgress: %w", err)
	}
	defer tx.Rollback()

	// Delete-then-insert keeps the upsert portable across sqlite and mysql.
	if _, err := tx.Exec(`DELETE FROM playback_progress WHERE playlist_id = ?`, progress.PlaylistID); err != nil {
		return fmt.Errorf("failed to clear prior progress for %s: %w", progress.PlaylistID, err)
	}
	if _, err := tx.Exec(`INSERT INTO playback_progress (playlist_id, track_index, position_ms, updated_at)
		VALUES (?, ?, ?, ?)`,
		progress.PlaylistID, progress.TrackIndex, progress.PositionMs, updatedAt); err != nil {
		return fmt.Errorf("failed to insert progress for %s: %w", progress.PlaylistID, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit SaveProgress: %w", err)
	}
	return nil
}

// LoadProgress retrieves the last saved progress for a playlist. Returns
// nil when no progress has been saved yet.
func (r *sqlProgressRepository) LoadProgress(playlistID string) (*model.Progress, error) {
	row := r.DB.QueryRow(`SELECT playlist_id, track_index, position_ms, updated_at
		FROM playback_progress WHERE playlist_id = ?`, playlistID)

	progress := &model.Progress{}
	if err := row.Scan(&progress.PlaylistID, &progress.TrackIndex, &progress.PositionMs, &progress.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan progress for %s: %w", playlistID, err)
	}
	return progress, nil
}

// ListAllProgress retrieves every progress record, most recently updated
// first. Backs the recently-played view.
func (r *sqlProgressRepository) ListAllProgress() ([]*model.Progress, error) {
	rows, err := r.DB.Query(`SELECT playlist_id, track_index, position_ms, updated_at
		FROM playback_progress ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query progress records: %w", err)
	}
	defer rows.Close()

	records := make([]*model.Progress, 0)
	for rows.Next() {
		progress := &model.Progress{}
		if err := rows.Scan(&progress.PlaylistID, &progress.TrackIndex, &progress.PositionMs, &progress.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress row: %w", err)
		}
		records = append(records, progress)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error during progress rows iteration: %w", err)
	}
	return records, nil
}
