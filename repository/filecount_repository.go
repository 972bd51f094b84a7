package repository

import (
	"database/sql"
	"fmt"

	"playshelf/model"
)

// FileCountRepository persists the per-media-type file-count fingerprint the
// change detector compares against.
type FileCountRepository interface {
	// GetFileCount returns the last recorded count, or -1 when no count has
	// been recorded for the media type yet.
	GetFileCount(mediaType model.MediaType) (int, error)
	SetFileCount(mediaType model.MediaType, count int) error
}

// sqlFileCountRepository implements FileCountRepository over database/sql.
type sqlFileCountRepository struct {
	DB *sql.DB
}

// NewSQLFileCountRepository creates a new instance of sqlFileCountRepository.
func NewSQLFileCountRepository(db *sql.DB) FileCountRepository {
	return &sqlFileCountRepository{DB: db}
}

func (r *sqlFileCountRepository) GetFileCount(mediaType model.MediaType) (int, error) {
	row := r.DB.QueryRow(`SELECT count FROM file_counts WHERE media_type = ?`, string(mediaType))

	var count int
	if err := row.Scan(&count); err != nil {
		if err == sql.ErrNoRows {
			return -1, nil
		}
		return 0, fmt.Errorf("failed to scan file count for %s: %w", mediaType, err)
	}
	return count, nil
}

func (r *sqlFileCountRepository) SetFileCount(mediaType model.MediaType, count int) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction for SetFileCount: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM file_counts WHERE media_type = ?`, string(mediaType)); err != nil {
		return fmt.Errorf("failed to clear file count for %s: %w", mediaType, err)
	}
	if _, err := tx.Exec(`INSERT INTO file_counts (media_type, count) VALUES (?, ?)`,
		string(mediaType), count); err != nil {
		return fmt.Errorf("failed to insert file count for %s: %w", mediaType, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit SetFileCount: %w", err)
	}
	return nil
}
