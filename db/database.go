package db

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"playshelf/config"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "modernc.org/sqlite"             // pure-Go SQLite driver
)

var DB *sql.DB

// ConnectDB establishes a connection to the configured database. The
// default driver is the embedded SQLite database; MySQL is available for
// setups that already run one.
func ConnectDB(cfg *config.Config) error {
	var (
		driver string
		dsn    string
	)

	switch cfg.DBDriver {
	case "mysql":
		driver = "mysql"
		dsn = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	case "sqlite", "":
		driver = "sqlite"
		if dir := filepath.Dir(cfg.SQLitePath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.SQLitePath)
	default:
		return fmt.Errorf("unsupported database driver: %q", cfg.DBDriver)
	}

	var err error
	DB, err = sql.Open(driver, dsn)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	if err = DB.Ping(); err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// InitDB initializes the database schema, creating tables if they don't exist.
func InitDB() error {
	return InitSchema(DB)
}

// InitSchema creates the schema on the given handle. Split out from InitDB
// so tests can run against their own in-memory databases.
func InitSchema(handle *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS tracks (
			id VARCHAR(512) PRIMARY KEY,
			playlist_id VARCHAR(255) NOT NULL,
			media_type VARCHAR(32) NOT NULL,
			title VARCHAR(512) NOT NULL,
			artist VARCHAR(512),
			track_number INTEGER NOT NULL,
			source_uri VARCHAR(1024) NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_media_type ON tracks (media_type, playlist_id, track_number)`,
		`CREATE INDEX IF NOT EXISTS idx_tracks_playlist ON tracks (playlist_id, track_number)`,
		`CREATE TABLE IF NOT EXISTS playback_progress (
			playlist_id VARCHAR(255) PRIMARY KEY,
			track_index INTEGER NOT NULL DEFAULT 0,
			position_ms BIGINT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS file_counts (
			media_type VARCHAR(32) PRIMARY KEY,
			count INTEGER NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := handle.Exec(stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
