package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config stores the application configuration. Values come from the
// environment (optionally via a .env file) with sensible local defaults.
type Config struct {
	// MediaRoot is the storage area holding one directory per media type
	// (Audiobooks, Podcasts, Music).
	MediaRoot string

	// Database. Driver is "sqlite" (default, embedded) or "mysql".
	DBDriver   string
	SQLitePath string // used when DBDriver == "sqlite"
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// HTTP server.
	ListenAddr string

	// Rescan the library automatically when files change under MediaRoot.
	WatchMedia bool

	// Optional Redis mirror for the recently-played view. Disabled when
	// RedisHost is empty.
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	// Logging.
	LogLevel string
	LogPath  string
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvInt gets an environment variable as int or returns a default value.
func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return fallback
}

// getEnvBool gets an environment variable as bool or returns a default value.
func getEnvBool(key string, fallback bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}

// Load loads configuration from environment variables (via .env file) or defaults.
func Load() *Config {
	// godotenv.Load() will not override variables already set in the
	// environment.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on existing environment variables and defaults.")
	}

	home, _ := os.UserHomeDir()

	return &Config{
		MediaRoot:  getEnv("MEDIA_ROOT", filepath.Join(home, "Media")),
		DBDriver:   getEnv("DB_DRIVER", "sqlite"),
		SQLitePath: getEnv("SQLITE_PATH", filepath.Join(home, ".playshelf", "playshelf.db")),
		DBHost:     getEnv("DB_HOST", "127.0.0.1"),
		DBPort:     getEnv("DB_PORT", "3306"),
		DBUser:     getEnv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "playshelf"),
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		WatchMedia: getEnvBool("WATCH_MEDIA", true),

		RedisHost:     getEnv("REDIS_HOST", ""),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogPath:  getEnv("LOG_PATH", ""),
	}
}

// MediaTypeDir returns the root directory for the given media type
// directory name under MediaRoot.
func (c *Config) MediaTypeDir(directoryName string) string {
	return filepath.Join(c.MediaRoot, directoryName)
}
