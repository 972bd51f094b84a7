package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"playshelf/cache"
	"playshelf/config"
	"playshelf/core/meta"
	"playshelf/core/player"
	"playshelf/core/scanner"
	"playshelf/core/session"
	"playshelf/db"
	"playshelf/logger"
	"playshelf/repository"

	"github.com/gorilla/mux"
)

// Start initializes every subsystem and runs the HTTP server until an
// interrupt arrives.
func Start() {
	cfg := config.Load()

	logger.Init(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    50,
		MaxBackups: 5,
		MaxAge:     14,
		Compress:   true,
	})

	server := &http.Server{
		Addr:         cfg.ListenAddr,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	if err := db.ConnectDB(cfg); err != nil {
		logger.Fatal("failed to connect to database", logger.ErrorField(err))
	}
	defer db.DB.Close()

	if err := db.InitDB(); err != nil {
		logger.Fatal("failed to initialize database schema", logger.ErrorField(err))
	}

	if cfg.RedisHost != "" {
		if err := db.ConnectRedis(cfg); err != nil {
			logger.Warn("redis unavailable, recently-played mirror disabled",
				logger.ErrorField(err))
		} else {
			defer db.CloseRedis()
		}
	}

	trackRepo := repository.NewSQLTrackRepository(db.DB)
	progressRepo := repository.NewSQLProgressRepository(db.DB)
	countRepo := repository.NewSQLFileCountRepository(db.DB)
	progressCache := cache.NewProgressCache(db.RedisClient)

	extractor := meta.NewTagExtractor()
	libScanner := scanner.NewScanner(cfg, extractor, trackRepo, countRepo)

	// Progress writes go to the database; the Redis mirror, when enabled,
	// additionally feeds the recently-played view.
	var sink session.ProgressSink
	if progressCache.Enabled() {
		sink = progressCache
	}

	clockPlayer := player.NewClockPlayer()
	controller := session.NewController(clockPlayer, trackRepo, progressRepo, extractor, sink)
	go controller.Run()
	defer controller.Close()

	hub := NewStateHub(controller)
	go hub.Run()
	defer hub.Stop()

	// Refresh every library on startup so stale rows from offline file
	// changes never survive past boot.
	go libScanner.CheckAll()

	var mediaWatcher *scanner.Watcher
	if cfg.WatchMedia {
		var err error
		mediaWatcher, err = scanner.NewWatcher(libScanner)
		if err != nil {
			logger.Warn("media watcher disabled", logger.ErrorField(err))
		} else {
			go mediaWatcher.Run()
			defer mediaWatcher.Stop()
		}
	}

	apiHandler := NewAPIHandler(trackRepo, progressRepo, libScanner, controller, progressCache, hub)

	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, HEAD")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	})

	// Library endpoints.
	router.HandleFunc("/api/library/{type}", apiHandler.GetLibraryHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/library/{type}", apiHandler.DeleteLibraryHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/library", apiHandler.DeleteAllLibrariesHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/library/rescan", apiHandler.RescanHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/tracks", apiHandler.GetPlaylistTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/progress/recent", apiHandler.RecentProgressHandler).Methods(http.MethodGet)

	// Playback session endpoints.
	router.HandleFunc("/api/session", apiHandler.SessionStateHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/session/activate", apiHandler.ActivateHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/session/play", apiHandler.PlayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/session/pause", apiHandler.PauseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/session/replay", apiHandler.ReplayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/session/seek", apiHandler.SeekHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/session/next-chapter", apiHandler.NextChapterHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/session/previous-chapter", apiHandler.PreviousChapterHandler).Methods(http.MethodPost)

	// Live state subscription.
	router.HandleFunc("/ws/session", apiHandler.SessionStateWSHandler)

	server.Handler = router

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", logger.ErrorField(err))
	}

	logger.Info("server stopped")
}
