package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"playshelf/cache"
	"playshelf/core/scanner"
	"playshelf/core/session"
	"playshelf/logger"
	"playshelf/model"
	"playshelf/repository"

	"github.com/gorilla/mux"
)

// APIHandler handles all API requests.
type APIHandler struct {
	trackRepo     repository.TrackRepository
	progressRepo  repository.ProgressRepository
	scanner       *scanner.Scanner
	controller    *session.Controller
	progressCache *cache.ProgressCache
	hub           *StateHub
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	trackRepo repository.TrackRepository,
	progressRepo repository.ProgressRepository,
	libScanner *scanner.Scanner,
	controller *session.Controller,
	progressCache *cache.ProgressCache,
	hub *StateHub,
) *APIHandler {
	return &APIHandler{
		trackRepo:     trackRepo,
		progressRepo:  progressRepo,
		scanner:       libScanner,
		controller:    controller,
		progressCache: progressCache,
		hub:           hub,
	}
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to encode response", logger.ErrorField(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// GetLibraryHandler returns every track of one media type, ordered by
// playlist then track number.
func (h *APIHandler) GetLibraryHandler(w http.ResponseWriter, r *http.Request) {
	mediaType, err := model.ParseMediaType(mux.Vars(r)["type"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	tracks, err := h.trackRepo.GetTracksByMediaType(mediaType)
	if err != nil {
		logger.Error("failed to list library", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list library")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// GetPlaylistTracksHandler returns one playlist's tracks in track order.
func (h *APIHandler) GetPlaylistTracksHandler(w http.ResponseWriter, r *http.Request) {
	playlistID := mux.Vars(r)["id"]

	tracks, err := h.trackRepo.GetTracksByPlaylist(playlistID)
	if err != nil {
		logger.Error("failed to list playlist tracks",
			logger.String("playlistId", playlistID), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list playlist tracks")
		return
	}
	respondJSON(w, http.StatusOK, tracks)
}

// RescanHandler runs the freshness check for one media type (or all types
// when none is given); force=1 skips the check. Safe to invoke repeatedly.
func (h *APIHandler) RescanHandler(w http.ResponseWriter, r *http.Request) {
	force := r.URL.Query().Get("force") == "1"

	var types []model.MediaType
	if typeParam := r.URL.Query().Get("type"); typeParam != "" {
		mediaType, err := model.ParseMediaType(typeParam)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		types = []model.MediaType{mediaType}
	} else {
		types = model.AllMediaTypes
	}

	result := make(map[string]bool, len(types))
	for _, mediaType := range types {
		if force {
			if err := h.scanner.ForceRescan(mediaType); err != nil {
				logger.Error("forced rescan failed",
					logger.String("mediaType", string(mediaType)), logger.ErrorField(err))
				respondError(w, http.StatusInternalServerError, "rescan failed")
				return
			}
			result[string(mediaType)] = true
			continue
		}
		rescanned, err := h.scanner.CheckAndRescanIfChanged(mediaType)
		if err != nil {
			logger.Error("rescan failed",
				logger.String("mediaType", string(mediaType)), logger.ErrorField(err))
			respondError(w, http.StatusInternalServerError, "rescan failed")
			return
		}
		result[string(mediaType)] = rescanned
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"rescanned": result})
}

// DeleteLibraryHandler wipes the index for one media type. Progress records
// are retained; track identity is stable so they reattach after the next
// scan.
func (h *APIHandler) DeleteLibraryHandler(w http.ResponseWriter, r *http.Request) {
	mediaType, err := model.ParseMediaType(mux.Vars(r)["type"])
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.scanner.ClearLibrary(mediaType); err != nil {
		logger.Error("failed to clear library",
			logger.String("mediaType", string(mediaType)), logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to clear library")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

// DeleteAllLibrariesHandler wipes the entire index across media types.
func (h *APIHandler) DeleteAllLibrariesHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.trackRepo.DeleteAll(); err != nil {
		logger.Error("failed to delete library index", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to delete library index")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// RecentProgressHandler returns progress records, most recent first.
// Served from the Redis mirror when available, falling back to the
// database.
func (h *APIHandler) RecentProgressHandler(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	if h.progressCache.Enabled() {
		records, err := h.progressCache.RecentlyPlayed(r.Context(), limit)
		if err == nil {
			respondJSON(w, http.StatusOK, records)
			return
		}
		logger.Warn("progress cache read failed, falling back to database",
			logger.ErrorField(err))
	}

	records, err := h.progressRepo.ListAllProgress()
	if err != nil {
		logger.Error("failed to list progress", logger.ErrorField(err))
		respondError(w, http.StatusInternalServerError, "failed to list progress")
		return
	}
	if len(records) > limit {
		records = records[:limit]
	}
	respondJSON(w, http.StatusOK, records)
}
