package server

import (
	"encoding/json"
	"net/http"

	"playshelf/model"
)

// activateRequest is the body of POST /api/session/activate.
type activateRequest struct {
	ID        string `json:"id"`
	MediaType string `json:"mediaType"`
}

// seekRequest is the body of POST /api/session/seek.
type seekRequest struct {
	PositionMs int64 `json:"positionMs"`
}

// Session command endpoints answer with the post-command state snapshot.
// Failures behind a command are absorbed by the controller, so the
// endpoints stay 200 and the snapshot is what tells the UI what happened.

func (h *APIHandler) ActivateHandler(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	// The media type is validated here for the sake of a clear 400, but
	// resolution is by id alone. Track ids are globally unique and playlist
	// ids already carry their type's tracks.
	if req.MediaType != "" {
		if _, err := model.ParseMediaType(req.MediaType); err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	h.controller.Activate(req.ID)
	respondJSON(w, http.StatusOK, h.controller.CurrentState())
}

func (h *APIHandler) PlayHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.Play()
	respondJSON(w, http.StatusOK, h.controller.CurrentState())
}

func (h *APIHandler) PauseHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.Pause()
	respondJSON(w, http.StatusOK, h.controller.CurrentState())
}

func (h *APIHandler) ReplayHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.Replay()
	respondJSON(w, http.StatusOK, h.controller.CurrentState())
}

func (h *APIHandler) SeekHandler(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid seek request")
		return
	}
	h.controller.SeekTo(req.PositionMs)
	respondJSON(w, http.StatusOK, h.controller.CurrentState())
}

func (h *APIHandler) NextChapterHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.SkipToNextChapter()
	respondJSON(w, http.StatusOK, h.controller.CurrentState())
}

func (h *APIHandler) PreviousChapterHandler(w http.ResponseWriter, r *http.Request) {
	h.controller.SkipToPreviousChapter()
	respondJSON(w, http.StatusOK, h.controller.CurrentState())
}

func (h *APIHandler) SessionStateHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.controller.CurrentState())
}
