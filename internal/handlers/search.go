package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"studypath-backend/internal/models"
	"studypath-backend/internal/services"
	"studypath-backend/internal/vectorstore"
)

type SearchHandler struct {
	retrieval *services.RetrievalEngine
	coach     *services.CoachService
	store     *vectorstore.Store
}

func NewSearchHandler(retrieval *services.RetrievalEngine, coach *services.CoachService, store *vectorstore.Store) *SearchHandler {
	return &SearchHandler{retrieval: retrieval, coach: coach, store: store}
}

type searchRequest struct {
	Query   string               `json:"query"`
	Filters models.SearchFilters `json:"filters"`
}

// Search runs an ad-hoc recommendation query.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	req.Query = strings.TrimSpace(req.Query)
	if req.Query == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Query is required", r))
		return
	}

	recommendations, err := h.retrieval.Search(r.Context(), req.Query, req.Filters)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("SEARCH_UNAVAILABLE", "Search is temporarily unavailable", r))
		return
	}
	if recommendations == nil {
		recommendations = []*models.Recommendation{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"query":           req.Query,
		"recommendations": recommendations,
	})
}

// Health reports the state of the retrieval stack.
func (h *SearchHandler) Health(w http.ResponseWriter, r *http.Request) {
	health := h.retrieval.Health(r.Context())

	status := http.StatusOK
	if !health.EmbedderLoaded || !health.IndexConnected {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, health)
}

type notesRequest struct {
	VideoID string `json:"video_id"`
	Topic   string `json:"topic"`
	Title   string `json:"title"`
}

// Notes generates markdown study notes for an indexed video, grounded in the
// stored transcript chunks when they exist.
func (h *SearchHandler) Notes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if req.VideoID == "" || req.Topic == "" {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "video_id and topic are required", r))
		return
	}

	transcript := ""
	title := req.Title
	if chunks, err := h.store.GetByVideoID(r.Context(), req.VideoID); err == nil && len(chunks) > 0 {
		parts := make([]string, 0, len(chunks))
		for _, c := range chunks {
			parts = append(parts, c.Text)
		}
		transcript = strings.Join(parts, "\n\n")
		if title == "" {
			title = chunks[0].Title
		}
	}

	notes, err := h.coach.GenerateStudyNotes(r.Context(), req.Topic, title, transcript)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResp("COACH_UNAVAILABLE", "Notes generation is unavailable", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"video_id": req.VideoID,
		"topic":    req.Topic,
		"grounded": transcript != "",
		"notes":    notes,
	})
}
