package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"studypath-backend/internal/models"
	"studypath-backend/internal/pipeline"
	"studypath-backend/internal/repository"
	"studypath-backend/internal/worker"
)

// IndexHandler is the admin surface for the crawl queue.
type IndexHandler struct {
	videoRepo *repository.VideoRepo
	redis     *redis.Client
}

func NewIndexHandler(videoRepo *repository.VideoRepo, redisClient *redis.Client) *IndexHandler {
	return &IndexHandler{videoRepo: videoRepo, redis: redisClient}
}

type enqueueRequest struct {
	URL              string  `json:"url"`
	Source           string  `json:"source"`
	Topic            *string `json:"topic"`
	ManualDifficulty *string `json:"manual_difficulty"`
	ManualStyle      *string `json:"manual_style"`
}

// Enqueue validates the URL, records a pending task and pushes it onto the
// index queue.
func (h *IndexHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}

	if _, err := pipeline.ExtractVideoID(req.URL); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Not a recognizable YouTube URL", r))
		return
	}

	source := req.Source
	if source == "" {
		source = "YouTube"
	}

	task := &models.VideoTask{
		URL:              req.URL,
		Source:           source,
		Topic:            req.Topic,
		ManualDifficulty: req.ManualDifficulty,
		ManualStyle:      req.ManualStyle,
	}
	if err := h.videoRepo.CreateTask(r.Context(), task); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to create task", r))
		return
	}

	if err := worker.Enqueue(r.Context(), h.redis, task.ID); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to enqueue task", r))
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"task_id": task.ID,
		"status":  task.Status,
	})
}

// GetTask returns a crawl task's state for progress polling.
func (h *IndexHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid task ID", r))
		return
	}

	task, err := h.videoRepo.GetTaskByID(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Task not found", r))
		return
	}

	writeJSON(w, http.StatusOK, task)
}
