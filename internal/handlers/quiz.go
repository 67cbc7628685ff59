package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"studypath-backend/internal/middleware"
	"studypath-backend/internal/models"
	"studypath-backend/internal/repository"
	"studypath-backend/internal/services"
)

const defaultQuizLength = 10

type QuizHandler struct {
	questionRepo *repository.QuestionRepo
	attemptRepo  *repository.AttemptRepo
	diagnosis    *services.DiagnosisEngine
	retrieval    *services.RetrievalEngine
}

func NewQuizHandler(
	questionRepo *repository.QuestionRepo,
	attemptRepo *repository.AttemptRepo,
	diagnosis *services.DiagnosisEngine,
	retrieval *services.RetrievalEngine,
) *QuizHandler {
	return &QuizHandler{
		questionRepo: questionRepo,
		attemptRepo:  attemptRepo,
		diagnosis:    diagnosis,
		retrieval:    retrieval,
	}
}

// Topics returns the subject -> topic menu.
func (h *QuizHandler) Topics(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.questionRepo.TopicsHierarchy(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch topics", r))
		return
	}
	if len(subjects) == 0 {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No quiz topics found", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"subjects": subjects})
}

// Start serves a random question set for a topic with grading fields
// stripped.
func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	topicID, err := uuid.Parse(chi.URLParam(r, "topicID"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid topic ID", r))
		return
	}

	count := defaultQuizLength
	if raw := r.URL.Query().Get("count"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			count = n
		}
	}

	topic, err := h.questionRepo.GetTopicByID(r.Context(), topicID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Topic not found", r))
		return
	}

	questions, err := h.questionRepo.RandomByTopic(r.Context(), topicID, count)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch questions", r))
		return
	}
	if len(questions) == 0 {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No questions found for this topic", r))
		return
	}

	public := make([]*models.Question, 0, len(questions))
	for _, q := range questions {
		public = append(public, q.PublicView())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"topic":     topic,
		"questions": public,
	})
}

// Submit grades a submission, diagnoses the learner, attaches video
// recommendations and persists the attempt.
func (h *QuizHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var submission models.QuizSubmission
	if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if len(submission.Answers) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Submission has no answers", r))
		return
	}

	userID := middleware.GetUserID(r.Context())
	ctx := r.Context()

	topicName := submission.TopicID.String()
	if topic, err := h.questionRepo.GetTopicByID(ctx, submission.TopicID); err == nil {
		topicName = topic.Name
	}

	ids := make([]uuid.UUID, 0, len(submission.Answers))
	for _, a := range submission.Answers {
		ids = append(ids, a.QuestionID)
	}
	questions, err := h.questionRepo.ResolveByIDs(ctx, ids)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to resolve questions", r))
		return
	}
	if len(questions) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No submitted question ids were recognized", r))
		return
	}

	result, records := h.diagnosis.Diagnose(ctx, userID, &submission, questions, topicName)

	// Recommendations are best-effort; a search outage must not lose the
	// diagnosis.
	recommendations, err := h.retrieval.Search(ctx, result.SearchQuery, result.SearchFilters)
	if err != nil {
		log.Printf("Recommendation search failed: %v", err)
		recommendations = []*models.Recommendation{}
	}
	result.Recommendations = recommendations

	if err := h.attemptRepo.InsertRecords(ctx, records); err != nil {
		log.Printf("Failed to persist attempt records: %v", err)
	}

	var recommendedVideoID *string
	if len(recommendations) > 0 {
		recommendedVideoID = &recommendations[0].VideoID
	}
	summary := &models.QuizResult{
		UserID:             userID,
		TopicID:            submission.TopicID,
		TopicName:          topicName,
		Score:              result.Score,
		TotalQuestions:     result.TotalQuestions,
		Percentage:         result.Percentage,
		Passed:             result.Passed,
		TotalTimeSeconds:   submission.TotalTimeSeconds,
		LearnerProfile:     result.LearnerProfile,
		WeakestPillar:      result.WeakestPillar,
		RecommendedVideoID: recommendedVideoID,
	}
	if err := h.attemptRepo.InsertResult(ctx, summary); err != nil {
		log.Printf("Failed to persist quiz result: %v", err)
	}

	writeJSON(w, http.StatusOK, result)
}

// History lists the caller's past quiz results, newest first.
func (h *QuizHandler) History(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	results, err := h.attemptRepo.ListResultsByUser(r.Context(), userID, limit)
	if err != nil && err != pgx.ErrNoRows {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to fetch results", r))
		return
	}
	if results == nil {
		results = []*models.QuizResult{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"results": results})
}
