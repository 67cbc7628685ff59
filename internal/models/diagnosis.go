package models

import (
	"time"

	"github.com/google/uuid"
)

// Learner profiles produced by the diagnosis engine.
const (
	ProfileStruggling   = "Struggling"
	ProfileRushed       = "Rushed"
	ProfileHighAchiever = "High Achiever"
)

type Answer struct {
	QuestionID       uuid.UUID `json:"question_id"`
	SelectedOptionID string    `json:"selected_option_id"`
	TimeTakenSeconds float64   `json:"time_taken_seconds"`
}

type QuizSubmission struct {
	TopicID          uuid.UUID `json:"topic_id"`
	Answers          []Answer  `json:"answers"`
	TotalTimeSeconds float64   `json:"total_time_seconds"`
}

// PillarBreakdown is the per-pillar summary derived from one scoring pass.
type PillarBreakdown struct {
	Correct      int     `json:"correct"`
	Total        int     `json:"total"`
	Accuracy     float64 `json:"accuracy"`
	RushedCount  int     `json:"rushed_count"`
	AvgTimeRatio float64 `json:"avg_time_ratio"`
}

// SearchFilters are AND-combined metadata-equality constraints for the
// vector index. Empty fields mean unconstrained.
type SearchFilters struct {
	Difficulty  string `json:"difficulty,omitempty"`
	Style       string `json:"style,omitempty"`
	Granularity string `json:"granularity,omitempty"`
}

func (f SearchFilters) Empty() bool {
	return f.Difficulty == "" && f.Style == "" && f.Granularity == ""
}

type DiagnosisResult struct {
	Score           int                         `json:"score"`
	TotalQuestions  int                         `json:"total_questions"`
	Percentage      float64                     `json:"percentage"`
	Passed          bool                        `json:"passed"`
	WeakestPillar   string                      `json:"weakest_pillar"`
	PillarBreakdown map[string]*PillarBreakdown `json:"pillar_breakdown"`
	LearnerProfile  string                      `json:"learner_profile"`
	Confidence      float64                     `json:"confidence"`
	FallbackMode    bool                        `json:"fallback_mode"`
	Feedback        string                      `json:"feedback"`
	SearchQuery     string                      `json:"search_query"`
	SearchFilters   SearchFilters               `json:"search_filters"`
	Recommendations []*Recommendation           `json:"recommendations"`
}

// AttemptRecord is one persisted row per resolved answer.
type AttemptRecord struct {
	ID               uuid.UUID `json:"id"`
	UserID           uuid.UUID `json:"user_id"`
	QuestionID       uuid.UUID `json:"question_id"`
	TopicID          uuid.UUID `json:"topic_id"`
	IsCorrect        bool      `json:"is_correct"`
	TimeTakenSeconds float64   `json:"time_taken_seconds"`
	IdealTimeSeconds int       `json:"ideal_time_seconds"`
	DiagnosisPillar  string    `json:"diagnosis_pillar"`
	SubmittedAt      time.Time `json:"submitted_at"`
}

// QuizResult is the persisted summary of one graded submission.
type QuizResult struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	TopicID            uuid.UUID `json:"topic_id"`
	TopicName          string    `json:"topic_name"`
	Score              int       `json:"score"`
	TotalQuestions     int       `json:"total_questions"`
	Percentage         float64   `json:"percentage"`
	Passed             bool      `json:"passed"`
	TotalTimeSeconds   float64   `json:"total_time_seconds"`
	LearnerProfile     string    `json:"learner_profile"`
	WeakestPillar      string    `json:"weakest_pillar"`
	RecommendedVideoID *string   `json:"recommended_video_id"`
	SubmittedAt        time.Time `json:"submitted_at"`
}
