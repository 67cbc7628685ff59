package models

import (
	"time"

	"github.com/google/uuid"
)

// Canonical diagnosis pillars. The set is open: questions may carry ad-hoc
// pillar names, which are appended after these in first-seen order.
const (
	PillarConcept        = "Concept"
	PillarImplementation = "Implementation"
	PillarComplexity     = "Complexity"
	PillarDebugging      = "Debugging"
	PillarApplication    = "Application"
)

// CanonicalPillars defines the fixed iteration order for pillar analysis.
var CanonicalPillars = []string{
	PillarConcept,
	PillarImplementation,
	PillarComplexity,
	PillarDebugging,
	PillarApplication,
}

type Subject struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Icon   string    `json:"icon"`
	Topics []*Topic  `json:"topics"`
}

type Topic struct {
	ID            uuid.UUID `json:"id"`
	SubjectID     uuid.UUID `json:"subject_id"`
	Name          string    `json:"name"`
	QuestionCount int       `json:"question_count"`
}

type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

type Question struct {
	ID               uuid.UUID        `json:"id"`
	TopicID          uuid.UUID        `json:"topic_id"`
	QuestionText     string           `json:"question_text"`
	Options          []QuestionOption `json:"options"`
	CorrectOptionID  string           `json:"correct_option_id,omitempty"`
	IdealTimeSeconds int              `json:"ideal_time_seconds"`
	DiagnosisPillar  string           `json:"diagnosis_pillar"`
	SearchTags       []string         `json:"search_tags,omitempty"`
	Explanation      string           `json:"explanation,omitempty"`
	Difficulty       string           `json:"difficulty"`
	CreatedAt        time.Time        `json:"created_at"`
}

// PublicView strips grading fields so clients cannot see the answer key.
func (q *Question) PublicView() *Question {
	pub := *q
	pub.CorrectOptionID = ""
	pub.SearchTags = nil
	pub.Explanation = ""
	return &pub
}
