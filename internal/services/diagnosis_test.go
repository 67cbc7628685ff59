package services

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"studypath-backend/internal/models"
)

func newTestEngine(t *testing.T) *DiagnosisEngine {
	t.Helper()
	classifier := NewClassifier(filepath.Join(t.TempDir(), "absent.json"))
	coach, err := NewCoachService("", 1)
	if err != nil {
		t.Fatal(err)
	}
	return NewDiagnosisEngine(classifier, coach)
}

func testQuestion(pillar string, idealTime int, tags ...string) *models.Question {
	return &models.Question{
		ID:               uuid.New(),
		CorrectOptionID:  "a",
		IdealTimeSeconds: idealTime,
		DiagnosisPillar:  pillar,
		SearchTags:       tags,
	}
}

func questionMap(questions ...*models.Question) map[uuid.UUID]*models.Question {
	m := make(map[uuid.UUID]*models.Question, len(questions))
	for _, q := range questions {
		m[q.ID] = q
	}
	return m
}

func TestDiagnoseScoring(t *testing.T) {
	engine := newTestEngine(t)
	userID := uuid.New()

	q1 := testQuestion(models.PillarConcept, 30, "bfs", "graphs")
	q2 := testQuestion(models.PillarImplementation, 30, "dfs")
	q3 := testQuestion(models.PillarConcept, 30)
	questions := questionMap(q1, q2, q3)

	submission := &models.QuizSubmission{
		TopicID: uuid.New(),
		Answers: []models.Answer{
			{QuestionID: q1.ID, SelectedOptionID: "b", TimeTakenSeconds: 30},
			{QuestionID: q2.ID, SelectedOptionID: "a", TimeTakenSeconds: 15},
			{QuestionID: q3.ID, SelectedOptionID: "a", TimeTakenSeconds: 45},
		},
		TotalTimeSeconds: 90,
	}

	result, records := engine.Diagnose(context.Background(), userID, submission, questions, "Graphs")

	if result.Score != 2 || result.TotalQuestions != 3 {
		t.Errorf("Expected score 2/3, got %d/%d", result.Score, result.TotalQuestions)
	}
	if result.Percentage != 66.67 {
		t.Errorf("Expected percentage 66.67, got %v", result.Percentage)
	}
	if !result.Passed {
		t.Error("Expected 66.67%% to pass")
	}
	if result.WeakestPillar != models.PillarConcept {
		t.Errorf("Expected weakest pillar Concept, got %q", result.WeakestPillar)
	}
	if result.LearnerProfile != models.ProfileStruggling {
		t.Errorf("Expected Struggling, got %q", result.LearnerProfile)
	}
	if !result.FallbackMode || result.Confidence != 0.5 {
		t.Errorf("Expected rule fallback classification, got fallback=%v confidence=%v", result.FallbackMode, result.Confidence)
	}

	concept := result.PillarBreakdown[models.PillarConcept]
	if concept == nil {
		t.Fatal("Expected Concept breakdown")
	}
	if concept.Correct != 1 || concept.Total != 2 || concept.Accuracy != 50 {
		t.Errorf("Unexpected Concept breakdown: %+v", concept)
	}
	if concept.AvgTimeRatio != 1.25 {
		t.Errorf("Expected Concept avg time ratio 1.25, got %v", concept.AvgTimeRatio)
	}
	if _, ok := result.PillarBreakdown[models.PillarDebugging]; ok {
		t.Error("Pillars with no answers should be omitted from the breakdown")
	}

	if result.Feedback != fallbackFeedbackNoKey {
		t.Errorf("Expected fallback feedback, got %q", result.Feedback)
	}

	expectedQuery := "bfs graphs Graphs Concept tutorial explained step by step"
	if result.SearchQuery != expectedQuery {
		t.Errorf("Expected query %q, got %q", expectedQuery, result.SearchQuery)
	}
	expectedFilters := models.SearchFilters{Difficulty: "Beginner", Style: "Conceptual"}
	if result.SearchFilters != expectedFilters {
		t.Errorf("Expected filters %+v, got %+v", expectedFilters, result.SearchFilters)
	}

	if len(records) != 3 {
		t.Fatalf("Expected 3 attempt records, got %d", len(records))
	}
	if records[0].UserID != userID || records[0].IsCorrect {
		t.Errorf("Unexpected first record: %+v", records[0])
	}
	if records[1].DiagnosisPillar != models.PillarImplementation || !records[1].IsCorrect {
		t.Errorf("Unexpected second record: %+v", records[1])
	}
}

func TestDiagnoseProfiles(t *testing.T) {
	tests := []struct {
		name            string
		correct         []bool
		times           []float64
		expectedProfile string
		expectedFilters models.SearchFilters
	}{
		{
			name:            "high achiever",
			correct:         []bool{true, true, true},
			times:           []float64{25, 28, 30},
			expectedProfile: models.ProfileHighAchiever,
			expectedFilters: models.SearchFilters{Difficulty: "Advanced", Style: "Interview_Prep"},
		},
		{
			name:            "rushed",
			correct:         []bool{true, false, false},
			times:           []float64{5, 5, 5},
			expectedProfile: models.ProfileRushed,
			expectedFilters: models.SearchFilters{Style: "One_Shot"},
		},
		{
			name:            "struggling",
			correct:         []bool{true, false, false},
			times:           []float64{30, 35, 40},
			expectedProfile: models.ProfileStruggling,
			expectedFilters: models.SearchFilters{Difficulty: "Beginner", Style: "Conceptual"},
		},
	}

	engine := newTestEngine(t)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var answers []models.Answer
			var questions []*models.Question
			for i, ok := range tc.correct {
				q := testQuestion(models.PillarConcept, 30)
				questions = append(questions, q)
				selected := "a"
				if !ok {
					selected = "b"
				}
				answers = append(answers, models.Answer{
					QuestionID:       q.ID,
					SelectedOptionID: selected,
					TimeTakenSeconds: tc.times[i],
				})
			}

			submission := &models.QuizSubmission{TopicID: uuid.New(), Answers: answers}
			result, _ := engine.Diagnose(context.Background(), uuid.New(), submission, questionMap(questions...), "Sorting")

			if result.LearnerProfile != tc.expectedProfile {
				t.Errorf("Expected profile %q, got %q", tc.expectedProfile, result.LearnerProfile)
			}
			if result.SearchFilters != tc.expectedFilters {
				t.Errorf("Expected filters %+v, got %+v", tc.expectedFilters, result.SearchFilters)
			}
		})
	}
}

func TestDiagnoseSkipsUnknownQuestions(t *testing.T) {
	engine := newTestEngine(t)

	q := testQuestion(models.PillarConcept, 30)
	submission := &models.QuizSubmission{
		TopicID: uuid.New(),
		Answers: []models.Answer{
			{QuestionID: q.ID, SelectedOptionID: "a", TimeTakenSeconds: 20},
			{QuestionID: uuid.New(), SelectedOptionID: "a", TimeTakenSeconds: 20},
		},
	}

	result, records := engine.Diagnose(context.Background(), uuid.New(), submission, questionMap(q), "Sorting")

	if len(records) != 1 {
		t.Fatalf("Expected 1 record, got %d", len(records))
	}
	if result.Score != 1 {
		t.Errorf("Expected score 1, got %d", result.Score)
	}
	// Unresolved answers still count toward the denominator.
	if result.TotalQuestions != 2 {
		t.Errorf("Expected 2 total questions, got %d", result.TotalQuestions)
	}
}

func TestDiagnoseAdHocPillar(t *testing.T) {
	engine := newTestEngine(t)

	q1 := testQuestion("Recursion", 30)
	q2 := testQuestion(models.PillarConcept, 30)
	submission := &models.QuizSubmission{
		TopicID: uuid.New(),
		Answers: []models.Answer{
			{QuestionID: q1.ID, SelectedOptionID: "b", TimeTakenSeconds: 30},
			{QuestionID: q2.ID, SelectedOptionID: "a", TimeTakenSeconds: 30},
		},
	}

	result, _ := engine.Diagnose(context.Background(), uuid.New(), submission, questionMap(q1, q2), "Sorting")

	if result.WeakestPillar != "Recursion" {
		t.Errorf("Expected weakest pillar Recursion, got %q", result.WeakestPillar)
	}
	if _, ok := result.PillarBreakdown["Recursion"]; !ok {
		t.Error("Expected ad-hoc pillar in breakdown")
	}
}

func TestDiagnoseBlankPillarDefaultsToConcept(t *testing.T) {
	engine := newTestEngine(t)

	q := testQuestion("", 30)
	submission := &models.QuizSubmission{
		TopicID: uuid.New(),
		Answers: []models.Answer{{QuestionID: q.ID, SelectedOptionID: "a", TimeTakenSeconds: 10}},
	}

	result, records := engine.Diagnose(context.Background(), uuid.New(), submission, questionMap(q), "Sorting")

	if records[0].DiagnosisPillar != models.PillarConcept {
		t.Errorf("Expected Concept, got %q", records[0].DiagnosisPillar)
	}
	if result.PillarBreakdown[models.PillarConcept].Total != 1 {
		t.Error("Expected the answer counted under Concept")
	}
}

func TestDiagnoseZeroIdealTime(t *testing.T) {
	engine := newTestEngine(t)

	q := testQuestion(models.PillarConcept, 0)
	submission := &models.QuizSubmission{
		TopicID: uuid.New(),
		Answers: []models.Answer{{QuestionID: q.ID, SelectedOptionID: "a", TimeTakenSeconds: 2}},
	}

	result, _ := engine.Diagnose(context.Background(), uuid.New(), submission, questionMap(q), "Sorting")

	// Ratio defaults to 1.0, so a fast answer is not treated as rushed.
	if result.PillarBreakdown[models.PillarConcept].RushedCount != 0 {
		t.Error("Expected no rushed answers when ideal time is unset")
	}
	if result.PillarBreakdown[models.PillarConcept].AvgTimeRatio != 1.0 {
		t.Errorf("Expected avg time ratio 1.0, got %v", result.PillarBreakdown[models.PillarConcept].AvgTimeRatio)
	}
}

func TestDiagnoseQueryFallsBackToCoach(t *testing.T) {
	engine := newTestEngine(t)

	// All answers correct, so there are no failed tags to build a query from.
	q := testQuestion(models.PillarConcept, 30, "bfs")
	submission := &models.QuizSubmission{
		TopicID: uuid.New(),
		Answers: []models.Answer{{QuestionID: q.ID, SelectedOptionID: "a", TimeTakenSeconds: 25}},
	}

	result, _ := engine.Diagnose(context.Background(), uuid.New(), submission, questionMap(q), "Graphs")

	expected := "Graphs tutorial High Achiever"
	if result.SearchQuery != expected {
		t.Errorf("Expected %q, got %q", expected, result.SearchQuery)
	}
}

func TestUniqueFailedTags(t *testing.T) {
	failed := []*models.Question{
		{SearchTags: []string{"bfs", "graphs", ""}},
		{SearchTags: []string{"bfs", "dfs"}},
		{SearchTags: []string{"dijkstra", "a-star", "topological sort"}},
	}

	tags := uniqueFailedTags(failed, 5)

	expected := []string{"bfs", "graphs", "dfs", "dijkstra", "a-star"}
	if len(tags) != len(expected) {
		t.Fatalf("Expected %d tags, got %d: %v", len(expected), len(tags), tags)
	}
	for i, tag := range expected {
		if tags[i] != tag {
			t.Errorf("Expected tag %d to be %q, got %q", i, tag, tags[i])
		}
	}
}
