package services

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"studypath-backend/internal/models"
)

// Answers submitted faster than 30% of a question's ideal time count as
// rushed.
const rushedTimeRatio = 0.3

// profileFilters maps a learner profile to the metadata constraints used for
// the recommendation search.
var profileFilters = map[string]models.SearchFilters{
	models.ProfileStruggling:   {Difficulty: "Beginner", Style: "Conceptual"},
	models.ProfileRushed:       {Style: "One_Shot"},
	models.ProfileHighAchiever: {Difficulty: "Advanced", Style: "Interview_Prep"},
}

type pillarAccumulator struct {
	correct    int
	total      int
	rushed     int
	timeRatios []float64
}

// DiagnosisEngine scores quiz submissions and classifies learners.
type DiagnosisEngine struct {
	classifier *Classifier
	coach      *CoachService
}

func NewDiagnosisEngine(classifier *Classifier, coach *CoachService) *DiagnosisEngine {
	return &DiagnosisEngine{classifier: classifier, coach: coach}
}

// Diagnose grades a submission against the resolved question records and
// returns the full diagnosis plus the attempt rows to persist. Answers whose
// question id resolves to nothing are skipped, not failed.
func (e *DiagnosisEngine) Diagnose(
	ctx context.Context,
	userID uuid.UUID,
	submission *models.QuizSubmission,
	questions map[uuid.UUID]*models.Question,
	topicName string,
) (*models.DiagnosisResult, []*models.AttemptRecord) {
	score := 0
	totalQuestions := len(submission.Answers)

	stats := make(map[string]*pillarAccumulator)
	pillarOrder := make([]string, 0, len(models.CanonicalPillars))
	for _, p := range models.CanonicalPillars {
		stats[p] = &pillarAccumulator{}
		pillarOrder = append(pillarOrder, p)
	}

	var failedQuestions []*models.Question
	var records []*models.AttemptRecord
	submittedAt := time.Now()

	for _, answer := range submission.Answers {
		question, ok := questions[answer.QuestionID]
		if !ok {
			log.Printf("Question %s not found, skipping answer", answer.QuestionID)
			continue
		}

		isCorrect := answer.SelectedOptionID == question.CorrectOptionID

		pillar := question.DiagnosisPillar
		if pillar == "" {
			pillar = models.PillarConcept
		}
		idealTime := question.IdealTimeSeconds
		timeRatio := 1.0
		if idealTime > 0 {
			timeRatio = answer.TimeTakenSeconds / float64(idealTime)
		}

		// Pillar set is open: unknown pillars join after the canonical
		// ones, in first-seen order.
		acc, ok := stats[pillar]
		if !ok {
			acc = &pillarAccumulator{}
			stats[pillar] = acc
			pillarOrder = append(pillarOrder, pillar)
		}

		acc.total++
		acc.timeRatios = append(acc.timeRatios, timeRatio)

		if isCorrect {
			score++
			acc.correct++
		} else {
			failedQuestions = append(failedQuestions, question)
		}

		if timeRatio < rushedTimeRatio {
			acc.rushed++
		}

		records = append(records, &models.AttemptRecord{
			UserID:           userID,
			QuestionID:       answer.QuestionID,
			TopicID:          submission.TopicID,
			IsCorrect:        isCorrect,
			TimeTakenSeconds: answer.TimeTakenSeconds,
			IdealTimeSeconds: idealTime,
			DiagnosisPillar:  pillar,
			SubmittedAt:      submittedAt,
		})
	}

	percentage := 0.0
	if totalQuestions > 0 {
		percentage = float64(score) / float64(totalQuestions) * 100
	}

	breakdown, weakestPillar := buildPillarBreakdown(stats, pillarOrder)

	rushedPct, avgTimeRatio := aggregateTimeSignals(stats, totalQuestions)

	avgTimePerQuestion := 0.0
	if totalQuestions > 0 {
		avgTimePerQuestion = submission.TotalTimeSeconds / float64(totalQuestions)
	}

	classification := e.classifier.Classify(percentage, avgTimePerQuestion, rushedPct, avgTimeRatio)

	feedback := e.coach.GenerateCoachingFeedback(ctx, classification.Profile, []string{weakestPillar}, topicName, percentage)
	searchQuery := e.buildSearchQuery(ctx, failedQuestions, topicName, weakestPillar, classification.Profile)

	return &models.DiagnosisResult{
		Score:           score,
		TotalQuestions:  totalQuestions,
		Percentage:      math.Round(percentage*100) / 100,
		Passed:          percentage >= 60,
		WeakestPillar:   weakestPillar,
		PillarBreakdown: breakdown,
		LearnerProfile:  classification.Profile,
		Confidence:      classification.Confidence,
		FallbackMode:    classification.FallbackMode,
		Feedback:        feedback,
		SearchQuery:     searchQuery,
		SearchFilters:   profileFilters[classification.Profile],
	}, records
}

// buildPillarBreakdown summarizes per-pillar stats and finds the weakest
// pillar: lowest accuracy among pillars with at least one answer, ties broken
// by iteration order, defaulting to Concept.
func buildPillarBreakdown(stats map[string]*pillarAccumulator, order []string) (map[string]*models.PillarBreakdown, string) {
	breakdown := make(map[string]*models.PillarBreakdown)
	weakest := models.PillarConcept
	lowestAccuracy := 100.0

	for _, pillar := range order {
		acc := stats[pillar]
		if acc.total == 0 {
			continue
		}

		accuracy := float64(acc.correct) / float64(acc.total) * 100
		sum := 0.0
		for _, r := range acc.timeRatios {
			sum += r
		}
		avgRatio := sum / float64(len(acc.timeRatios))

		breakdown[pillar] = &models.PillarBreakdown{
			Correct:      acc.correct,
			Total:        acc.total,
			Accuracy:     math.Round(accuracy*10) / 10,
			RushedCount:  acc.rushed,
			AvgTimeRatio: math.Round(avgRatio*100) / 100,
		}

		if accuracy < lowestAccuracy {
			lowestAccuracy = accuracy
			weakest = pillar
		}
	}

	return breakdown, weakest
}

// aggregateTimeSignals computes the overall rushed percentage and the mean of
// per-pillar mean time ratios.
func aggregateTimeSignals(stats map[string]*pillarAccumulator, totalQuestions int) (rushedPct, avgTimeRatio float64) {
	totalRushed := 0
	ratioSum := 0.0
	pillarsWithRatios := 0

	for _, acc := range stats {
		totalRushed += acc.rushed
		if len(acc.timeRatios) == 0 {
			continue
		}
		sum := 0.0
		for _, r := range acc.timeRatios {
			sum += r
		}
		ratioSum += sum / float64(len(acc.timeRatios))
		pillarsWithRatios++
	}

	if totalQuestions > 0 {
		rushedPct = float64(totalRushed) / float64(totalQuestions) * 100
	}
	if pillarsWithRatios > 0 {
		avgTimeRatio = ratioSum / float64(pillarsWithRatios)
	}
	return rushedPct, avgTimeRatio
}

// buildSearchQuery prefers the concrete concepts the learner failed; the
// primary failed tag leads so subtopic-level matches outrank generic topic
// matches. Without failed tags it falls back to the coach.
func (e *DiagnosisEngine) buildSearchQuery(ctx context.Context, failed []*models.Question, topicName, weakestPillar, profile string) string {
	tags := uniqueFailedTags(failed, 5)
	if len(tags) == 0 {
		return e.coach.GenerateSmartSearchQuery(ctx, profile, topicName, []string{weakestPillar})
	}

	primary := tags[0]
	others := ""
	if len(tags) > 1 {
		end := 3
		if len(tags) < end {
			end = len(tags)
		}
		others = strings.Join(tags[1:end], " ")
	}

	query := fmt.Sprintf("%s %s %s %s tutorial explained step by step", primary, others, topicName, weakestPillar)
	return strings.Join(strings.Fields(query), " ")
}

func uniqueFailedTags(failed []*models.Question, limit int) []string {
	seen := make(map[string]bool)
	var tags []string
	for _, q := range failed {
		for _, tag := range q.SearchTags {
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			tags = append(tags, tag)
			if len(tags) == limit {
				return tags
			}
		}
	}
	return tags
}
