package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"studypath-backend/internal/models"
)

// AttemptRepo persists per-answer attempt records and quiz result summaries.
type AttemptRepo struct {
	pool *pgxpool.Pool
}

func NewAttemptRepo(pool *pgxpool.Pool) *AttemptRepo {
	return &AttemptRepo{pool: pool}
}

// InsertRecords batch-inserts attempt rows for one submission.
func (r *AttemptRepo) InsertRecords(ctx context.Context, records []*models.AttemptRecord) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	query := `INSERT INTO quiz_attempts (id, user_id, question_id, topic_id, is_correct,
			time_taken_seconds, ideal_time_seconds, diagnosis_pillar, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, rec := range records {
		rec.ID = uuid.New()
		batch.Queue(query, rec.ID, rec.UserID, rec.QuestionID, rec.TopicID, rec.IsCorrect,
			rec.TimeTakenSeconds, rec.IdealTimeSeconds, rec.DiagnosisPillar, rec.SubmittedAt)
	}

	results := r.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range records {
		if _, err := results.Exec(); err != nil {
			return err
		}
	}
	return nil
}

func (r *AttemptRepo) InsertResult(ctx context.Context, res *models.QuizResult) error {
	res.ID = uuid.New()
	res.SubmittedAt = time.Now()

	query := `INSERT INTO quiz_results (id, user_id, topic_id, topic_name, score, total_questions,
			percentage, passed, total_time_seconds, learner_profile, weakest_pillar,
			recommended_video_id, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := r.pool.Exec(ctx, query,
		res.ID, res.UserID, res.TopicID, res.TopicName, res.Score, res.TotalQuestions,
		res.Percentage, res.Passed, res.TotalTimeSeconds, res.LearnerProfile, res.WeakestPillar,
		res.RecommendedVideoID, res.SubmittedAt,
	)
	return err
}

func (r *AttemptRepo) ListResultsByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*models.QuizResult, error) {
	query := `SELECT id, user_id, topic_id, topic_name, score, total_questions, percentage,
			passed, total_time_seconds, learner_profile, weakest_pillar, recommended_video_id, submitted_at
		FROM quiz_results WHERE user_id = $1 ORDER BY submitted_at DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*models.QuizResult
	for rows.Next() {
		res := &models.QuizResult{}
		err := rows.Scan(&res.ID, &res.UserID, &res.TopicID, &res.TopicName, &res.Score,
			&res.TotalQuestions, &res.Percentage, &res.Passed, &res.TotalTimeSeconds,
			&res.LearnerProfile, &res.WeakestPillar, &res.RecommendedVideoID, &res.SubmittedAt)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
