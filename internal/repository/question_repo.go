package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"studypath-backend/internal/models"
)

// QuestionRepo is the question bank / topic store boundary.
type QuestionRepo struct {
	pool *pgxpool.Pool
}

func NewQuestionRepo(pool *pgxpool.Pool) *QuestionRepo {
	return &QuestionRepo{pool: pool}
}

// TopicsHierarchy returns the subject -> topic menu with question counts.
func (r *QuestionRepo) TopicsHierarchy(ctx context.Context) ([]*models.Subject, error) {
	query := `SELECT s.id, s.name, s.icon, t.id, t.name,
			(SELECT COUNT(*) FROM questions q WHERE q.topic_id = t.id)
		FROM subjects s
		JOIN topics t ON t.subject_id = s.id
		ORDER BY s.name, t.name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*models.Subject)
	var subjects []*models.Subject
	for rows.Next() {
		var sID uuid.UUID
		var sName, sIcon string
		topic := &models.Topic{}
		if err := rows.Scan(&sID, &sName, &sIcon, &topic.ID, &topic.Name, &topic.QuestionCount); err != nil {
			return nil, err
		}
		topic.SubjectID = sID

		subject, ok := byID[sID]
		if !ok {
			subject = &models.Subject{ID: sID, Name: sName, Icon: sIcon}
			byID[sID] = subject
			subjects = append(subjects, subject)
		}
		subject.Topics = append(subject.Topics, topic)
	}
	return subjects, rows.Err()
}

func (r *QuestionRepo) GetTopicByID(ctx context.Context, id uuid.UUID) (*models.Topic, error) {
	t := &models.Topic{}
	query := `SELECT id, subject_id, name,
			(SELECT COUNT(*) FROM questions q WHERE q.topic_id = topics.id)
		FROM topics WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(&t.ID, &t.SubjectID, &t.Name, &t.QuestionCount)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// RandomByTopic draws count random questions for a topic.
func (r *QuestionRepo) RandomByTopic(ctx context.Context, topicID uuid.UUID, count int) ([]*models.Question, error) {
	query := `SELECT id, topic_id, question_text, options_json, correct_option_id,
			ideal_time_seconds, diagnosis_pillar, search_tags, explanation, difficulty, created_at
		FROM questions WHERE topic_id = $1 ORDER BY RANDOM() LIMIT $2`

	rows, err := r.pool.Query(ctx, query, topicID, count)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanQuestions(rows)
}

// ResolveByIDs fetches the question records referenced by a submission,
// keyed by id. Missing ids are simply absent from the map.
func (r *QuestionRepo) ResolveByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Question, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]*models.Question{}, nil
	}

	query := `SELECT id, topic_id, question_text, options_json, correct_option_id,
			ideal_time_seconds, diagnosis_pillar, search_tags, explanation, difficulty, created_at
		FROM questions WHERE id = ANY($1)`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	questions, err := scanQuestions(rows)
	if err != nil {
		return nil, err
	}

	resolved := make(map[uuid.UUID]*models.Question, len(questions))
	for _, q := range questions {
		resolved[q.ID] = q
	}
	return resolved, nil
}

type pgxRows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanQuestions(rows pgxRows) ([]*models.Question, error) {
	var questions []*models.Question
	for rows.Next() {
		q := &models.Question{}
		var optionsJSON []byte
		err := rows.Scan(&q.ID, &q.TopicID, &q.QuestionText, &optionsJSON, &q.CorrectOptionID,
			&q.IdealTimeSeconds, &q.DiagnosisPillar, &q.SearchTags, &q.Explanation, &q.Difficulty, &q.CreatedAt)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(optionsJSON, &q.Options); err != nil {
			return nil, fmt.Errorf("malformed options for question %s: %w", q.ID, err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}
