package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"studypath-backend/internal/models"
)

// VideoRepo manages the crawl task table that feeds the indexing pipeline.
type VideoRepo struct {
	pool *pgxpool.Pool
}

func NewVideoRepo(pool *pgxpool.Pool) *VideoRepo {
	return &VideoRepo{pool: pool}
}

const taskColumns = `id, url, status, source, topic, manual_difficulty, manual_style,
	final_difficulty, final_style, final_engagement, vector_count, error_log, created_at, processed_at`

// CreateTask inserts a pending crawl task and returns it with its assigned id.
func (r *VideoRepo) CreateTask(ctx context.Context, task *models.VideoTask) error {
	query := `INSERT INTO video_tasks (url, status, source, topic, manual_difficulty, manual_style)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	task.Status = models.TaskStatusPending
	return r.pool.QueryRow(ctx, query,
		task.URL, task.Status, task.Source, task.Topic, task.ManualDifficulty, task.ManualStyle,
	).Scan(&task.ID, &task.CreatedAt)
}

func (r *VideoRepo) GetTaskByID(ctx context.Context, id int64) (*models.VideoTask, error) {
	query := `SELECT ` + taskColumns + ` FROM video_tasks WHERE id = $1`
	return r.scanTask(r.pool.QueryRow(ctx, query, id))
}

// ListPendingTasks returns pending tasks oldest-first, for queue recovery on
// worker startup.
func (r *VideoRepo) ListPendingTasks(ctx context.Context, limit int) ([]*models.VideoTask, error) {
	query := `SELECT ` + taskColumns + ` FROM video_tasks
		WHERE status = $1 ORDER BY created_at ASC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, models.TaskStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.VideoTask
	for rows.Next() {
		task, err := r.scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// MarkProcessing transitions a task to processing. Only pending tasks move,
// so two workers cannot claim the same row.
func (r *VideoRepo) MarkProcessing(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE video_tasks SET status = $1 WHERE id = $2 AND status = $3`
	tag, err := r.pool.Exec(ctx, query, models.TaskStatusProcessing, id, models.TaskStatusPending)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// MarkDone writes back the final tags chosen by the pipeline along with the
// number of vectors stored.
func (r *VideoRepo) MarkDone(ctx context.Context, id int64, tags models.ContentTags, vectorCount int) error {
	query := `UPDATE video_tasks
		SET status = $1, final_difficulty = $2, final_style = $3, final_engagement = $4,
			vector_count = $5, error_log = NULL, processed_at = $6
		WHERE id = $7`

	_, err := r.pool.Exec(ctx, query, models.TaskStatusDone,
		tags.Difficulty, tags.Style, tags.Engagement, vectorCount, time.Now(), id)
	return err
}

// MarkRetry returns a failed task to pending with the error recorded, so a
// re-enqueued attempt can claim it again.
func (r *VideoRepo) MarkRetry(ctx context.Context, id int64, errMsg string) error {
	query := `UPDATE video_tasks SET status = $1, error_log = $2 WHERE id = $3`
	_, err := r.pool.Exec(ctx, query, models.TaskStatusPending, errMsg, id)
	return err
}

func (r *VideoRepo) MarkError(ctx context.Context, id int64, errMsg string) error {
	return r.markFailed(ctx, id, models.TaskStatusError, errMsg)
}

// MarkUnavailable records a permanent failure (no transcript, private or
// deleted video) so the task is never retried.
func (r *VideoRepo) MarkUnavailable(ctx context.Context, id int64, reason string) error {
	return r.markFailed(ctx, id, models.TaskStatusUnavailable, reason)
}

func (r *VideoRepo) markFailed(ctx context.Context, id int64, status, errMsg string) error {
	query := `UPDATE video_tasks SET status = $1, error_log = $2, processed_at = $3 WHERE id = $4`
	_, err := r.pool.Exec(ctx, query, status, errMsg, time.Now(), id)
	return err
}

type pgxRow interface {
	Scan(dest ...any) error
}

func (r *VideoRepo) scanTask(row pgxRow) (*models.VideoTask, error) {
	task := &models.VideoTask{}
	err := row.Scan(&task.ID, &task.URL, &task.Status, &task.Source, &task.Topic,
		&task.ManualDifficulty, &task.ManualStyle, &task.FinalDifficulty, &task.FinalStyle,
		&task.FinalEngagement, &task.VectorCount, &task.ErrorLog, &task.CreatedAt, &task.ProcessedAt)
	if err != nil {
		return nil, err
	}
	return task, nil
}
