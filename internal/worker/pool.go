package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"studypath-backend/internal/models"
	"studypath-backend/internal/pipeline"
	"studypath-backend/internal/repository"
	"studypath-backend/internal/services"
)

const (
	indexQueue = "queue:index-video"

	maxTaskRetries = 3
)

// IndexJob is the queue payload. The task row in Postgres is the source of
// truth; the payload only carries the id and the retry counter.
type IndexJob struct {
	TaskID     int64 `json:"task_id"`
	RetryCount int   `json:"retry_count"`
}

// Pool consumes the index queue and runs the ingestion pipeline.
type Pool struct {
	redis       *redis.Client
	indexer     *pipeline.Indexer
	videoRepo   *repository.VideoRepo
	workerCount int
	stopChan    chan struct{}
}

func NewPool(redisClient *redis.Client, indexer *pipeline.Indexer, videoRepo *repository.VideoRepo, workerCount int) *Pool {
	return &Pool{
		redis:       redisClient,
		indexer:     indexer,
		videoRepo:   videoRepo,
		workerCount: workerCount,
		stopChan:    make(chan struct{}),
	}
}

// Enqueue pushes a task onto the index queue.
func Enqueue(ctx context.Context, redisClient *redis.Client, taskID int64) error {
	payload, _ := json.Marshal(IndexJob{TaskID: taskID})
	return redisClient.LPush(ctx, indexQueue, string(payload)).Err()
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		go p.worker(i)
	}
	log.Printf("Started %d indexing workers", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

// RecoverPending re-enqueues tasks stuck in pending, for startup after a
// crash that lost queue entries.
func (p *Pool) RecoverPending(ctx context.Context) error {
	tasks, err := p.videoRepo.ListPendingTasks(ctx, 100)
	if err != nil {
		return fmt.Errorf("failed to list pending tasks: %w", err)
	}
	for _, task := range tasks {
		if err := Enqueue(ctx, p.redis, task.ID); err != nil {
			return err
		}
	}
	if len(tasks) > 0 {
		log.Printf("Re-enqueued %d pending index tasks", len(tasks))
	}
	return nil
}

func (p *Pool) worker(id int) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, indexQueue).Result()
		if err != nil {
			continue // Timeout or error, retry
		}
		if len(result) < 2 {
			continue
		}

		var job IndexJob
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		lockKey := fmt.Sprintf("index_lock:%d", job.TaskID)
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this task
		}

		p.processTask(ctx, id, &job)

		p.redis.Del(ctx, lockKey)
	}
}

func (p *Pool) processTask(ctx context.Context, workerID int, job *IndexJob) {
	task, err := p.videoRepo.GetTaskByID(ctx, job.TaskID)
	if err != nil {
		log.Printf("Worker %d: task %d not found: %v", workerID, job.TaskID, err)
		return
	}

	claimed, err := p.videoRepo.MarkProcessing(ctx, task.ID)
	if err != nil || !claimed {
		if err == nil {
			log.Printf("Worker %d: task %d in state %s, skipping", workerID, task.ID, task.Status)
		}
		return
	}

	log.Printf("Worker %d: indexing task %d (%s)", workerID, task.ID, task.URL)

	result, err := p.indexer.IndexVideo(ctx, task)
	if err != nil {
		p.handleFailure(ctx, task, job, err)
		return
	}

	if err := p.videoRepo.MarkDone(ctx, task.ID, result.Tags, result.VectorCount); err != nil {
		log.Printf("Worker %d: failed to finalize task %d: %v", workerID, task.ID, err)
		return
	}
	log.Printf("Worker %d: task %d done, %d vectors stored", workerID, task.ID, result.VectorCount)
}

func (p *Pool) handleFailure(ctx context.Context, task *models.VideoTask, job *IndexJob, err error) {
	errMsg := err.Error()

	// Missing captions never fix themselves; don't burn retries on them.
	var unavailable *services.ErrVideoUnavailable
	if errors.As(err, &unavailable) {
		log.Printf("Task %d unavailable: %s", task.ID, errMsg)
		p.videoRepo.MarkUnavailable(ctx, task.ID, errMsg)
		return
	}

	job.RetryCount++
	if job.RetryCount < maxTaskRetries {
		log.Printf("Task %d failed (attempt %d): %s, retrying", task.ID, job.RetryCount, errMsg)
		p.videoRepo.MarkRetry(ctx, task.ID, errMsg)

		payload, _ := json.Marshal(job)
		backoff := time.Duration(1<<uint(job.RetryCount)) * time.Second
		time.AfterFunc(backoff, func() {
			p.redis.LPush(context.Background(), indexQueue, string(payload))
		})
		return
	}

	log.Printf("Task %d failed permanently: %s", task.ID, errMsg)
	p.videoRepo.MarkError(ctx, task.ID, errMsg)
}
