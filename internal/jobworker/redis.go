// Package jobworker submits generation jobs to the external worker and reads
// back the worker's own view of a job.
package jobworker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quizgen-backend/internal/models"
)

const DefaultQueue = "queue:mcq-generation"

// RedisQueue hands jobs to a worker that consumes a redis list. The worker is
// expected to keep job_status:<id> up to date while it runs.
type RedisQueue struct {
	client    *redis.Client
	queue     string
	statusTTL time.Duration
}

func NewRedisQueue(client *redis.Client, queue string, statusTTL time.Duration) *RedisQueue {
	if queue == "" {
		queue = DefaultQueue
	}
	if statusTTL <= 0 {
		statusTTL = 24 * time.Hour
	}
	return &RedisQueue{client: client, queue: queue, statusTTL: statusTTL}
}

func statusKey(jobID string) string {
	return "job_status:" + jobID
}

// SubmitJob marks the job queued and pushes it in one MULTI, so a worker never
// pops a job whose status key is missing.
func (q *RedisQueue) SubmitJob(ctx context.Context, job models.GenerationJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("encode job %s: %w", job.JobID, err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, statusKey(job.JobID), string(models.LiveQueued), q.statusTTL)
	pipe.LPush(ctx, q.queue, string(data))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue job %s: %w", job.JobID, err)
	}
	return nil
}

func (q *RedisQueue) JobStatus(ctx context.Context, jobID string) (models.LiveStatus, error) {
	raw, err := q.client.Get(ctx, statusKey(jobID)).Result()
	if errors.Is(err, redis.Nil) {
		return models.LiveUnknown, nil
	}
	if err != nil {
		return models.LiveUnknown, fmt.Errorf("read status of job %s: %w", jobID, err)
	}
	return models.ParseLiveStatus(raw), nil
}
