package jobworker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"quizgen-backend/internal/models"
)

func newRedisQueue(t *testing.T) (*RedisQueue, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisQueue(client, "", time.Hour), mr
}

func TestRedisQueue_SubmitJob(t *testing.T) {
	q, mr := newRedisQueue(t)
	ctx := context.Background()

	job := models.GenerationJob{
		JobID:        "mcq-generation-x-1",
		SetID:        uuid.New(),
		DownloadURL:  "http://api.test/api/content/download?path=a.pdf",
		NumQuestions: 5,
		CallbackURL:  "http://api.test/api/v1/webhooks/generation?job_id=mcq-generation-x-1",
	}
	require.NoError(t, q.SubmitJob(ctx, job))

	items, err := mr.List(DefaultQueue)
	require.NoError(t, err)
	require.Len(t, items, 1)

	var got models.GenerationJob
	require.NoError(t, json.Unmarshal([]byte(items[0]), &got))
	require.Equal(t, job.JobID, got.JobID)
	require.Equal(t, job.SetID, got.SetID)
	require.Equal(t, 5, got.NumQuestions)

	status, err := q.JobStatus(ctx, job.JobID)
	require.NoError(t, err)
	require.Equal(t, models.LiveQueued, status)
	require.Equal(t, time.Hour, mr.TTL(statusKey(job.JobID)))
}

func TestRedisQueue_JobStatus(t *testing.T) {
	q, mr := newRedisQueue(t)
	ctx := context.Background()

	status, err := q.JobStatus(ctx, "missing")
	require.NoError(t, err)
	require.Equal(t, models.LiveUnknown, status)

	tests := map[string]models.LiveStatus{
		"running":   models.LiveRunning,
		"SUCCEEDED": models.LiveCompleted,
		"timed_out": models.LiveFailed,
		"weird":     models.LiveUnknown,
	}
	for raw, want := range tests {
		require.NoError(t, mr.Set(statusKey("job"), raw))
		got, err := q.JobStatus(ctx, "job")
		require.NoError(t, err)
		require.Equal(t, want, got, raw)
	}
}

func TestRedisQueue_Unavailable(t *testing.T) {
	q, mr := newRedisQueue(t)
	mr.Close()

	err := q.SubmitJob(context.Background(), models.GenerationJob{JobID: "j"})
	require.Error(t, err)
}
