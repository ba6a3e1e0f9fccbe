// Package queue carries manual trigger jobs from cmd/api to cmd/worker's
// single loop over a Redis-backed sorted set, adapted from the teacher's
// internal/queue/redis_queue.go (ZADD/BZPOPMIN priority queue) with the
// domain-check job shape replaced by a trigger job.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrTimeout = errors.New("queue timeout")

// TriggerJob asks cmd/worker to execute one monitoring entry outside its
// regular schedule, per C9's triggerNow hook. RunID is created synchronously
// by cmd/api before the job is enqueued, so callers can poll it immediately.
type TriggerJob struct {
	RunID     string    `json:"run_id"`
	EntryID   string    `json:"entry_id"`
	CreatedAt time.Time `json:"created_at"`
}

type RedisQueue struct {
	client    *redis.Client
	queueName string
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{
		client:    client,
		queueName: "trigger_jobs",
	}
}

// Push enqueues a job ordered by enqueue time (FIFO): lower score pops
// first, so we use the unix timestamp directly as the score.
func (q *RedisQueue) Push(ctx context.Context, job *TriggerJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	err = q.client.ZAdd(ctx, q.queueName, redis.Z{
		Score:  float64(job.CreatedAt.Unix()),
		Member: data,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to push job: %w", err)
	}
	return nil
}

// Pop blocks up to timeout for the next job. It returns ErrTimeout rather
// than a Redis nil error so callers can treat "nothing pending" uniformly.
func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*TriggerJob, error) {
	result, err := q.client.BZPopMin(ctx, timeout, q.queueName).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrTimeout
		}
		return nil, fmt.Errorf("failed to pop job: %w", err)
	}

	var job TriggerJob
	if err := json.Unmarshal([]byte(result.Member.(string)), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *RedisQueue) Length(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, q.queueName).Result()
}
