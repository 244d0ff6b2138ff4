package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"waha-chatwoot/internal/metrics"
)

const keyPrefix = "wcw:queue:"

// Options configure defaults applied to enqueued jobs.
type Options struct {
	MaxAttempts int
	Backoff     Backoff
}

// Queues manages named Redis-backed job queues. Each queue keeps a ready
// list, a delayed sorted set for retries and a dead-letter list.
type Queues struct {
	client *redis.Client
	logger *slog.Logger
	meter  *metrics.Metrics
	opts   Options
}

// New creates the queue manager.
func New(client *redis.Client, logger *slog.Logger, meter *metrics.Metrics, opts Options) *Queues {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	return &Queues{
		client: client,
		logger: logger.With("component", "queue"),
		meter:  meter,
		opts:   opts,
	}
}

func readyKey(queue string) string   { return keyPrefix + queue + ":ready" }
func delayedKey(queue string) string { return keyPrefix + queue + ":delayed" }
func deadKey(queue string) string    { return keyPrefix + queue + ":dead" }

// Enqueue adds a new job to the named queue.
func (q *Queues) Enqueue(ctx context.Context, queue, app, session, event string, payload json.RawMessage) (*Job, error) {
	job := &Job{
		ID:           uuid.NewString(),
		Queue:        queue,
		App:          app,
		Session:      session,
		Event:        event,
		Payload:      payload,
		AttemptsMade: 0,
		MaxAttempts:  q.opts.MaxAttempts,
		Backoff:      q.opts.Backoff,
		EnqueuedAt:   time.Now().UTC(),
	}
	if err := q.push(ctx, job); err != nil {
		return nil, err
	}
	q.meter.JobsEnqueued.WithLabelValues(queue).Inc()
	return job, nil
}

func (q *Queues) push(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, readyKey(job.Queue), data).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", job.Queue, err)
	}
	return nil
}

// pop blocks up to timeout waiting for a ready job on the queue.
func (q *Queues) pop(ctx context.Context, queue string, timeout time.Duration) (*Job, error) {
	res, err := q.client.BRPop(ctx, timeout, readyKey(queue)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("pop %s: %w", queue, err)
	}
	// BRPop returns [key, value].
	var job Job
	if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
		return nil, fmt.Errorf("unmarshal job from %s: %w", queue, err)
	}
	return &job, nil
}

// retryLater schedules the job for a future attempt after delay.
func (q *Queues) retryLater(ctx context.Context, job *Job, delay time.Duration) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	eta := float64(time.Now().Add(delay).UnixMilli())
	if err := q.client.ZAdd(ctx, delayedKey(job.Queue), redis.Z{Score: eta, Member: data}).Err(); err != nil {
		return fmt.Errorf("schedule retry %s: %w", job.Queue, err)
	}
	return nil
}

// deadLetter parks a terminally failed job for operator inspection.
func (q *Queues) deadLetter(ctx context.Context, job *Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal job: %w", err)
	}
	if err := q.client.LPush(ctx, deadKey(job.Queue), data).Err(); err != nil {
		return fmt.Errorf("dead-letter %s: %w", job.Queue, err)
	}
	return nil
}

// promoteDue moves delayed jobs whose ETA has passed back to the ready list.
func (q *Queues) promoteDue(ctx context.Context, queue string) error {
	now := fmt.Sprintf("%d", time.Now().UnixMilli())
	members, err := q.client.ZRangeByScore(ctx, delayedKey(queue), &redis.ZRangeBy{
		Min: "-inf", Max: now, Count: 100,
	}).Result()
	if err != nil {
		return fmt.Errorf("promote %s: %w", queue, err)
	}
	for _, member := range members {
		removed, err := q.client.ZRem(ctx, delayedKey(queue), member).Result()
		if err != nil {
			return fmt.Errorf("promote zrem %s: %w", queue, err)
		}
		if removed == 0 {
			// Another worker promoted it first.
			continue
		}
		if err := q.client.LPush(ctx, readyKey(queue), member).Err(); err != nil {
			return fmt.Errorf("promote push %s: %w", queue, err)
		}
	}
	return nil
}
