// Package redis provides a Redis list backed task queue so clone work
// survives process restarts and can be shared across workers.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

const defaultBlockTimeout = 5 * time.Second

// Config controls the Redis connection and list key.
type Config struct {
	Addr string
	DB   int
	Key  string
	// BlockTimeout bounds each BLPOP call so Dequeue can observe context
	// cancellation between polls. Zero uses a 5s default.
	BlockTimeout time.Duration
}

// Queue pushes JSON-encoded tasks onto a Redis list and pops them with
// BLPOP. Pop order is FIFO across all workers sharing the key.
type Queue struct {
	client       *goredis.Client
	key          string
	blockTimeout time.Duration
}

// NewQueue connects a new Redis client for the queue.
func NewQueue(cfg Config) (*Queue, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("queue.redis.addr is required")
	}
	client := goredis.NewClient(&goredis.Options{Addr: cfg.Addr, DB: cfg.DB})
	return NewQueueWithClient(client, cfg), nil
}

// NewQueueWithClient wraps an existing client (primarily for testing).
func NewQueueWithClient(client *goredis.Client, cfg Config) *Queue {
	key := cfg.Key
	if key == "" {
		key = "clone:tasks"
	}
	timeout := cfg.BlockTimeout
	if timeout <= 0 {
		timeout = defaultBlockTimeout
	}
	return &Queue{client: client, key: key, blockTimeout: timeout}
}

// Enqueue appends the task to the tail of the list.
func (q *Queue) Enqueue(ctx context.Context, task clone.Task) error {
	payload, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	if err := q.client.RPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

// Dequeue blocks until a task is available or the context ends. Each
// BLPOP is bounded by the block timeout so cancellation is noticed.
func (q *Queue) Dequeue(ctx context.Context) (clone.Task, error) {
	for {
		if err := ctx.Err(); err != nil {
			return clone.Task{}, fmt.Errorf("dequeue canceled: %w", err)
		}
		// BLPOP returns [key, value].
		result, err := q.client.BLPop(ctx, q.blockTimeout, q.key).Result()
		if errors.Is(err, goredis.Nil) {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return clone.Task{}, fmt.Errorf("dequeue canceled: %w", ctx.Err())
			}
			return clone.Task{}, fmt.Errorf("dequeue task: %w", err)
		}
		return decodeTask([]byte(result[1]))
	}
}

// Ping verifies connectivity for readiness checks.
func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (q *Queue) Close() error {
	return q.client.Close()
}

func decodeTask(payload []byte) (clone.Task, error) {
	var task clone.Task
	if err := json.Unmarshal(payload, &task); err != nil {
		return clone.Task{}, fmt.Errorf("decode task: %w", err)
	}
	if task.JobID == "" {
		return clone.Task{}, errors.New("decode task: missing job id")
	}
	return task, nil
}
