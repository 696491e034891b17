// Package redis provides a Redis-backed job store. Job records live in
// hashes keyed jobs:{id} with a retention TTL; expired jobs read as not
// found.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

// Config controls the Redis job store.
type Config struct {
	Addr string
	DB   int
	// TTL bounds how long a job record survives after its last write.
	TTL time.Duration
}

// JobStore implements clone.JobStore on Redis hashes. The terminal-state
// guard and progress clamp run server-side in a Lua script so concurrent
// late writers cannot interleave with a finishing worker.
type JobStore struct {
	client *redis.Client
	ttl    time.Duration
}

// updateScript applies a status write only when the job exists and is not
// terminal, clamping progress to be non-decreasing.
// KEYS[1]=job key; ARGV: status, progress, detail, now, ttlSeconds.
var updateScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then return 0 end
if status == 'complete' or status == 'error' then return 1 end
redis.call('HSET', KEYS[1], 'status', ARGV[1])
local prev = tonumber(redis.call('HGET', KEYS[1], 'progress') or '0')
local next = tonumber(ARGV[2])
if next > prev then
  redis.call('HSET', KEYS[1], 'progress', ARGV[2])
end
if ARGV[1] == 'running' and redis.call('HEXISTS', KEYS[1], 'started_at') == 0 then
  redis.call('HSET', KEYS[1], 'started_at', ARGV[4])
end
if ARGV[1] == 'error' then
  redis.call('HSET', KEYS[1], 'error_detail', ARGV[3], 'finished_at', ARGV[4])
end
redis.call('EXPIRE', KEYS[1], ARGV[5])
return 1
`)

// resultScript marks a job complete with its artifact ref, once.
// KEYS[1]=job key; ARGV: ref, now, ttlSeconds.
var resultScript = redis.NewScript(`
local status = redis.call('HGET', KEYS[1], 'status')
if not status then return 0 end
if status == 'complete' or status == 'error' then return 1 end
redis.call('HSET', KEYS[1],
  'status', 'complete',
  'progress', '100',
  'result_ref', ARGV[1],
  'finished_at', ARGV[2])
redis.call('EXPIRE', KEYS[1], ARGV[3])
return 1
`)

// NewJobStore constructs a JobStore from config.
func NewJobStore(cfg Config) *JobStore {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr, DB: cfg.DB})
	return NewJobStoreWithClient(client, cfg.TTL)
}

// NewJobStoreWithClient constructs a JobStore from an existing client
// (primarily for testing).
func NewJobStoreWithClient(client *redis.Client, ttl time.Duration) *JobStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JobStore{client: client, ttl: ttl}
}

// Ping verifies connectivity for readiness checks.
func (s *JobStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close releases the underlying client.
func (s *JobStore) Close() error {
	if err := s.client.Close(); err != nil {
		return fmt.Errorf("close redis client: %w", err)
	}
	return nil
}

func jobKey(jobID string) string {
	return "jobs:" + jobID
}

// CreateJob writes the initial queued record.
func (s *JobStore) CreateJob(ctx context.Context, job clone.Job) error {
	key := jobKey(job.ID)
	fields := map[string]any{
		"status":       string(job.Status),
		"progress":     strconv.Itoa(job.Progress),
		"source_url":   job.SourceURL,
		"submitted_at": job.Submitted.UTC().Format(time.RFC3339Nano),
	}
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("hset job: %w", err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("expire job: %w", err)
	}
	return nil
}

// GetJob loads a job or returns clone.ErrNotFound for unknown/expired ids.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (clone.Job, error) {
	data, err := s.client.HGetAll(ctx, jobKey(jobID)).Result()
	if err != nil {
		return clone.Job{}, fmt.Errorf("hgetall job: %w", err)
	}
	if len(data) == 0 {
		return clone.Job{}, clone.ErrNotFound
	}
	return decodeJob(jobID, data), nil
}

// UpdateJobStatus advances the record unless it is already terminal.
func (s *JobStore) UpdateJobStatus(
	ctx context.Context,
	jobID string,
	status clone.JobStatus,
	progress int,
	detail string,
) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := updateScript.Run(ctx, s.client, []string{jobKey(jobID)},
		string(status), strconv.Itoa(progress), detail, now, int(s.ttl.Seconds())).Int()
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if res == 0 {
		return clone.ErrNotFound
	}
	return nil
}

// SetResult records the artifact ref and completes the job.
func (s *JobStore) SetResult(ctx context.Context, jobID string, ref string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := resultScript.Run(ctx, s.client, []string{jobKey(jobID)},
		ref, now, int(s.ttl.Seconds())).Int()
	if err != nil {
		return fmt.Errorf("set job result: %w", err)
	}
	if res == 0 {
		return clone.ErrNotFound
	}
	return nil
}

func decodeJob(jobID string, data map[string]string) clone.Job {
	job := clone.Job{
		ID:          jobID,
		Status:      clone.JobStatus(data["status"]),
		SourceURL:   data["source_url"],
		ErrorDetail: data["error_detail"],
		ResultRef:   data["result_ref"],
	}
	if p, err := strconv.Atoi(data["progress"]); err == nil {
		job.Progress = p
	}
	job.Submitted = parseTime(data["submitted_at"])
	if t := data["started_at"]; t != "" {
		ts := parseTime(t)
		job.Started = &ts
	}
	if t := data["finished_at"]; t != "" {
		ts := parseTime(t)
		job.Finished = &ts
	}
	return job
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
