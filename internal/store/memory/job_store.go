// Package memory provides an in-memory job store for development/testing.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

// JobStore keeps job records in a map guarded by a single mutex, so every
// write is atomic per job id and readers never observe a partial record.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]clone.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]clone.Job),
	}
}

// CreateJob stores a new job in queued status.
func (s *JobStore) CreateJob(_ context.Context, job clone.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return errors.New("job already exists")
	}
	s.jobs[job.ID] = job
	return nil
}

// GetJob fetches a job by ID.
func (s *JobStore) GetJob(_ context.Context, jobID string) (clone.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return clone.Job{}, clone.ErrNotFound
	}
	return job, nil
}

// UpdateJobStatus advances status, progress and detail for a job. Updates
// against a terminal job are no-ops, and progress never moves backwards.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	status clone.JobStatus,
	progress int,
	detail string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return clone.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil
	}
	job.Status = status
	if progress > job.Progress {
		job.Progress = progress
	}
	if status == clone.JobStatusError {
		job.ErrorDetail = detail
	}
	now := time.Now().UTC()
	if status == clone.JobStatusRunning && job.Started == nil {
		job.Started = pointerTime(now)
	}
	if status.IsTerminal() {
		job.Finished = pointerTime(now)
	}
	s.jobs[jobID] = job
	return nil
}

// SetResult records the artifact ref and marks the job complete. A second
// call against the finished job is a no-op.
func (s *JobStore) SetResult(_ context.Context, jobID string, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return clone.ErrNotFound
	}
	if job.Status.IsTerminal() {
		return nil
	}
	job.Status = clone.JobStatusComplete
	job.Progress = 100
	job.ResultRef = ref
	job.Finished = pointerTime(time.Now().UTC())
	s.jobs[jobID] = job
	return nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
