package clone

import (
	"context"
	"time"
)

// JobStore persists job records. All writes are atomic per job id, and
// terminal states are write-once: updates against a complete or errored
// job are silent no-ops.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	// UpdateJobStatus advances status/progress and, for error states, the
	// detail. Progress never decreases; lower values are clamped.
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus, progress int, detail string) error
	// SetResult records the artifact ref and moves the job to complete
	// with progress 100.
	SetResult(ctx context.Context, jobID string, ref string) error
}

// ArtifactStore holds generated HTML documents addressable by ref.
type ArtifactStore interface {
	Put(ctx context.Context, path string, contentType string, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
}

// Queue provides enqueue/dequeue semantics for clone tasks.
type Queue interface {
	Enqueue(ctx context.Context, task Task) error
	Dequeue(ctx context.Context) (Task, error)
}

// Scraper loads a URL in a disposable headless session and extracts the
// rendered structure. No retry at this layer.
type Scraper interface {
	Scrape(ctx context.Context, url string) (ScrapeResult, error)
}

// Summarizer reduces a scrape into a bounded layout digest. Must be a
// deterministic pure function of its input.
type Summarizer interface {
	Summarize(result ScrapeResult) LayoutSummary
}

// Synthesizer produces the final HTML document from a layout summary.
// Transient backend failures are retried internally up to its configured
// ceiling.
type Synthesizer interface {
	Synthesize(ctx context.Context, summary LayoutSummary, css string) (string, error)
}

// Publisher pushes terminal-state events to a topic (or similar).
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Hasher computes digests for artifact addressing.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
