// Package progress defines the milestone events emitted by clone workers
// and the hub that fans them out to sinks.
package progress

import (
	"errors"
	"fmt"
	"time"
)

// Milestone denotes the kind of checkpoint an Event represents.
type Milestone string

// Supported milestones.
const (
	MilestoneJobStart  Milestone = "JOB_START"
	MilestoneStageDone Milestone = "STAGE_DONE"
	MilestoneJobDone   Milestone = "JOB_DONE"
	MilestoneJobError  Milestone = "JOB_ERROR"
)

// Pipeline stage names used with MilestoneStageDone.
const (
	StageScrape    = "scrape"
	StageSummarize = "summarize"
	StageSynth     = "synthesize"
	StageStore     = "store"
)

// Event captures a single checkpoint in a clone job's life.
type Event struct {
	// JobID identifies the job run.
	JobID string
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Milestone denotes which checkpoint occurred.
	Milestone Milestone
	// Stage names the pipeline stage for MilestoneStageDone events.
	Stage string
	// Site is the lowercase source hostname.
	Site string
	// Progress is the job progress percentage after this checkpoint.
	Progress int
	// Dur captures the stage or job wall time.
	Dur time.Duration
	// Note carries low-volume debug context, typically error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.JobID == "" {
		return errors.New("job id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Milestone {
	case MilestoneJobStart, MilestoneJobDone, MilestoneJobError:
	case MilestoneStageDone:
		if e.Stage == "" {
			return errors.New("stage done requires stage name")
		}
	default:
		return fmt.Errorf("unknown milestone %q", e.Milestone)
	}
	if e.Progress < 0 || e.Progress > 100 {
		return fmt.Errorf("progress %d out of range", e.Progress)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
