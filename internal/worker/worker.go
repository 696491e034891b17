// Package worker implements the clone pipeline execution loop.
package worker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/site-cloner/internal/clone"
	"github.com/JakeFAU/site-cloner/internal/metrics"
	"github.com/JakeFAU/site-cloner/internal/progress"
)

// Progress checkpoints written after each pipeline stage.
const (
	progressRunning    = 5
	progressScraped    = 35
	progressSummarized = 55
	progressSynthed    = 90
	progressDone       = 100
)

// cssFetcher retrieves external stylesheets for a scrape. Optional; a nil
// fetcher means synthesis runs without captured CSS.
type cssFetcher interface {
	FetchAll(ctx context.Context, urls []string) string
}

// Config controls Worker behavior.
type Config struct {
	ContentType    string
	ArtifactPrefix string
	FetchCSS       bool
}

// Worker consumes queue tasks and executes the clone pipeline: scrape,
// summarize, synthesize, store.
type Worker struct {
	queue       clone.Queue
	jobStore    clone.JobStore
	artifacts   clone.ArtifactStore
	publisher   clone.Publisher
	hasher      clone.Hasher
	clock       clone.Clock
	scraper     clone.Scraper
	summarizer  clone.Summarizer
	synthesizer clone.Synthesizer
	css         cssFetcher
	emitter     progress.Emitter
	cfg         Config
	logger      *zap.Logger
}

// New constructs a Worker.
func New(
	queue clone.Queue,
	jobStore clone.JobStore,
	artifacts clone.ArtifactStore,
	publisher clone.Publisher,
	hasher clone.Hasher,
	clock clone.Clock,
	scraper clone.Scraper,
	summarizer clone.Summarizer,
	synthesizer clone.Synthesizer,
	css cssFetcher,
	emitter progress.Emitter,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if cfg.ContentType == "" {
		cfg.ContentType = "text/html; charset=utf-8"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:       queue,
		jobStore:    jobStore,
		artifacts:   artifacts,
		publisher:   publisher,
		hasher:      hasher,
		clock:       clock,
		scraper:     scraper,
		summarizer:  summarizer,
		synthesizer: synthesizer,
		css:         css,
		emitter:     emitter,
		cfg:         cfg,
		logger:      logger,
	}
}

// Run blocks, consuming queue tasks until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		task, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.logger.Debug("dequeued task", zap.String("job_id", task.JobID))
		w.processTask(ctx, task)
	}
}

// processTask runs the pipeline for one task. A panic in any stage is
// contained here and recorded as an internal error on the job.
func (w *Worker) processTask(ctx context.Context, task clone.Task) {
	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	start := w.clock.Now()
	site := clone.SiteLabel(task.SourceURL)

	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("pipeline panic",
				zap.String("job_id", task.JobID), zap.Any("panic", r))
			w.failJob(ctx, task, site, start,
				fmt.Sprintf("%s: %v", clone.DetailInternalError, r))
		}
	}()

	if err := w.jobStore.UpdateJobStatus(ctx, task.JobID, clone.JobStatusRunning, progressRunning, ""); err != nil {
		w.logger.Error("mark job running failed",
			zap.String("job_id", task.JobID), zap.Error(err))
		return
	}
	w.emit(progress.Event{
		JobID:     task.JobID,
		TS:        w.clock.Now(),
		Milestone: progress.MilestoneJobStart,
		Site:      site,
		Progress:  progressRunning,
	})

	result, err := w.runScrape(ctx, task, site)
	if err != nil {
		w.failJob(ctx, task, site, start, detail(clone.DetailScrapeFailed, err))
		return
	}

	summary := w.runSummarize(ctx, task, site, result)

	var css string
	if w.cfg.FetchCSS && w.css != nil && len(result.StylesheetURLs) > 0 {
		css = w.css.FetchAll(ctx, result.StylesheetURLs)
	}

	doc, err := w.runSynthesize(ctx, task, site, summary, css)
	if err != nil {
		w.failJob(ctx, task, site, start, detail(clone.DetailSynthesisFailed, err))
		return
	}

	if err := w.storeResult(ctx, task, doc); err != nil {
		w.failJob(ctx, task, site, start, detail(clone.DetailInternalError, err))
		return
	}

	w.emit(progress.Event{
		JobID:     task.JobID,
		TS:        w.clock.Now(),
		Milestone: progress.MilestoneJobDone,
		Site:      site,
		Progress:  progressDone,
		Dur:       w.clock.Now().Sub(start),
	})
	w.publish(ctx, clone.Event{JobID: task.JobID, Status: clone.JobStatusComplete})
	w.logger.Info("clone finished",
		zap.String("job_id", task.JobID),
		zap.String("site", site),
		zap.Duration("dur", w.clock.Now().Sub(start)),
	)
}

func (w *Worker) runScrape(ctx context.Context, task clone.Task, site string) (clone.ScrapeResult, error) {
	stageStart := w.clock.Now()
	result, err := w.scraper.Scrape(ctx, task.SourceURL)
	if err != nil {
		return clone.ScrapeResult{}, err
	}
	if result.StatusCode >= 400 {
		return clone.ScrapeResult{}, fmt.Errorf("page returned status %d", result.StatusCode)
	}
	metrics.ObserveScrapeNodes(len(result.Nodes))
	w.stageDone(ctx, task, site, progress.StageScrape, progressScraped, stageStart)
	return result, nil
}

func (w *Worker) runSummarize(ctx context.Context, task clone.Task, site string, result clone.ScrapeResult) clone.LayoutSummary {
	stageStart := w.clock.Now()
	summary := w.summarizer.Summarize(result)
	w.stageDone(ctx, task, site, progress.StageSummarize, progressSummarized, stageStart)
	return summary
}

func (w *Worker) runSynthesize(ctx context.Context, task clone.Task, site string, summary clone.LayoutSummary, css string) (string, error) {
	stageStart := w.clock.Now()
	doc, err := w.synthesizer.Synthesize(ctx, summary, css)
	if err != nil {
		metrics.ObserveSynthAttempt("error")
		return "", err
	}
	metrics.ObserveSynthAttempt("success")
	w.stageDone(ctx, task, site, progress.StageSynth, progressSynthed, stageStart)
	return doc, nil
}

// storeResult hashes the document, writes the artifact, and completes the
// job with the resulting ref.
func (w *Worker) storeResult(ctx context.Context, task clone.Task, doc string) error {
	body := []byte(doc)
	hash, err := w.hasher.Hash(body)
	if err != nil {
		return fmt.Errorf("hash document: %w", err)
	}
	path := w.buildArtifactPath(task.JobID, hash)
	ref, err := w.artifacts.Put(ctx, path, w.cfg.ContentType, body)
	if err != nil {
		return fmt.Errorf("put artifact: %w", err)
	}
	if err := w.jobStore.SetResult(ctx, task.JobID, ref); err != nil {
		return fmt.Errorf("set result: %w", err)
	}
	return nil
}

func (w *Worker) buildArtifactPath(jobID, hash string) string {
	prefix := strings.Trim(w.cfg.ArtifactPrefix, "/")
	if prefix == "" {
		return fmt.Sprintf("%s/%s.html", jobID, hash)
	}
	return fmt.Sprintf("%s/%s/%s.html", prefix, jobID, hash)
}

// failJob records the terminal error state and publishes the event. The
// store's terminal guard makes this a no-op if the job already finished.
func (w *Worker) failJob(ctx context.Context, task clone.Task, site string, start time.Time, errText string) {
	if err := w.jobStore.UpdateJobStatus(ctx, task.JobID, clone.JobStatusError, progressDone, errText); err != nil {
		w.logger.Error("fail job status update",
			zap.String("job_id", task.JobID), zap.Error(err))
	}
	w.emit(progress.Event{
		JobID:     task.JobID,
		TS:        w.clock.Now(),
		Milestone: progress.MilestoneJobError,
		Site:      site,
		Progress:  progressDone,
		Dur:       w.clock.Now().Sub(start),
		Note:      errText,
	})
	w.publish(ctx, clone.Event{JobID: task.JobID, Status: clone.JobStatusError, Detail: errText})
	w.logger.Warn("clone failed",
		zap.String("job_id", task.JobID),
		zap.String("site", site),
		zap.String("detail", errText),
	)
}

func (w *Worker) stageDone(ctx context.Context, task clone.Task, site, stage string, pct int, stageStart time.Time) {
	if err := w.jobStore.UpdateJobStatus(ctx, task.JobID, clone.JobStatusRunning, pct, ""); err != nil {
		w.logger.Error("stage progress update failed",
			zap.String("job_id", task.JobID),
			zap.String("stage", stage),
			zap.Error(err),
		)
	}
	w.emit(progress.Event{
		JobID:     task.JobID,
		TS:        w.clock.Now(),
		Milestone: progress.MilestoneStageDone,
		Stage:     stage,
		Site:      site,
		Progress:  pct,
		Dur:       w.clock.Now().Sub(stageStart),
	})
}

func (w *Worker) emit(evt progress.Event) {
	if w.emitter == nil {
		return
	}
	w.emitter.Emit(evt)
}

func (w *Worker) publish(ctx context.Context, event clone.Event) {
	if w.publisher == nil {
		return
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Warn("terminal event publish failed",
			zap.String("job_id", event.JobID), zap.Error(err))
	}
}

func detail(prefix string, err error) string {
	return prefix + ": " + err.Error()
}
