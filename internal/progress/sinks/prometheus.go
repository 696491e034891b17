package sinks

import (
	"context"

	"github.com/JakeFAU/site-cloner/internal/metrics"
	"github.com/JakeFAU/site-cloner/internal/progress"
)

// MetricsSink bridges progress events into the service's Prometheus
// collectors: terminal job counts and per-stage durations.
type MetricsSink struct{}

// NewMetricsSink returns a sink backed by the package-level collectors.
// metrics.Init must have been called first.
func NewMetricsSink() *MetricsSink {
	return &MetricsSink{}
}

// Consume updates the collectors from the batch.
func (s *MetricsSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Milestone {
		case progress.MilestoneStageDone:
			metrics.ObserveStage(evt.Stage, site(evt), evt.Dur)
		case progress.MilestoneJobDone:
			metrics.ObserveJob("complete")
		case progress.MilestoneJobError:
			metrics.ObserveJob("error")
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *MetricsSink) Close(context.Context) error {
	return nil
}

func site(evt progress.Event) string {
	if evt.Site == "" {
		return "unknown"
	}
	return evt.Site
}
