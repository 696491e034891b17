package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInit(t *testing.T) {
	// Call Init multiple times to test idempotency.
	Init()
	Init()

	if clonerJobsTotal == nil || clonerStageDurationSeconds == nil ||
		clonerActiveWorkers == nil || httpRequestsTotal == nil {
		t.Fatal("Init() did not initialize metrics collectors")
	}

	ObserveJob("complete")
	if val := testutil.ToFloat64(clonerJobsTotal.WithLabelValues("complete")); val != 1 {
		t.Errorf("expected cloner_jobs_total{status=complete} to be 1, got %f", val)
	}

	IncActiveWorkers()
	IncActiveWorkers()
	DecActiveWorkers()
	if val := testutil.ToFloat64(clonerActiveWorkers); val != 1 {
		t.Errorf("expected active workers gauge to be 1, got %f", val)
	}

	ObserveStage("scrape", "example.com", 2*time.Second)
	ObserveScrapeNodes(120)
	ObserveSynthAttempt("success")
	ObserveHTTPRequest("POST", "/clone", 202, 50*time.Millisecond)
}

func TestHandlerServesRegistry(t *testing.T) {
	Init()
	if Handler() == nil {
		t.Fatal("Handler() returned nil")
	}
}
