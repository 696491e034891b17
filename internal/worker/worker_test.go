package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-cloner/internal/clone"
	"github.com/JakeFAU/site-cloner/internal/metrics"
	storememory "github.com/JakeFAU/site-cloner/internal/store/memory"
)

func init() {
	metrics.Init()
}

type fakeScraper struct {
	result clone.ScrapeResult
	err    error
}

func (f *fakeScraper) Scrape(context.Context, string) (clone.ScrapeResult, error) {
	return f.result, f.err
}

type fakeSummarizer struct{}

func (fakeSummarizer) Summarize(result clone.ScrapeResult) clone.LayoutSummary {
	return clone.LayoutSummary{Title: result.Title, Viewport: result.Viewport}
}

type fakeSynthesizer struct {
	doc string
	err error
}

func (f *fakeSynthesizer) Synthesize(context.Context, clone.LayoutSummary, string) (string, error) {
	return f.doc, f.err
}

type fakeHasher struct{}

func (fakeHasher) Hash([]byte) (string, error) {
	return "abc123", nil
}

type fakeClock struct{}

func (fakeClock) Now() time.Time {
	return time.Unix(1700000000, 0).UTC()
}

type fakePublisher struct {
	events []clone.Event
}

func (f *fakePublisher) Publish(_ context.Context, event clone.Event) error {
	f.events = append(f.events, event)
	return nil
}

type fakeCSS struct {
	css   string
	calls int
}

func (f *fakeCSS) FetchAll(context.Context, []string) string {
	f.calls++
	return f.css
}

type fakeArtifacts struct {
	paths []string
	data  [][]byte
	err   error
}

func (f *fakeArtifacts) Put(_ context.Context, path string, _ string, data []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.paths = append(f.paths, path)
	f.data = append(f.data, data)
	return "mem://" + path, nil
}

func (f *fakeArtifacts) Get(context.Context, string) ([]byte, error) {
	return nil, clone.ErrNotFound
}

func seededStore(t *testing.T, jobID, url string) *storememory.JobStore {
	t.Helper()
	store := storememory.NewJobStore()
	require.NoError(t, store.CreateJob(context.Background(), clone.Job{
		ID:        jobID,
		Status:    clone.JobStatusQueued,
		SourceURL: url,
		Submitted: time.Unix(1700000000, 0).UTC(),
	}))
	return store
}

func newTestWorker(
	store clone.JobStore,
	artifacts clone.ArtifactStore,
	pub clone.Publisher,
	scraper clone.Scraper,
	synth clone.Synthesizer,
	css cssFetcher,
	cfg Config,
) *Worker {
	return New(
		nil, store, artifacts, pub,
		fakeHasher{}, fakeClock{},
		scraper, fakeSummarizer{}, synth,
		css, nil, cfg, nil,
	)
}

func TestProcessTaskSuccess(t *testing.T) {
	t.Parallel()

	store := seededStore(t, "job-1", "https://example.com")
	artifacts := &fakeArtifacts{}
	pub := &fakePublisher{}
	w := newTestWorker(store, artifacts, pub,
		&fakeScraper{result: clone.ScrapeResult{Title: "Example"}},
		&fakeSynthesizer{doc: "<html></html>"},
		nil,
		Config{ArtifactPrefix: "clones"},
	)

	w.processTask(context.Background(), clone.Task{JobID: "job-1", SourceURL: "https://example.com"})

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, clone.JobStatusComplete, job.Status)
	require.Equal(t, 100, job.Progress)
	require.Equal(t, "mem://clones/job-1/abc123.html", job.ResultRef)
	require.Empty(t, job.ErrorDetail)

	require.Equal(t, []string{"clones/job-1/abc123.html"}, artifacts.paths)
	require.Equal(t, []byte("<html></html>"), artifacts.data[0])

	require.Len(t, pub.events, 1)
	require.Equal(t, clone.JobStatusComplete, pub.events[0].Status)
}

func TestProcessTaskScrapeFailure(t *testing.T) {
	t.Parallel()

	store := seededStore(t, "job-1", "https://example.com")
	pub := &fakePublisher{}
	w := newTestWorker(store, &fakeArtifacts{}, pub,
		&fakeScraper{err: errors.New("nav timeout")},
		&fakeSynthesizer{doc: "<html></html>"},
		nil, Config{},
	)

	w.processTask(context.Background(), clone.Task{JobID: "job-1", SourceURL: "https://example.com"})

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, clone.JobStatusError, job.Status)
	require.Equal(t, clone.DetailScrapeFailed+": nav timeout", job.ErrorDetail)
	require.Empty(t, job.ResultRef)

	require.Len(t, pub.events, 1)
	require.Equal(t, clone.JobStatusError, pub.events[0].Status)
	require.True(t, strings.HasPrefix(pub.events[0].Detail, clone.DetailScrapeFailed))
}

func TestProcessTaskErrorPageFails(t *testing.T) {
	t.Parallel()

	store := seededStore(t, "job-1", "https://example.com/missing")
	pub := &fakePublisher{}
	w := newTestWorker(store, &fakeArtifacts{}, pub,
		&fakeScraper{result: clone.ScrapeResult{StatusCode: 404}},
		&fakeSynthesizer{doc: "<html></html>"},
		nil, Config{},
	)

	w.processTask(context.Background(), clone.Task{JobID: "job-1", SourceURL: "https://example.com/missing"})

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, clone.JobStatusError, job.Status)
	require.Equal(t, clone.DetailScrapeFailed+": page returned status 404", job.ErrorDetail)
	require.Empty(t, job.ResultRef)

	require.Len(t, pub.events, 1)
	require.Equal(t, clone.JobStatusError, pub.events[0].Status)
}

func TestProcessTaskSynthesisFailure(t *testing.T) {
	t.Parallel()

	store := seededStore(t, "job-1", "https://example.com")
	w := newTestWorker(store, &fakeArtifacts{}, &fakePublisher{},
		&fakeScraper{result: clone.ScrapeResult{Title: "Example"}},
		&fakeSynthesizer{err: fmt.Errorf("synthesize after 3 attempt(s): backend down")},
		nil, Config{},
	)

	w.processTask(context.Background(), clone.Task{JobID: "job-1", SourceURL: "https://example.com"})

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, clone.JobStatusError, job.Status)
	require.True(t, strings.HasPrefix(job.ErrorDetail, clone.DetailSynthesisFailed))
}

func TestProcessTaskArtifactFailureIsInternal(t *testing.T) {
	t.Parallel()

	store := seededStore(t, "job-1", "https://example.com")
	w := newTestWorker(store, &fakeArtifacts{err: errors.New("bucket gone")}, &fakePublisher{},
		&fakeScraper{result: clone.ScrapeResult{}},
		&fakeSynthesizer{doc: "<html></html>"},
		nil, Config{},
	)

	w.processTask(context.Background(), clone.Task{JobID: "job-1", SourceURL: "https://example.com"})

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, clone.JobStatusError, job.Status)
	require.True(t, strings.HasPrefix(job.ErrorDetail, clone.DetailInternalError))
}

type panickingScraper struct{}

func (panickingScraper) Scrape(context.Context, string) (clone.ScrapeResult, error) {
	panic("boom")
}

func TestProcessTaskRecoversPanic(t *testing.T) {
	t.Parallel()

	store := seededStore(t, "job-1", "https://example.com")
	pub := &fakePublisher{}
	w := newTestWorker(store, &fakeArtifacts{}, pub,
		panickingScraper{},
		&fakeSynthesizer{doc: "<html></html>"},
		nil, Config{},
	)

	require.NotPanics(t, func() {
		w.processTask(context.Background(), clone.Task{JobID: "job-1", SourceURL: "https://example.com"})
	})

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, clone.JobStatusError, job.Status)
	require.True(t, strings.HasPrefix(job.ErrorDetail, clone.DetailInternalError))
	require.Len(t, pub.events, 1)
}

func TestProcessTaskFetchesCSSWhenEnabled(t *testing.T) {
	t.Parallel()

	css := &fakeCSS{css: "body{}"}
	store := seededStore(t, "job-1", "https://example.com")
	w := newTestWorker(store, &fakeArtifacts{}, &fakePublisher{},
		&fakeScraper{result: clone.ScrapeResult{StylesheetURLs: []string{"https://example.com/a.css"}}},
		&fakeSynthesizer{doc: "<html></html>"},
		css,
		Config{FetchCSS: true},
	)

	w.processTask(context.Background(), clone.Task{JobID: "job-1", SourceURL: "https://example.com"})
	require.Equal(t, 1, css.calls)
}

func TestBuildArtifactPath(t *testing.T) {
	t.Parallel()

	w := newTestWorker(nil, nil, nil, nil, nil, nil, Config{ArtifactPrefix: "/clones/"})
	require.Equal(t, "clones/job-1/abc.html", w.buildArtifactPath("job-1", "abc"))

	w = newTestWorker(nil, nil, nil, nil, nil, nil, Config{})
	require.Equal(t, "job-1/abc.html", w.buildArtifactPath("job-1", "abc"))
}
