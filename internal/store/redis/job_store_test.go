package redis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

func TestDecodeJob(t *testing.T) {
	t.Parallel()

	submitted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	finished := submitted.Add(9 * time.Second)
	data := map[string]string{
		"status":       "complete",
		"progress":     "100",
		"source_url":   "https://example.com",
		"result_ref":   "mem://job-1/abc.html",
		"submitted_at": submitted.Format(time.RFC3339Nano),
		"finished_at":  finished.Format(time.RFC3339Nano),
	}

	job := decodeJob("job-1", data)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, clone.JobStatusComplete, job.Status)
	require.Equal(t, 100, job.Progress)
	require.Equal(t, "https://example.com", job.SourceURL)
	require.Equal(t, "mem://job-1/abc.html", job.ResultRef)
	require.Empty(t, job.ErrorDetail)
	require.Equal(t, submitted, job.Submitted)
	require.Nil(t, job.Started)
	require.NotNil(t, job.Finished)
	require.Equal(t, finished, *job.Finished)
}

func TestDecodeJobToleratesPartialHash(t *testing.T) {
	t.Parallel()

	job := decodeJob("job-2", map[string]string{
		"status":   "queued",
		"progress": "not-a-number",
	})
	require.Equal(t, clone.JobStatusQueued, job.Status)
	require.Equal(t, 0, job.Progress)
	require.True(t, job.Submitted.IsZero())
}

func TestJobKey(t *testing.T) {
	t.Parallel()

	require.Equal(t, "jobs:abc", jobKey("abc"))
}
