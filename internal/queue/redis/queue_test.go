package redis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

func TestDecodeTaskRoundTrip(t *testing.T) {
	t.Parallel()

	want := clone.Task{
		JobID:     "job-1",
		SourceURL: "https://example.com",
		Attempt:   1,
		Submitted: 1700000000,
	}
	payload, err := json.Marshal(want)
	require.NoError(t, err)

	got, err := decodeTask(payload)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecodeTaskRejectsBadPayloads(t *testing.T) {
	t.Parallel()

	_, err := decodeTask([]byte("not json"))
	require.Error(t, err)

	_, err = decodeTask([]byte(`{"source_url":"https://example.com"}`))
	require.Error(t, err)
}

func TestNewQueueWithClientDefaults(t *testing.T) {
	t.Parallel()

	q := NewQueueWithClient(nil, Config{})
	require.Equal(t, "clone:tasks", q.key)
	require.Equal(t, defaultBlockTimeout, q.blockTimeout)
}
