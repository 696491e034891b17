package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/site-cloner/internal/clone"
)

func TestCreateJobInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "clone_jobs")
	require.NoError(t, err)

	now := time.Unix(1700000000, 0).UTC()
	job := clone.Job{
		ID:        "job-1",
		Status:    clone.JobStatusQueued,
		Progress:  0,
		SourceURL: "https://example.com",
		Submitted: now,
	}

	mock.ExpectExec("INSERT INTO clone_jobs").
		WithArgs(job.ID, "queued", 0, job.SourceURL, now).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.CreateJob(context.Background(), job))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetJobNotFound(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "clone_jobs")
	require.NoError(t, err)

	mock.ExpectQuery("SELECT id, status, progress").
		WithArgs("missing").
		WillReturnError(errors.New("no rows in result set"))

	_, err = store.GetJob(context.Background(), "missing")
	require.Error(t, err)
}

func TestUpdateJobStatusGuardsTerminalRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "clone_jobs")
	require.NoError(t, err)

	// Zero rows affected plus an existing row means the job is terminal;
	// the write is an idempotent no-op.
	mock.ExpectExec("UPDATE clone_jobs").
		WithArgs("job-1", "running", 35, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	require.NoError(t, store.UpdateJobStatus(context.Background(), "job-1", clone.JobStatusRunning, 35, ""))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateJobStatusUnknownID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "clone_jobs")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE clone_jobs").
		WithArgs("ghost", "running", 5, "").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("ghost").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	err = store.UpdateJobStatus(context.Background(), "ghost", clone.JobStatusRunning, 5, "")
	require.True(t, errors.Is(err, clone.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSetResultCompletesJob(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewJobStoreWithPool(mock, "clone_jobs")
	require.NoError(t, err)

	mock.ExpectExec("UPDATE clone_jobs").
		WithArgs("job-1", "gs://bucket/clones/job-1/abc.html").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, store.SetResult(context.Background(), "job-1", "gs://bucket/clones/job-1/abc.html"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNewJobStoreWithPoolValidatesTable(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewJobStoreWithPool(mock, "bad;table")
	require.Error(t, err)

	store, err := NewJobStoreWithPool(mock, "")
	require.NoError(t, err)
	require.Equal(t, "clone_jobs", store.table)
}
