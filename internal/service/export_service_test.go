package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkease/internal/domain"
	"parkease/internal/queue"
)

func TestExportLifecycle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	bob := f.user(t, "bob@example.com")

	_, err := f.exports.RequestExport(ctx, alice.ID, "pdf")
	assert.ErrorIs(t, err, ErrInvalidInput)

	job, err := f.exports.RequestExport(ctx, alice.ID, "")
	require.NoError(t, err)
	assert.Equal(t, domain.FormatCSV, job.Format)
	assert.Equal(t, domain.JobPending, job.Status)

	require.Len(t, f.publisher.tasks, 1)
	task := f.publisher.tasks[0]
	assert.Equal(t, queue.KindExportHistory, task.Kind)
	var payload queue.ExportHistoryPayload
	require.NoError(t, task.Decode(&payload))
	assert.Equal(t, job.ID, payload.JobID)

	status, err := f.exports.Status(ctx, alice.ID, job.ID)
	require.NoError(t, err)
	assert.False(t, status.Ready)
	assert.Empty(t, status.DownloadURL)

	_, err = f.exports.Status(ctx, bob.ID, job.ID)
	assert.ErrorIs(t, err, ErrAccessDenied)
	_, err = f.exports.Status(ctx, alice.ID, "not-a-uuid")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = f.exports.DownloadPath(ctx, alice.ID, job.ID)
	assert.ErrorIs(t, err, ErrExportMissing)

	filename := "user_1_parking_history_" + job.ID + ".csv"
	require.NoError(t, os.WriteFile(filepath.Join(f.exports.dir, filename), []byte("session_id\n"), 0o644))
	require.NoError(t, f.jobs.UpdateStatus(ctx, job.ID, domain.JobSucceeded, filename, ""))

	status, err = f.exports.Status(ctx, alice.ID, job.ID)
	require.NoError(t, err)
	assert.True(t, status.Ready)
	assert.Equal(t, "/api/parking/download-csv/"+job.ID, status.DownloadURL)

	path, err := f.exports.DownloadPath(ctx, alice.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, filename, filepath.Base(path))
}

func TestExportMarkedFailedWhenQueueRejects(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	alice := f.user(t, "alice@example.com")
	f.publisher.err = errors.New("queue down")

	_, err := f.exports.RequestExport(ctx, alice.ID, domain.FormatXLSX)
	require.Error(t, err)

	finished, err := f.jobs.DeleteFinishedBefore(ctx, f.clock.Now().Add(time.Second))
	require.NoError(t, err)
	require.Len(t, finished, 1)
	assert.Equal(t, domain.JobFailed, finished[0].Status)
}
