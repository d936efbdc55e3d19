package service

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
	"github.com/nereid-mechmat/nereid-backend/pkg/storage"
)

type mockRosterExporter struct {
	payload []byte
	err     error
	calls   int
}

func (m *mockRosterExporter) ExportRosters(_ context.Context, semesterRaw, format string) ([]byte, string, error) {
	m.calls++
	if m.err != nil {
		return nil, "", m.err
	}
	contentType := "text/csv"
	if format == "pdf" {
		contentType = "application/pdf"
	}
	return m.payload, contentType, nil
}

func newArchiveFixture(t *testing.T, exporter *mockRosterExporter) *ExportArchiveService {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	return NewExportArchiveService(exporter, store, signer, ExportArchiveConfig{APIPrefix: "/api/v1"}, nil)
}

func TestExportJobLifecycle(t *testing.T) {
	exporter := &mockRosterExporter{payload: []byte("lastName,firstName\nLovelace,Ada\n")}
	svc := newArchiveFixture(t, exporter)

	job, err := svc.CreateJob("1", "csv")
	require.NoError(t, err)
	assert.Equal(t, ExportJobPending, job.Status)
	assert.Empty(t, job.URL)

	require.NoError(t, svc.Process(context.Background(), job.ID))

	done, err := svc.Job(job.ID)
	require.NoError(t, err)
	assert.Equal(t, ExportJobCompleted, done.Status)
	assert.True(t, strings.HasPrefix(done.URL, "/api/v1/export/"))
	require.NotNil(t, done.ExpiresAt)

	token := strings.TrimPrefix(done.URL, "/api/v1/export/")
	file, contentType, err := svc.OpenByToken(token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "text/csv", contentType)

	stat, err := file.Stat()
	require.NoError(t, err)
	assert.Equal(t, int64(len(exporter.payload)), stat.Size())
}

func TestExportJobValidatesRequest(t *testing.T) {
	svc := newArchiveFixture(t, &mockRosterExporter{})

	_, err := svc.CreateJob("3", "csv")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSemester))

	_, err = svc.CreateJob("1", "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))

	job, err := svc.CreateJob("2", "")
	require.NoError(t, err)
	assert.Equal(t, "csv", job.Format)
}

func TestExportJobRecordsFailure(t *testing.T) {
	exporter := &mockRosterExporter{err: fmt.Errorf("db down")}
	svc := newArchiveFixture(t, exporter)

	job, err := svc.CreateJob("1", "pdf")
	require.NoError(t, err)
	require.Error(t, svc.Process(context.Background(), job.ID))

	failed, err := svc.Job(job.ID)
	require.NoError(t, err)
	assert.Equal(t, ExportJobFailed, failed.Status)
	assert.Contains(t, failed.Error, "db down")
}

func TestExportDownloadRejectsForeignToken(t *testing.T) {
	svc := newArchiveFixture(t, &mockRosterExporter{payload: []byte("x")})

	foreign := storage.NewSignedURLSigner("other-secret", time.Hour)
	token, _, err := foreign.Generate("job-1", "rosters_1.csv")
	require.NoError(t, err)

	_, _, err = svc.OpenByToken(token)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

func TestExportCleanupForgetsExpiredJobs(t *testing.T) {
	exporter := &mockRosterExporter{payload: []byte("rows")}
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)
	signer := storage.NewSignedURLSigner("test-secret", time.Millisecond)
	svc := NewExportArchiveService(exporter, store, signer, ExportArchiveConfig{ResultTTL: time.Millisecond}, nil)

	job, err := svc.CreateJob("1", "csv")
	require.NoError(t, err)
	require.NoError(t, svc.Process(context.Background(), job.ID))
	time.Sleep(5 * time.Millisecond)

	deleted, err := svc.Cleanup()
	require.NoError(t, err)
	assert.Len(t, deleted, 1)
	assert.True(t, strings.HasPrefix(filepath.Base(deleted[0]), "rosters_1_"))

	_, err = svc.Job(job.ID)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
