package service

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
	"github.com/nereid-mechmat/nereid-backend/pkg/storage"
)

type rosterExporter interface {
	ExportRosters(ctx context.Context, semesterRaw, format string) ([]byte, string, error)
}

type exportStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

// ExportJobStatus is the lifecycle state of an archived export.
type ExportJobStatus string

const (
	ExportJobPending   ExportJobStatus = "pending"
	ExportJobCompleted ExportJobStatus = "completed"
	ExportJobFailed    ExportJobStatus = "failed"
)

// ExportJob tracks one queued roster export from request to download.
type ExportJob struct {
	ID        string          `json:"id"`
	Semester  string          `json:"semester"`
	Format    string          `json:"format"`
	Status    ExportJobStatus `json:"status"`
	URL       string          `json:"url,omitempty"`
	Error     string          `json:"error,omitempty"`
	ExpiresAt *time.Time      `json:"expires_at,omitempty"`
	CreatedAt time.Time       `json:"created_at"`

	file string
}

// ExportArchiveConfig tunes archived export behaviour.
type ExportArchiveConfig struct {
	APIPrefix string
	ResultTTL time.Duration
}

// ExportArchiveService renders roster exports in the background, keeps the
// files on disk and hands out signed download URLs. Job state lives in
// process memory, like the selection window flag: a restart forgets
// pending jobs, but completed files on disk stay downloadable until the
// next cleanup because the token alone carries the file path.
type ExportArchiveService struct {
	rosters rosterExporter
	storage exportStorage
	signer  *storage.SignedURLSigner
	cfg     ExportArchiveConfig
	logger  *zap.Logger

	mu   sync.Mutex
	jobs map[string]*ExportJob
}

// NewExportArchiveService constructs an ExportArchiveService.
func NewExportArchiveService(rosters rosterExporter, store exportStorage, signer *storage.SignedURLSigner, cfg ExportArchiveConfig, logger *zap.Logger) *ExportArchiveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ResultTTL <= 0 {
		cfg.ResultTTL = 24 * time.Hour
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ExportArchiveService{
		rosters: rosters,
		storage: store,
		signer:  signer,
		cfg:     cfg,
		logger:  logger,
		jobs:    make(map[string]*ExportJob),
	}
}

// CreateJob validates the request and registers a pending export job.
func (s *ExportArchiveService) CreateJob(semesterRaw, format string) (*ExportJob, error) {
	if _, ok := models.ParseSemester(semesterRaw); !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidSemester, "")
	}
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Wrap(fmt.Errorf("format %q", format), appErrors.ErrValidation.Code, http.StatusBadRequest, "format must be csv or pdf")
	}

	job := &ExportJob{
		ID:        uuid.NewString(),
		Semester:  semesterRaw,
		Format:    format,
		Status:    ExportJobPending,
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.jobs[job.ID] = job
	s.mu.Unlock()
	return copyJob(job), nil
}

// Process renders the export for a registered job and stores the result.
// Called from the queue worker.
func (s *ExportArchiveService) Process(ctx context.Context, jobID string) error {
	s.mu.Lock()
	job, ok := s.jobs[jobID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown export job %s", jobID)
	}

	payload, _, err := s.rosters.ExportRosters(ctx, job.Semester, job.Format)
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	filename := fmt.Sprintf("rosters_%s_%s_%s.%s",
		job.Semester, time.Now().UTC().Format("20060102_150405"), jobID[:8], job.Format)
	relPath, err := s.storage.Save(filename, payload)
	if err != nil {
		s.fail(jobID, err)
		return err
	}

	token, expiresAt, err := s.signer.Generate(jobID, relPath)
	if err != nil {
		s.fail(jobID, err)
		return err
	}
	url := fmt.Sprintf("%s/export/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), token)

	s.mu.Lock()
	job.Status = ExportJobCompleted
	job.Error = ""
	job.URL = url
	job.ExpiresAt = &expiresAt
	job.file = relPath
	s.mu.Unlock()

	s.logger.Info("roster export archived",
		zap.String("job_id", jobID),
		zap.String("file", relPath),
		zap.Time("expires_at", expiresAt))
	return nil
}

// Job returns a snapshot of the job state.
func (s *ExportArchiveService) Job(id string) (*ExportJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, appErrors.Wrap(fmt.Errorf("export job %s", id), appErrors.ErrNotFound.Code, http.StatusNotFound, "export job not found")
	}
	return copyJob(job), nil
}

// OpenByToken validates a signed download token and opens the archived
// file. The second return value is the content type for the response.
func (s *ExportArchiveService) OpenByToken(token string) (*os.File, string, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrForbidden.Code, http.StatusForbidden, "invalid or expired download token")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrNotFound.Code, http.StatusNotFound, "export file not found")
	}
	contentType := "text/csv"
	if strings.HasSuffix(relPath, ".pdf") {
		contentType = "application/pdf"
	}
	return file, contentType, nil
}

// Cleanup drops files past the result TTL and forgets jobs whose download
// window has closed.
func (s *ExportArchiveService) Cleanup() ([]string, error) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.ResultTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	s.mu.Lock()
	for id, job := range s.jobs {
		if job.ExpiresAt != nil && now.After(*job.ExpiresAt) {
			delete(s.jobs, id)
		}
	}
	s.mu.Unlock()

	if len(deleted) > 0 {
		s.logger.Info("export archive cleaned", zap.Int("files_deleted", len(deleted)))
	}
	return deleted, nil
}

func (s *ExportArchiveService) fail(jobID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if job, ok := s.jobs[jobID]; ok {
		job.Status = ExportJobFailed
		job.Error = err.Error()
	}
}

func copyJob(job *ExportJob) *ExportJob {
	clone := *job
	return &clone
}
