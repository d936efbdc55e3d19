package handler

import (
	"io"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/nereid-mechmat/nereid-backend/internal/service"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
	"github.com/nereid-mechmat/nereid-backend/pkg/jobs"
	"github.com/nereid-mechmat/nereid-backend/pkg/response"
)

// ExportHandler exposes queued roster exports and signed downloads.
type ExportHandler struct {
	archive *service.ExportArchiveService
	queue   *jobs.Queue
}

// NewExportHandler constructs ExportHandler.
func NewExportHandler(archive *service.ExportArchiveService, queue *jobs.Queue) *ExportHandler {
	return &ExportHandler{archive: archive, queue: queue}
}

type createExportJobRequest struct {
	Semester string `json:"semester"`
	Format   string `json:"format"`
}

// CreateJob godoc
// @Summary Queue a roster export
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body createExportJobRequest true "Semester and format"
// @Success 202 {object} response.Envelope
// @Router /admin/rosters/export-jobs [post]
func (h *ExportHandler) CreateJob(c *gin.Context) {
	var req createExportJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	job, err := h.archive.CreateJob(req.Semester, req.Format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.queue.Enqueue(jobs.Job{ID: job.ID, Type: "roster_export", Payload: job.ID}); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to enqueue export"))
		return
	}
	response.JSON(c, http.StatusAccepted, job, nil)
}

// GetJob godoc
// @Summary Get roster export status
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Job id"
// @Success 200 {object} response.Envelope
// @Router /admin/rosters/export-jobs/{id} [get]
func (h *ExportHandler) GetJob(c *gin.Context) {
	job, err := h.archive.Job(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, job, nil)
}

// Download godoc
// @Summary Download an archived export by signed token
// @Tags Admin
// @Produce text/csv
// @Param token path string true "Signed download token"
// @Success 200
// @Router /export/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, contentType, err := h.archive.OpenByToken(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	payload, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to read export file"))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(file.Name())+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
