package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nereid-mechmat/nereid-backend/internal/service"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
	"github.com/nereid-mechmat/nereid-backend/pkg/response"
)

// StudentHandler exposes the student-facing surface: the selection engine
// plus catalog browsing.
type StudentHandler struct {
	selections *service.SelectionService
	students   *service.StudentService
	metrics    *service.MetricsService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(selections *service.SelectionService, students *service.StudentService, metrics *service.MetricsService) *StudentHandler {
	return &StudentHandler{selections: selections, students: students, metrics: metrics}
}

// Profile godoc
// @Summary Get the caller's student record
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /students/me [get]
func (h *StudentHandler) Profile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	student, err := h.students.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// ListAvailable godoc
// @Summary List active disciplines of a semester with credit bounds
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param semester query string true "Semester (1 or 2)"
// @Success 200 {object} response.Envelope
// @Router /students/me/disciplines [get]
func (h *StudentHandler) ListAvailable(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	listing, err := h.selections.ListAvailable(c.Request.Context(), claims.UserID, c.Query("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// ListSelected godoc
// @Summary List the caller's selected disciplines of a semester
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param semester query string true "Semester (1 or 2)"
// @Success 200 {object} response.Envelope
// @Router /students/me/disciplines/selected [get]
func (h *StudentHandler) ListSelected(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	listing, err := h.selections.ListSelected(c.Request.Context(), claims.UserID, c.Query("semester"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, listing, nil)
}

// Select godoc
// @Summary Select a batch of disciplines
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SelectionBatchRequest true "Semester and discipline ids"
// @Success 200 {object} response.Envelope
// @Router /students/me/disciplines/select [post]
func (h *StudentHandler) Select(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SelectionBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	summary, err := h.selections.Select(c.Request.Context(), claims.UserID, req)
	h.metrics.ObserveSelection("select", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Deselect godoc
// @Summary Deselect a batch of disciplines
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.SelectionBatchRequest true "Semester and discipline ids"
// @Success 200 {object} response.Envelope
// @Router /students/me/disciplines/deselect [post]
func (h *StudentHandler) Deselect(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.SelectionBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	summary, err := h.selections.Deselect(c.Request.Context(), claims.UserID, req)
	h.metrics.ObserveSelection("deselect", err)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// GetDiscipline godoc
// @Summary Get one discipline with fields and teachers
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Discipline id"
// @Success 200 {object} response.Envelope
// @Router /students/me/disciplines/{id} [get]
func (h *StudentHandler) GetDiscipline(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	detail, err := h.students.GetDiscipline(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// GetTeacher godoc
// @Summary Get one teacher profile
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Teacher id"
// @Success 200 {object} response.Envelope
// @Router /students/me/teachers/{id} [get]
func (h *StudentHandler) GetTeacher(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.students.GetTeacher(c.Request.Context(), claims.UserID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}
