package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	"github.com/nereid-mechmat/nereid-backend/internal/service"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
	"github.com/nereid-mechmat/nereid-backend/pkg/jobs"
	"github.com/nereid-mechmat/nereid-backend/pkg/response"
)

// AdminHandler exposes the administrative surface.
type AdminHandler struct {
	admin  *service.AdminService
	window *service.SelectionWindow
	queue  *jobs.Queue
}

// NewAdminHandler constructs AdminHandler.
func NewAdminHandler(admin *service.AdminService, window *service.SelectionWindow, queue *jobs.Queue) *AdminHandler {
	return &AdminHandler{admin: admin, window: window, queue: queue}
}

// ListStudents godoc
// @Summary List students
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name or email"
// @Param program query string false "Filter by educational program"
// @Param course query string false "Filter by course"
// @Param year query string false "Filter by year"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/students [get]
func (h *AdminHandler) ListStudents(c *gin.Context) {
	var filter models.StudentFilter
	filter.Search = c.Query("search")
	filter.EducationalProgram = c.Query("program")
	filter.Course = c.Query("course")
	filter.Year = c.Query("year")
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	students, pagination, err := h.admin.ListStudents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// GetStudent godoc
// @Summary Get one student
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student id"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{id} [get]
func (h *AdminHandler) GetStudent(c *gin.Context) {
	student, err := h.admin.GetStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// CreateStudent godoc
// @Summary Register a student
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateStudentRequest true "Student"
// @Success 201 {object} response.Envelope
// @Router /admin/students [post]
func (h *AdminHandler) CreateStudent(c *gin.Context) {
	var req service.CreateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.admin.CreateStudent(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// UpdateStudent godoc
// @Summary Update a student
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student id"
// @Param payload body service.UpdateStudentRequest true "Patch"
// @Success 200 {object} response.Envelope
// @Router /admin/students/{id} [patch]
func (h *AdminHandler) UpdateStudent(c *gin.Context) {
	var req service.UpdateStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	student, err := h.admin.UpdateStudent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// BulkUpdateStudents godoc
// @Summary Apply one patch to many students
// @Tags Admin
// @Accept json
// @Security BearerAuth
// @Param payload body service.BulkStudentUpdateRequest true "Ids and patch"
// @Success 204
// @Router /admin/students/bulk [patch]
func (h *AdminHandler) BulkUpdateStudents(c *gin.Context) {
	var req service.BulkStudentUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.admin.BulkUpdateStudents(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ImportStudents godoc
// @Summary Register students in bulk from CSV
// @Tags Admin
// @Accept text/csv
// @Produce json
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /admin/students/import [post]
func (h *AdminHandler) ImportStudents(c *gin.Context) {
	report, err := h.admin.ImportStudentsCSV(c.Request.Context(), c.Request.Body)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, report)
}

// StudentsTemplate godoc
// @Summary Download the student import CSV template
// @Tags Admin
// @Produce text/csv
// @Security BearerAuth
// @Success 200
// @Router /admin/students/import/template [get]
func (h *AdminHandler) StudentsTemplate(c *gin.Context) {
	out, err := h.admin.StudentsCSVTemplate()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="students_template.csv"`)
	c.Data(http.StatusOK, "text/csv", out)
}

// ListTeachers godoc
// @Summary List teachers
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param search query string false "Search by name or email"
// @Param active query bool false "Filter by active flag"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/teachers [get]
func (h *AdminHandler) ListTeachers(c *gin.Context) {
	var filter models.TeacherFilter
	filter.Search = c.Query("search")
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	teachers, pagination, err := h.admin.ListTeachers(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, teachers, pagination)
}

// CreateTeacher godoc
// @Summary Register a teacher
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateTeacherRequest true "Teacher"
// @Success 201 {object} response.Envelope
// @Router /admin/teachers [post]
func (h *AdminHandler) CreateTeacher(c *gin.Context) {
	var req service.CreateTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	teacher, err := h.admin.CreateTeacher(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, teacher)
}

type setActiveRequest struct {
	IsActive bool `json:"is_active"`
}

// SetTeacherActive godoc
// @Summary Activate or deactivate a teacher
// @Tags Admin
// @Accept json
// @Security BearerAuth
// @Param id path string true "Teacher id"
// @Param payload body setActiveRequest true "Flag"
// @Success 204
// @Router /admin/teachers/{id}/active [put]
func (h *AdminHandler) SetTeacherActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.admin.SetTeacherActive(c.Request.Context(), c.Param("id"), req.IsActive); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListDisciplines godoc
// @Summary List catalog entries
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param semester query string false "Filter by semester"
// @Param active query bool false "Filter by active flag"
// @Param search query string false "Search by name"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/disciplines [get]
func (h *AdminHandler) ListDisciplines(c *gin.Context) {
	var filter models.DisciplineFilter
	if raw := c.Query("semester"); raw != "" {
		if semester, ok := models.ParseSemester(raw); ok {
			filter.Semester = &semester
		}
	}
	if raw := c.Query("active"); raw != "" {
		if active, err := strconv.ParseBool(raw); err == nil {
			filter.Active = &active
		}
	}
	filter.Search = c.Query("search")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	disciplines, pagination, err := h.admin.ListDisciplines(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, disciplines, pagination)
}

// GetDiscipline godoc
// @Summary Get one catalog entry
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Discipline id"
// @Success 200 {object} response.Envelope
// @Router /admin/disciplines/{id} [get]
func (h *AdminHandler) GetDiscipline(c *gin.Context) {
	detail, err := h.admin.GetDiscipline(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// CreateDiscipline godoc
// @Summary Add a catalog entry
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.CreateDisciplineRequest true "Discipline"
// @Success 201 {object} response.Envelope
// @Router /admin/disciplines [post]
func (h *AdminHandler) CreateDiscipline(c *gin.Context) {
	var req service.CreateDisciplineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	discipline, err := h.admin.CreateDiscipline(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, discipline)
}

// UpdateDiscipline godoc
// @Summary Update a catalog entry
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Discipline id"
// @Param payload body models.DisciplinePatch true "Patch"
// @Success 200 {object} response.Envelope
// @Router /admin/disciplines/{id} [patch]
func (h *AdminHandler) UpdateDiscipline(c *gin.Context) {
	var patch models.DisciplinePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	discipline, err := h.admin.UpdateDiscipline(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, discipline, nil)
}

// BulkSetDisciplinesActive godoc
// @Summary Activate or deactivate many disciplines
// @Tags Admin
// @Accept json
// @Security BearerAuth
// @Param payload body service.BulkActiveRequest true "Ids and flag"
// @Success 204
// @Router /admin/disciplines/bulk [patch]
func (h *AdminHandler) BulkSetDisciplinesActive(c *gin.Context) {
	var req service.BulkActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.admin.BulkSetDisciplinesActive(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteDiscipline godoc
// @Summary Delete a catalog entry
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Discipline id"
// @Success 204
// @Router /admin/disciplines/{id} [delete]
func (h *AdminHandler) DeleteDiscipline(c *gin.Context) {
	if err := h.admin.DeleteDiscipline(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// AssignTeacher godoc
// @Summary Assign a teacher to a discipline
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Discipline id"
// @Param teacherId path string true "Teacher id"
// @Success 204
// @Router /admin/disciplines/{id}/teachers/{teacherId} [put]
func (h *AdminHandler) AssignTeacher(c *gin.Context) {
	if err := h.admin.AssignTeacher(c.Request.Context(), c.Param("teacherId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnassignTeacher godoc
// @Summary Remove a teacher from a discipline
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Discipline id"
// @Param teacherId path string true "Teacher id"
// @Success 204
// @Router /admin/disciplines/{id}/teachers/{teacherId} [delete]
func (h *AdminHandler) UnassignTeacher(c *gin.Context) {
	if err := h.admin.UnassignTeacher(c.Request.Context(), c.Param("teacherId"), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// WindowState godoc
// @Summary Get the selection window state
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /admin/selection-window [get]
func (h *AdminHandler) WindowState(c *gin.Context) {
	state, err := h.window.State(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, state, nil)
}

// LockWindow godoc
// @Summary Close the selection window
// @Tags Admin
// @Security BearerAuth
// @Success 204
// @Router /admin/selection-window/lock [post]
func (h *AdminHandler) LockWindow(c *gin.Context) {
	if err := h.window.Lock(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UnlockWindow godoc
// @Summary Open the selection window
// @Tags Admin
// @Security BearerAuth
// @Success 204
// @Router /admin/selection-window/unlock [post]
func (h *AdminHandler) UnlockWindow(c *gin.Context) {
	if err := h.window.Unlock(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// TriggerReconcile godoc
// @Summary Enqueue a credit reconciliation run
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 202 {object} response.Envelope
// @Router /admin/reconcile [post]
func (h *AdminHandler) TriggerReconcile(c *gin.Context) {
	job := jobs.Job{ID: uuid.NewString(), Type: "reconcile"}
	if err := h.queue.Enqueue(job); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to enqueue reconciliation"))
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"status": "queued"}, nil)
}

// ExportRosters godoc
// @Summary Export per-discipline enrollment rosters
// @Tags Admin
// @Produce text/csv
// @Security BearerAuth
// @Param semester query string true "Semester (1 or 2)"
// @Param format query string false "csv or pdf"
// @Success 200
// @Router /admin/rosters/export [get]
func (h *AdminHandler) ExportRosters(c *gin.Context) {
	out, contentType, err := h.admin.ExportRosters(c.Request.Context(), c.Query("semester"), c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := "rosters.csv"
	if contentType == "application/pdf" {
		filename = "rosters.pdf"
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, out)
}
