package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nereid-mechmat/nereid-backend/internal/service"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
	"github.com/nereid-mechmat/nereid-backend/pkg/response"
)

// TeacherHandler exposes the teacher-facing surface.
type TeacherHandler struct {
	teachers *service.TeacherService
}

// NewTeacherHandler constructs TeacherHandler.
func NewTeacherHandler(teachers *service.TeacherService) *TeacherHandler {
	return &TeacherHandler{teachers: teachers}
}

// Profile godoc
// @Summary Get the caller's teacher profile
// @Tags Teachers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teachers/me [get]
func (h *TeacherHandler) Profile(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	profile, err := h.teachers.Profile(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, profile, nil)
}

// AddProfileField godoc
// @Summary Add a free-text field to the caller's profile
// @Tags Teachers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body service.FieldRequest true "Field"
// @Success 201 {object} response.Envelope
// @Router /teachers/me/fields [post]
func (h *TeacherHandler) AddProfileField(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	field, err := h.teachers.AddProfileField(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, field)
}

// UpdateProfileField godoc
// @Summary Update one of the caller's profile fields
// @Tags Teachers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param fieldId path string true "Field id"
// @Param payload body service.FieldRequest true "Field"
// @Success 204
// @Router /teachers/me/fields/{fieldId} [put]
func (h *TeacherHandler) UpdateProfileField(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.teachers.UpdateProfileField(c.Request.Context(), claims.UserID, c.Param("fieldId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteProfileField godoc
// @Summary Delete one of the caller's profile fields
// @Tags Teachers
// @Security BearerAuth
// @Param fieldId path string true "Field id"
// @Success 204
// @Router /teachers/me/fields/{fieldId} [delete]
func (h *TeacherHandler) DeleteProfileField(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.teachers.DeleteProfileField(c.Request.Context(), claims.UserID, c.Param("fieldId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListDisciplines godoc
// @Summary List disciplines the caller teaches
// @Tags Teachers
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /teachers/me/disciplines [get]
func (h *TeacherHandler) ListDisciplines(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	disciplines, err := h.teachers.ListDisciplines(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, disciplines, nil)
}

// AddDisciplineField godoc
// @Summary Add a field to a discipline the caller teaches
// @Tags Teachers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Discipline id"
// @Param payload body service.FieldRequest true "Field"
// @Success 201 {object} response.Envelope
// @Router /teachers/me/disciplines/{id}/fields [post]
func (h *TeacherHandler) AddDisciplineField(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	field, err := h.teachers.AddDisciplineField(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, field)
}

// UpdateDisciplineField godoc
// @Summary Update a field on a discipline the caller teaches
// @Tags Teachers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Discipline id"
// @Param fieldId path string true "Field id"
// @Param payload body service.FieldRequest true "Field"
// @Success 204
// @Router /teachers/me/disciplines/{id}/fields/{fieldId} [put]
func (h *TeacherHandler) UpdateDisciplineField(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.FieldRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.teachers.UpdateDisciplineField(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("fieldId"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DeleteDisciplineField godoc
// @Summary Delete a field from a discipline the caller teaches
// @Tags Teachers
// @Security BearerAuth
// @Param id path string true "Discipline id"
// @Param fieldId path string true "Field id"
// @Success 204
// @Router /teachers/me/disciplines/{id}/fields/{fieldId} [delete]
func (h *TeacherHandler) DeleteDisciplineField(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.teachers.DeleteDisciplineField(c.Request.Context(), claims.UserID, c.Param("id"), c.Param("fieldId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
