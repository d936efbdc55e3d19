package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
)

type teacherRoster interface {
	FindByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error)
	AddField(ctx context.Context, field *models.TeacherField) error
	ListFields(ctx context.Context, teacherID string) ([]models.TeacherField, error)
	UpdateField(ctx context.Context, fieldID, name, content string) error
	DeleteField(ctx context.Context, fieldID string) error
}

type teacherCatalog interface {
	ListByTeacher(ctx context.Context, teacherID string) ([]models.Discipline, error)
	IsTeacherAssigned(ctx context.Context, teacherID, disciplineID string) (bool, error)
	AddField(ctx context.Context, field *models.DisciplineField) error
	ListFields(ctx context.Context, disciplineID string) ([]models.DisciplineField, error)
	UpdateField(ctx context.Context, fieldID, name, content string) error
	DeleteField(ctx context.Context, fieldID string) error
}

// FieldRequest is the payload for creating or updating a free-text field
// on a teacher profile or a discipline.
type FieldRequest struct {
	Name    string `json:"name" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// TeacherService serves the teacher-facing surface: the teacher's own
// profile and fields, plus the disciplines they are assigned to. All
// operations require an active roster record.
type TeacherService struct {
	teachers    teacherRoster
	disciplines teacherCatalog
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewTeacherService constructs TeacherService.
func NewTeacherService(teachers teacherRoster, disciplines teacherCatalog, validate *validator.Validate, logger *zap.Logger) *TeacherService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TeacherService{teachers: teachers, disciplines: disciplines, validator: validate, logger: logger}
}

// Profile returns the caller's roster record with profile fields.
func (s *TeacherService) Profile(ctx context.Context, userID string) (*models.TeacherProfile, error) {
	teacher, err := s.activeTeacher(ctx, userID)
	if err != nil {
		return nil, err
	}
	fields, err := s.teachers.ListFields(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profile fields")
	}
	return &models.TeacherProfile{Teacher: *teacher, Fields: fields}, nil
}

// AddProfileField attaches a free-text field to the caller's profile.
func (s *TeacherService) AddProfileField(ctx context.Context, userID string, req FieldRequest) (*models.TeacherField, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid field payload")
	}
	teacher, err := s.activeTeacher(ctx, userID)
	if err != nil {
		return nil, err
	}
	field := &models.TeacherField{
		ID:        uuid.NewString(),
		TeacherID: teacher.ID,
		Name:      req.Name,
		Content:   req.Content,
	}
	if err := s.teachers.AddField(ctx, field); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add profile field")
	}
	return field, nil
}

// UpdateProfileField updates one of the caller's own profile fields.
func (s *TeacherService) UpdateProfileField(ctx context.Context, userID, fieldID string, req FieldRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid field payload")
	}
	teacher, err := s.activeTeacher(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.ownsProfileField(ctx, teacher.ID, fieldID); err != nil {
		return err
	}
	if err := s.teachers.UpdateField(ctx, fieldID, req.Name, req.Content); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update profile field")
	}
	return nil
}

// DeleteProfileField removes one of the caller's own profile fields.
func (s *TeacherService) DeleteProfileField(ctx context.Context, userID, fieldID string) error {
	teacher, err := s.activeTeacher(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.ownsProfileField(ctx, teacher.ID, fieldID); err != nil {
		return err
	}
	if err := s.teachers.DeleteField(ctx, fieldID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete profile field")
	}
	return nil
}

// ListDisciplines returns the disciplines the caller is assigned to.
func (s *TeacherService) ListDisciplines(ctx context.Context, userID string) ([]models.Discipline, error) {
	teacher, err := s.activeTeacher(ctx, userID)
	if err != nil {
		return nil, err
	}
	disciplines, err := s.disciplines.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list disciplines")
	}
	return disciplines, nil
}

// AddDisciplineField attaches a field to a discipline the caller teaches.
func (s *TeacherService) AddDisciplineField(ctx context.Context, userID, disciplineID string, req FieldRequest) (*models.DisciplineField, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid field payload")
	}
	teacher, err := s.activeTeacher(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.assignedTo(ctx, teacher.ID, disciplineID); err != nil {
		return nil, err
	}
	field := &models.DisciplineField{
		ID:           uuid.NewString(),
		DisciplineID: disciplineID,
		Name:         req.Name,
		Content:      req.Content,
	}
	if err := s.disciplines.AddField(ctx, field); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to add discipline field")
	}
	return field, nil
}

// UpdateDisciplineField updates a field on a discipline the caller teaches.
func (s *TeacherService) UpdateDisciplineField(ctx context.Context, userID, disciplineID, fieldID string, req FieldRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid field payload")
	}
	teacher, err := s.activeTeacher(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.assignedTo(ctx, teacher.ID, disciplineID); err != nil {
		return err
	}
	if err := s.ownsDisciplineField(ctx, disciplineID, fieldID); err != nil {
		return err
	}
	if err := s.disciplines.UpdateField(ctx, fieldID, req.Name, req.Content); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update discipline field")
	}
	return nil
}

// DeleteDisciplineField removes a field from a discipline the caller teaches.
func (s *TeacherService) DeleteDisciplineField(ctx context.Context, userID, disciplineID, fieldID string) error {
	teacher, err := s.activeTeacher(ctx, userID)
	if err != nil {
		return err
	}
	if err := s.assignedTo(ctx, teacher.ID, disciplineID); err != nil {
		return err
	}
	if err := s.ownsDisciplineField(ctx, disciplineID, fieldID); err != nil {
		return err
	}
	if err := s.disciplines.DeleteField(ctx, fieldID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete discipline field")
	}
	return nil
}

func (s *TeacherService) activeTeacher(ctx context.Context, userID string) (*models.TeacherDetail, error) {
	teacher, err := s.teachers.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	if !teacher.IsActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "teacher account is inactive")
	}
	return teacher, nil
}

func (s *TeacherService) assignedTo(ctx context.Context, teacherID, disciplineID string) error {
	assigned, err := s.disciplines.IsTeacherAssigned(ctx, teacherID, disciplineID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrForbidden, "teacher is not assigned to this discipline")
	}
	return nil
}

func (s *TeacherService) ownsProfileField(ctx context.Context, teacherID, fieldID string) error {
	fields, err := s.teachers.ListFields(ctx, teacherID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profile fields")
	}
	for _, f := range fields {
		if f.ID == fieldID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "field not found")
}

func (s *TeacherService) ownsDisciplineField(ctx context.Context, disciplineID, fieldID string) error {
	fields, err := s.disciplines.ListFields(ctx, disciplineID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list discipline fields")
	}
	for _, f := range fields {
		if f.ID == fieldID {
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotFound, "field not found")
}
