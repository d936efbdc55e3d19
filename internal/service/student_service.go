package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
)

type studentReader interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
}

type browseCatalog interface {
	FindByID(ctx context.Context, id string) (*models.Discipline, error)
	ListFields(ctx context.Context, disciplineID string) ([]models.DisciplineField, error)
	ListTeachers(ctx context.Context, disciplineID string) ([]models.TeacherDetail, error)
}

type browseTeacherRoster interface {
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	ListFields(ctx context.Context, teacherID string) ([]models.TeacherField, error)
}

// StudentService serves the student-facing catalog browse endpoints.
// Reads are gated on the caller owning an active student record but not
// on the selection window.
type StudentService struct {
	students    studentReader
	disciplines browseCatalog
	teachers    browseTeacherRoster
	logger      *zap.Logger
}

// NewStudentService constructs StudentService.
func NewStudentService(students studentReader, disciplines browseCatalog, teachers browseTeacherRoster, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StudentService{students: students, disciplines: disciplines, teachers: teachers, logger: logger}
}

// Profile returns the caller's own ledger record.
func (s *StudentService) Profile(ctx context.Context, userID string) (*models.StudentDetail, error) {
	return s.activeStudent(ctx, userID)
}

// GetDiscipline returns a discipline with its fields and assigned teachers.
func (s *StudentService) GetDiscipline(ctx context.Context, userID, disciplineID string) (*models.DisciplineDetail, error) {
	if _, err := s.activeStudent(ctx, userID); err != nil {
		return nil, err
	}
	discipline, err := s.disciplines.FindByID(ctx, disciplineID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch discipline")
	}
	fields, err := s.disciplines.ListFields(ctx, disciplineID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list discipline fields")
	}
	teachers, err := s.disciplines.ListTeachers(ctx, disciplineID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list discipline teachers")
	}
	return &models.DisciplineDetail{Discipline: *discipline, Fields: fields, Teachers: teachers}, nil
}

// GetTeacher returns a teacher profile with its fields.
func (s *StudentService) GetTeacher(ctx context.Context, userID, teacherID string) (*models.TeacherProfile, error) {
	if _, err := s.activeStudent(ctx, userID); err != nil {
		return nil, err
	}
	teacher, err := s.teachers.FindByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}
	fields, err := s.teachers.ListFields(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teacher fields")
	}
	return &models.TeacherProfile{Teacher: *teacher, Fields: fields}, nil
}

func (s *StudentService) activeStudent(ctx context.Context, userID string) (*models.StudentDetail, error) {
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.IsActive {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "student account is inactive")
	}
	return student, nil
}
