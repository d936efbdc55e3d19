package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
	"github.com/nereid-mechmat/nereid-backend/pkg/export"
	"github.com/nereid-mechmat/nereid-backend/pkg/mailer"
)

type adminUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, id string, patch models.UserPatch) error
}

type adminStudentStore interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.StudentDetail, error)
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, id string, patch models.StudentPatch) error
}

type adminTeacherStore interface {
	List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.TeacherDetail, error)
	Create(ctx context.Context, teacher *models.Teacher) error
	SetActive(ctx context.Context, id string, active bool) error
}

type adminCatalog interface {
	List(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, int, error)
	FindByID(ctx context.Context, id string) (*models.Discipline, error)
	Create(ctx context.Context, discipline *models.Discipline) error
	Update(ctx context.Context, id string, patch models.DisciplinePatch) error
	Delete(ctx context.Context, id string) error
	ListFields(ctx context.Context, disciplineID string) ([]models.DisciplineField, error)
	ListTeachers(ctx context.Context, disciplineID string) ([]models.TeacherDetail, error)
	ListActiveBySemester(ctx context.Context, semester models.Semester) ([]models.Discipline, error)
	AssignTeacher(ctx context.Context, teacherID, disciplineID string) error
	UnassignTeacher(ctx context.Context, teacherID, disciplineID string) error
	UnassignAllTeachers(ctx context.Context, disciplineID string) error
}

type enrollmentTeardown interface {
	RemoveDisciplineEnrollments(ctx context.Context, discipline models.Discipline) error
}

type rosterSource interface {
	ListStudentsByDiscipline(ctx context.Context, disciplineID string) ([]models.StudentDetail, error)
}

type cacheInvalidator interface {
	DeleteByPattern(ctx context.Context, pattern string) error
}

// studentCSVHeader is the required header row for bulk student import and
// the column layout of roster exports.
var studentCSVHeader = []string{"lastName", "firstName", "patronymic", "email", "educationalProgram", "course", "year"}

const disciplineCachePattern = "disciplines:*"

// CreateStudentRequest describes a single student registration.
type CreateStudentRequest struct {
	Email              string `json:"email" validate:"required,email"`
	FirstName          string `json:"first_name" validate:"required"`
	LastName           string `json:"last_name" validate:"required"`
	Patronymic         string `json:"patronymic"`
	EducationalProgram string `json:"educational_program" validate:"required"`
	Course             string `json:"course" validate:"required"`
	Year               string `json:"year" validate:"required"`
}

// UpdateStudentRequest carries partial updates for the user identity and
// the ledger row in one payload.
type UpdateStudentRequest struct {
	User    models.UserPatch    `json:"user"`
	Student models.StudentPatch `json:"student"`
}

// BulkStudentUpdateRequest applies one ledger patch to many students.
type BulkStudentUpdateRequest struct {
	IDs   []string            `json:"ids" validate:"required,min=1,dive,required"`
	Patch models.StudentPatch `json:"patch"`
}

// CreateTeacherRequest describes a single teacher registration.
type CreateTeacherRequest struct {
	Email      string `json:"email" validate:"required,email"`
	FirstName  string `json:"first_name" validate:"required"`
	LastName   string `json:"last_name" validate:"required"`
	Patronymic string `json:"patronymic"`
}

// CreateDisciplineRequest describes a new catalog entry.
type CreateDisciplineRequest struct {
	Name        string  `json:"name" validate:"required"`
	Credits     int     `json:"credits" validate:"required,min=1"`
	Semester    string  `json:"semester" validate:"required"`
	Description *string `json:"description"`
}

// BulkActiveRequest flips the active flag on many records at once.
type BulkActiveRequest struct {
	IDs      []string `json:"ids" validate:"required,min=1,dive,required"`
	IsActive bool     `json:"is_active"`
}

// ImportReport summarises a bulk CSV import.
type ImportReport struct {
	Created int `json:"created"`
}

// AdminService is the administrative surface: account provisioning,
// ledger and catalog management, bulk CSV import and roster export.
// Catalog mutations invalidate the cached discipline listings and, when
// a discipline leaves circulation, cascade a forced deselect over its
// enrollments.
type AdminService struct {
	users       adminUserStore
	students    adminStudentStore
	teachers    adminTeacherStore
	disciplines adminCatalog
	selections  enrollmentTeardown
	rosters     rosterSource
	cache       cacheInvalidator
	mail        mailer.Mailer
	csv         *export.CSVExporter
	pdf         *export.PDFExporter
	bcryptCost  int
	validator   *validator.Validate
	logger      *zap.Logger
}

// AdminServiceDeps bundles the collaborators of AdminService.
type AdminServiceDeps struct {
	Users       adminUserStore
	Students    adminStudentStore
	Teachers    adminTeacherStore
	Disciplines adminCatalog
	Selections  enrollmentTeardown
	Rosters     rosterSource
	Cache       cacheInvalidator
	Mail        mailer.Mailer
	BcryptCost  int
	Validator   *validator.Validate
	Logger      *zap.Logger
}

// NewAdminService constructs AdminService.
func NewAdminService(deps AdminServiceDeps) *AdminService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &AdminService{
		users:       deps.Users,
		students:    deps.Students,
		teachers:    deps.Teachers,
		disciplines: deps.Disciplines,
		selections:  deps.Selections,
		rosters:     deps.Rosters,
		cache:       deps.Cache,
		mail:        deps.Mail,
		csv:         export.NewCSVExporter(),
		pdf:         export.NewPDFExporter(),
		bcryptCost:  deps.BcryptCost,
		validator:   deps.Validator,
		logger:      deps.Logger,
	}
}

// ListStudents returns students with pagination metadata.
func (s *AdminService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, *models.Pagination, error) {
	students, total, err := s.students.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	return students, paginationOf(filter.Page, filter.PageSize, total), nil
}

// GetStudent returns one student by ledger id.
func (s *AdminService) GetStudent(ctx context.Context, id string) (*models.StudentDetail, error) {
	student, err := s.students.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	return student, nil
}

// CreateStudent provisions a user account with the student role and its
// ledger row. A temporary password is generated and mailed to the student.
// New students start active with selection disabled; the selection window
// grants the permission when it opens.
func (s *AdminService) CreateStudent(ctx context.Context, req CreateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	user, err := s.provisionUser(ctx, req.Email, req.FirstName, req.LastName, req.Patronymic, models.RoleStudent)
	if err != nil {
		return nil, err
	}
	student := &models.Student{
		ID:                 uuid.NewString(),
		UserID:             user.ID,
		EducationalProgram: req.EducationalProgram,
		Course:             req.Course,
		Year:               req.Year,
		IsActive:           true,
		CanSelect:          false,
	}
	if err := s.students.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created", zap.String("student_id", student.ID), zap.String("email", user.Email))
	return s.GetStudent(ctx, student.ID)
}

// UpdateStudent applies partial updates to the identity and ledger rows.
func (s *AdminService) UpdateStudent(ctx context.Context, id string, req UpdateStudentRequest) (*models.StudentDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student, err := s.GetStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.User.IsEmpty() {
		if err := s.users.UpdateProfile(ctx, student.UserID, req.User); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user profile")
		}
	}
	if !req.Student.IsEmpty() {
		if err := s.students.Update(ctx, id, req.Student); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
		}
	}
	return s.GetStudent(ctx, id)
}

// BulkUpdateStudents applies one ledger patch to every listed student.
// All ids must resolve before any write happens.
func (s *AdminService) BulkUpdateStudents(ctx context.Context, req BulkStudentUpdateRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	for _, id := range req.IDs {
		if _, err := s.GetStudent(ctx, id); err != nil {
			return err
		}
	}
	for _, id := range req.IDs {
		if err := s.students.Update(ctx, id, req.Patch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update student")
		}
	}
	return nil
}

// ImportStudentsCSV registers students in bulk from a CSV document. The
// header row must match the template exactly. Duplicate emails, in the
// file or in the database, fail the whole import before any account is
// created.
func (s *AdminService) ImportStudentsCSV(ctx context.Context, r io.Reader) (*ImportReport, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCSV, "missing header row")
	}
	if !equalFold(header, studentCSVHeader) {
		return nil, appErrors.Clone(appErrors.ErrInvalidCSV, fmt.Sprintf("header must be %s", strings.Join(studentCSVHeader, ",")))
	}

	var rows []CreateStudentRequest
	seen := make(map[string]bool)
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidCSV, fmt.Sprintf("malformed record at line %d", line))
		}
		req := CreateStudentRequest{
			LastName:           strings.TrimSpace(record[0]),
			FirstName:          strings.TrimSpace(record[1]),
			Patronymic:         strings.TrimSpace(record[2]),
			Email:              strings.TrimSpace(record[3]),
			EducationalProgram: strings.TrimSpace(record[4]),
			Course:             strings.TrimSpace(record[5]),
			Year:               strings.TrimSpace(record[6]),
		}
		if err := s.validator.Struct(req); err != nil {
			return nil, appErrors.Clone(appErrors.ErrInvalidCSV, fmt.Sprintf("invalid record at line %d", line))
		}
		email := strings.ToLower(req.Email)
		if seen[email] {
			return nil, appErrors.Clone(appErrors.ErrInvalidCSV, fmt.Sprintf("duplicate email at line %d", line))
		}
		seen[email] = true
		rows = append(rows, req)
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrInvalidCSV, "no data rows")
	}
	for _, row := range rows {
		if _, err := s.users.FindByEmail(ctx, row.Email); err == nil {
			return nil, appErrors.Clone(appErrors.ErrEmailTaken, fmt.Sprintf("email %s is already registered", row.Email))
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
		}
	}

	report := &ImportReport{}
	for _, row := range rows {
		if _, err := s.CreateStudent(ctx, row); err != nil {
			return nil, err
		}
		report.Created++
	}
	s.logger.Info("students imported", zap.Int("created", report.Created))
	return report, nil
}

// StudentsCSVTemplate returns the import template with the header row only.
func (s *AdminService) StudentsCSVTemplate() ([]byte, error) {
	return s.csv.Render(export.Dataset{Headers: studentCSVHeader})
}

// ListTeachers returns teachers with pagination metadata.
func (s *AdminService) ListTeachers(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, *models.Pagination, error) {
	teachers, total, err := s.teachers.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list teachers")
	}
	return teachers, paginationOf(filter.Page, filter.PageSize, total), nil
}

// CreateTeacher provisions a user account with the teacher role and its
// roster row. A temporary password is mailed to the teacher.
func (s *AdminService) CreateTeacher(ctx context.Context, req CreateTeacherRequest) (*models.TeacherDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid teacher payload")
	}
	user, err := s.provisionUser(ctx, req.Email, req.FirstName, req.LastName, req.Patronymic, models.RoleTeacher)
	if err != nil {
		return nil, err
	}
	teacher := &models.Teacher{ID: uuid.NewString(), UserID: user.ID, IsActive: true}
	if err := s.teachers.Create(ctx, teacher); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create teacher")
	}
	s.logger.Info("teacher created", zap.String("teacher_id", teacher.ID), zap.String("email", user.Email))
	return s.teachers.FindByID(ctx, teacher.ID)
}

// SetTeacherActive flips the teacher's active flag.
func (s *AdminService) SetTeacherActive(ctx context.Context, id string, active bool) error {
	if _, err := s.teachers.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}
	if err := s.teachers.SetActive(ctx, id, active); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update teacher")
	}
	return nil
}

// ListDisciplines returns catalog entries with pagination metadata.
func (s *AdminService) ListDisciplines(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, *models.Pagination, error) {
	disciplines, total, err := s.disciplines.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list disciplines")
	}
	return disciplines, paginationOf(filter.Page, filter.PageSize, total), nil
}

// GetDiscipline returns one catalog entry with fields and teachers.
func (s *AdminService) GetDiscipline(ctx context.Context, id string) (*models.DisciplineDetail, error) {
	discipline, err := s.findDiscipline(ctx, id)
	if err != nil {
		return nil, err
	}
	fields, err := s.disciplines.ListFields(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list discipline fields")
	}
	teachers, err := s.disciplines.ListTeachers(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list discipline teachers")
	}
	return &models.DisciplineDetail{Discipline: *discipline, Fields: fields, Teachers: teachers}, nil
}

// CreateDiscipline adds a catalog entry. New disciplines start active.
func (s *AdminService) CreateDiscipline(ctx context.Context, req CreateDisciplineRequest) (*models.Discipline, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discipline payload")
	}
	semester, ok := models.ParseSemester(req.Semester)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrInvalidSemester, "")
	}
	discipline := &models.Discipline{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Credits:     req.Credits,
		Semester:    semester,
		Description: req.Description,
		IsActive:    true,
	}
	if err := s.disciplines.Create(ctx, discipline); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create discipline")
	}
	s.invalidateCatalogCache(ctx)
	return discipline, nil
}

// UpdateDiscipline applies a partial update. Deactivation cascades a
// forced deselect over every enrolled student.
func (s *AdminService) UpdateDiscipline(ctx context.Context, id string, patch models.DisciplinePatch) (*models.Discipline, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid discipline payload")
	}
	discipline, err := s.findDiscipline(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Semester != nil {
		if _, ok := models.ParseSemester(string(*patch.Semester)); !ok {
			return nil, appErrors.Clone(appErrors.ErrInvalidSemester, "")
		}
	}
	deactivating := patch.IsActive != nil && !*patch.IsActive && discipline.IsActive
	if deactivating {
		if err := s.selections.RemoveDisciplineEnrollments(ctx, *discipline); err != nil {
			return nil, err
		}
	}
	if !patch.IsEmpty() {
		if err := s.disciplines.Update(ctx, id, patch); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update discipline")
		}
	}
	s.invalidateCatalogCache(ctx)
	return s.findDiscipline(ctx, id)
}

// BulkSetDisciplinesActive flips the active flag on many disciplines.
// Every deactivation cascades its forced deselect.
func (s *AdminService) BulkSetDisciplinesActive(ctx context.Context, req BulkActiveRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid bulk payload")
	}
	disciplines := make([]*models.Discipline, 0, len(req.IDs))
	for _, id := range req.IDs {
		discipline, err := s.findDiscipline(ctx, id)
		if err != nil {
			return err
		}
		disciplines = append(disciplines, discipline)
	}
	for _, discipline := range disciplines {
		if !req.IsActive && discipline.IsActive {
			if err := s.selections.RemoveDisciplineEnrollments(ctx, *discipline); err != nil {
				return err
			}
		}
		patch := models.DisciplinePatch{IsActive: &req.IsActive}
		if err := s.disciplines.Update(ctx, discipline.ID, patch); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update discipline")
		}
	}
	s.invalidateCatalogCache(ctx)
	return nil
}

// DeleteDiscipline removes a catalog entry for good: enrollments are
// force-deselected, teacher assignments cleared, then the row deleted.
func (s *AdminService) DeleteDiscipline(ctx context.Context, id string) error {
	discipline, err := s.findDiscipline(ctx, id)
	if err != nil {
		return err
	}
	if err := s.selections.RemoveDisciplineEnrollments(ctx, *discipline); err != nil {
		return err
	}
	if err := s.disciplines.UnassignAllTeachers(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear teacher assignments")
	}
	if err := s.disciplines.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete discipline")
	}
	s.invalidateCatalogCache(ctx)
	s.logger.Info("discipline deleted", zap.String("discipline_id", id))
	return nil
}

// AssignTeacher links a teacher to a discipline.
func (s *AdminService) AssignTeacher(ctx context.Context, teacherID, disciplineID string) error {
	if _, err := s.findDiscipline(ctx, disciplineID); err != nil {
		return err
	}
	if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch teacher")
	}
	if err := s.disciplines.AssignTeacher(ctx, teacherID, disciplineID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign teacher")
	}
	return nil
}

// UnassignTeacher removes a teacher to discipline link.
func (s *AdminService) UnassignTeacher(ctx context.Context, teacherID, disciplineID string) error {
	if err := s.disciplines.UnassignTeacher(ctx, teacherID, disciplineID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unassign teacher")
	}
	return nil
}

// ExportRosters renders the per-discipline enrollment lists of a semester
// as CSV or PDF.
func (s *AdminService) ExportRosters(ctx context.Context, semesterRaw, format string) ([]byte, string, error) {
	semester, ok := models.ParseSemester(semesterRaw)
	if !ok {
		return nil, "", appErrors.Clone(appErrors.ErrInvalidSemester, "")
	}
	disciplines, err := s.disciplines.ListActiveBySemester(ctx, semester)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list disciplines")
	}
	sections := make([]export.Section, 0, len(disciplines))
	for _, discipline := range disciplines {
		students, err := s.rosters.ListStudentsByDiscipline(ctx, discipline.ID)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled students")
		}
		rows := make([]map[string]string, 0, len(students))
		for _, st := range students {
			rows = append(rows, map[string]string{
				"lastName":           st.LastName,
				"firstName":          st.FirstName,
				"patronymic":         st.Patronymic,
				"email":              st.Email,
				"educationalProgram": st.EducationalProgram,
				"course":             st.Course,
				"year":               st.Year,
			})
		}
		sections = append(sections, export.Section{
			Title:   fmt.Sprintf("%s (%d credits)", discipline.Name, discipline.Credits),
			Dataset: export.Dataset{Headers: studentCSVHeader, Rows: rows},
		})
	}
	title := fmt.Sprintf("Enrollment rosters, semester %s", semester)
	switch strings.ToLower(format) {
	case "csv", "":
		out, err := s.csv.RenderSections(sections)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return out, "text/csv", nil
	case "pdf":
		out, err := s.pdf.RenderSections(sections, title)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return out, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
}

func (s *AdminService) provisionUser(ctx context.Context, email, firstName, lastName, patronymic string, role models.UserRole) (*models.User, error) {
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrEmailTaken, "")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email")
	}
	password, err := randomPassword()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate password")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FirstName:    firstName,
		LastName:     lastName,
		Patronymic:   patronymic,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}
	body := fmt.Sprintf("An account has been created for you. Temporary password: %s\nPlease change it after your first login.", password)
	if err := s.mail.Send(email, "Your account", body); err != nil {
		s.logger.Warn("failed to send welcome email", zap.String("email", email), zap.Error(err))
	}
	return user, nil
}

func (s *AdminService) findDiscipline(ctx context.Context, id string) (*models.Discipline, error) {
	discipline, err := s.disciplines.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "discipline not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch discipline")
	}
	return discipline, nil
}

func (s *AdminService) invalidateCatalogCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, disciplineCachePattern); err != nil {
		s.logger.Warn("failed to invalidate discipline cache", zap.Error(err))
	}
}

func paginationOf(page, size, total int) *models.Pagination {
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 20
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}

func randomPassword() (string, error) {
	buf := make([]byte, 10)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func equalFold(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(strings.TrimSpace(a[i]), b[i]) {
			return false
		}
	}
	return true
}
