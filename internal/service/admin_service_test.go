package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
)

type mockAdminUsers struct {
	users map[string]*models.User
}

func (m *mockAdminUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminUsers) Create(ctx context.Context, user *models.User) error {
	if m.users == nil {
		m.users = make(map[string]*models.User)
	}
	copy := *user
	m.users[user.ID] = &copy
	return nil
}

func (m *mockAdminUsers) UpdateProfile(ctx context.Context, id string, patch models.UserPatch) error {
	return nil
}

type mockAdminStudents struct {
	students map[string]*models.StudentDetail
	patches  map[string][]models.StudentPatch
}

func (m *mockAdminStudents) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	var out []models.StudentDetail
	for _, st := range m.students {
		out = append(out, *st)
	}
	return out, len(out), nil
}

func (m *mockAdminStudents) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	if st, ok := m.students[id]; ok {
		copy := *st
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminStudents) Create(ctx context.Context, student *models.Student) error {
	if m.students == nil {
		m.students = make(map[string]*models.StudentDetail)
	}
	m.students[student.ID] = &models.StudentDetail{Student: *student}
	return nil
}

func (m *mockAdminStudents) Update(ctx context.Context, id string, patch models.StudentPatch) error {
	if m.patches == nil {
		m.patches = make(map[string][]models.StudentPatch)
	}
	m.patches[id] = append(m.patches[id], patch)
	return nil
}

type mockAdminTeachers struct {
	teachers map[string]*models.TeacherDetail
}

func (m *mockAdminTeachers) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	var out []models.TeacherDetail
	for _, te := range m.teachers {
		out = append(out, *te)
	}
	return out, len(out), nil
}

func (m *mockAdminTeachers) FindByID(ctx context.Context, id string) (*models.TeacherDetail, error) {
	if te, ok := m.teachers[id]; ok {
		copy := *te
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminTeachers) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.teachers == nil {
		m.teachers = make(map[string]*models.TeacherDetail)
	}
	m.teachers[teacher.ID] = &models.TeacherDetail{Teacher: *teacher}
	return nil
}

func (m *mockAdminTeachers) SetActive(ctx context.Context, id string, active bool) error {
	if te, ok := m.teachers[id]; ok {
		te.IsActive = active
	}
	return nil
}

type mockAdminCatalog struct {
	disciplines map[string]*models.Discipline
	unassigned  []string
	deleted     []string
}

func (m *mockAdminCatalog) List(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, int, error) {
	var out []models.Discipline
	for _, d := range m.disciplines {
		out = append(out, *d)
	}
	return out, len(out), nil
}

func (m *mockAdminCatalog) FindByID(ctx context.Context, id string) (*models.Discipline, error) {
	if d, ok := m.disciplines[id]; ok {
		copy := *d
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAdminCatalog) Create(ctx context.Context, discipline *models.Discipline) error {
	if m.disciplines == nil {
		m.disciplines = make(map[string]*models.Discipline)
	}
	copy := *discipline
	m.disciplines[discipline.ID] = &copy
	return nil
}

func (m *mockAdminCatalog) Update(ctx context.Context, id string, patch models.DisciplinePatch) error {
	d, ok := m.disciplines[id]
	if !ok {
		return sql.ErrNoRows
	}
	if patch.Name != nil {
		d.Name = *patch.Name
	}
	if patch.Credits != nil {
		d.Credits = *patch.Credits
	}
	if patch.IsActive != nil {
		d.IsActive = *patch.IsActive
	}
	return nil
}

func (m *mockAdminCatalog) Delete(ctx context.Context, id string) error {
	delete(m.disciplines, id)
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockAdminCatalog) ListFields(ctx context.Context, disciplineID string) ([]models.DisciplineField, error) {
	return nil, nil
}

func (m *mockAdminCatalog) ListTeachers(ctx context.Context, disciplineID string) ([]models.TeacherDetail, error) {
	return nil, nil
}

func (m *mockAdminCatalog) ListActiveBySemester(ctx context.Context, semester models.Semester) ([]models.Discipline, error) {
	var out []models.Discipline
	for _, d := range m.disciplines {
		if d.IsActive && d.Semester == semester {
			out = append(out, *d)
		}
	}
	return out, nil
}

func (m *mockAdminCatalog) AssignTeacher(ctx context.Context, teacherID, disciplineID string) error {
	return nil
}

func (m *mockAdminCatalog) UnassignTeacher(ctx context.Context, teacherID, disciplineID string) error {
	return nil
}

func (m *mockAdminCatalog) UnassignAllTeachers(ctx context.Context, disciplineID string) error {
	m.unassigned = append(m.unassigned, disciplineID)
	return nil
}

type mockTeardown struct {
	removed []string
}

func (m *mockTeardown) RemoveDisciplineEnrollments(ctx context.Context, discipline models.Discipline) error {
	m.removed = append(m.removed, discipline.ID)
	return nil
}

type mockRosters struct {
	students map[string][]models.StudentDetail
}

func (m *mockRosters) ListStudentsByDiscipline(ctx context.Context, disciplineID string) ([]models.StudentDetail, error) {
	return m.students[disciplineID], nil
}

type mockInvalidator struct {
	patterns []string
}

func (m *mockInvalidator) DeleteByPattern(ctx context.Context, pattern string) error {
	m.patterns = append(m.patterns, pattern)
	return nil
}

type adminFixture struct {
	svc      *AdminService
	users    *mockAdminUsers
	students *mockAdminStudents
	teachers *mockAdminTeachers
	catalog  *mockAdminCatalog
	teardown *mockTeardown
	rosters  *mockRosters
	cache    *mockInvalidator
	mail     *mockMailer
}

func newAdminFixture() *adminFixture {
	f := &adminFixture{
		users:    &mockAdminUsers{},
		students: &mockAdminStudents{},
		teachers: &mockAdminTeachers{},
		catalog:  &mockAdminCatalog{},
		teardown: &mockTeardown{},
		rosters:  &mockRosters{},
		cache:    &mockInvalidator{},
		mail:     &mockMailer{},
	}
	f.svc = NewAdminService(AdminServiceDeps{
		Users:       f.users,
		Students:    f.students,
		Teachers:    f.teachers,
		Disciplines: f.catalog,
		Selections:  f.teardown,
		Rosters:     f.rosters,
		Cache:       f.cache,
		Mail:        f.mail,
		BcryptCost:  bcrypt.MinCost,
	})
	return f
}

func TestCreateStudentProvisionsAccount(t *testing.T) {
	f := newAdminFixture()

	student, err := f.svc.CreateStudent(context.Background(), CreateStudentRequest{
		Email:              "ada@example.com",
		FirstName:          "Ada",
		LastName:           "Lovelace",
		EducationalProgram: "Mathematics",
		Course:             "2",
		Year:               "2026",
	})
	require.NoError(t, err)
	assert.True(t, student.IsActive)
	assert.False(t, student.CanSelect, "new students wait for the window to open")
	require.Len(t, f.mail.sent, 1)
	assert.Equal(t, "ada@example.com", f.mail.sent[0])
	assert.Contains(t, f.mail.body[0], "Temporary password")
}

func TestCreateStudentRejectsDuplicateEmail(t *testing.T) {
	f := newAdminFixture()
	f.users.users = map[string]*models.User{
		"u1": {ID: "u1", Email: "ada@example.com"},
	}

	_, err := f.svc.CreateStudent(context.Background(), CreateStudentRequest{
		Email:              "ada@example.com",
		FirstName:          "Ada",
		LastName:           "Lovelace",
		EducationalProgram: "Mathematics",
		Course:             "2",
		Year:               "2026",
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailTaken))
	assert.Empty(t, f.students.students)
}

func TestImportStudentsCSV(t *testing.T) {
	f := newAdminFixture()
	payload := "lastName,firstName,patronymic,email,educationalProgram,course,year\n" +
		"Lovelace,Ada,,ada@example.com,Mathematics,2,2026\n" +
		"Hopper,Grace,,grace@example.com,Mathematics,1,2026\n"

	report, err := f.svc.ImportStudentsCSV(context.Background(), strings.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, report.Created)
	assert.Len(t, f.students.students, 2)
	assert.Len(t, f.mail.sent, 2)
}

func TestImportStudentsCSVRejectsBadHeader(t *testing.T) {
	f := newAdminFixture()
	payload := "surname,name,email\nLovelace,Ada,ada@example.com\n"

	_, err := f.svc.ImportStudentsCSV(context.Background(), strings.NewReader(payload))
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCSV))
}

func TestImportStudentsCSVIsAllOrNothing(t *testing.T) {
	f := newAdminFixture()
	f.users.users = map[string]*models.User{
		"u1": {ID: "u1", Email: "grace@example.com"},
	}
	payload := "lastName,firstName,patronymic,email,educationalProgram,course,year\n" +
		"Lovelace,Ada,,ada@example.com,Mathematics,2,2026\n" +
		"Hopper,Grace,,grace@example.com,Mathematics,1,2026\n"

	_, err := f.svc.ImportStudentsCSV(context.Background(), strings.NewReader(payload))
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailTaken))
	assert.Empty(t, f.students.students, "no account is created when any row conflicts")
}

func TestStudentsCSVTemplate(t *testing.T) {
	f := newAdminFixture()
	out, err := f.svc.StudentsCSVTemplate()
	require.NoError(t, err)
	assert.Equal(t, "lastName,firstName,patronymic,email,educationalProgram,course,year\n", string(out))
}

func TestDeactivateDisciplineCascadesTeardown(t *testing.T) {
	f := newAdminFixture()
	f.catalog.disciplines = map[string]*models.Discipline{
		"d1": {ID: "d1", Name: "Algebra", Credits: 3, Semester: models.Semester1, IsActive: true},
	}

	inactive := false
	updated, err := f.svc.UpdateDiscipline(context.Background(), "d1", models.DisciplinePatch{IsActive: &inactive})
	require.NoError(t, err)
	assert.False(t, updated.IsActive)
	assert.Equal(t, []string{"d1"}, f.teardown.removed)
	assert.NotEmpty(t, f.cache.patterns)
}

func TestUpdateActiveDisciplineSkipsTeardown(t *testing.T) {
	f := newAdminFixture()
	f.catalog.disciplines = map[string]*models.Discipline{
		"d1": {ID: "d1", Name: "Algebra", Credits: 3, Semester: models.Semester1, IsActive: true},
	}

	name := "Linear Algebra"
	_, err := f.svc.UpdateDiscipline(context.Background(), "d1", models.DisciplinePatch{Name: &name})
	require.NoError(t, err)
	assert.Empty(t, f.teardown.removed)
}

func TestDeleteDisciplineCascades(t *testing.T) {
	f := newAdminFixture()
	f.catalog.disciplines = map[string]*models.Discipline{
		"d1": {ID: "d1", Name: "Algebra", Credits: 3, Semester: models.Semester1, IsActive: true},
	}

	require.NoError(t, f.svc.DeleteDiscipline(context.Background(), "d1"))
	assert.Equal(t, []string{"d1"}, f.teardown.removed)
	assert.Equal(t, []string{"d1"}, f.catalog.unassigned)
	assert.Equal(t, []string{"d1"}, f.catalog.deleted)
}

func TestBulkUpdateStudentsIsAllOrNothing(t *testing.T) {
	f := newAdminFixture()
	f.students.students = map[string]*models.StudentDetail{
		"st-1": {Student: models.Student{ID: "st-1"}},
	}

	canSelect := true
	err := f.svc.BulkUpdateStudents(context.Background(), BulkStudentUpdateRequest{
		IDs:   []string{"st-1", "ghost"},
		Patch: models.StudentPatch{CanSelect: &canSelect},
	})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.students.patches)

	err = f.svc.BulkUpdateStudents(context.Background(), BulkStudentUpdateRequest{
		IDs:   []string{"st-1"},
		Patch: models.StudentPatch{CanSelect: &canSelect},
	})
	require.NoError(t, err)
	assert.Len(t, f.students.patches["st-1"], 1)
}

func TestExportRostersCSV(t *testing.T) {
	f := newAdminFixture()
	f.catalog.disciplines = map[string]*models.Discipline{
		"d1": {ID: "d1", Name: "Algebra", Credits: 3, Semester: models.Semester1, IsActive: true},
	}
	f.rosters.students = map[string][]models.StudentDetail{
		"d1": {{
			Student:   models.Student{ID: "st-1", EducationalProgram: "Mathematics", Course: "2", Year: "2026"},
			Email:     "ada@example.com",
			FirstName: "Ada",
			LastName:  "Lovelace",
		}},
	}

	out, contentType, err := f.svc.ExportRosters(context.Background(), "1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Contains(t, string(out), "Algebra (3 credits)")
	assert.Contains(t, string(out), "Lovelace,Ada,,ada@example.com,Mathematics,2,2026")
}

func TestExportRostersRejectsBadInput(t *testing.T) {
	f := newAdminFixture()

	_, _, err := f.svc.ExportRosters(context.Background(), "9", "csv")
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidSemester))

	_, _, err = f.svc.ExportRosters(context.Background(), "1", "xlsx")
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
