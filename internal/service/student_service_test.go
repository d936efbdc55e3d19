package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
)

type mockBrowseCatalog struct {
	disciplines map[string]*models.Discipline
	fields      map[string][]models.DisciplineField
	teachers    map[string][]models.TeacherDetail
}

func (m *mockBrowseCatalog) FindByID(ctx context.Context, id string) (*models.Discipline, error) {
	if d, ok := m.disciplines[id]; ok {
		copy := *d
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBrowseCatalog) ListFields(ctx context.Context, disciplineID string) ([]models.DisciplineField, error) {
	return m.fields[disciplineID], nil
}

func (m *mockBrowseCatalog) ListTeachers(ctx context.Context, disciplineID string) ([]models.TeacherDetail, error) {
	return m.teachers[disciplineID], nil
}

type mockBrowseRoster struct {
	teachers map[string]*models.TeacherDetail
	fields   map[string][]models.TeacherField
}

func (m *mockBrowseRoster) FindByID(ctx context.Context, id string) (*models.TeacherDetail, error) {
	if te, ok := m.teachers[id]; ok {
		copy := *te
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockBrowseRoster) ListFields(ctx context.Context, teacherID string) ([]models.TeacherField, error) {
	return m.fields[teacherID], nil
}

func newBrowseFixture() (*StudentService, *mockLedger) {
	ledger := &mockLedger{students: map[string]*models.StudentDetail{
		"user-1": {Student: models.Student{ID: "st-1", UserID: "user-1", IsActive: true}},
	}}
	catalog := &mockBrowseCatalog{
		disciplines: map[string]*models.Discipline{
			"d1": {ID: "d1", Name: "Algebra", Credits: 3, Semester: models.Semester1, IsActive: true},
		},
		fields:   map[string][]models.DisciplineField{"d1": {{ID: "f1", DisciplineID: "d1", Name: "syllabus"}}},
		teachers: map[string][]models.TeacherDetail{"d1": {{Teacher: models.Teacher{ID: "te-1"}}}},
	}
	roster := &mockBrowseRoster{
		teachers: map[string]*models.TeacherDetail{"te-1": {Teacher: models.Teacher{ID: "te-1", IsActive: true}}},
		fields:   map[string][]models.TeacherField{"te-1": {{ID: "tf1", TeacherID: "te-1", Name: "office"}}},
	}
	return NewStudentService(ledger, catalog, roster, nil), ledger
}

func TestBrowseRequiresActiveStudent(t *testing.T) {
	svc, ledger := newBrowseFixture()
	ctx := context.Background()

	_, err := svc.GetDiscipline(ctx, "ghost", "d1")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	ledger.students["user-1"].IsActive = false
	_, err = svc.GetDiscipline(ctx, "user-1", "d1")
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))
}

func TestGetDisciplineDetail(t *testing.T) {
	svc, _ := newBrowseFixture()

	detail, err := svc.GetDiscipline(context.Background(), "user-1", "d1")
	require.NoError(t, err)
	assert.Equal(t, "Algebra", detail.Discipline.Name)
	assert.Len(t, detail.Fields, 1)
	assert.Len(t, detail.Teachers, 1)

	_, err = svc.GetDiscipline(context.Background(), "user-1", "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestGetTeacherProfile(t *testing.T) {
	svc, _ := newBrowseFixture()

	profile, err := svc.GetTeacher(context.Background(), "user-1", "te-1")
	require.NoError(t, err)
	assert.Equal(t, "te-1", profile.Teacher.ID)
	assert.Len(t, profile.Fields, 1)

	_, err = svc.GetTeacher(context.Background(), "user-1", "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}
