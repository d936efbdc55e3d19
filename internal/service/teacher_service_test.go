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

type mockTeacherRoster struct {
	teachers map[string]*models.TeacherDetail
	fields   map[string][]models.TeacherField
	deleted  []string
}

func (m *mockTeacherRoster) FindByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error) {
	for _, te := range m.teachers {
		if te.UserID == userID {
			copy := *te
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRoster) AddField(ctx context.Context, field *models.TeacherField) error {
	if m.fields == nil {
		m.fields = make(map[string][]models.TeacherField)
	}
	m.fields[field.TeacherID] = append(m.fields[field.TeacherID], *field)
	return nil
}

func (m *mockTeacherRoster) ListFields(ctx context.Context, teacherID string) ([]models.TeacherField, error) {
	return m.fields[teacherID], nil
}

func (m *mockTeacherRoster) UpdateField(ctx context.Context, fieldID, name, content string) error {
	return nil
}

func (m *mockTeacherRoster) DeleteField(ctx context.Context, fieldID string) error {
	m.deleted = append(m.deleted, fieldID)
	return nil
}

type mockTeacherCatalog struct {
	assigned    map[string]bool
	disciplines []models.Discipline
	fields      map[string][]models.DisciplineField
}

func (m *mockTeacherCatalog) ListByTeacher(ctx context.Context, teacherID string) ([]models.Discipline, error) {
	return m.disciplines, nil
}

func (m *mockTeacherCatalog) IsTeacherAssigned(ctx context.Context, teacherID, disciplineID string) (bool, error) {
	return m.assigned[teacherID+":"+disciplineID], nil
}

func (m *mockTeacherCatalog) AddField(ctx context.Context, field *models.DisciplineField) error {
	if m.fields == nil {
		m.fields = make(map[string][]models.DisciplineField)
	}
	m.fields[field.DisciplineID] = append(m.fields[field.DisciplineID], *field)
	return nil
}

func (m *mockTeacherCatalog) ListFields(ctx context.Context, disciplineID string) ([]models.DisciplineField, error) {
	return m.fields[disciplineID], nil
}

func (m *mockTeacherCatalog) UpdateField(ctx context.Context, fieldID, name, content string) error {
	return nil
}

func (m *mockTeacherCatalog) DeleteField(ctx context.Context, fieldID string) error {
	return nil
}

func newTeacherFixture() (*TeacherService, *mockTeacherRoster, *mockTeacherCatalog) {
	roster := &mockTeacherRoster{teachers: map[string]*models.TeacherDetail{
		"te-1": {Teacher: models.Teacher{ID: "te-1", UserID: "user-t", IsActive: true}},
	}}
	catalog := &mockTeacherCatalog{assigned: map[string]bool{"te-1:d1": true}}
	return NewTeacherService(roster, catalog, nil, nil), roster, catalog
}

func TestTeacherProfileRequiresActiveRecord(t *testing.T) {
	svc, roster, _ := newTeacherFixture()
	ctx := context.Background()

	_, err := svc.Profile(ctx, "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	roster.teachers["te-1"].IsActive = false
	_, err = svc.Profile(ctx, "user-t")
	assert.True(t, appErrors.Is(err, appErrors.ErrInactiveAccount))

	roster.teachers["te-1"].IsActive = true
	profile, err := svc.Profile(ctx, "user-t")
	require.NoError(t, err)
	assert.Equal(t, "te-1", profile.Teacher.ID)
}

func TestTeacherProfileFieldOwnership(t *testing.T) {
	svc, roster, _ := newTeacherFixture()
	ctx := context.Background()

	field, err := svc.AddProfileField(ctx, "user-t", FieldRequest{Name: "office", Content: "room 214"})
	require.NoError(t, err)
	require.NotEmpty(t, field.ID)

	err = svc.UpdateProfileField(ctx, "user-t", field.ID, FieldRequest{Name: "office", Content: "room 215"})
	require.NoError(t, err)

	err = svc.UpdateProfileField(ctx, "user-t", "foreign-field", FieldRequest{Name: "x", Content: "y"})
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, svc.DeleteProfileField(ctx, "user-t", field.ID))
	assert.Equal(t, []string{field.ID}, roster.deleted)
}

func TestDisciplineFieldRequiresAssignment(t *testing.T) {
	svc, _, catalog := newTeacherFixture()
	ctx := context.Background()

	_, err := svc.AddDisciplineField(ctx, "user-t", "d2", FieldRequest{Name: "syllabus", Content: "..."})
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	field, err := svc.AddDisciplineField(ctx, "user-t", "d1", FieldRequest{Name: "syllabus", Content: "..."})
	require.NoError(t, err)
	assert.Len(t, catalog.fields["d1"], 1)

	err = svc.UpdateDisciplineField(ctx, "user-t", "d1", field.ID, FieldRequest{Name: "syllabus", Content: "v2"})
	require.NoError(t, err)
}

func TestListDisciplinesForTeacher(t *testing.T) {
	svc, _, catalog := newTeacherFixture()
	catalog.disciplines = []models.Discipline{{ID: "d1", Name: "Algebra"}}

	disciplines, err := svc.ListDisciplines(context.Background(), "user-t")
	require.NoError(t, err)
	assert.Len(t, disciplines, 1)
}
