package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
)

func newDisciplineRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func disciplineRows(ids ...string) *sqlmock.Rows {
	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "credits", "semester", "description", "is_active", "created_at", "updated_at"})
	for _, id := range ids {
		rows.AddRow(id, "Discipline "+id, 3, "1", nil, true, now, now)
	}
	return rows
}

func TestDisciplineRepositoryFindByIDs(t *testing.T) {
	db, mock, cleanup := newDisciplineRepoMock(t)
	defer cleanup()
	repo := NewDisciplineRepository(db)

	mock.ExpectQuery("SELECT d.id, d.name, d.credits, d.semester").
		WithArgs("disc-1", "disc-2").
		WillReturnRows(disciplineRows("disc-1"))

	found, err := repo.FindByIDs(context.Background(), []string{"disc-1", "disc-2"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Contains(t, found, "disc-1")
	require.NotContains(t, found, "disc-2")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDisciplineRepositoryFindByIDsEmptyBatch(t *testing.T) {
	db, mock, cleanup := newDisciplineRepoMock(t)
	defer cleanup()
	repo := NewDisciplineRepository(db)

	found, err := repo.FindByIDs(context.Background(), nil)
	require.NoError(t, err)
	require.Empty(t, found)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDisciplineRepositoryListActiveBySemester(t *testing.T) {
	db, mock, cleanup := newDisciplineRepoMock(t)
	defer cleanup()
	repo := NewDisciplineRepository(db)

	mock.ExpectQuery("SELECT d.id, d.name, d.credits, d.semester, d.description, d.is_active, d.created_at, d.updated_at FROM disciplines d WHERE d.semester = .1 AND d.is_active = true").
		WithArgs(models.Semester2).
		WillReturnRows(disciplineRows("disc-9"))

	disciplines, err := repo.ListActiveBySemester(context.Background(), models.Semester2)
	require.NoError(t, err)
	require.Len(t, disciplines, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDisciplineRepositoryUnassignAllTeachers(t *testing.T) {
	db, mock, cleanup := newDisciplineRepoMock(t)
	defer cleanup()
	repo := NewDisciplineRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM teacher_discipline_relations WHERE discipline_id = $1")).
		WithArgs("disc-1").
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.UnassignAllTeachers(context.Background(), "disc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}
