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

func newSelectionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSelectionRepositoryAddIfAbsentInsertsWhenMissing(t *testing.T) {
	db, mock, cleanup := newSelectionRepoMock(t)
	defer cleanup()
	repo := NewSelectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM student_discipline_relations WHERE student_id = $1 AND discipline_id = $2 LIMIT 1")).
		WithArgs("stu-1", "disc-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO student_discipline_relations (student_id, discipline_id) VALUES ($1, $2)")).
		WithArgs("stu-1", "disc-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AddIfAbsent(context.Background(), "stu-1", "disc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectionRepositoryAddIfAbsentSkipsExisting(t *testing.T) {
	db, mock, cleanup := newSelectionRepoMock(t)
	defer cleanup()
	repo := NewSelectionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT 1 FROM student_discipline_relations WHERE student_id = $1 AND discipline_id = $2 LIMIT 1")).
		WithArgs("stu-1", "disc-1").
		WillReturnRows(sqlmock.NewRows([]string{"?column?"}).AddRow(1))

	require.NoError(t, repo.AddIfAbsent(context.Background(), "stu-1", "disc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectionRepositoryRemoveAllDeletesEveryRow(t *testing.T) {
	db, mock, cleanup := newSelectionRepoMock(t)
	defer cleanup()
	repo := NewSelectionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM student_discipline_relations WHERE student_id = $1 AND discipline_id = $2")).
		WithArgs("stu-1", "disc-1").
		WillReturnResult(sqlmock.NewResult(0, 2))

	require.NoError(t, repo.RemoveAll(context.Background(), "stu-1", "disc-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectionRepositoryListByStudent(t *testing.T) {
	db, mock, cleanup := newSelectionRepoMock(t)
	defer cleanup()
	repo := NewSelectionRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "name", "credits", "semester", "description", "is_active", "created_at", "updated_at"}).
		AddRow("disc-1", "Topology", 4, "1", nil, true, now, now).
		AddRow("disc-2", "Measure Theory", 3, "1", nil, true, now, now)
	mock.ExpectQuery("SELECT DISTINCT d.id, d.name, d.credits").
		WithArgs("stu-1", models.Semester1).
		WillReturnRows(rows)

	disciplines, err := repo.ListByStudent(context.Background(), "stu-1", models.Semester1)
	require.NoError(t, err)
	require.Len(t, disciplines, 2)
	require.Equal(t, "Topology", disciplines[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSelectionRepositoryListAll(t *testing.T) {
	db, mock, cleanup := newSelectionRepoMock(t)
	defer cleanup()
	repo := NewSelectionRepository(db)

	rows := sqlmock.NewRows([]string{"student_id", "discipline_id"}).
		AddRow("stu-1", "disc-1").
		AddRow("stu-1", "disc-1").
		AddRow("stu-2", "disc-2")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT student_id, discipline_id FROM student_discipline_relations")).
		WillReturnRows(rows)

	relations, err := repo.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, relations, 3)
	require.NoError(t, mock.ExpectationsWereMet())
}
