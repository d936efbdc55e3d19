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

func newStudentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func studentDetailRows() *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "user_id", "educational_program", "course", "year", "is_active", "can_select",
		"semester1_min_credits", "semester1_max_credits", "semester1_credits",
		"semester2_min_credits", "semester2_max_credits", "semester2_credits",
		"created_at", "updated_at",
		"email", "first_name", "last_name", "patronymic",
	}).AddRow(
		"stu-1", "usr-1", "Applied Mathematics", "2", "2026", true, true,
		10, 30, 7,
		10, 30, 0,
		now, now,
		"student@nereid.edu", "Oksana", "Koval", "Ivanivna",
	)
}

func TestStudentRepositoryFindByUserID(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectQuery("SELECT s.id, s.user_id, s.educational_program").
		WithArgs("usr-1").
		WillReturnRows(studentDetailRows())

	detail, err := repo.FindByUserID(context.Background(), "usr-1")
	require.NoError(t, err)
	require.Equal(t, "stu-1", detail.ID)
	require.Equal(t, 7, detail.Semester1Credits)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateCreditsTargetsSemesterColumn(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET semester2_credits = $2, updated_at = $3 WHERE id = $1")).
		WithArgs("stu-1", 12, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateCredits(context.Background(), "stu-1", models.Semester2, 12))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositorySetCanSelectWhere(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	active := true
	canSelect := true
	mock.ExpectExec(regexp.QuoteMeta("UPDATE students SET can_select = $1, updated_at = NOW() WHERE 1=1 AND is_active = $2 AND can_select = $3")).
		WithArgs(false, active, canSelect).
		WillReturnResult(sqlmock.NewResult(0, 42))

	affected, err := repo.SetCanSelectWhere(context.Background(), models.StudentCondition{IsActive: &active, CanSelect: &canSelect}, false)
	require.NoError(t, err)
	require.EqualValues(t, 42, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStudentRepositoryUpdateSkipsEmptyPatch(t *testing.T) {
	db, mock, cleanup := newStudentRepoMock(t)
	defer cleanup()
	repo := NewStudentRepository(db)

	require.NoError(t, repo.Update(context.Background(), "stu-1", models.StudentPatch{}))
	require.NoError(t, mock.ExpectationsWereMet())
}
