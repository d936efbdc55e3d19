package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
)

// SelectionRepository handles the student-discipline relation table, the
// source of truth for what each student has selected. The table has no
// uniqueness constraint; AddIfAbsent is the only duplicate guard, so
// concurrent writers can still produce duplicate rows.
type SelectionRepository struct {
	db *sqlx.DB
}

// NewSelectionRepository constructs the repository.
func NewSelectionRepository(db *sqlx.DB) *SelectionRepository {
	return &SelectionRepository{db: db}
}

// AddIfAbsent inserts a relation row unless one already exists for the
// pair. Check-then-insert, not atomic across the two statements.
func (r *SelectionRepository) AddIfAbsent(ctx context.Context, studentID, disciplineID string) error {
	const checkQuery = `SELECT 1 FROM student_discipline_relations WHERE student_id = $1 AND discipline_id = $2 LIMIT 1`
	var exists int
	err := r.db.GetContext(ctx, &exists, checkQuery, studentID, disciplineID)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return fmt.Errorf("check relation: %w", err)
	}

	const insertQuery = `INSERT INTO student_discipline_relations (student_id, discipline_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, insertQuery, studentID, disciplineID); err != nil {
		return fmt.Errorf("add relation: %w", err)
	}
	return nil
}

// RemoveAll deletes every relation row for the pair, tolerating
// duplicates. Removing a non-existent relation is a no-op.
func (r *SelectionRepository) RemoveAll(ctx context.Context, studentID, disciplineID string) error {
	const query = `DELETE FROM student_discipline_relations WHERE student_id = $1 AND discipline_id = $2`
	if _, err := r.db.ExecContext(ctx, query, studentID, disciplineID); err != nil {
		return fmt.Errorf("remove relation: %w", err)
	}
	return nil
}

// ListAll returns every relation row, duplicates included, for the
// reconciliation pass.
func (r *SelectionRepository) ListAll(ctx context.Context) ([]models.SelectionRelation, error) {
	const query = `SELECT student_id, discipline_id FROM student_discipline_relations`
	var relations []models.SelectionRelation
	if err := r.db.SelectContext(ctx, &relations, query); err != nil {
		return nil, fmt.Errorf("list relations: %w", err)
	}
	return relations, nil
}

// ListByStudent returns the distinct disciplines the student has
// selected for the semester.
func (r *SelectionRepository) ListByStudent(ctx context.Context, studentID string, semester models.Semester) ([]models.Discipline, error) {
	const query = `SELECT DISTINCT d.id, d.name, d.credits, d.semester, d.description, d.is_active, d.created_at, d.updated_at
        FROM student_discipline_relations rel
        JOIN disciplines d ON d.id = rel.discipline_id
        WHERE rel.student_id = $1 AND d.semester = $2
        ORDER BY d.name`
	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query, studentID, semester); err != nil {
		return nil, fmt.Errorf("list selected disciplines: %w", err)
	}
	return disciplines, nil
}

// ListStudentsByDiscipline returns the distinct students enrolled in the
// discipline, joined with their user identity. Used for cascade teardown
// when a discipline is deactivated and for roster export.
func (r *SelectionRepository) ListStudentsByDiscipline(ctx context.Context, disciplineID string) ([]models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM student_discipline_relations rel
        JOIN students s ON s.id = rel.student_id
        JOIN users u ON u.id = s.user_id
        WHERE rel.discipline_id = $1
        ORDER BY u.last_name`, studentDetailColumns)
	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, disciplineID); err != nil {
		return nil, fmt.Errorf("list students by discipline: %w", err)
	}
	return students, nil
}
