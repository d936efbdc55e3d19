package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
)

// DisciplineRepository manages the course catalog, its free-text fields
// and teacher assignments.
type DisciplineRepository struct {
	db *sqlx.DB
}

// NewDisciplineRepository constructs a DisciplineRepository.
func NewDisciplineRepository(db *sqlx.DB) *DisciplineRepository {
	return &DisciplineRepository{db: db}
}

const disciplineColumns = `d.id, d.name, d.credits, d.semester, d.description, d.is_active, d.created_at, d.updated_at`

// List returns disciplines matching the provided filters.
func (r *DisciplineRepository) List(ctx context.Context, filter models.DisciplineFilter) ([]models.Discipline, int, error) {
	base := "FROM disciplines d"
	var conditions []string
	var args []interface{}

	if filter.Semester != nil {
		conditions = append(conditions, fmt.Sprintf("d.semester = $%d", len(args)+1))
		args = append(args, *filter.Semester)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("d.is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("LOWER(d.name) LIKE $%d", len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"name":       "d.name",
		"credits":    "d.credits",
		"created_at": "d.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "name"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "d.name"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "ASC"
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf(`SELECT %s %s ORDER BY %s %s LIMIT %d OFFSET %d`,
		disciplineColumns, base+clause, column, order, size, offset)

	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list disciplines: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count disciplines: %w", err)
	}
	return disciplines, total, nil
}

// ListAll returns the full catalog, for the reconciliation pass.
func (r *DisciplineRepository) ListAll(ctx context.Context) ([]models.Discipline, error) {
	query := fmt.Sprintf(`SELECT %s FROM disciplines d`, disciplineColumns)
	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query); err != nil {
		return nil, fmt.Errorf("list all disciplines: %w", err)
	}
	return disciplines, nil
}

// ListActiveBySemester returns the active disciplines of one semester.
func (r *DisciplineRepository) ListActiveBySemester(ctx context.Context, semester models.Semester) ([]models.Discipline, error) {
	query := fmt.Sprintf(`SELECT %s FROM disciplines d WHERE d.semester = $1 AND d.is_active = true ORDER BY d.name`, disciplineColumns)
	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query, semester); err != nil {
		return nil, fmt.Errorf("list disciplines by semester: %w", err)
	}
	return disciplines, nil
}

// FindByID returns a discipline by its identifier.
func (r *DisciplineRepository) FindByID(ctx context.Context, id string) (*models.Discipline, error) {
	query := fmt.Sprintf(`SELECT %s FROM disciplines d WHERE d.id = $1`, disciplineColumns)
	var discipline models.Discipline
	if err := r.db.GetContext(ctx, &discipline, query, id); err != nil {
		return nil, err
	}
	return &discipline, nil
}

// FindByIDs resolves a batch of ids, returning the found disciplines
// keyed by id. Missing ids are simply absent from the result.
func (r *DisciplineRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Discipline, error) {
	if len(ids) == 0 {
		return map[string]models.Discipline{}, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`SELECT %s FROM disciplines d WHERE d.id IN (%s)`, disciplineColumns, strings.Join(placeholders, ","))

	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query, args...); err != nil {
		return nil, fmt.Errorf("find disciplines by ids: %w", err)
	}
	found := make(map[string]models.Discipline, len(disciplines))
	for _, d := range disciplines {
		found[d.ID] = d
	}
	return found, nil
}

// Create inserts a new catalog record.
func (r *DisciplineRepository) Create(ctx context.Context, discipline *models.Discipline) error {
	if discipline.ID == "" {
		discipline.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if discipline.CreatedAt.IsZero() {
		discipline.CreatedAt = now
	}
	discipline.UpdatedAt = now
	const query = `INSERT INTO disciplines (id, name, credits, semester, description, is_active, created_at, updated_at)
        VALUES (:id, :name, :credits, :semester, :description, :is_active, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, discipline); err != nil {
		return fmt.Errorf("create discipline: %w", err)
	}
	return nil
}

// Update applies a partial catalog update.
func (r *DisciplineRepository) Update(ctx context.Context, id string, patch models.DisciplinePatch) error {
	if patch.IsEmpty() {
		return nil
	}
	const query = `UPDATE disciplines SET
        name = COALESCE($2, name),
        credits = COALESCE($3, credits),
        semester = COALESCE($4, semester),
        description = COALESCE($5, description),
        is_active = COALESCE($6, is_active),
        updated_at = $7
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, patch.Name, patch.Credits, patch.Semester, patch.Description, patch.IsActive, time.Now().UTC()); err != nil {
		return fmt.Errorf("update discipline: %w", err)
	}
	return nil
}

// Delete removes a discipline from the catalog.
func (r *DisciplineRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM disciplines WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete discipline: %w", err)
	}
	return nil
}

// AddField attaches a free-text field to a discipline.
func (r *DisciplineRepository) AddField(ctx context.Context, field *models.DisciplineField) error {
	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	const query = `INSERT INTO discipline_fields (id, discipline_id, name, content) VALUES (:id, :discipline_id, :name, :content)`
	if _, err := r.db.NamedExecContext(ctx, query, field); err != nil {
		return fmt.Errorf("add discipline field: %w", err)
	}
	return nil
}

// ListFields returns the free-text fields of a discipline.
func (r *DisciplineRepository) ListFields(ctx context.Context, disciplineID string) ([]models.DisciplineField, error) {
	const query = `SELECT id, discipline_id, name, content FROM discipline_fields WHERE discipline_id = $1 ORDER BY name`
	var fields []models.DisciplineField
	if err := r.db.SelectContext(ctx, &fields, query, disciplineID); err != nil {
		return nil, fmt.Errorf("list discipline fields: %w", err)
	}
	return fields, nil
}

// UpdateField rewrites a field's name and content.
func (r *DisciplineRepository) UpdateField(ctx context.Context, fieldID, name, content string) error {
	const query = `UPDATE discipline_fields SET name = $2, content = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, fieldID, name, content); err != nil {
		return fmt.Errorf("update discipline field: %w", err)
	}
	return nil
}

// DeleteField removes a field from a discipline.
func (r *DisciplineRepository) DeleteField(ctx context.Context, fieldID string) error {
	const query = `DELETE FROM discipline_fields WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, fieldID); err != nil {
		return fmt.Errorf("delete discipline field: %w", err)
	}
	return nil
}

// AssignTeacher links a teacher to a discipline.
func (r *DisciplineRepository) AssignTeacher(ctx context.Context, teacherID, disciplineID string) error {
	const query = `INSERT INTO teacher_discipline_relations (teacher_id, discipline_id) VALUES ($1, $2)`
	if _, err := r.db.ExecContext(ctx, query, teacherID, disciplineID); err != nil {
		return fmt.Errorf("assign teacher: %w", err)
	}
	return nil
}

// UnassignTeacher removes a teacher from a discipline.
func (r *DisciplineRepository) UnassignTeacher(ctx context.Context, teacherID, disciplineID string) error {
	const query = `DELETE FROM teacher_discipline_relations WHERE teacher_id = $1 AND discipline_id = $2`
	if _, err := r.db.ExecContext(ctx, query, teacherID, disciplineID); err != nil {
		return fmt.Errorf("unassign teacher: %w", err)
	}
	return nil
}

// UnassignAllTeachers clears every teacher assignment of a discipline,
// part of the deactivate/delete cascade.
func (r *DisciplineRepository) UnassignAllTeachers(ctx context.Context, disciplineID string) error {
	const query = `DELETE FROM teacher_discipline_relations WHERE discipline_id = $1`
	if _, err := r.db.ExecContext(ctx, query, disciplineID); err != nil {
		return fmt.Errorf("unassign discipline teachers: %w", err)
	}
	return nil
}

// ListTeachers returns the teachers assigned to a discipline.
func (r *DisciplineRepository) ListTeachers(ctx context.Context, disciplineID string) ([]models.TeacherDetail, error) {
	const query = `SELECT t.id, t.user_id, t.is_active, u.email, u.first_name, u.last_name, u.patronymic
        FROM teacher_discipline_relations rel
        JOIN teachers t ON t.id = rel.teacher_id
        JOIN users u ON u.id = t.user_id
        WHERE rel.discipline_id = $1
        ORDER BY u.last_name`
	var teachers []models.TeacherDetail
	if err := r.db.SelectContext(ctx, &teachers, query, disciplineID); err != nil {
		return nil, fmt.Errorf("list discipline teachers: %w", err)
	}
	return teachers, nil
}

// ListByTeacher returns the disciplines assigned to a teacher.
func (r *DisciplineRepository) ListByTeacher(ctx context.Context, teacherID string) ([]models.Discipline, error) {
	query := fmt.Sprintf(`SELECT %s FROM teacher_discipline_relations rel
        JOIN disciplines d ON d.id = rel.discipline_id
        WHERE rel.teacher_id = $1
        ORDER BY d.name`, disciplineColumns)
	var disciplines []models.Discipline
	if err := r.db.SelectContext(ctx, &disciplines, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher disciplines: %w", err)
	}
	return disciplines, nil
}

// IsTeacherAssigned reports whether the teacher is assigned to the discipline.
func (r *DisciplineRepository) IsTeacherAssigned(ctx context.Context, teacherID, disciplineID string) (bool, error) {
	const query = `SELECT COUNT(*) FROM teacher_discipline_relations WHERE teacher_id = $1 AND discipline_id = $2`
	var count int
	if err := r.db.GetContext(ctx, &count, query, teacherID, disciplineID); err != nil {
		return false, fmt.Errorf("check teacher assignment: %w", err)
	}
	return count > 0, nil
}
