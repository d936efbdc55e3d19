package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
)

// TeacherRepository manages the teaching roster and teacher profile fields.
type TeacherRepository struct {
	db *sqlx.DB
}

// NewTeacherRepository constructs a TeacherRepository.
func NewTeacherRepository(db *sqlx.DB) *TeacherRepository {
	return &TeacherRepository{db: db}
}

const teacherDetailColumns = `t.id, t.user_id, t.is_active, u.email, u.first_name, u.last_name, u.patronymic`

// List returns teachers matching the provided filters.
func (r *TeacherRepository) List(ctx context.Context, filter models.TeacherFilter) ([]models.TeacherDetail, int, error) {
	base := "FROM teachers t JOIN users u ON u.id = t.user_id"
	var conditions []string
	var args []interface{}

	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("t.is_active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(u.email) LIKE $%d OR LOWER(u.last_name) LIKE $%d OR LOWER(u.first_name) LIKE $%d)", len(args)+1, len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}

	clause := ""
	if len(conditions) > 0 {
		clause = " WHERE " + strings.Join(conditions, " AND ")
	}

	allowedSorts := map[string]string{
		"last_name": "u.last_name",
		"email":     "u.email",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "last_name"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "u.last_name"
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
		teacherDetailColumns, base+clause, column, order, size, offset)

	var teachers []models.TeacherDetail
	if err := r.db.SelectContext(ctx, &teachers, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list teachers: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count teachers: %w", err)
	}
	return teachers, total, nil
}

// FindByID fetches a teacher detail by internal id.
func (r *TeacherRepository) FindByID(ctx context.Context, id string) (*models.TeacherDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.id = $1`, teacherDetailColumns)
	var detail models.TeacherDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches a teacher detail by the owning user identity.
func (r *TeacherRepository) FindByUserID(ctx context.Context, userID string) (*models.TeacherDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM teachers t JOIN users u ON u.id = t.user_id WHERE t.user_id = $1`, teacherDetailColumns)
	var detail models.TeacherDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new roster row.
func (r *TeacherRepository) Create(ctx context.Context, teacher *models.Teacher) error {
	if teacher.ID == "" {
		teacher.ID = uuid.NewString()
	}
	const query = `INSERT INTO teachers (id, user_id, is_active) VALUES (:id, :user_id, :is_active)`
	if _, err := r.db.NamedExecContext(ctx, query, teacher); err != nil {
		return fmt.Errorf("create teacher: %w", err)
	}
	return nil
}

// SetActive flips the roster activity flag.
func (r *TeacherRepository) SetActive(ctx context.Context, id string, active bool) error {
	const query = `UPDATE teachers SET is_active = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, active); err != nil {
		return fmt.Errorf("set teacher active: %w", err)
	}
	return nil
}

// AddField attaches a free-text field to a teacher profile.
func (r *TeacherRepository) AddField(ctx context.Context, field *models.TeacherField) error {
	if field.ID == "" {
		field.ID = uuid.NewString()
	}
	const query = `INSERT INTO teacher_fields (id, teacher_id, name, content) VALUES (:id, :teacher_id, :name, :content)`
	if _, err := r.db.NamedExecContext(ctx, query, field); err != nil {
		return fmt.Errorf("add teacher field: %w", err)
	}
	return nil
}

// ListFields returns the free-text fields of a teacher profile.
func (r *TeacherRepository) ListFields(ctx context.Context, teacherID string) ([]models.TeacherField, error) {
	const query = `SELECT id, teacher_id, name, content FROM teacher_fields WHERE teacher_id = $1 ORDER BY name`
	var fields []models.TeacherField
	if err := r.db.SelectContext(ctx, &fields, query, teacherID); err != nil {
		return nil, fmt.Errorf("list teacher fields: %w", err)
	}
	return fields, nil
}

// UpdateField rewrites a field's name and content.
func (r *TeacherRepository) UpdateField(ctx context.Context, fieldID, name, content string) error {
	const query = `UPDATE teacher_fields SET name = $2, content = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, fieldID, name, content); err != nil {
		return fmt.Errorf("update teacher field: %w", err)
	}
	return nil
}

// DeleteField removes a field from a teacher profile.
func (r *TeacherRepository) DeleteField(ctx context.Context, fieldID string) error {
	const query = `DELETE FROM teacher_fields WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, fieldID); err != nil {
		return fmt.Errorf("delete teacher field: %w", err)
	}
	return nil
}
