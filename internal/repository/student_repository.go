package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
)

// StudentRepository manages persistence for the student selection ledger.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

const studentColumns = `s.id, s.user_id, s.educational_program, s.course, s.year, s.is_active, s.can_select,
        s.semester1_min_credits, s.semester1_max_credits, s.semester1_credits,
        s.semester2_min_credits, s.semester2_max_credits, s.semester2_credits,
        s.created_at, s.updated_at`

const studentDetailColumns = studentColumns + `,
        u.email, u.first_name, u.last_name, u.patronymic`

// List returns students matching the provided filters.
func (r *StudentRepository) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetail, int, error) {
	base := "FROM students s JOIN users u ON u.id = s.user_id"
	var conditions []string
	var args []interface{}

	if filter.EducationalProgram != "" {
		conditions = append(conditions, fmt.Sprintf("s.educational_program = $%d", len(args)+1))
		args = append(args, filter.EducationalProgram)
	}
	if filter.Course != "" {
		conditions = append(conditions, fmt.Sprintf("s.course = $%d", len(args)+1))
		args = append(args, filter.Course)
	}
	if filter.Year != "" {
		conditions = append(conditions, fmt.Sprintf("s.year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.is_active = $%d", len(args)+1))
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
		"last_name":  "u.last_name",
		"email":      "u.email",
		"year":       "s.year",
		"created_at": "s.created_at",
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = "created_at"
	}
	column, ok := allowedSorts[sortBy]
	if !ok {
		column = "s.created_at"
	}
	order := strings.ToUpper(filter.SortOrder)
	if order != "ASC" && order != "DESC" {
		order = "DESC"
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
		studentDetailColumns, base+clause, column, order, size, offset)

	var students []models.StudentDetail
	if err := r.db.SelectContext(ctx, &students, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list students: %w", err)
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) %s", base+clause)
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count students: %w", err)
	}
	return students, total, nil
}

// ListAll returns every ledger row, for the reconciliation pass.
func (r *StudentRepository) ListAll(ctx context.Context) ([]models.Student, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s`, studentColumns)
	var students []models.Student
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list all students: %w", err)
	}
	return students, nil
}

// FindByID fetches a student detail by internal id.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.user_id WHERE s.id = $1`, studentDetailColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// FindByUserID fetches a student detail by the owning user identity.
func (r *StudentRepository) FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error) {
	query := fmt.Sprintf(`SELECT %s FROM students s JOIN users u ON u.id = s.user_id WHERE s.user_id = $1`, studentDetailColumns)
	var detail models.StudentDetail
	if err := r.db.GetContext(ctx, &detail, query, userID); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Create inserts a new ledger row.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	if student.ID == "" {
		student.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if student.CreatedAt.IsZero() {
		student.CreatedAt = now
	}
	student.UpdatedAt = now
	const query = `INSERT INTO students (id, user_id, educational_program, course, year, is_active, can_select,
        semester1_min_credits, semester1_max_credits, semester1_credits,
        semester2_min_credits, semester2_max_credits, semester2_credits,
        created_at, updated_at)
        VALUES (:id, :user_id, :educational_program, :course, :year, :is_active, :can_select,
        :semester1_min_credits, :semester1_max_credits, :semester1_credits,
        :semester2_min_credits, :semester2_max_credits, :semester2_credits,
        :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, student); err != nil {
		return fmt.Errorf("create student: %w", err)
	}
	return nil
}

// Update applies a partial ledger update.
func (r *StudentRepository) Update(ctx context.Context, id string, patch models.StudentPatch) error {
	if patch.IsEmpty() {
		return nil
	}
	const query = `UPDATE students SET
        educational_program = COALESCE($2, educational_program),
        course = COALESCE($3, course),
        year = COALESCE($4, year),
        is_active = COALESCE($5, is_active),
        can_select = COALESCE($6, can_select),
        semester1_min_credits = COALESCE($7, semester1_min_credits),
        semester1_max_credits = COALESCE($8, semester1_max_credits),
        semester1_credits = COALESCE($9, semester1_credits),
        semester2_min_credits = COALESCE($10, semester2_min_credits),
        semester2_max_credits = COALESCE($11, semester2_max_credits),
        semester2_credits = COALESCE($12, semester2_credits),
        updated_at = $13
        WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id,
		patch.EducationalProgram, patch.Course, patch.Year, patch.IsActive, patch.CanSelect,
		patch.Semester1MinCredits, patch.Semester1MaxCredits, patch.Semester1Credits,
		patch.Semester2MinCredits, patch.Semester2MaxCredits, patch.Semester2Credits,
		time.Now().UTC()); err != nil {
		return fmt.Errorf("update student: %w", err)
	}
	return nil
}

// UpdateCredits overwrites the cached credit total for one semester.
func (r *StudentRepository) UpdateCredits(ctx context.Context, id string, semester models.Semester, credits int) error {
	column := "semester1_credits"
	if semester == models.Semester2 {
		column = "semester2_credits"
	}
	query := fmt.Sprintf(`UPDATE students SET %s = $2, updated_at = $3 WHERE id = $1`, column)
	if _, err := r.db.ExecContext(ctx, query, id, credits, time.Now().UTC()); err != nil {
		return fmt.Errorf("update student credits: %w", err)
	}
	return nil
}

// SetCanSelectWhere flips can_select for every student matching the
// condition. Used by the selection window controller for bulk lock and
// unlock; returns the number of affected rows.
func (r *StudentRepository) SetCanSelectWhere(ctx context.Context, cond models.StudentCondition, canSelect bool) (int64, error) {
	conditions := []string{"1=1"}
	args := []interface{}{canSelect}
	if cond.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", len(args)+1))
		args = append(args, *cond.IsActive)
	}
	if cond.CanSelect != nil {
		conditions = append(conditions, fmt.Sprintf("can_select = $%d", len(args)+1))
		args = append(args, *cond.CanSelect)
	}
	query := fmt.Sprintf(`UPDATE students SET can_select = $1, updated_at = NOW() WHERE %s`, strings.Join(conditions, " AND "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk update can_select: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return affected, nil
}

// ExistsByUserID reports whether a ledger row exists for the user.
func (r *StudentRepository) ExistsByUserID(ctx context.Context, userID string) (bool, error) {
	const query = `SELECT 1 FROM students WHERE user_id = $1 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, userID); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check student by user: %w", err)
	}
	return true, nil
}
