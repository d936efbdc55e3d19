package models

import "time"

// Semester identifies one of the two fixed enrollment periods.
type Semester string

const (
	Semester1 Semester = "1"
	Semester2 Semester = "2"
)

// ParseSemester validates a raw semester value.
func ParseSemester(raw string) (Semester, bool) {
	switch Semester(raw) {
	case Semester1, Semester2:
		return Semester(raw), true
	default:
		return "", false
	}
}

/// Student is the per-student selection ledger: activity flags plus
// per-semester credit bounds and the cached current-credit totals.
// The cached totals are derived, not authoritative; reconciliation
// recomputes them from the relation table.
type Student struct {
	ID                 string    `db:"id" json:"id"`
	UserID             string    `db:"user_id" json:"user_id"`
	EducationalProgram string    `db:"educational_program" json:"educational_program"`
	Course             string    `db:"course" json:"course"`
	Year               string    `db:"year" json:"year"`
	IsActive           bool      `db:"is_active" json:"is_active"`
	CanSelect          bool      `db:"can_select" json:"can_select"`
	Semester1MinCredits int      `db:"semester1_min_credits" json:"semester1_min_credits"`
	Semester1MaxCredits int      `db:"semester1_max_credits" json:"semester1_max_credits"`
	Semester1Credits    int      `db:"semester1_credits" json:"semester1_credits"`
	Semester2MinCredits int      `db:"semester2_min_credits" json:"semester2_min_credits"`
	Semester2MaxCredits int      `db:"semester2_max_credits" json:"semester2_max_credits"`
	Semester2Credits    int      `db:"semester2_credits" json:"semester2_credits"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Credits returns the cached credit total for the semester.
func (s *Student) Credits(semester Semester) int {
	if semester == Semester1 {
		return s.Semester1Credits
	}
	return s.Semester2Credits
}

// MinCredits returns the administrator-set floor for the semester.
func (s *Student) MinCredits(semester Semester) int {
	if semester == Semester1 {
		return s.Semester1MinCredits
	}
	return s.Semester2MinCredits
}

// MaxCredits returns the administrator-set ceiling for the semester.
func (s *Student) MaxCredits(semester Semester) int {
	if semester == Semester1 {
		return s.Semester1MaxCredits
	}
	return s.Semester2MaxCredits
}

// StudentDetail joins the ledger row with its user identity.
type StudentDetail struct {
	Student
	Email      string `db:"email" json:"email"`
	FirstName  string `db:"first_name" json:"first_name"`
	LastName   string `db:"last_name" json:"last_name"`
	Patronymic string `db:"patronymic" json:"patronymic"`
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search             string
	EducationalProgram string
	Course             string
	Year               string
	Active             *bool
	Page               int
	PageSize           int
	SortBy             string
	SortOrder          string
}

// StudentPatch holds optional ledger fields for partial updates.
type StudentPatch struct {
	EducationalProgram  *string `json:"educational_program"`
	Course              *string `json:"course"`
	Year                *string `json:"year"`
	IsActive            *bool   `json:"is_active"`
	CanSelect           *bool   `json:"can_select"`
	Semester1MinCredits *int    `json:"semester1_min_credits" validate:"omitempty,min=0"`
	Semester1MaxCredits *int    `json:"semester1_max_credits" validate:"omitempty,min=0"`
	Semester1Credits    *int    `json:"semester1_credits" validate:"omitempty,min=0"`
	Semester2MinCredits *int    `json:"semester2_min_credits" validate:"omitempty,min=0"`
	Semester2MaxCredits *int    `json:"semester2_max_credits" validate:"omitempty,min=0"`
	Semester2Credits    *int    `json:"semester2_credits" validate:"omitempty,min=0"`
}

// IsEmpty reports whether the patch carries no changes.
func (p StudentPatch) IsEmpty() bool {
	return p.EducationalProgram == nil && p.Course == nil && p.Year == nil &&
		p.IsActive == nil && p.CanSelect == nil &&
		p.Semester1MinCredits == nil && p.Semester1MaxCredits == nil && p.Semester1Credits == nil &&
		p.Semester2MinCredits == nil && p.Semester2MaxCredits == nil && p.Semester2Credits == nil
}

// StudentCondition is a predicate over ledger flags used for bulk updates.
type StudentCondition struct {
	IsActive  *bool
	CanSelect *bool
}
