package models

import "time"

// Discipline is a course record in the catalog.
type Discipline struct {
	ID          string    `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Credits     int       `db:"credits" json:"credits"`
	Semester    Semester  `db:"semester" json:"semester"`
	Description *string   `db:"description" json:"description,omitempty"`
	IsActive    bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DisciplineField is a free-text sub-resource attached to a discipline.
type DisciplineField struct {
	ID           string `db:"id" json:"id"`
	DisciplineID string `db:"discipline_id" json:"discipline_id"`
	Name         string `db:"name" json:"name"`
	Content      string `db:"content" json:"content"`
}

// DisciplineFilter encapsulates catalog listing criteria.
type DisciplineFilter struct {
	Semester  *Semester
	Active    *bool
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}

// DisciplinePatch holds optional catalog fields for partial updates.
type DisciplinePatch struct {
	Name        *string   `json:"name"`
	Credits     *int      `json:"credits" validate:"omitempty,min=1"`
	Semester    *Semester `json:"semester"`
	Description *string   `json:"description"`
	IsActive    *bool     `json:"is_active"`
}

// IsEmpty reports whether the patch carries no changes.
func (p DisciplinePatch) IsEmpty() bool {
	return p.Name == nil && p.Credits == nil && p.Semester == nil &&
		p.Description == nil && p.IsActive == nil
}

// DisciplineDetail bundles a discipline with its sub-resources.
type DisciplineDetail struct {
	Discipline Discipline        `json:"discipline"`
	Fields     []DisciplineField `json:"fields"`
	Teachers   []TeacherDetail   `json:"teachers"`
}
