package models

// Teacher links a user identity to the teaching roster.
type Teacher struct {
	ID       string `db:"id" json:"id"`
	UserID   string `db:"user_id" json:"user_id"`
	IsActive bool   `db:"is_active" json:"is_active"`
}

// TeacherDetail joins the roster row with its user identity.
type TeacherDetail struct {
	Teacher
	Email      string `db:"email" json:"email"`
	FirstName  string `db:"first_name" json:"first_name"`
	LastName   string `db:"last_name" json:"last_name"`
	Patronymic string `db:"patronymic" json:"patronymic"`
}

// TeacherField is a free-text sub-resource attached to a teacher profile.
type TeacherField struct {
	ID        string `db:"id" json:"id"`
	TeacherID string `db:"teacher_id" json:"teacher_id"`
	Name      string `db:"name" json:"name"`
	Content   string `db:"content" json:"content"`
}

// TeacherProfile bundles a teacher with their profile fields.
type TeacherProfile struct {
	Teacher TeacherDetail  `json:"teacher"`
	Fields  []TeacherField `json:"fields"`
}

// TeacherFilter encapsulates roster listing criteria.
type TeacherFilter struct {
	Search    string
	Active    *bool
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
