package models

// SelectionRelation is one (student, discipline) row of the
// student_discipline_relations table. The table carries no uniqueness
// constraint; concurrent selections can leave duplicate rows, which the
// reconciliation pass collapses back to one.
type SelectionRelation struct {
	StudentID    string `db:"student_id" json:"student_id"`
	DisciplineID string `db:"discipline_id" json:"discipline_id"`
}

// SelectionSummary reports the credit standing after a selection mutation.
type SelectionSummary struct {
	Semester       Semester `json:"semester"`
	CurrentCredits int      `json:"current_credits"`
}

// SelectionListing is the student-facing view of a semester: the
// disciplines plus the caller's credit figures for that semester.
type SelectionListing struct {
	Disciplines    []Discipline `json:"disciplines"`
	MinimumCredits int          `json:"minimum_credits"`
	MaximumCredits int          `json:"maximum_credits"`
	CurrentCredits int          `json:"current_credits"`
}

// SelectionWindowState reports whether the institution-wide selection
// window is currently locked.
type SelectionWindowState struct {
	IsSelectionLocked bool `json:"is_selection_locked"`
}

// DisciplineRoster lists the students enrolled in one discipline,
// used for cascade teardown and roster export.
type DisciplineRoster struct {
	Discipline Discipline      `json:"discipline"`
	Students   []StudentDetail `json:"students"`
}
