package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
)

type reconcileRelationStore interface {
	ListAll(ctx context.Context) ([]models.SelectionRelation, error)
	RemoveAll(ctx context.Context, studentID, disciplineID string) error
	AddIfAbsent(ctx context.Context, studentID, disciplineID string) error
	ListByStudent(ctx context.Context, studentID string, semester models.Semester) ([]models.Discipline, error)
}

type reconcileLedger interface {
	ListAll(ctx context.Context) ([]models.Student, error)
	UpdateCredits(ctx context.Context, id string, semester models.Semester, credits int) error
}

// ReconcileReport summarises one reconciliation run.
type ReconcileReport struct {
	DuplicatePairs   int `json:"duplicate_pairs"`
	StudentsRepaired int `json:"students_repaired"`
	StudentsScanned  int `json:"students_scanned"`
}

// ReconcileService restores the two selection invariants that the
// unsynchronized write path can violate: at most one relation row per
// (student, discipline) pair, and cached credit totals equal to the sum
// of the selected disciplines' credits.
type ReconcileService struct {
	relations reconcileRelationStore
	students  reconcileLedger
	logger    *zap.Logger
}

// NewReconcileService constructs ReconcileService.
func NewReconcileService(relations reconcileRelationStore, students reconcileLedger, logger *zap.Logger) *ReconcileService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconcileService{relations: relations, students: students, logger: logger}
}

// Run executes one full reconciliation pass: first collapse duplicate
// relation rows, then recompute and persist every student's credit total
// for both semesters. Recomputation runs for all students, not only
// those with visible drift, so a run always converges the whole ledger.
func (s *ReconcileService) Run(ctx context.Context) (*ReconcileReport, error) {
	report := &ReconcileReport{}

	relations, err := s.relations.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list selection relations")
	}
	counts := make(map[models.SelectionRelation]int, len(relations))
	for _, rel := range relations {
		counts[rel]++
	}
	for rel, n := range counts {
		if n <= 1 {
			continue
		}
		if err := s.relations.RemoveAll(ctx, rel.StudentID, rel.DisciplineID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to collapse duplicate relation")
		}
		if err := s.relations.AddIfAbsent(ctx, rel.StudentID, rel.DisciplineID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to restore relation row")
		}
		report.DuplicatePairs++
	}

	students, err := s.students.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	report.StudentsScanned = len(students)
	for _, student := range students {
		repaired := false
		for _, semester := range []models.Semester{models.Semester1, models.Semester2} {
			selected, err := s.relations.ListByStudent(ctx, student.ID, semester)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list selected disciplines")
			}
			total := 0
			for _, discipline := range selected {
				total += discipline.Credits
			}
			if total == student.Credits(semester) {
				continue
			}
			if err := s.students.UpdateCredits(ctx, student.ID, semester, total); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist credit total")
			}
			repaired = true
		}
		if repaired {
			report.StudentsRepaired++
		}
	}

	s.logger.Info("reconciliation finished",
		zap.Int("duplicate_pairs", report.DuplicatePairs),
		zap.Int("students_scanned", report.StudentsScanned),
		zap.Int("students_repaired", report.StudentsRepaired))
	return report, nil
}
