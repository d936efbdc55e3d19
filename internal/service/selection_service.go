package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	"github.com/nereid-mechmat/nereid-backend/pkg/config"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
)

type selectionLedger interface {
	FindByUserID(ctx context.Context, userID string) (*models.StudentDetail, error)
	UpdateCredits(ctx context.Context, id string, semester models.Semester, credits int) error
}

type selectionRelationStore interface {
	AddIfAbsent(ctx context.Context, studentID, disciplineID string) error
	RemoveAll(ctx context.Context, studentID, disciplineID string) error
	ListByStudent(ctx context.Context, studentID string, semester models.Semester) ([]models.Discipline, error)
	ListStudentsByDiscipline(ctx context.Context, disciplineID string) ([]models.StudentDetail, error)
}

type selectionCatalog interface {
	FindByIDs(ctx context.Context, ids []string) (map[string]models.Discipline, error)
	ListActiveBySemester(ctx context.Context, semester models.Semester) ([]models.Discipline, error)
}

type catalogCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SelectionBatchRequest carries one select or deselect mutation.
type SelectionBatchRequest struct {
	Semester      string   `json:"semester" validate:"required"`
	DisciplineIDs []string `json:"discipline_ids" validate:"required,min=1,dive,required"`
}

// SelectionService is the credit-accounting engine behind discipline
// selection. Mutations are gated, all-or-nothing per batch, and update
// the student's cached credit total without a surrounding transaction;
// the reconciliation pass repairs any drift that slips through.
type SelectionService struct {
	students    selectionLedger
	relations   selectionRelationStore
	disciplines selectionCatalog
	cache       catalogCache
	cfg         config.SelectionConfig
	cacheTTL    time.Duration
	validator   *validator.Validate
	logger      *zap.Logger
}

// NewSelectionService constructs SelectionService.
func NewSelectionService(students selectionLedger, relations selectionRelationStore, disciplines selectionCatalog, cache catalogCache, cfg config.SelectionConfig, cacheTTL time.Duration, validate *validator.Validate, logger *zap.Logger) *SelectionService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionService{
		students:    students,
		relations:   relations,
		disciplines: disciplines,
		cache:       cache,
		cfg:         cfg,
		cacheTTL:    cacheTTL,
		validator:   validate,
		logger:      logger,
	}
}

// Select enrolls the student into every discipline of the batch. Gates run
// in a fixed order and the first failure aborts the whole batch with zero
// writes. Reselecting an already selected discipline leaves the relation
// table untouched but still counts toward the credit sum; the drift is
// healed on the next ListSelected or reconciliation run.
func (s *SelectionService) Select(ctx context.Context, userID string, req SelectionBatchRequest) (*models.SelectionSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}
	semester, student, err := s.resolveStudent(ctx, userID, req.Semester)
	if err != nil {
		return nil, err
	}
	if !student.CanSelect {
		return nil, appErrors.Clone(appErrors.ErrSelectionClosed, "")
	}

	found, err := s.disciplines.FindByIDs(ctx, req.DisciplineIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve disciplines")
	}
	batch := make([]models.Discipline, 0, len(req.DisciplineIDs))
	seen := make(map[string]bool, len(req.DisciplineIDs))
	for _, id := range req.DisciplineIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		discipline, ok := found[id]
		if !ok {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("discipline %s does not exist", id))
		}
		batch = append(batch, discipline)
	}
	creditsToAdd := 0
	for _, discipline := range batch {
		if discipline.Semester != semester {
			return nil, appErrors.Clone(appErrors.ErrWrongSemester, fmt.Sprintf("discipline %s belongs to another semester", discipline.ID))
		}
		creditsToAdd += discipline.Credits
	}

	current := student.Credits(semester)
	if s.cfg.EnforceMaxCredits && current+creditsToAdd > student.MaxCredits(semester) {
		return nil, appErrors.Clone(appErrors.ErrCreditsExceeded, "")
	}

	for _, discipline := range batch {
		if err := s.relations.AddIfAbsent(ctx, student.ID, discipline.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record selection")
		}
	}
	total := current + creditsToAdd
	if err := s.students.UpdateCredits(ctx, student.ID, semester, total); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update credit total")
	}
	s.logger.Info("disciplines selected",
		zap.String("student_id", student.ID),
		zap.String("semester", string(semester)),
		zap.Int("disciplines", len(batch)),
		zap.Int("current_credits", total))
	return &models.SelectionSummary{Semester: semester, CurrentCredits: total}, nil
}

// Deselect removes the batch from the student's selection. Unknown
// discipline ids are dropped without error; only resolved disciplines
// count toward the credit subtraction. A total that would go negative is
// clamped to zero and logged, since it signals a drifted cache.
func (s *SelectionService) Deselect(ctx context.Context, userID string, req SelectionBatchRequest) (*models.SelectionSummary, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid selection payload")
	}
	semester, student, err := s.resolveStudent(ctx, userID, req.Semester)
	if err != nil {
		return nil, err
	}
	if !student.CanSelect {
		return nil, appErrors.Clone(appErrors.ErrSelectionClosed, "")
	}

	found, err := s.disciplines.FindByIDs(ctx, req.DisciplineIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve disciplines")
	}
	creditsToRemove := 0
	for _, discipline := range found {
		if err := s.relations.RemoveAll(ctx, student.ID, discipline.ID); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove selection")
		}
		creditsToRemove += discipline.Credits
	}

	total := student.Credits(semester) - creditsToRemove
	if total < 0 {
		s.logger.Warn("credit total went negative, clamping to zero",
			zap.String("student_id", student.ID),
			zap.String("semester", string(semester)),
			zap.Int("computed", total))
		total = 0
	}
	if err := s.students.UpdateCredits(ctx, student.ID, semester, total); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update credit total")
	}
	return &models.SelectionSummary{Semester: semester, CurrentCredits: total}, nil
}

// ListAvailable returns the active disciplines of the semester together
// with the caller's credit bounds. The discipline list is served from
// cache when one is configured.
func (s *SelectionService) ListAvailable(ctx context.Context, userID, semesterRaw string) (*models.SelectionListing, error) {
	semester, student, err := s.resolveStudent(ctx, userID, semesterRaw)
	if err != nil {
		return nil, err
	}
	disciplines, err := s.activeDisciplines(ctx, semester)
	if err != nil {
		return nil, err
	}
	return &models.SelectionListing{
		Disciplines:    disciplines,
		MinimumCredits: student.MinCredits(semester),
		MaximumCredits: student.MaxCredits(semester),
		CurrentCredits: student.Credits(semester),
	}, nil
}

// ListSelected returns the student's selected disciplines for the
// semester. The credit total in the response is recomputed from the
// relation rows and written back, so a drifted cache heals on read.
func (s *SelectionService) ListSelected(ctx context.Context, userID, semesterRaw string) (*models.SelectionListing, error) {
	semester, student, err := s.resolveStudent(ctx, userID, semesterRaw)
	if err != nil {
		return nil, err
	}
	selected, err := s.relations.ListByStudent(ctx, student.ID, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list selected disciplines")
	}
	total := 0
	for _, discipline := range selected {
		total += discipline.Credits
	}
	if total != student.Credits(semester) {
		s.logger.Warn("cached credit total drifted, repairing",
			zap.String("student_id", student.ID),
			zap.String("semester", string(semester)),
			zap.Int("cached", student.Credits(semester)),
			zap.Int("actual", total))
	}
	if err := s.students.UpdateCredits(ctx, student.ID, semester, total); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist credit total")
	}
	return &models.SelectionListing{
		Disciplines:    selected,
		MinimumCredits: student.MinCredits(semester),
		MaximumCredits: student.MaxCredits(semester),
		CurrentCredits: total,
	}, nil
}

// RemoveDisciplineEnrollments force-deselects every student enrolled in
// the discipline, bypassing the can-select gate. Used when a discipline
// is deactivated or deleted. Each student's credit total is recomputed
// and persisted before the relation rows are dropped.
func (s *SelectionService) RemoveDisciplineEnrollments(ctx context.Context, discipline models.Discipline) error {
	enrolled, err := s.relations.ListStudentsByDiscipline(ctx, discipline.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled students")
	}
	for _, student := range enrolled {
		total := student.Credits(discipline.Semester) - discipline.Credits
		if total < 0 {
			s.logger.Warn("credit total went negative during forced deselect, clamping to zero",
				zap.String("student_id", student.ID),
				zap.String("discipline_id", discipline.ID))
			total = 0
		}
		if err := s.students.UpdateCredits(ctx, student.ID, discipline.Semester, total); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update credit total")
		}
		if err := s.relations.RemoveAll(ctx, student.ID, discipline.ID); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to remove enrollment")
		}
	}
	if len(enrolled) > 0 {
		s.logger.Info("discipline enrollments removed",
			zap.String("discipline_id", discipline.ID),
			zap.Int("students", len(enrolled)))
	}
	return nil
}

// resolveStudent runs the shared gate sequence: semester must parse, the
// caller must own a student record, and that record must be active.
func (s *SelectionService) resolveStudent(ctx context.Context, userID, semesterRaw string) (models.Semester, *models.StudentDetail, error) {
	semester, ok := models.ParseSemester(semesterRaw)
	if !ok {
		return "", nil, appErrors.Clone(appErrors.ErrInvalidSemester, "")
	}
	student, err := s.students.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return "", nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if !student.IsActive {
		return "", nil, appErrors.Clone(appErrors.ErrInactiveAccount, "student account is inactive")
	}
	return semester, student, nil
}

func (s *SelectionService) activeDisciplines(ctx context.Context, semester models.Semester) ([]models.Discipline, error) {
	key := "disciplines:semester:" + string(semester)
	if s.cache != nil {
		var cached []models.Discipline
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			return cached, nil
		}
	}
	disciplines, err := s.disciplines.ListActiveBySemester(ctx, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list disciplines")
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, key, disciplines, s.cacheTTL); err != nil {
			s.logger.Warn("failed to cache discipline listing", zap.Error(err))
		}
	}
	return disciplines, nil
}
