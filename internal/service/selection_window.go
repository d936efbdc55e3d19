package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
)

type windowStudentStore interface {
	SetCanSelectWhere(ctx context.Context, cond models.StudentCondition, canSelect bool) (int64, error)
}

// SelectionWindow is the institution-wide lock for discipline selection.
// The flag lives in process memory and is not persisted: after a restart
// the first State call re-initializes it to locked, the safe default.
// Mutation is serialized under a single mutex; concurrent admin calls are
// last-writer-wins.
type SelectionWindow struct {
	mu          sync.Mutex
	initialized bool
	locked      bool

	students windowStudentStore
	logger   *zap.Logger
}

// NewSelectionWindow constructs the controller.
func NewSelectionWindow(students windowStudentStore, logger *zap.Logger) *SelectionWindow {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SelectionWindow{students: students, logger: logger}
}

// State reports whether selection is locked, locking first when the flag
// has never been set in this process.
func (w *SelectionWindow) State(ctx context.Context) (*models.SelectionWindowState, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.initialized {
		if err := w.lockLocked(ctx); err != nil {
			return nil, err
		}
	}
	return &models.SelectionWindowState{IsSelectionLocked: w.locked}, nil
}

// Lock closes the selection window: every active student that currently
// may select loses the permission. Inactive students are untouched.
func (w *SelectionWindow) Lock(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lockLocked(ctx)
}

// Unlock opens the selection window: every active student that currently
// may not select regains the permission. Inactive students are untouched.
func (w *SelectionWindow) Unlock(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	active := true
	cannotSelect := false
	affected, err := w.students.SetCanSelectWhere(ctx, models.StudentCondition{IsActive: &active, CanSelect: &cannotSelect}, true)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to unlock selection")
	}
	w.locked = false
	w.initialized = true
	w.logger.Info("selection window unlocked", zap.Int64("students_affected", affected))
	return nil
}

func (w *SelectionWindow) lockLocked(ctx context.Context) error {
	active := true
	canSelect := true
	affected, err := w.students.SetCanSelectWhere(ctx, models.StudentCondition{IsActive: &active, CanSelect: &canSelect}, false)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock selection")
	}
	w.locked = true
	w.initialized = true
	w.logger.Info("selection window locked", zap.Int64("students_affected", affected))
	return nil
}
