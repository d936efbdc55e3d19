package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
)

type recordedFlip struct {
	cond      models.StudentCondition
	canSelect bool
}

type mockWindowStore struct {
	flips    []recordedFlip
	affected int64
}

func (m *mockWindowStore) SetCanSelectWhere(ctx context.Context, cond models.StudentCondition, canSelect bool) (int64, error) {
	m.flips = append(m.flips, recordedFlip{cond: cond, canSelect: canSelect})
	return m.affected, nil
}

func TestWindowDefaultsToLocked(t *testing.T) {
	store := &mockWindowStore{affected: 10}
	window := NewSelectionWindow(store, nil)

	state, err := window.State(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsSelectionLocked)
	// Lazy initialization performed one locking flip.
	require.Len(t, store.flips, 1)
	assert.False(t, store.flips[0].canSelect)

	// A second read does not flip again.
	state, err = window.State(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsSelectionLocked)
	assert.Len(t, store.flips, 1)
}

func TestWindowLockTargetsActiveSelectableStudents(t *testing.T) {
	store := &mockWindowStore{}
	window := NewSelectionWindow(store, nil)

	require.NoError(t, window.Lock(context.Background()))
	require.Len(t, store.flips, 1)
	flip := store.flips[0]
	assert.False(t, flip.canSelect)
	require.NotNil(t, flip.cond.IsActive)
	assert.True(t, *flip.cond.IsActive)
	require.NotNil(t, flip.cond.CanSelect)
	assert.True(t, *flip.cond.CanSelect)

	state, err := window.State(context.Background())
	require.NoError(t, err)
	assert.True(t, state.IsSelectionLocked)
}

func TestWindowUnlockTargetsActiveBlockedStudents(t *testing.T) {
	store := &mockWindowStore{}
	window := NewSelectionWindow(store, nil)

	require.NoError(t, window.Unlock(context.Background()))
	require.Len(t, store.flips, 1)
	flip := store.flips[0]
	assert.True(t, flip.canSelect)
	require.NotNil(t, flip.cond.IsActive)
	assert.True(t, *flip.cond.IsActive)
	require.NotNil(t, flip.cond.CanSelect)
	assert.False(t, *flip.cond.CanSelect)

	state, err := window.State(context.Background())
	require.NoError(t, err)
	assert.False(t, state.IsSelectionLocked)
}

func TestWindowLockUnlockRoundTrip(t *testing.T) {
	store := &mockWindowStore{}
	window := NewSelectionWindow(store, nil)
	ctx := context.Background()

	require.NoError(t, window.Unlock(ctx))
	require.NoError(t, window.Lock(ctx))
	require.NoError(t, window.Unlock(ctx))

	state, err := window.State(ctx)
	require.NoError(t, err)
	assert.False(t, state.IsSelectionLocked)
	assert.Len(t, store.flips, 3)
}
