package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
)

type mockUserRepo struct {
	users   map[string]*models.User
	patched []models.UserPatch
}

func (m *mockUserRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id string, patch models.UserPatch) error {
	m.patched = append(m.patched, patch)
	if u, ok := m.users[id]; ok {
		if patch.Email != nil {
			u.Email = *patch.Email
		}
		if patch.FirstName != nil {
			u.FirstName = *patch.FirstName
		}
	}
	return nil
}

func TestUserGet(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "ada@example.com", FirstName: "Ada", Role: models.RoleStudent},
	}}
	svc := NewUserService(repo, nil, nil)

	info, err := svc.Get(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", info.Email)

	_, err = svc.Get(context.Background(), "ghost")
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestUpdateProfileRejectsTakenEmail(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "ada@example.com"},
		"u2": {ID: "u2", Email: "grace@example.com"},
	}}
	svc := NewUserService(repo, nil, nil)

	taken := "grace@example.com"
	_, err := svc.UpdateProfile(context.Background(), "u1", models.UserPatch{Email: &taken})
	assert.True(t, appErrors.Is(err, appErrors.ErrEmailTaken))
	assert.Empty(t, repo.patched)

	// Keeping your own address is not a conflict.
	own := "ada@example.com"
	_, err = svc.UpdateProfile(context.Background(), "u1", models.UserPatch{Email: &own})
	require.NoError(t, err)
}

func TestUpdateProfileAppliesPatch(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "ada@example.com", FirstName: "Ada"},
	}}
	svc := NewUserService(repo, nil, nil)

	name := "Augusta"
	info, err := svc.UpdateProfile(context.Background(), "u1", models.UserPatch{FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", info.FirstName)
	require.Len(t, repo.patched, 1)
}
