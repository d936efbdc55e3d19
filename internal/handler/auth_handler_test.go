package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nereid-mechmat/nereid-backend/internal/middleware"
	"github.com/nereid-mechmat/nereid-backend/internal/models"
	"github.com/nereid-mechmat/nereid-backend/internal/service"
	"github.com/nereid-mechmat/nereid-backend/pkg/config"
)

type userRepoStub struct {
	user *models.User
}

func (s *userRepoStub) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if s.user != nil && s.user.Email == email {
		return s.user, nil
	}
	return nil, sql.ErrNoRows
}

func (s *userRepoStub) UpdatePassword(_ context.Context, _, _ string, _ time.Time) error {
	return nil
}

func (s *userRepoStub) SetOTP(_ context.Context, _, _ string, _ time.Time) error { return nil }
func (s *userRepoStub) ClearOTP(_ context.Context, _ string) error               { return nil }
func (s *userRepoStub) SeedRoles(_ context.Context, _ []models.Role) error       { return nil }

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &userRepoStub{user: &models.User{
		ID:           "user-1",
		Email:        "ada@example.com",
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}}
	authSvc := service.NewAuthService(repo, nil, nil, nil,
		config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "test"},
		config.AuthConfig{BcryptCost: bcrypt.MinCost, OTPLength: 6, OTPTTL: 5 * time.Minute})

	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(authSvc).Login)
	r.GET("/student-only",
		middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleStudent),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/admin-only",
		middleware.JWT(authSvc),
		middleware.RequireRoles(models.RoleAdmin),
		func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func login(t *testing.T, r *gin.Engine, email, password string) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(models.LoginRequest{Email: email, Password: password})
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginIssuesUsableToken(t *testing.T) {
	r := newTestRouter(t)

	w := login(t, r, "ada@example.com", "secret123")
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.AccessToken)
	assert.Equal(t, "ada@example.com", envelope.Data.User.Email)

	req := httptest.NewRequest(http.MethodGet, "/student-only", nil)
	req.Header.Set("Authorization", "Bearer "+envelope.Data.AccessToken)
	protected := httptest.NewRecorder()
	r.ServeHTTP(protected, req)
	assert.Equal(t, http.StatusOK, protected.Code)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	r := newTestRouter(t)

	w := login(t, r, "ada@example.com", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/student-only", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/student-only", nil)
	req.Header.Set("Authorization", "Token abc")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRoleGateBlocksWrongRole(t *testing.T) {
	r := newTestRouter(t)

	w := login(t, r, "ada@example.com", "secret123")
	require.Equal(t, http.StatusOK, w.Code)
	var envelope struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))

	req := httptest.NewRequest(http.MethodGet, "/admin-only", nil)
	req.Header.Set("Authorization", "Bearer "+envelope.Data.AccessToken)
	blocked := httptest.NewRecorder()
	r.ServeHTTP(blocked, req)
	assert.Equal(t, http.StatusForbidden, blocked.Code)
}
