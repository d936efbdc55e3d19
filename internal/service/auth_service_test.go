package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	"github.com/nereid-mechmat/nereid-backend/pkg/config"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
)

type mockAuthRepo struct {
	users map[string]*models.User
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) SetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.OTP = &otp
		u.OTPExpiresAt = &expiresAt
	}
	return nil
}

func (m *mockAuthRepo) ClearOTP(ctx context.Context, id string) error {
	if u, ok := m.users[id]; ok {
		u.OTP = nil
		u.OTPExpiresAt = nil
	}
	return nil
}

func (m *mockAuthRepo) SeedRoles(ctx context.Context, roles []models.Role) error {
	return nil
}

type mockMailer struct {
	sent []string
	body []string
}

func (m *mockMailer) Send(to, subject, body string) error {
	m.sent = append(m.sent, to)
	m.body = append(m.body, body)
	return nil
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo, *mockMailer) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{users: map[string]*models.User{
		"u1": {ID: "u1", Email: "student@example.com", PasswordHash: string(hash), Role: models.RoleStudent},
	}}
	mail := &mockMailer{}
	svc := NewAuthService(repo, mail, nil, nil,
		config.JWTConfig{Secret: "test-secret", Expiration: time.Hour, Issuer: "nereid"},
		config.AuthConfig{BcryptCost: bcrypt.MinCost, OTPLength: 6, OTPTTL: 5 * time.Minute},
	)
	return svc, repo, mail
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, models.RoleStudent, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, models.LoginRequest{Email: "student@example.com", Password: "wrong"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "ghost@example.com", Password: "secret123"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestOTPRoundTrip(t *testing.T) {
	svc, repo, mail := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.SendOTP(ctx, models.SendOTPRequest{Email: "student@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(300), resp.TTLSeconds)
	require.Len(t, mail.sent, 1)
	require.NotNil(t, repo.users["u1"].OTP)

	login, err := svc.VerifyOTP(ctx, models.VerifyOTPRequest{Email: "student@example.com", OTP: *repo.users["u1"].OTP})
	require.NoError(t, err)
	assert.NotEmpty(t, login.AccessToken)
	assert.Nil(t, repo.users["u1"].OTP, "code is single-use")
}

func TestVerifyOTPFailures(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)
	ctx := context.Background()

	_, err := svc.VerifyOTP(ctx, models.VerifyOTPRequest{Email: "student@example.com", OTP: "abc123"})
	assert.True(t, appErrors.Is(err, appErrors.ErrOTPNotIssued))

	_, err = svc.SendOTP(ctx, models.SendOTPRequest{Email: "student@example.com"})
	require.NoError(t, err)

	_, err = svc.VerifyOTP(ctx, models.VerifyOTPRequest{Email: "student@example.com", OTP: "not-the-code"})
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidOTP))

	expired := time.Now().UTC().Add(-time.Minute)
	repo.users["u1"].OTPExpiresAt = &expired
	_, err = svc.VerifyOTP(ctx, models.VerifyOTPRequest{Email: "student@example.com", OTP: *repo.users["u1"].OTP})
	assert.True(t, appErrors.Is(err, appErrors.ErrOTPExpired))
}

func TestSendOTPDoesNotDiscloseUnknownEmails(t *testing.T) {
	svc, _, mail := newAuthFixture(t)

	resp, err := svc.SendOTP(context.Background(), models.SendOTPRequest{Email: "ghost@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(300), resp.TTLSeconds)
	assert.Empty(t, mail.sent)
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	require.NoError(t, svc.ChangePassword(ctx, "u1", models.ChangePasswordRequest{NewPassword: "newsecret"}))
	_, err := svc.Login(ctx, models.LoginRequest{Email: "student@example.com", Password: "newsecret"})
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, "u1", models.ChangePasswordRequest{NewPassword: "short"})
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}

func TestValidateTokenRejectsForeignSignature(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	other := NewAuthService(&mockAuthRepo{}, &mockMailer{}, nil, nil,
		config.JWTConfig{Secret: "other-secret", Expiration: time.Hour, Issuer: "nereid"},
		config.AuthConfig{},
	)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "student@example.com", Password: "secret123"})
	require.NoError(t, err)

	_, err = other.ValidateToken(resp.AccessToken)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}
