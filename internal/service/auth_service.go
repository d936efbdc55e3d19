package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/nereid-mechmat/nereid-backend/internal/models"
	"github.com/nereid-mechmat/nereid-backend/pkg/config"
	appErrors "github.com/nereid-mechmat/nereid-backend/pkg/errors"
	"github.com/nereid-mechmat/nereid-backend/pkg/mailer"
)

type authUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	SetOTP(ctx context.Context, id, otp string, expiresAt time.Time) error
	ClearOTP(ctx context.Context, id string) error
	SeedRoles(ctx context.Context, roles []models.Role) error
}

const otpAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// AuthService provides authentication use cases: password login, the
// one-time-password recovery flow, and token issuance and validation.
type AuthService struct {
	repo      authUserRepository
	mail      mailer.Mailer
	validator *validator.Validate
	logger    *zap.Logger
	jwt       config.JWTConfig
	auth      config.AuthConfig
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(repo authUserRepository, mail mailer.Mailer, validate *validator.Validate, logger *zap.Logger, jwtCfg config.JWTConfig, authCfg config.AuthConfig) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &AuthService{repo: repo, mail: mail, validator: validate, logger: logger, jwt: jwtCfg, auth: authCfg}
}

// SeedRoles ensures the three role rows exist. Idempotent, run at startup.
func (s *AuthService) SeedRoles(ctx context.Context) error {
	roles := []models.Role{
		{ID: 0, Name: string(models.RoleAdmin)},
		{ID: 1, Name: string(models.RoleTeacher)},
		{ID: 2, Name: string(models.RoleStudent)},
	}
	if err := s.repo.SeedRoles(ctx, roles); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed roles")
	}
	return nil
}

// Login authenticates a user by email and password.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}
	return s.issueToken(user)
}

// SendOTP generates a short-lived one-time password and mails it to the
// user. The response never discloses whether the email exists; unknown
// addresses still get a success with the standard TTL.
func (s *AuthService) SendOTP(ctx context.Context, req models.SendOTPRequest) (*models.SendOTPResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	resp := &models.SendOTPResponse{TTLSeconds: int64(s.auth.OTPTTL.Seconds())}

	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return resp, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}

	otp, err := s.generateOTP()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate otp")
	}
	expiresAt := time.Now().UTC().Add(s.auth.OTPTTL)
	if err := s.repo.SetOTP(ctx, user.ID, otp, expiresAt); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store otp")
	}
	body := fmt.Sprintf("Your one-time password is %s. It expires in %d minutes.", otp, int(s.auth.OTPTTL.Minutes()))
	if err := s.mail.Send(user.Email, "Your one-time password", body); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to send otp email")
	}
	s.logger.Info("otp issued", zap.String("user_id", user.ID))
	return resp, nil
}

// VerifyOTP exchanges a delivered code for an access token. The stored
// code is single-use: a successful exchange clears it.
func (s *AuthService) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	user, err := s.repo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidOTP, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if user.OTP == nil || user.OTPExpiresAt == nil {
		return nil, appErrors.Clone(appErrors.ErrOTPNotIssued, "")
	}
	if time.Now().UTC().After(*user.OTPExpiresAt) {
		return nil, appErrors.Clone(appErrors.ErrOTPExpired, "")
	}
	if *user.OTP != req.OTP {
		return nil, appErrors.Clone(appErrors.ErrInvalidOTP, "")
	}
	if err := s.repo.ClearOTP(ctx, user.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear otp")
	}
	return s.issueToken(user)
}

// ChangePassword sets a new password for the authenticated user.
func (s *AuthService) ChangePassword(ctx context.Context, userID string, req models.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), s.auth.BcryptCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.repo.UpdatePassword(ctx, userID, string(hash), time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}
	s.logger.Info("password changed", zap.String("user_id", userID))
	return nil
}

// ValidateToken parses and verifies an access token.
func (s *AuthService) ValidateToken(token string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.jwt.Secret), nil
	})
	if err != nil || !parsed.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

func (s *AuthService) issueToken(user *models.User) (*models.LoginResponse, error) {
	now := time.Now().UTC()
	claims := models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.jwt.Issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.jwt.Expiration)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwt.Secret))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign access token")
	}
	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.jwt.Expiration.Seconds()),
		IssuedAt:    now,
		User: models.UserInfo{
			ID:         user.ID,
			Email:      user.Email,
			FirstName:  user.FirstName,
			LastName:   user.LastName,
			Patronymic: user.Patronymic,
			Role:       user.Role,
		},
	}, nil
}

func (s *AuthService) generateOTP() (string, error) {
	length := s.auth.OTPLength
	if length <= 0 {
		length = 6
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(otpAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = otpAlphabet[n.Int64()]
	}
	return string(out), nil
}
