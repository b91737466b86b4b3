package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/adriaticbluegrowth/portal/internal/auth"
	"github.com/adriaticbluegrowth/portal/internal/models"
	pkgauth "github.com/adriaticbluegrowth/portal/pkg/auth"
	pkglogger "github.com/adriaticbluegrowth/portal/pkg/logger"
)

// TokenRevocationStore is the session denylist.
type TokenRevocationStore interface {
	RevokeToken(ctx context.Context, jti, userID string, expiresAt time.Time, reason string) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// AuthService handles login, logout, registration and self-service password changes.
type AuthService struct {
	repo        UserRepository
	revocations TokenRevocationStore
	codec       *auth.TokenCodec
	timing      *auth.TimingDelay
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewAuthService(
	repo UserRepository,
	codec *auth.TokenCodec,
	revocations TokenRevocationStore,
	timing *auth.TimingDelay,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		repo:        repo,
		revocations: revocations,
		codec:       codec,
		timing:      timing,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// LoginResult carries the issued session.
type LoginResult struct {
	Token  string
	Claims *models.SessionClaims
	User   *models.User
}

// Login authenticates by username or email. Unknown accounts and wrong
// passwords both return models.ErrInvalidCredentials after the same work.
func (s *AuthService) Login(ctx context.Context, login, password, ipAddress, userAgent string) (result *LoginResult, err error) {
	start := time.Now()
	defer func() {
		s.timing.WaitFrom(start, err == nil)
	}()

	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		pkgauth.CompareDummy(password)
		s.logLoginFailure(ctx, "", ipAddress, userAgent, "missing_credentials")
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.repo.GetByLogin(ctx, login)
	if err != nil {
		pkgauth.CompareDummy(password)
		if errors.Is(err, models.ErrNotFound) {
			s.logLoginFailure(ctx, "", ipAddress, userAgent, "invalid_credentials")
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user for login", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.logLoginFailure(ctx, user.ID, ipAddress, userAgent, "invalid_credentials")
		return nil, models.ErrInvalidCredentials
	}

	token, claims, err := s.codec.Issue(user.ID, user.Username, user.Role)
	if err != nil {
		s.logger.Error("failed to issue session token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "login_success",
		UserID:    user.ID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   true,
	})

	return &LoginResult{Token: token, Claims: claims, User: user}, nil
}

func (s *AuthService) logLoginFailure(ctx context.Context, userID, ipAddress, userAgent, reason string) {
	s.logger.Info("login failed", slog.String("reason", reason))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     "login_failed",
		UserID:        userID,
		IPAddress:     ipAddress,
		UserAgent:     userAgent,
		FailureReason: reason,
		Success:       false,
	})
}

// Logout denylists the token's session id until the token would have
// expired. Invalid tokens and store failures are logged, never returned.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	claims, err := s.codec.Verify(token)
	if err != nil {
		return nil
	}

	if s.revocations != nil {
		if err := s.revocations.RevokeToken(ctx, claims.ID, claims.UserID, claims.ExpiresAt.Time, "logout"); err != nil {
			s.logger.Error("failed to revoke session on logout",
				slog.String("user_id", claims.UserID),
				slog.Any("error", err))
		}
	}

	s.logger.Info("user logged out", slog.String("user_id", claims.UserID))
	s.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType: "logout",
		UserID:    claims.UserID,
		Success:   true,
	})
	return nil
}

// Register creates an account with role user.
func (s *AuthService) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	email = strings.ToLower(strings.TrimSpace(email))
	if username == "" || email == "" || strings.Contains(username, "@") {
		return nil, models.ErrBadRequest
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrWeakPassword, err.Error())
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	user, err := s.repo.Create(ctx, &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         models.RoleUser,
	})
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("user registered", slog.String("user_id", user.ID))
	s.auditLogger.LogAccountAction(ctx, "user_registered", user.ID, "", nil)
	return user, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to load user for password change", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogPasswordChange(ctx, userID, "self", "", false)
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrWeakPassword, err.Error())
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, userID, hash); err != nil {
		s.logger.Error("failed to update password", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("user_id", userID))
	s.auditLogger.LogPasswordChange(ctx, userID, "self", "", true)
	return nil
}
