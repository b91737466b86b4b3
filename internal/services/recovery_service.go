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

const (
	DefaultResetTokenTTL  = time.Hour
	defaultDeliveryBudget = 15 * time.Second
)

// RecoveryConfig configures the password reset flow.
type RecoveryConfig struct {
	TokenTTL time.Duration
}

// RecoveryService implements forgot-password and reset-password.
//
// Each account holds at most one reset token (stored as a SHA-256 digest).
// Requesting a new token overwrites the old one, and completing a reset
// clears the slot in the same conditional update that sets the new hash.
type RecoveryService struct {
	repo        UserRepository
	email       EmailService
	timing      *auth.TimingDelay
	config      RecoveryConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger

	now            func() time.Time
	runAsync       func(func())
	deliveryBudget time.Duration
}

func NewRecoveryService(
	repo UserRepository,
	email EmailService,
	timing *auth.TimingDelay,
	config RecoveryConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *RecoveryService {
	if config.TokenTTL <= 0 {
		config.TokenTTL = DefaultResetTokenTTL
	}
	return &RecoveryService{
		repo:           repo,
		email:          email,
		timing:         timing,
		config:         config,
		logger:         logger,
		auditLogger:    auditLogger,
		now:            time.Now,
		runAsync:       func(f func()) { go f() },
		deliveryBudget: defaultDeliveryBudget,
	}
}

// RequestReset issues a reset token for the account with this email and
// schedules its delivery. The result is the same whether or not the account
// exists; only an empty email is rejected.
func (s *RecoveryService) RequestReset(ctx context.Context, email string) error {
	start := time.Now()
	defer s.timing.WaitFrom(start, false)

	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.ErrBadRequest
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			s.logger.Error("failed to look up user for password reset", slog.Any("error", err))
		} else {
			s.logger.Info("password reset requested for unknown email",
				slog.String("email", pkglogger.SanitizedEmail(email)))
		}
		return nil
	}

	plain, digest, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return nil
	}

	expiresAt := s.now().Add(s.config.TokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, digest, expiresAt); err != nil {
		s.logger.Error("failed to store reset token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil
	}

	s.auditLogger.LogAccountAction(ctx, "password_reset_requested", user.ID, "", nil)

	deliveryCtx := context.WithoutCancel(ctx)
	to := user.Email
	userID := user.ID
	s.runAsync(func() {
		sendCtx, cancel := context.WithTimeout(deliveryCtx, s.deliveryBudget)
		defer cancel()

		if err := s.email.SendPasswordResetEmail(sendCtx, to, plain, expiresAt); err != nil {
			s.logger.Error("failed to deliver password reset email",
				slog.String("user_id", userID),
				slog.String("email", pkglogger.SanitizedEmail(to)),
				slog.Any("error", err))
		}
	})

	return nil
}

// CompleteReset sets a new password using a mailed reset token.
//
// A policy violation leaves the token usable so the user can retry.
func (s *RecoveryService) CompleteReset(ctx context.Context, token, newPassword string) error {
	if token == "" {
		return models.ErrInvalidResetToken
	}
	digest := pkgauth.HashToken(token)

	user, err := s.repo.GetByResetTokenHash(ctx, digest)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidResetToken
		}
		s.logger.Error("failed to look up reset token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := s.now()
	if user.ResetExpiredAt(now) {
		s.auditLogger.LogPasswordChange(ctx, user.ID, "reset", "", false)
		return models.ErrResetTokenExpired
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrWeakPassword, err.Error())
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.ConsumeResetToken(ctx, user.ID, digest, hash, now); err != nil {
		if errors.Is(err, models.ErrInvalidResetToken) {
			return models.ErrInvalidResetToken
		}
		s.logger.Error("failed to complete password reset", slog.String("user_id", user.ID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password reset completed", slog.String("user_id", user.ID))
	s.auditLogger.LogPasswordChange(ctx, user.ID, "reset", "", true)
	return nil
}
