package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adriaticbluegrowth/portal/internal/models"
	pkgauth "github.com/adriaticbluegrowth/portal/pkg/auth"
	pkglogger "github.com/adriaticbluegrowth/portal/pkg/logger"
	"github.com/google/uuid"
)

// UserRepository is the credential store used by the services.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	GetByResetTokenHash(ctx context.Context, digest string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Count(ctx context.Context) (int, error)
	UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	ConsumeResetToken(ctx context.Context, id, digest, passwordHash string, now time.Time) error
	Delete(ctx context.Context, id string) error
}

// UserService handles admin user management.
type UserService struct {
	repo        UserRepository
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

func NewUserService(repo UserRepository, logger *slog.Logger, auditLogger *pkglogger.AuditLogger) *UserService {
	return &UserService{
		repo:        repo,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserList is one page of users plus the total count.
type UserList struct {
	Users  []*models.User
	Total  int
	Limit  int
	Offset int
}

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

func (s *UserService) List(ctx context.Context, limit, offset int) (*UserList, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	total, err := s.repo.Count(ctx)
	if err != nil {
		s.logger.Error("failed to count users", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return &UserList{Users: users, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrBadRequest
	}

	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, s.mapRepoError("get user", id, err)
	}
	return user, nil
}

// SetRole changes a user's role. Live sessions keep their old role until
// they expire or log out.
func (s *UserService) SetRole(ctx context.Context, actorID, id string, role models.Role) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrBadRequest
	}
	if !role.Valid() {
		return nil, models.ErrBadRequest
	}
	if actorID == id && role != models.RoleAdmin {
		return nil, models.ErrSelfModification
	}

	user, err := s.repo.UpdateRole(ctx, id, role)
	if err != nil {
		return nil, s.mapRepoError("update role", id, err)
	}

	s.logger.Info("user role changed",
		slog.String("user_id", id),
		slog.String("role", role.String()),
		slog.String("actor_id", actorID))
	s.auditLogger.LogAccountAction(ctx, "role_changed", id, "", map[string]string{
		"actor_id": actorID,
		"role":     role.String(),
	})

	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actorID, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrBadRequest
	}
	if actorID == id {
		return models.ErrSelfModification
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return s.mapRepoError("delete user", id, err)
	}

	s.logger.Info("user deleted", slog.String("user_id", id), slog.String("actor_id", actorID))
	s.auditLogger.LogAccountAction(ctx, "user_deleted", id, "", map[string]string{"actor_id": actorID})
	return nil
}

// AdminSetPassword overwrites a user's password without the current one.
func (s *UserService) AdminSetPassword(ctx context.Context, actorID, id, password string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrBadRequest
	}
	if err := pkgauth.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %s", models.ErrWeakPassword, err.Error())
	}

	hash, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, id, hash); err != nil {
		s.auditLogger.LogPasswordChange(ctx, id, "admin", "", false)
		return s.mapRepoError("set password", id, err)
	}

	s.logger.Info("password set by admin", slog.String("user_id", id), slog.String("actor_id", actorID))
	s.auditLogger.LogPasswordChange(ctx, id, "admin", "", true)
	return nil
}

func (s *UserService) mapRepoError(op, id string, err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return models.ErrNotFound
	}
	s.logger.Error("user repository failure",
		slog.String("op", op),
		slog.String("user_id", id),
		slog.Any("error", err))
	return models.ErrInternalServer
}
