package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/adriaticbluegrowth/portal/internal/config"
	"github.com/adriaticbluegrowth/portal/internal/models"
	pkgauth "github.com/adriaticbluegrowth/portal/pkg/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeAdminStore struct {
	existing *models.User
	lookErr  error
	created  *models.User
}

func (s *fakeAdminStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.lookErr != nil {
		return nil, s.lookErr
	}
	if s.existing != nil {
		return s.existing, nil
	}
	return nil, models.ErrNotFound
}

func (s *fakeAdminStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	s.created = user
	return user, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEnsureAdminUser(t *testing.T) {
	pkgauth.HashCost = bcrypt.MinCost
	cfg := config.AdminBootstrapConfig{Username: "admin", Email: "admin@example.org", Password: "correct-horse"}

	t.Run("creates admin", func(t *testing.T) {
		store := &fakeAdminStore{}
		require.NoError(t, ensureAdminUser(context.Background(), store, cfg, quietLogger()))
		require.NotNil(t, store.created)
		assert.Equal(t, models.RoleAdmin, store.created.Role)
		assert.Equal(t, "admin", store.created.Username)
		assert.NoError(t, pkgauth.ComparePassword(store.created.PasswordHash, "correct-horse"))
	})

	t.Run("skips when unset", func(t *testing.T) {
		store := &fakeAdminStore{}
		require.NoError(t, ensureAdminUser(context.Background(), store, config.AdminBootstrapConfig{}, quietLogger()))
		assert.Nil(t, store.created)
	})

	t.Run("skips when present", func(t *testing.T) {
		store := &fakeAdminStore{existing: &models.User{ID: "x"}}
		require.NoError(t, ensureAdminUser(context.Background(), store, cfg, quietLogger()))
		assert.Nil(t, store.created)
	})

	t.Run("rejects weak password", func(t *testing.T) {
		store := &fakeAdminStore{}
		weak := cfg
		weak.Password = "abc"
		assert.Error(t, ensureAdminUser(context.Background(), store, weak, quietLogger()))
		assert.Nil(t, store.created)
	})

	t.Run("lookup failure", func(t *testing.T) {
		store := &fakeAdminStore{lookErr: errors.New("connection refused")}
		assert.Error(t, ensureAdminUser(context.Background(), store, cfg, quietLogger()))
	})
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLogLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, parseLogLevel("bogus"))
}
