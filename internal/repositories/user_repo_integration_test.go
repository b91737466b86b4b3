//go:build integration

package repositories

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/adriaticbluegrowth/portal/internal/database"
	"github.com/adriaticbluegrowth/portal/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupTestDatabase(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("portal"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.New(pool, nil)
	require.NoError(t, db.Migrate(ctx))
	return db
}

func createUser(t *testing.T, repo *UserRepository, username, email string) *models.User {
	t.Helper()
	u, err := repo.Create(context.Background(), &models.User{
		Username:     username,
		Email:        email,
		PasswordHash: "$2a$04$placeholderplaceholderplaceholderplaceholderplacehold",
		Role:         models.RoleUser,
	})
	require.NoError(t, err)
	return u
}

func TestUserRepository_Integration(t *testing.T) {
	db := setupTestDatabase(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	t.Run("create lower-cases email and rejects duplicates", func(t *testing.T) {
		u := createUser(t, repo, "Marija", "Marija@Example.org")
		assert.Equal(t, "marija@example.org", u.Email)

		_, err := repo.Create(ctx, &models.User{Username: "marija", Email: "other@example.org", PasswordHash: "x"})
		assert.ErrorIs(t, err, models.ErrConflict)

		_, err = repo.Create(ctx, &models.User{Username: "other", Email: "MARIJA@example.org", PasswordHash: "x"})
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("login lookup matches username or email case-insensitively", func(t *testing.T) {
		byName, err := repo.GetByLogin(ctx, "MARIJA")
		require.NoError(t, err)
		byEmail, err := repo.GetByLogin(ctx, "marija@EXAMPLE.org")
		require.NoError(t, err)
		assert.Equal(t, byName.ID, byEmail.ID)

		_, err = repo.GetByLogin(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("reset slot overwrite and atomic consume", func(t *testing.T) {
		u := createUser(t, repo, "ivan", "ivan@example.org")
		now := time.Now()

		require.NoError(t, repo.SetResetToken(ctx, u.ID, "digest-1", now.Add(time.Hour)))
		require.NoError(t, repo.SetResetToken(ctx, u.ID, "digest-2", now.Add(time.Hour)))

		_, err := repo.GetByResetTokenHash(ctx, "digest-1")
		assert.ErrorIs(t, err, models.ErrNotFound)

		err = repo.ConsumeResetToken(ctx, u.ID, "digest-1", "newhash", now)
		assert.ErrorIs(t, err, models.ErrInvalidResetToken)

		var wg sync.WaitGroup
		results := make([]error, 5)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = repo.ConsumeResetToken(ctx, u.ID, "digest-2", "newhash", now)
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range results {
			if err == nil {
				wins++
			} else {
				assert.ErrorIs(t, err, models.ErrInvalidResetToken)
			}
		}
		assert.Equal(t, 1, wins)

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, "newhash", got.PasswordHash)
		assert.False(t, got.HasPendingReset())
	})

	t.Run("expired slot cannot be consumed and is swept after retention", func(t *testing.T) {
		recent := createUser(t, repo, "ana", "ana@example.org")
		ancient := createUser(t, repo, "bruno", "bruno@example.org")
		now := time.Now()
		require.NoError(t, repo.SetResetToken(ctx, recent.ID, "digest-recent", now.Add(-time.Minute)))
		require.NoError(t, repo.SetResetToken(ctx, ancient.ID, "digest-ancient", now.Add(-48*time.Hour)))

		err := repo.ConsumeResetToken(ctx, recent.ID, "digest-recent", "newhash", now)
		assert.ErrorIs(t, err, models.ErrInvalidResetToken)

		_, err = db.Pool.Exec(ctx, `UPDATE users SET updated_at = NOW() - INTERVAL '1 hour' WHERE id = $1`, ancient.ID)
		require.NoError(t, err)
		before, err := repo.GetByID(ctx, ancient.ID)
		require.NoError(t, err)

		n, err := repo.ClearExpiredResetTokens(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, int64(1))

		// still resolvable, so the caller can report it as expired
		kept, err := repo.GetByResetTokenHash(ctx, "digest-recent")
		require.NoError(t, err)
		assert.True(t, kept.ResetExpiredAt(now))

		cleared, err := repo.GetByID(ctx, ancient.ID)
		require.NoError(t, err)
		assert.Nil(t, cleared.ResetTokenHash)
		assert.Nil(t, cleared.ResetTokenExpiry)
		assert.True(t, cleared.UpdatedAt.After(before.UpdatedAt))
	})

	t.Run("update password clears pending reset", func(t *testing.T) {
		u := createUser(t, repo, "luka", "luka@example.org")
		require.NoError(t, repo.SetResetToken(ctx, u.ID, "digest-luka", time.Now().Add(time.Hour)))
		require.NoError(t, repo.UpdatePassword(ctx, u.ID, "rotated"))

		got, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.False(t, got.HasPendingReset())
	})

	t.Run("role update and delete", func(t *testing.T) {
		u := createUser(t, repo, "petra", "petra@example.org")
		updated, err := repo.UpdateRole(ctx, u.ID, models.RoleEditor)
		require.NoError(t, err)
		assert.Equal(t, models.RoleEditor, updated.Role)

		require.NoError(t, repo.Delete(ctx, u.ID))
		assert.ErrorIs(t, repo.Delete(ctx, u.ID), models.ErrNotFound)
		_, err = repo.GetByID(ctx, "not-a-uuid")
		assert.ErrorIs(t, err, models.ErrNotFound)
	})
}

func TestTokenRevocationRepository_Integration(t *testing.T) {
	db := setupTestDatabase(t)
	repo := NewTokenRevocationRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.RevokeToken(ctx, "jti-live", "user-1", time.Now().Add(time.Hour), "logout"))
	require.NoError(t, repo.RevokeToken(ctx, "jti-live", "user-1", time.Now().Add(time.Hour), "logout"))
	require.NoError(t, repo.RevokeToken(ctx, "jti-dead", "user-1", time.Now().Add(-time.Hour), "logout"))

	revoked, err := repo.IsTokenRevoked(ctx, "jti-live")
	require.NoError(t, err)
	assert.True(t, revoked)

	n, err := repo.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	revoked, err = repo.IsTokenRevoked(ctx, "jti-dead")
	require.NoError(t, err)
	assert.False(t, revoked)
}
