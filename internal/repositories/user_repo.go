package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/adriaticbluegrowth/portal/internal/database"
	"github.com/adriaticbluegrowth/portal/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{pool: db.Pool}
}

const userColumns = `id, username, email, password_hash, role, reset_token, reset_token_expiry,
	password_changed_at, created_at, updated_at`

// rowScanner interface for scanning user rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUserRow(scanner rowScanner) (*models.User, error) {
	var user models.User
	var role string

	err := scanner.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &role,
		&user.ResetTokenHash, &user.ResetTokenExpiry,
		&user.PasswordChangedAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}
	user.Role = models.Role(role)

	return &user, nil
}

func scanUserRows(rows pgx.Rows) ([]*models.User, error) {
	defer rows.Close()

	users := make([]*models.User, 0)

	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return users, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = LOWER($1)`
	return scanUserRow(r.pool.QueryRow(ctx, query, strings.TrimSpace(email)))
}

// GetByLogin resolves a login identifier that is either a username or an email address.
func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
		WHERE LOWER(username) = LOWER($1) OR email = LOWER($1)
		LIMIT 1`
	return scanUserRow(r.pool.QueryRow(ctx, query, strings.TrimSpace(login)))
}

func (r *UserRepository) GetByResetTokenHash(ctx context.Context, digest string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE reset_token = $1`
	return scanUserRow(r.pool.QueryRow(ctx, query, digest))
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query := `
		INSERT INTO users (id, username, email, password_hash, role, password_changed_at)
		VALUES ($1, $2, LOWER($3), $4, $5, NOW())
		RETURNING ` + userColumns

	return scanUserRow(r.pool.QueryRow(ctx, query,
		user.ID, strings.TrimSpace(user.Username), strings.TrimSpace(user.Email),
		user.PasswordHash, string(user.Role),
	))
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at ASC, id ASC LIMIT $1 OFFSET $2`

	rows, err := r.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return scanUserRows(rows)
}

func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, database.MapPostgresError(err)
	}
	return n, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role models.Role) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, models.ErrNotFound
	}
	query := `UPDATE users SET role = $2, updated_at = NOW() WHERE id = $1 RETURNING ` + userColumns
	return scanUserRow(r.pool.QueryRow(ctx, query, id, string(role)))
}

// UpdatePassword stores a new hash and clears any pending reset slot.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	query := `
		UPDATE users
		SET password_hash = $2, reset_token = NULL, reset_token_expiry = NULL,
		    password_changed_at = NOW(), updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, passwordHash)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// SetResetToken overwrites the reset slot, invalidating any earlier token.
func (r *UserRepository) SetResetToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	query := `
		UPDATE users SET reset_token = $2, reset_token_expiry = $3, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id, digest, expiresAt)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ConsumeResetToken sets the new hash only if the slot still holds digest and has
// not expired at now. Concurrent completions race on the row; exactly one wins.
func (r *UserRepository) ConsumeResetToken(ctx context.Context, id, digest, passwordHash string, now time.Time) error {
	query := `
		UPDATE users
		SET password_hash = $3, reset_token = NULL, reset_token_expiry = NULL,
		    password_changed_at = $4, updated_at = $4
		WHERE id = $1 AND reset_token = $2 AND reset_token_expiry > $4
	`
	tag, err := r.pool.Exec(ctx, query, id, digest, passwordHash, now)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrInvalidResetToken
	}
	return nil
}

// ClearExpiredResetTokens empties reset slots whose expiry is before the
// cutoff. Callers pass a cutoff well in the past so that a recently expired
// link still resolves and reports as expired rather than unknown.
func (r *UserRepository) ClearExpiredResetTokens(ctx context.Context, before time.Time) (int64, error) {
	query := `
		UPDATE users SET reset_token = NULL, reset_token_expiry = NULL, updated_at = NOW()
		WHERE reset_token_expiry IS NOT NULL AND reset_token_expiry < $1
	`
	tag, err := r.pool.Exec(ctx, query, before)
	if err != nil {
		return 0, database.MapPostgresError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return models.ErrNotFound
	}
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return database.MapPostgresError(err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
