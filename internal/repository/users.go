package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/madhav-v/Pseudonymous-College-Platform/internal/model"
)

const userColumns = `id, name, email, password_hash, role, refresh_token_hash, refresh_token_expires_at, org_id, created_at`

func scanUser(row pgx.Row) (model.User, error) {
	var user model.User
	err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.RefreshTokenHash,
		&user.RefreshTokenExpiresAt,
		&user.OrgID,
		&user.CreatedAt,
	)
	return user, mapErr(err)
}

func (s *Store) CreateUser(ctx context.Context, user model.User) (model.User, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, role, org_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns, user.Email, user.PasswordHash, user.Role, user.OrgID)
	return scanUser(row)
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (model.User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

func (s *Store) UsernameTaken(ctx context.Context, name string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE name = $1)`, name).Scan(&taken)
	return taken, err
}

// SetUsername returns ErrConflict when another user already holds name.
func (s *Store) SetUsername(ctx context.Context, id int64, name string) (model.User, error) {
	row := s.pool.QueryRow(ctx, `UPDATE users SET name = $1 WHERE id = $2 RETURNING `+userColumns, name, id)
	return scanUser(row)
}

func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return affected(s.pool.Exec(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, id))
}

// SetRefreshToken replaces whatever refresh token the user held before.
func (s *Store) SetRefreshToken(ctx context.Context, id int64, tokenHash string, expiresAt time.Time) error {
	return affected(s.pool.Exec(ctx, `
		UPDATE users
		SET refresh_token_hash = $1, refresh_token_expires_at = $2
		WHERE id = $3
	`, tokenHash, expiresAt, id))
}

func (s *Store) ClearExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users
		SET refresh_token_hash = NULL, refresh_token_expires_at = NULL
		WHERE refresh_token_expires_at IS NOT NULL AND refresh_token_expires_at < $1
	`, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
