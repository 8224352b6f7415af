package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/veilauth/veil/internal/auth/domain"
	"github.com/veilauth/veil/internal/auth/store"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type usersRepo struct {
	db *sql.DB
}

const userColumns = `id, username, email, password_salt, password_verifier,
	tier, compute_credits, current_token_hash, created_at, updated_at`

func (r *usersRepo) Create(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, email, password_salt, password_verifier,
			tier, compute_credits, current_token_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Salt, u.Verifier,
		u.Tier, u.ComputeCredits, mapOptionalString(u.CurrentTokenHash), now, now,
	)
	if err != nil {
		return mapConstraint(err)
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

func (r *usersRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	return scanUser(row)
}

func (r *usersRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

func (r *usersRepo) UpdateSessionToken(ctx context.Context, userID, fingerprint string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET current_token_hash = ?, updated_at = ?
		WHERE id = ?`,
		fingerprint, time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (r *usersRepo) ClearSessionToken(ctx context.Context, userID string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET current_token_hash = NULL, updated_at = ?
		WHERE id = ?`,
		time.Now().UTC(), userID,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func scanUser(row *sql.Row) (*domain.User, error) {
	var u domain.User
	var tokenHash sql.NullString
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.Salt, &u.Verifier,
		&u.Tier, &u.ComputeCredits, &tokenHash, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	u.CurrentTokenHash = mapNullStringPtr(tokenHash)
	return &u, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// mapConstraint translates SQLite UNIQUE violations into store sentinels so
// the service layer never sees driver error types.
func mapConstraint(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return err
	}
	switch {
	case strings.Contains(se.Error(), "users.username"):
		return store.ErrDuplicateUsername
	case strings.Contains(se.Error(), "users.email"):
		return store.ErrDuplicateEmail
	default:
		return err
	}
}
