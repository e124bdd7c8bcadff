package repo

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-directory/internal/user/entity"
)

// UserRepo provides data access for users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  id varchar(32) PRIMARY KEY,
  cognito_id TEXT NOT NULL,
  email TEXT NOT NULL,
  first_name TEXT NOT NULL DEFAULT '',
  last_name TEXT NOT NULL DEFAULT '',
  role TEXT NOT NULL DEFAULT 'PUBLIC',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_users_cognito_id ON users(cognito_id);
CREATE INDEX IF NOT EXISTS idx_users_email ON users(email);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

const userColumns = `id, cognito_id, email, first_name, last_name, role, created_at, updated_at`

// Upsert inserts the user unless a row with the same cognito_id exists, and
// returns the stored row either way. It is a single statement so concurrent
// first logins for one subject all get the same row back. The no-op
// DO UPDATE makes RETURNING yield the existing row; the first writer's
// profile fields are kept.
func (r *UserRepo) Upsert(ctx context.Context, id string, p entity.Profile) (*entity.User, error) {
	q := `INSERT INTO users (id, cognito_id, email, first_name, last_name, role, updated_at)
		  VALUES ($1, $2, $3, $4, $5, $6, NOW())
		  ON CONFLICT (cognito_id) DO UPDATE SET cognito_id = EXCLUDED.cognito_id
		  RETURNING ` + userColumns
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, id, p.CognitoID, p.Email, p.FirstName, p.LastName, string(p.Role)); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID fetches a full user row or sql.ErrNoRows.
func (r *UserRepo) GetByID(ctx context.Context, id string) (*entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE id=$1`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, id); err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByCognitoID fetches by the identity provider subject.
func (r *UserRepo) GetByCognitoID(ctx context.Context, cognitoID string) (*entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE cognito_id=$1`
	var u entity.User
	if err := r.db.GetContext(ctx, &u, q, cognitoID); err != nil {
		return nil, err
	}
	return &u, nil
}
