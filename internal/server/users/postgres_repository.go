package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/fleetauth/internal/common"
	"github.com/dmitrijs2005/fleetauth/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	usernameIndex = "users_username_lower_idx"
	emailIndex    = "users_email_lower_idx"
)

// PostgresRepository keeps users in the table created by the server
// migrations. An empty email is stored as NULL so it never collides.
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectUser = `SELECT id, username, COALESCE(email, ''), role, account_id, password_hash, created_at
		 FROM users
		 `

func (r *PostgresRepository) Create(ctx context.Context, user *User) (*User, error) {
	stored := user.clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now().UTC()
	}

	query :=
		`INSERT INTO users (username, email, role, account_id, password_hash, created_at)
		 VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6)
		 RETURNING id
		 `

	err := r.db.QueryRowContext(ctx, query,
		stored.Username, stored.Email, stored.Role, stored.AccountID, stored.PasswordHash, stored.CreatedAt).
		Scan(&stored.ID)
	if err != nil {
		return nil, mapPostgresError(err)
	}

	return stored, nil
}

func (r *PostgresRepository) Update(ctx context.Context, user *User) error {
	query :=
		`UPDATE users
		 SET username = $2, email = NULLIF($3, ''), role = $4, account_id = $5, password_hash = $6
		 WHERE id = $1
		 `

	res, err := r.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, user.Role, user.AccountID, user.PasswordHash)
	if err != nil {
		return mapPostgresError(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*User, error) {
	return r.get(ctx, selectUser+`WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return r.get(ctx, selectUser+`WHERE LOWER(username) = LOWER($1)`, username)
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	if email == "" {
		return nil, common.ErrorNotFound
	}
	return r.get(ctx, selectUser+`WHERE LOWER(email) = LOWER($1)`, email)
}

func (r *PostgresRepository) get(ctx context.Context, query string, arg any) (*User, error) {
	u := &User{}
	var account sql.NullInt64

	err := r.db.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.Role, &account, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	if account.Valid {
		id := account.Int64
		u.AccountID = &id
	}
	return u, nil
}

func mapPostgresError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		switch pgErr.ConstraintName {
		case usernameIndex:
			return ErrUsernameTaken
		case emailIndex:
			return ErrEmailTaken
		}
	}
	return fmt.Errorf("db error: %w", err)
}
