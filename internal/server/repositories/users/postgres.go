package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/carbonx-dev/carbonx/internal/common"
	"github.com/carbonx-dev/carbonx/internal/dbx"
	"github.com/carbonx-dev/carbonx/internal/identity"
	"github.com/carbonx-dev/carbonx/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the SQLSTATE for unique_violation.
const pgUniqueViolation = "23505"

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (name, email, password_hash, role)
         VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at
		 `

	email := NormalizeEmail(user.Email)
	err := r.db.QueryRowContext(ctx, query,
		user.Name, email, user.PasswordHash, string(user.Role)).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, common.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Email = email
	return user, nil
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query :=
		`SELECT id, name, email, password_hash, role, created_at FROM users
		 WHERE lower(email) = $1
		 `

	user := &models.User{}
	var role string
	err := r.db.QueryRowContext(ctx, query, NormalizeEmail(email)).
		Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &role, &user.CreatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Role = identity.Role(role)
	return user, nil
}
