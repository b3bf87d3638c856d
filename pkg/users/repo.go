package users

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"garrison/pkg/apperr"
	"garrison/pkg/db"
)

type UserRepository interface {
	CreateUser(ctx context.Context, u User) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	UpdateUser(ctx context.Context, u User) (User, error)
}

const userColumns = `id, username, email, password_hash, full_name, phone, role, base, is_active, created_at`

type postgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) UserRepository {
	return &postgresUserRepository{pool: pool}
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.FullName, &u.Phone, &u.Role, &u.Base, &u.IsActive, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, apperr.NotFound("user not found")
		}
		return User{}, err
	}
	return u, nil
}

func (r *postgresUserRepository) CreateUser(ctx context.Context, u User) (User, error) {
	query := `INSERT INTO users (id, username, email, password_hash, full_name, phone, role, base, is_active, created_at)
              VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
              RETURNING ` + userColumns

	row := db.From(ctx, r.pool).QueryRow(ctx, query,
		u.ID, u.Username, u.Email, u.PasswordHash, u.FullName, u.Phone, u.Role, u.Base, u.IsActive)

	created, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, apperr.Conflict("username or email already exists")
		}
		return User{}, err
	}
	return created, nil
}

func (r *postgresUserRepository) GetUserByID(ctx context.Context, id string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(db.From(ctx, r.pool).QueryRow(ctx, query, id))
}

func (r *postgresUserRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(db.From(ctx, r.pool).QueryRow(ctx, query, username))
}

func (r *postgresUserRepository) UpdateUser(ctx context.Context, u User) (User, error) {
	query := `UPDATE users
              SET email = $1, password_hash = $2, full_name = $3, phone = $4, base = $5
              WHERE id = $6
              RETURNING ` + userColumns

	row := db.From(ctx, r.pool).QueryRow(ctx, query,
		u.Email, u.PasswordHash, u.FullName, u.Phone, u.Base, u.ID)

	updated, err := scanUser(row)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return User{}, apperr.Conflict("email already exists")
		}
		return User{}, err
	}
	return updated, nil
}
