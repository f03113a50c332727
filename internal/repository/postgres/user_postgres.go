package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"sharelink/internal/model"
	"sharelink/internal/repository"
)

// UserPostgres is a PostgreSQL implementation of repository.UserRepository.
type UserPostgres struct {
	db *sql.DB
}

// NewUserPostgres creates a new UserPostgres repository.
func NewUserPostgres(db *sql.DB) *UserPostgres {
	return &UserPostgres{db: db}
}

var _ repository.UserRepository = (*UserPostgres)(nil)

// Create inserts a new user and returns the stored record.
func (r *UserPostgres) Create(ctx context.Context, u *model.User) (*model.User, error) {
	const q = `
		INSERT INTO users (username, email, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, username, email, password_hash, created_at
	`
	var out model.User
	if err := r.db.QueryRowContext(ctx, q, u.Username, u.Email, u.PasswordHash, u.CreatedAt).Scan(
		&out.ID,
		&out.Username,
		&out.Email,
		&out.PasswordHash,
		&out.CreatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrDuplicateUser
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &out, nil
}

// FindByEmail fetches a user by email address.
func (r *UserPostgres) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT id, username, email, password_hash, created_at FROM users WHERE email = $1`
	return r.findOne(ctx, q, email)
}

// FindByID fetches a user by ID.
func (r *UserPostgres) FindByID(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT id, username, email, password_hash, created_at FROM users WHERE id = $1`
	return r.findOne(ctx, q, id)
}

func (r *UserPostgres) findOne(ctx context.Context, q string, arg any) (*model.User, error) {
	var u model.User
	if err := r.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.PasswordHash,
		&u.CreatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
