package repository

import (
	"context"

	"sharelink/internal/model"
)

// UserRepository defines data access for accounts.
type UserRepository interface {
	// Create inserts a user and returns it with the assigned ID.
	// It returns ErrDuplicateUser when the username or email is taken.
	Create(ctx context.Context, u *model.User) (*model.User, error)

	// FindByEmail returns a user by email, or ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*model.User, error)

	// FindByID returns a user by ID, or ErrNotFound.
	FindByID(ctx context.Context, id int64) (*model.User, error)
}
