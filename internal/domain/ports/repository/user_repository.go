package repository

import (
	"context"

	"kami-system/internal/domain/model"
)

// UserRepository is the port over the user: keyspace. Accounts are keyed
// by username; a userid: secondary key maps token subjects back to it.
type UserRepository interface {
	Save(ctx context.Context, user *model.User) error
	// Create stores a new account and fails with ErrAlreadyExists when the
	// username is already taken.
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}
