package users

import (
	"context"
	"errors"
)

var (
	ErrNotFound = errors.New("user not found")
	// ErrConflict is returned when the email is already registered.
	ErrConflict = errors.New("user already exists")
)

type Repo interface {
	Create(ctx context.Context, user User) error
	GetByEmail(ctx context.Context, email string) (User, error)
	GetByID(ctx context.Context, userID string) (User, error)
}
