package domain

import (
	"context"
	"errors"
)

var (
	// ErrUserNotFound is returned when no user matches the given identifier.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateUser is returned when the storage layer rejects a write
	// because of the unique constraint on username or email. The constraint,
	// not any application-level existence check, is the final authority on
	// registration races.
	ErrDuplicateUser = errors.New("username or email already in use")
)

// UserRepository defines methods for user persistence.
type UserRepository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	// ListUsers returns at most limit users starting at offset, ordered by
	// creation time.
	ListUsers(ctx context.Context, limit, offset int) ([]*User, error)
	UpdateUser(ctx context.Context, user *User) error
	DeleteUser(ctx context.Context, id string) error

	// UsernameTaken reports whether another user (excluding excludeID, which
	// may be empty) already holds the given username.
	UsernameTaken(ctx context.Context, username, excludeID string) (bool, error)
	// EmailTaken reports whether another user (excluding excludeID) already
	// holds the given email.
	EmailTaken(ctx context.Context, email, excludeID string) (bool, error)
}
