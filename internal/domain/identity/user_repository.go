package identity

import "context"

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// FindByID finds a user by ID, returning shared.ErrNotFound when absent
	FindByID(ctx context.Context, id string) (*User, error)

	// Save creates or updates a user
	Save(ctx context.Context, user *User) error
}
