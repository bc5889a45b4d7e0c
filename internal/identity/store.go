package identity

import "context"

// Store describes persistence operations for accounts and their roles.
type Store interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error

	// Roles returns the role names assigned to the user. The role cache
	// fronts this call; it remains the authoritative read.
	Roles(ctx context.Context, userID string) ([]string, error)
	AssignRole(ctx context.Context, userID, roleName string) error
}
