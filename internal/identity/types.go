package identity

import "time"

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

// User represents a registry account. The identity store is the authoritative
// owner of these records; the auth subsystem only reads them.
type User struct {
	ID            string
	Email         string
	Username      string
	FirstName     string
	MiddleName    string
	LastName      string
	AvatarURL     string
	EmailVerified bool
	PasswordHash  string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Role groups users for authorization purposes.
type Role struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
}
