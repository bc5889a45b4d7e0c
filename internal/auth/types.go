package auth

import "time"

// RefreshToken is the persisted record for an issued refresh token. The
// stored value is a one-way hash; the opaque secret handed to the client is
// never written anywhere. Rows are only ever created or revoked, never
// deleted, so the table doubles as a session history.
type RefreshToken struct {
	ID        string
	UserID    string
	TokenHash string
	Device    string
	IP        string
	Location  string
	IssuedAt  time.Time
	ExpiresAt time.Time
	Revoked   bool
	RevokedAt *time.Time
}

// SessionMeta carries optional client metadata recorded with a token.
type SessionMeta struct {
	Device   string
	IP       string
	Location string
}

// UserSummary is the caller-facing account projection returned with tokens.
type UserSummary struct {
	ID         string   `json:"id"`
	Email      string   `json:"email"`
	Username   string   `json:"username"`
	FirstName  string   `json:"first_name"`
	MiddleName string   `json:"middle_name,omitempty"`
	LastName   string   `json:"last_name"`
	Avatar     string   `json:"avatar,omitempty"`
	Roles      []string `json:"roles"`
}

// Result is the orchestrator's output for Login and Refresh.
type Result struct {
	AccessToken      string      `json:"access_token"`
	RefreshToken     string      `json:"refresh_token"`
	AccessExpiresAt  time.Time   `json:"access_expires_at"`
	RefreshExpiresAt time.Time   `json:"refresh_expires_at"`
	User             UserSummary `json:"user"`
}
