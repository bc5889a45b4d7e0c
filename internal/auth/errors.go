package auth

import "errors"

var (
	// ErrInvalidCredentials is returned for every login failure regardless
	// of cause; callers must not learn which field was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrInvalidToken covers absent, expired and revoked refresh tokens as
	// well as access tokens that fail verification.
	ErrInvalidToken = errors.New("invalid or expired token")

	ErrNotFound = errors.New("auth: not found")
)
