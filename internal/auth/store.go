package auth

import "context"

// TokenStore persists refresh tokens.
type TokenStore interface {
	Create(ctx context.Context, tok *RefreshToken) error
	Find(ctx context.Context, id string) (*RefreshToken, error)

	// Revoke flips the revoked flag with a conditional update. It reports
	// whether this call performed the transition: false means the row was
	// already revoked (or absent). Exactly one concurrent caller observes
	// true for a given token.
	Revoke(ctx context.Context, id string) (bool, error)

	// RevokeAllForUser revokes every non-revoked token owned by the user in
	// one statement; partial revocation is not possible.
	RevokeAllForUser(ctx context.Context, userID string) error
}
