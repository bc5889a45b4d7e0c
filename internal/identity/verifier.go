package identity

import (
	"context"
	"errors"
	"strings"
)

// Verifier authenticates credentials against the identity store. Every
// failure mode (unknown identifier, wrong password, disabled account)
// collapses into ErrBadCredentials so callers cannot tell them apart.
type Verifier struct {
	store Store
}

// NewVerifier constructs a Verifier over the given store.
func NewVerifier(store Store) (*Verifier, error) {
	if store == nil {
		return nil, errors.New("identity: store is required")
	}
	return &Verifier{store: store}, nil
}

// Verify looks up the account by email first, then by username, and checks
// the password. Returns the account on success.
func (v *Verifier) Verify(ctx context.Context, identifier, password string) (*User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" || password == "" {
		return nil, ErrBadCredentials
	}

	user, err := v.store.FindByEmail(ctx, strings.ToLower(identifier))
	if errors.Is(err, ErrNotFound) {
		user, err = v.store.FindByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrBadCredentials
		}
		return nil, err
	}
	if user.Status != StatusActive {
		return nil, ErrBadCredentials
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return nil, ErrBadCredentials
	}
	return user, nil
}

// Lookup loads an account by its stable identifier.
func (v *Verifier) Lookup(ctx context.Context, userID string) (*User, error) {
	return v.store.Find(ctx, userID)
}
