package auth

import (
	"context"
	"errors"

	"ward27.org/internal/identity"
	"ward27.org/internal/obs"
)

// RoleResolver resolves the role names for an account. In production this is
// the role cache fronting the identity store.
type RoleResolver interface {
	Roles(ctx context.Context, userID string) ([]string, error)
}

// Service is the authentication orchestrator and the subsystem's public
// contract: Login, Refresh, Logout, LogoutAll and role lookup. Every
// operation takes the identifiers it needs explicitly; nothing is read from
// ambient request state.
type Service struct {
	creds  *identity.Verifier
	roles  RoleResolver
	signer *Signer
	tokens *TokenManager
}

// NewService wires the orchestrator from its collaborators.
func NewService(creds *identity.Verifier, roles RoleResolver, signer *Signer, tokens *TokenManager) (*Service, error) {
	switch {
	case creds == nil:
		return nil, errors.New("auth: credential verifier is required")
	case roles == nil:
		return nil, errors.New("auth: role resolver is required")
	case signer == nil:
		return nil, errors.New("auth: signer is required")
	case tokens == nil:
		return nil, errors.New("auth: token manager is required")
	}
	return &Service{creds: creds, roles: roles, signer: signer, tokens: tokens}, nil
}

// Login authenticates an email-or-username identifier and mints an access
// and refresh token pair. All credential failures surface as
// ErrInvalidCredentials; the full cause is logged internally.
func (s *Service) Login(ctx context.Context, identifier, password string, rememberMe bool, meta SessionMeta) (Result, error) {
	user, err := s.creds.Verify(ctx, identifier, password)
	if err != nil {
		if errors.Is(err, identity.ErrBadCredentials) {
			obs.RecordLogin("denied")
			obs.LogEvent("info", "login denied", map[string]any{"identifier": identifier})
			return Result{}, ErrInvalidCredentials
		}
		obs.RecordLogin("error")
		return Result{}, err
	}

	result, err := s.mint(ctx, user, rememberMe, meta)
	if err != nil {
		obs.RecordLogin("error")
		return Result{}, err
	}
	obs.RecordLogin("success")
	return result, nil
}

// Refresh validates a presented refresh token, revokes it and issues a new
// pair bound to the same account. Exactly one concurrent caller can rotate a
// given token; the rest observe it as already revoked and fail.
func (s *Service) Refresh(ctx context.Context, presented string) (Result, error) {
	rec, err := s.tokens.Validate(ctx, presented)
	if err != nil {
		return Result{}, err
	}

	rotated, err := s.tokens.Revoke(ctx, rec.ID)
	if err != nil {
		return Result{}, err
	}
	if !rotated {
		// Lost the rotation race; the token was spent by another caller.
		return Result{}, ErrInvalidToken
	}

	user, err := s.creds.Lookup(ctx, rec.UserID)
	if err != nil {
		if errors.Is(err, identity.ErrNotFound) {
			return Result{}, ErrInvalidToken
		}
		return Result{}, err
	}
	if user.Status != identity.StatusActive {
		return Result{}, ErrInvalidToken
	}

	result, err := s.mint(ctx, user, false, SessionMeta{Device: rec.Device, IP: rec.IP, Location: rec.Location})
	if err != nil {
		return Result{}, err
	}
	obs.RecordRotation()
	return result, nil
}

// Logout revokes exactly the refresh token presented with the request.
// Revoking an already-revoked token is a success.
func (s *Service) Logout(ctx context.Context, presented string) error {
	tokenID, secret, err := splitToken(presented)
	if err != nil {
		return ErrInvalidToken
	}
	rec, err := s.tokens.store.Find(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrInvalidToken
		}
		return err
	}
	if !matchesHash(rec.TokenHash, secret) {
		return ErrInvalidToken
	}
	_, err = s.tokens.Revoke(ctx, rec.ID)
	return err
}

// LogoutAll revokes every active refresh token owned by the account
// ("sign out everywhere").
func (s *Service) LogoutAll(ctx context.Context, userID string) error {
	return s.tokens.RevokeAll(ctx, userID)
}

// Roles resolves the account's role names through the cache.
func (s *Service) Roles(ctx context.Context, userID string) ([]string, error) {
	return s.roles.Roles(ctx, userID)
}

func (s *Service) mint(ctx context.Context, user *identity.User, rememberMe bool, meta SessionMeta) (Result, error) {
	roles, err := s.roles.Roles(ctx, user.ID)
	if err != nil {
		return Result{}, err
	}
	access, accessExp, err := s.signer.Sign(user, roles)
	if err != nil {
		return Result{}, err
	}
	refresh, rec, err := s.tokens.Issue(ctx, user.ID, rememberMe, meta)
	if err != nil {
		return Result{}, err
	}
	return Result{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: rec.ExpiresAt,
		User: UserSummary{
			ID:         user.ID,
			Email:      user.Email,
			Username:   user.Username,
			FirstName:  user.FirstName,
			MiddleName: user.MiddleName,
			LastName:   user.LastName,
			Avatar:     user.AvatarURL,
			Roles:      dedupeRoles(roles),
		},
	}, nil
}
