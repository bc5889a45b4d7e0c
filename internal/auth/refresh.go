package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"ward27.org/internal/ids"
)

const (
	refreshSecretBytes = 64

	defaultRefreshTTL  = 14 * 24 * time.Hour
	defaultRememberTTL = 60 * 24 * time.Hour
)

// TokenManager owns the refresh token lifecycle: generation, validation,
// rotation support and revocation. The transport form handed to clients is
// "<id>.<secret>"; only a SHA-256 hash of the secret is persisted.
type TokenManager struct {
	store       TokenStore
	ttl         time.Duration
	rememberTTL time.Duration
	now         func() time.Time
}

// TokenOption configures TokenManager behavior.
type TokenOption func(*TokenManager)

// WithRefreshTTL overrides the default refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithRememberMeTTL overrides the extended lifetime used when the caller
// asked to be remembered. Never applied when shorter than the default.
func WithRememberMeTTL(ttl time.Duration) TokenOption {
	return func(m *TokenManager) {
		if ttl > 0 {
			m.rememberTTL = ttl
		}
	}
}

// WithTokenClock overrides the time source (useful for tests).
func WithTokenClock(fn func() time.Time) TokenOption {
	return func(m *TokenManager) {
		if fn != nil {
			m.now = fn
		}
	}
}

// NewTokenManager constructs a TokenManager over the given store.
func NewTokenManager(store TokenStore, opts ...TokenOption) (*TokenManager, error) {
	if store == nil {
		return nil, errors.New("auth: token store is required")
	}
	m := &TokenManager{
		store:       store,
		ttl:         defaultRefreshTTL,
		rememberTTL: defaultRememberTTL,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Issue draws a fresh random secret, persists its hashed record and returns
// the transport form. The storage form never leaves this package.
func (m *TokenManager) Issue(ctx context.Context, userID string, rememberMe bool, meta SessionMeta) (string, *RefreshToken, error) {
	secretBytes := make([]byte, refreshSecretBytes)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", nil, err
	}
	secret := base64.RawURLEncoding.EncodeToString(secretBytes)

	ttl := m.ttl
	if rememberMe && m.rememberTTL > ttl {
		ttl = m.rememberTTL
	}
	now := m.now().UTC()
	rec := &RefreshToken{
		ID:        ids.New(),
		UserID:    userID,
		TokenHash: hashSecret(secret),
		Device:    meta.Device,
		IP:        meta.IP,
		Location:  meta.Location,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
	}
	if err := m.store.Create(ctx, rec); err != nil {
		return "", nil, err
	}
	return rec.ID + "." + secret, rec, nil
}

// Validate resolves a presented transport token to its stored record. Valid
// iff found, not revoked and not expired; every failure collapses into
// ErrInvalidToken. A secret mismatch against a known record revokes it, since
// that pattern suggests a stolen token id.
func (m *TokenManager) Validate(ctx context.Context, presented string) (*RefreshToken, error) {
	tokenID, secret, err := splitToken(presented)
	if err != nil {
		return nil, ErrInvalidToken
	}
	rec, err := m.store.Find(ctx, tokenID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if rec.Revoked || !m.now().Before(rec.ExpiresAt) {
		return nil, ErrInvalidToken
	}
	if !matchesHash(rec.TokenHash, secret) {
		_, _ = m.store.Revoke(ctx, rec.ID)
		return nil, ErrInvalidToken
	}
	return rec, nil
}

// Revoke marks the token revoked. The returned flag reports whether this
// call performed the transition; already-revoked is not an error.
func (m *TokenManager) Revoke(ctx context.Context, tokenID string) (bool, error) {
	return m.store.Revoke(ctx, tokenID)
}

// RevokeAll revokes every active token for the account in one logical
// operation.
func (m *TokenManager) RevokeAll(ctx context.Context, userID string) error {
	return m.store.RevokeAllForUser(ctx, userID)
}

func splitToken(raw string) (id, secret string, err error) {
	parts := strings.Split(strings.TrimSpace(raw), ".")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", errors.New("malformed refresh token")
	}
	return parts[0], parts[1], nil
}

func hashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func matchesHash(expectedHash, secret string) bool {
	actual := hashSecret(secret)
	if len(actual) != len(expectedHash) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expectedHash), []byte(actual)) == 1
}
