package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"ward27.org/internal/identity"
)

const defaultAccessTTL = 15 * time.Minute

// Claims are the signed attributes embedded in an access token. Roles travel
// as a plain list claim; validity is determined entirely by signature and
// the registered timestamps, never by a stored record.
type Claims struct {
	Email      string   `json:"email,omitempty"`
	GivenName  string   `json:"given_name,omitempty"`
	FamilyName string   `json:"family_name,omitempty"`
	Profile    string   `json:"profile,omitempty"`
	Roles      []string `json:"roles"`
	jwt.RegisteredClaims
}

// Signer mints and verifies HS256 access tokens. A single symmetric key is
// in force at a time.
type Signer struct {
	secret    []byte
	issuer    string
	audiences []string
	ttl       time.Duration
	now       func() time.Time
}

// SignerOption configures Signer behavior.
type SignerOption func(*Signer)

// WithAccessTTL overrides the access token lifetime.
func WithAccessTTL(ttl time.Duration) SignerOption {
	return func(s *Signer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithSignerClock overrides the time source (useful for tests).
func WithSignerClock(fn func() time.Time) SignerOption {
	return func(s *Signer) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewSigner validates the signing configuration up front; a missing secret
// or issuer is a startup failure, not a per-request condition.
func NewSigner(secret, issuer string, audiences []string, opts ...SignerOption) (*Signer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("auth: signing secret is required")
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, errors.New("auth: issuer is required")
	}
	auds := make([]string, 0, len(audiences))
	for _, a := range audiences {
		a = strings.TrimSpace(a)
		if a != "" {
			auds = append(auds, a)
		}
	}
	if len(auds) == 0 {
		return nil, errors.New("auth: at least one audience is required")
	}
	s := &Signer{
		secret:    []byte(secret),
		issuer:    issuer,
		audiences: auds,
		ttl:       defaultAccessTTL,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sign mints an access token for the account with the resolved roles.
// Deterministic apart from the timestamp and jti.
func (s *Signer) Sign(user *identity.User, roles []string) (string, time.Time, error) {
	if user == nil || strings.TrimSpace(user.ID) == "" {
		return "", time.Time{}, errors.New("auth: user is required")
	}
	now := s.now().UTC()
	exp := now.Add(s.ttl)
	claims := Claims{
		Email:      user.Email,
		GivenName:  user.FirstName,
		FamilyName: user.LastName,
		Profile:    user.AvatarURL,
		Roles:      dedupeRoles(roles),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:  s.issuer,
			Subject: user.ID,
			// Multiple audiences may be accepted on verification, but the
			// signer always stamps the primary one.
			Audience:  jwt.ClaimStrings{s.audiences[0]},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Verify checks signature, issuer, audience membership and expiry. Any
// failure is ErrInvalidToken; an unverified token is never partially
// trusted.
func (s *Signer) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Issuer != s.issuer {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return nil, ErrInvalidToken
	}
	if !s.acceptsAudience(claims.Audience) {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func (s *Signer) acceptsAudience(aud jwt.ClaimStrings) bool {
	for _, got := range aud {
		for _, want := range s.audiences {
			if got == want {
				return true
			}
		}
	}
	return false
}

func dedupeRoles(roles []string) []string {
	out := make([]string, 0, len(roles))
	seen := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		role = strings.TrimSpace(role)
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out
}
