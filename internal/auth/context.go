package auth

import (
	"context"
	"strings"
)

type userContextKey struct{}
type tokenContextKey struct{}

type contextUser struct {
	id    string
	roles []string
}

// ContextWithUser stores the authenticated identity in the context.
func ContextWithUser(ctx context.Context, userID string, roles []string) context.Context {
	return context.WithValue(ctx, userContextKey{}, &contextUser{
		id:    strings.TrimSpace(userID),
		roles: dedupeRoles(roles),
	})
}

// UserIDFromContext extracts the authenticated user ID from the context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(userContextKey{}).(*contextUser)
	if !ok || u.id == "" {
		return "", false
	}
	return u.id, true
}

// RolesFromContext returns the role names stored in the context.
func RolesFromContext(ctx context.Context) []string {
	u, ok := ctx.Value(userContextKey{}).(*contextUser)
	if !ok || len(u.roles) == 0 {
		return nil
	}
	out := make([]string, len(u.roles))
	copy(out, u.roles)
	return out
}

// HasRole checks whether the context carries the given role
// (case-insensitive).
func HasRole(ctx context.Context, role string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	for _, r := range RolesFromContext(ctx) {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// ContextWithToken stores the raw bearer token inside the context.
func ContextWithToken(ctx context.Context, token string) context.Context {
	if token == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenContextKey{}, token)
}

// TokenFromContext returns the bearer token if previously attached.
func TokenFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenContextKey{}).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
