package httpapi

import (
	"net/http"
	"strings"

	"ward27.org/internal/auth"
)

// publicPaths are reachable without a bearer token.
var publicPaths = map[string]bool{
	"/":                true,
	"/healthz":         true,
	"/readyz":          true,
	"/metrics":         true,
	"/v1/info":         true,
	"/v1/auth/login":   true,
	"/v1/auth/refresh": true,
}

// withAuth verifies the bearer token on protected routes and attaches the
// authenticated identity to the request context. Job browsing stays public;
// everything mutating requires a valid token.
func (a *API) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.isPublic(r) {
			next.ServeHTTP(w, r)
			return
		}

		raw := bearerToken(r)
		if raw == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ward27"`)
			writeError(w, r, http.StatusUnauthorized, "authentication required")
			return
		}
		claims, err := a.signer.Verify(raw)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ward27", error="invalid_token"`)
			writeError(w, r, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		ctx := auth.ContextWithUser(r.Context(), claims.Subject, claims.Roles)
		ctx = auth.ContextWithToken(ctx, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *API) isPublic(r *http.Request) bool {
	if publicPaths[r.URL.Path] {
		return true
	}
	// Anonymous visitors can browse published jobs and fetch served assets.
	if r.Method == http.MethodGet {
		if r.URL.Path == "/v1/jobs" || strings.HasPrefix(r.URL.Path, "/v1/jobs/") {
			return true
		}
		if strings.HasPrefix(r.URL.Path, "/files/") {
			return true
		}
	}
	return false
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) > len(prefix) && strings.EqualFold(h[:len(prefix)], prefix) {
		return strings.TrimSpace(h[len(prefix):])
	}
	return ""
}
