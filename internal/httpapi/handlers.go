package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"ward27.org/internal/auth"
	"ward27.org/internal/media"
	"ward27.org/internal/obs"
	"ward27.org/internal/registry"
	"ward27.org/internal/rolecache"
)

// ReadyProbe reports readiness (DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Deps carries the services the HTTP layer exposes.
type Deps struct {
	Auth     *auth.Service
	Signer   *auth.Signer
	Registry *registry.Service
	Media    *media.Service
	Roles    *rolecache.Cache
	Ready    ReadyProbe
	Version  string

	// FilesDir, when set, serves uploaded assets from disk under /files/.
	FilesDir string
}

// API is the HTTP layer.
type API struct {
	mux      *http.ServeMux
	auth     *auth.Service
	signer   *auth.Signer
	registry *registry.Service
	media    *media.Service
	roles    *rolecache.Cache
	ready    ReadyProbe
	version  string
}

func New(deps Deps) *API {
	a := &API{
		mux:      http.NewServeMux(),
		auth:     deps.Auth,
		signer:   deps.Signer,
		registry: deps.Registry,
		media:    deps.Media,
		roles:    deps.Roles,
		ready:    deps.Ready,
		version:  deps.Version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/login", a.handleLogin)
	a.mux.HandleFunc("/v1/auth/refresh", a.handleRefresh)
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)
	a.mux.HandleFunc("/v1/auth/logout_all", a.handleLogoutAll)
	a.mux.HandleFunc("/v1/auth/roles", a.handleRoles)
	a.mux.Handle("/v1/admin/roles/invalidate",
		RequireRole("admin")(http.HandlerFunc(a.handleRoleInvalidate)))

	a.mux.HandleFunc("/v1/jobs", a.handleJobsCollection)
	a.mux.HandleFunc("/v1/jobs/", a.handleJobResource)
	a.mux.HandleFunc("/v1/employers", a.handleEmployersCollection)
	a.mux.HandleFunc("/v1/employers/", a.handleEmployerResource)
	a.mux.HandleFunc("/v1/addresses", a.handleAddressesCollection)
	a.mux.HandleFunc("/v1/addresses/", a.handleAddressResource)
	a.mux.HandleFunc("/v1/media", a.handleMediaCollection)
	a.mux.HandleFunc("/v1/media/", a.handleMediaResource)

	if deps.FilesDir != "" {
		a.mux.Handle("/files/", http.StripPrefix("/files/",
			http.FileServer(http.Dir(deps.FilesDir))))
	}

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the full middleware chain for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	// Outer cap sized for media uploads; JSON bodies are tightened further in
	// decodeJSON.
	h = MaxBodyBytes(h, maxUploadBytes)
	h = RateLimit(h, 20, 10)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = RequestID(h)
	h = Logging(h)
	return obs.Instrument(h)
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "ward27-registry",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.ready.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "ward27-registry",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, code int, msg string) {
	payload := map[string]any{
		"error": msg,
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		payload["request_id"] = rid
	}
	writeJSON(w, code, payload)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
