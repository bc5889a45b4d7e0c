package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"ward27.org/internal/auth"
	"ward27.org/internal/identity"
	"ward27.org/internal/media"
	"ward27.org/internal/registry"
	"ward27.org/internal/rolecache"
)

// --- in-memory fakes ---

type fakeUsers struct {
	byID map[string]*identity.User
}

func (s *fakeUsers) Create(_ context.Context, u *identity.User) error {
	s.byID[u.ID] = u
	return nil
}

func (s *fakeUsers) Find(_ context.Context, id string) (*identity.User, error) {
	u, ok := s.byID[id]
	if !ok {
		return nil, identity.ErrNotFound
	}
	return u, nil
}

func (s *fakeUsers) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *fakeUsers) FindByUsername(_ context.Context, username string) (*identity.User, error) {
	for _, u := range s.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, identity.ErrNotFound
}

func (s *fakeUsers) UpdatePassword(context.Context, string, string) error { return nil }

func (s *fakeUsers) Roles(_ context.Context, userID string) ([]string, error) {
	if userID == "admin1" {
		return []string{"admin"}, nil
	}
	return []string{"worker"}, nil
}

func (s *fakeUsers) AssignRole(context.Context, string, string) error { return nil }

type fakeTokens struct {
	mu   sync.Mutex
	recs map[string]*auth.RefreshToken
}

func (s *fakeTokens) Create(_ context.Context, tok *auth.RefreshToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *tok
	s.recs[tok.ID] = &cp
	return nil
}

func (s *fakeTokens) Find(_ context.Context, id string) (*auth.RefreshToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok {
		return nil, auth.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *fakeTokens) Revoke(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.recs[id]
	if !ok || rec.Revoked {
		return false, nil
	}
	now := time.Now().UTC()
	rec.Revoked = true
	rec.RevokedAt = &now
	return true, nil
}

func (s *fakeTokens) RevokeAllForUser(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, rec := range s.recs {
		if rec.UserID == userID && !rec.Revoked {
			rec.Revoked = true
			rec.RevokedAt = &now
		}
	}
	return nil
}

type fakeJobs struct {
	mu   sync.Mutex
	jobs map[string]*registry.Job
	seq  int
}

func (s *fakeJobs) CreateJob(_ context.Context, job *registry.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if job.ID == "" {
		job.ID = "job-" + time.Now().Format("150405") + "-" + string(rune('a'+s.seq%26))
	}
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeJobs) GetJob(_ context.Context, id string) (*registry.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Deleted {
		return nil, registry.ErrNotFound
	}
	return job, nil
}

func (s *fakeJobs) ListJobs(_ context.Context, filter registry.JobFilter) ([]*registry.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*registry.Job
	for _, job := range s.jobs {
		if job.Deleted {
			continue
		}
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		out = append(out, job)
	}
	return out, nil
}

func (s *fakeJobs) UpdateJob(_ context.Context, id string, upd registry.JobUpdate) (*registry.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Deleted {
		return nil, registry.ErrNotFound
	}
	if upd.Title != nil {
		job.Title = *upd.Title
	}
	return job, nil
}

func (s *fakeJobs) SetJobStatus(_ context.Context, id string, status registry.JobStatus, at time.Time) (*registry.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Deleted {
		return nil, registry.ErrNotFound
	}
	job.Status = status
	return job, nil
}

func (s *fakeJobs) SoftDeleteJob(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok || job.Deleted {
		return registry.ErrNotFound
	}
	job.Deleted = true
	return nil
}

func (s *fakeJobs) CreateEmployer(_ context.Context, e *registry.Employer) error {
	e.ID = "emp-1"
	return nil
}

func (s *fakeJobs) GetEmployer(context.Context, string) (*registry.Employer, error) {
	return nil, registry.ErrNotFound
}

func (s *fakeJobs) ListEmployers(context.Context) ([]*registry.Employer, error) { return nil, nil }

func (s *fakeJobs) CreateAddress(_ context.Context, a *registry.Address) error {
	a.ID = "addr-1"
	return nil
}

func (s *fakeJobs) GetAddress(context.Context, string) (*registry.Address, error) {
	return nil, registry.ErrNotFound
}

type fakeMediaStore struct{}

func (fakeMediaStore) Create(context.Context, *media.Resource) error { return nil }
func (fakeMediaStore) Find(context.Context, string) (*media.Resource, error) {
	return nil, media.ErrNotFound
}
func (fakeMediaStore) ListByOwner(context.Context, string) ([]*media.Resource, error) {
	return nil, nil
}

// --- harness ---

func newTestAPI(t *testing.T) (*API, http.Handler) {
	t.Helper()

	hash, err := identity.HashPassword("open sesame 123")
	if err != nil {
		t.Fatal(err)
	}
	users := &fakeUsers{byID: map[string]*identity.User{
		"u1": {
			ID: "u1", Email: "thandi@ward27.org", Username: "thandi",
			FirstName: "Thandi", LastName: "Dlamini",
			PasswordHash: hash, Status: identity.StatusActive,
		},
		"admin1": {
			ID: "admin1", Email: "admin@ward27.org", Username: "admin",
			PasswordHash: hash, Status: identity.StatusActive,
		},
	}}
	verifier, err := identity.NewVerifier(users)
	if err != nil {
		t.Fatal(err)
	}
	roles, err := rolecache.New(users, rolecache.NewMemoryBackend())
	if err != nil {
		t.Fatal(err)
	}
	signer, err := auth.NewSigner("0123456789abcdef0123456789abcdef", "ward27.org", []string{"ward27.org"})
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := auth.NewTokenManager(&fakeTokens{recs: make(map[string]*auth.RefreshToken)})
	if err != nil {
		t.Fatal(err)
	}
	authSvc, err := auth.NewService(verifier, roles, signer, tokens)
	if err != nil {
		t.Fatal(err)
	}
	registrySvc, err := registry.NewService(&fakeJobs{jobs: make(map[string]*registry.Job)})
	if err != nil {
		t.Fatal(err)
	}
	uploader, err := media.NewDiskUploader(t.TempDir(), "/files")
	if err != nil {
		t.Fatal(err)
	}
	mediaSvc, err := media.NewService(fakeMediaStore{}, uploader)
	if err != nil {
		t.Fatal(err)
	}

	api := New(Deps{
		Auth:     authSvc,
		Signer:   signer,
		Registry: registrySvc,
		Media:    mediaSvc,
		Roles:    roles,
		Ready:    ReadyProbe{},
		Version:  "test",
	})
	return api, api.Handler()
}

func postJSON(t *testing.T, h http.Handler, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func login(t *testing.T, h http.Handler, identifier string) auth.Result {
	t.Helper()
	rr := postJSON(t, h, "/v1/auth/login", "", map[string]any{
		"identifier": identifier,
		"password":   "open sesame 123",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("login failed: %d %s", rr.Code, rr.Body.String())
	}
	var res auth.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatal(err)
	}
	return res
}

// --- tests ---

func TestHealthz(t *testing.T) {
	_, h := newTestAPI(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["service"] != "ward27-registry" {
		t.Fatalf("unexpected service name %v", body["service"])
	}
}

func TestLoginRefreshLogoutFlow(t *testing.T) {
	_, h := newTestAPI(t)

	res := login(t, h, "thandi@ward27.org")
	if res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatal("expected a token pair")
	}

	// The access token opens protected routes.
	req := httptest.NewRequest(http.MethodGet, "/v1/auth/roles", nil)
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("roles with valid token: %d %s", rr.Code, rr.Body.String())
	}

	// Rotation.
	rr = postJSON(t, h, "/v1/auth/refresh", "", map[string]any{"refresh_token": res.RefreshToken})
	if rr.Code != http.StatusOK {
		t.Fatalf("refresh: %d %s", rr.Code, rr.Body.String())
	}
	var rotated auth.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &rotated); err != nil {
		t.Fatal(err)
	}

	// The spent token is dead.
	rr = postJSON(t, h, "/v1/auth/refresh", "", map[string]any{"refresh_token": res.RefreshToken})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("replay: expected 401, got %d", rr.Code)
	}

	// Logout of the rotated token, twice: both succeed.
	for i := 0; i < 2; i++ {
		rr = postJSON(t, h, "/v1/auth/logout", rotated.AccessToken,
			map[string]any{"refresh_token": rotated.RefreshToken})
		if rr.Code != http.StatusOK {
			t.Fatalf("logout attempt %d: %d %s", i+1, rr.Code, rr.Body.String())
		}
	}
}

func TestLoginFailureIsGenericOverHTTP(t *testing.T) {
	_, h := newTestAPI(t)

	unknown := postJSON(t, h, "/v1/auth/login", "", map[string]any{
		"identifier": "ghost@ward27.org", "password": "open sesame 123",
	})
	wrongPass := postJSON(t, h, "/v1/auth/login", "", map[string]any{
		"identifier": "thandi@ward27.org", "password": "nope",
	})

	if unknown.Code != http.StatusUnauthorized || wrongPass.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401/401, got %d/%d", unknown.Code, wrongPass.Code)
	}

	var a, b map[string]any
	if err := json.Unmarshal(unknown.Body.Bytes(), &a); err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(wrongPass.Body.Bytes(), &b); err != nil {
		t.Fatal(err)
	}
	if a["error"] != b["error"] {
		t.Fatalf("failure bodies differ: %v vs %v", a["error"], b["error"])
	}
}

func TestLogoutAllRequiresAuthAndRevokesEverything(t *testing.T) {
	_, h := newTestAPI(t)

	// Anonymous call is rejected.
	rr := postJSON(t, h, "/v1/auth/logout_all", "", map[string]any{})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous logout_all: expected 401, got %d", rr.Code)
	}

	first := login(t, h, "thandi@ward27.org")
	second := login(t, h, "thandi")

	rr = postJSON(t, h, "/v1/auth/logout_all", first.AccessToken, map[string]any{})
	if rr.Code != http.StatusOK {
		t.Fatalf("logout_all: %d %s", rr.Code, rr.Body.String())
	}

	for _, refresh := range []string{first.RefreshToken, second.RefreshToken} {
		rr = postJSON(t, h, "/v1/auth/refresh", "", map[string]any{"refresh_token": refresh})
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("refresh after logout_all: expected 401, got %d", rr.Code)
		}
	}
}

func TestProtectedRouteRejectsBadTokens(t *testing.T) {
	_, h := newTestAPI(t)

	cases := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"garbage", "not-a-jwt"},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/v1/auth/roles", nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		if rr.Code != http.StatusUnauthorized {
			t.Fatalf("%s token: expected 401, got %d", tc.name, rr.Code)
		}
		if rr.Header().Get("WWW-Authenticate") == "" {
			t.Fatalf("%s token: expected WWW-Authenticate header", tc.name)
		}
	}
}

func TestAdminRouteRequiresRole(t *testing.T) {
	_, h := newTestAPI(t)

	worker := login(t, h, "thandi@ward27.org")
	admin := login(t, h, "admin@ward27.org")

	rr := postJSON(t, h, "/v1/admin/roles/invalidate", worker.AccessToken,
		map[string]any{"user_id": "u1"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("worker on admin route: expected 403, got %d", rr.Code)
	}

	rr = postJSON(t, h, "/v1/admin/roles/invalidate", admin.AccessToken,
		map[string]any{"user_id": "u1"})
	if rr.Code != http.StatusOK {
		t.Fatalf("admin on admin route: %d %s", rr.Code, rr.Body.String())
	}
}

func TestAnonymousJobBrowsingSeesOnlyPublished(t *testing.T) {
	_, h := newTestAPI(t)
	user := login(t, h, "thandi@ward27.org")

	rr := postJSON(t, h, "/v1/jobs", user.AccessToken, map[string]any{
		"title": "Litter picking", "start_date": time.Now().UTC(),
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create job: %d %s", rr.Code, rr.Body.String())
	}
	var created registry.Job
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	// Draft job is invisible to anonymous browsing.
	req := httptest.NewRequest(http.MethodGet, "/v1/jobs", nil)
	anon := httptest.NewRecorder()
	h.ServeHTTP(anon, req)
	if anon.Code != http.StatusOK {
		t.Fatalf("anonymous list: %d", anon.Code)
	}
	var listing struct {
		Jobs []registry.Job `json:"jobs"`
	}
	if err := json.Unmarshal(anon.Body.Bytes(), &listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.Jobs) != 0 {
		t.Fatalf("draft leaked to anonymous listing: %+v", listing.Jobs)
	}

	// Publish, then it shows up.
	rr = postJSON(t, h, "/v1/jobs/"+created.ID+"/publish", user.AccessToken, map[string]any{})
	if rr.Code != http.StatusOK {
		t.Fatalf("publish: %d %s", rr.Code, rr.Body.String())
	}

	anon = httptest.NewRecorder()
	h.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/v1/jobs", nil))
	if err := json.Unmarshal(anon.Body.Bytes(), &listing); err != nil {
		t.Fatal(err)
	}
	if len(listing.Jobs) != 1 {
		t.Fatalf("expected 1 published job, got %d", len(listing.Jobs))
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	_, h := newTestAPI(t)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/nope", nil))
	if rr.Code != http.StatusNotFound && rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 404 or 401, got %d", rr.Code)
	}
}

func TestRejectsUnknownJSONFields(t *testing.T) {
	_, h := newTestAPI(t)

	body := strings.NewReader(`{"identifier":"thandi","password":"x","surprise":true}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", body)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("unknown field: expected 400, got %d", rr.Code)
	}
}
