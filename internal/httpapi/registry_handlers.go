package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"ward27.org/internal/audit"
	"ward27.org/internal/auth"
	"ward27.org/internal/registry"
)

func registryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		writeError(w, r, http.StatusNotFound, "not found")
	case errors.Is(err, registry.ErrInvalidInput):
		writeError(w, r, http.StatusBadRequest, err.Error())
	case errors.Is(err, registry.ErrConflict):
		writeError(w, r, http.StatusConflict, err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}

func (a *API) handleJobsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listJobs(w, r)
	case http.MethodPost:
		a.createJob(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listJobs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := registry.JobFilter{
		Status:     registry.JobStatus(q.Get("status")),
		EmployerID: q.Get("employer_id"),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "limit must be an integer")
			return
		}
		filter.Limit = n
	}
	// Anonymous browsing only sees published postings.
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		filter.Status = registry.JobStatusPublished
	}

	jobs, err := a.registry.ListJobs(r.Context(), filter)
	if err != nil {
		registryError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []*registry.Job{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (a *API) createJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var job registry.Job
	if err := decodeJSON(w, r, &job); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	job.PostedByUserID = userID

	created, err := a.registry.CreateJob(r.Context(), &job)
	if err != nil {
		registryError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "registry.job.created", map[string]any{
		"job_id": created.ID,
	})
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleJobResource(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/jobs/")
	id, action, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}

	switch action {
	case "":
		switch r.Method {
		case http.MethodGet:
			a.getJob(w, r, id)
		case http.MethodPatch:
			a.updateJob(w, r, id)
		case http.MethodDelete:
			a.deleteJob(w, r, id)
		default:
			methodNotAllowed(w, r, http.MethodGet, http.MethodPatch, http.MethodDelete)
		}
	case "publish":
		a.transitionJob(w, r, id, a.registry.PublishJob, "registry.job.published")
	case "close":
		a.transitionJob(w, r, id, a.registry.CloseJob, "registry.job.closed")
	default:
		writeError(w, r, http.StatusNotFound, "not found")
	}
}

func (a *API) getJob(w http.ResponseWriter, r *http.Request, id string) {
	job, err := a.registry.GetJob(r.Context(), id)
	if err != nil {
		registryError(w, r, err)
		return
	}
	// Unpublished postings stay private to authenticated users.
	if _, ok := auth.UserIDFromContext(r.Context()); !ok && job.Status != registry.JobStatusPublished {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) updateJob(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	var upd registry.JobUpdate
	if err := decodeJSON(w, r, &upd); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	job, err := a.registry.UpdateJob(r.Context(), id, upd)
	if err != nil {
		registryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (a *API) deleteJob(w http.ResponseWriter, r *http.Request, id string) {
	if !auth.HasRole(r.Context(), "admin") {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return
	}
	if err := a.registry.DeleteJob(r.Context(), id); err != nil {
		registryError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), "registry.job.deleted", map[string]any{"job_id": id})
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) transitionJob(w http.ResponseWriter, r *http.Request, id string,
	fn func(ctx context.Context, id string) (*registry.Job, error), event string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, ok := auth.UserIDFromContext(r.Context()); !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	job, err := fn(r.Context(), id)
	if err != nil {
		registryError(w, r, err)
		return
	}
	audit.LogEvent(r.Context(), event, map[string]any{"job_id": id})
	writeJSON(w, http.StatusOK, job)
}

func (a *API) handleEmployersCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		employers, err := a.registry.ListEmployers(r.Context())
		if err != nil {
			registryError(w, r, err)
			return
		}
		if employers == nil {
			employers = []*registry.Employer{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"employers": employers})
	case http.MethodPost:
		var e registry.Employer
		if err := decodeJSON(w, r, &e); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		created, err := a.registry.CreateEmployer(r.Context(), &e)
		if err != nil {
			registryError(w, r, err)
			return
		}
		audit.LogEvent(r.Context(), "registry.employer.created", map[string]any{
			"employer_id": created.ID,
		})
		writeJSON(w, http.StatusCreated, created)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleEmployerResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/employers/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	e, err := a.registry.GetEmployer(r.Context(), id)
	if err != nil {
		registryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (a *API) handleAddressesCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var addr registry.Address
	if err := decodeJSON(w, r, &addr); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	created, err := a.registry.CreateAddress(r.Context(), &addr)
	if err != nil {
		registryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleAddressResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/addresses/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	addr, err := a.registry.GetAddress(r.Context(), id)
	if err != nil {
		registryError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}
