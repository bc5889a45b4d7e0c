package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"ward27.org/internal/audit"
	"ward27.org/internal/auth"
	"ward27.org/internal/media"
)

const maxUploadBytes = 10 << 20

func (a *API) handleMediaCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.listMedia(w, r)
	case http.MethodPost:
		a.uploadMedia(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) listMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	owner := r.URL.Query().Get("owner_id")
	if owner == "" {
		owner = userID
	}
	if owner != userID && !auth.HasRole(r.Context(), "admin") {
		writeError(w, r, http.StatusForbidden, "insufficient role")
		return
	}

	resources, err := a.media.ListByOwner(r.Context(), owner)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	if resources == nil {
		resources = []*media.Resource{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"media": resources})
}

func (a *API) uploadMedia(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "authentication required")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, "multipart form is required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	kind := media.Kind(strings.TrimSpace(r.FormValue("kind")))
	switch kind {
	case media.KindImage, media.KindVideo, media.KindDocument:
	case "":
		kind = media.KindDocument
	default:
		writeError(w, r, http.StatusBadRequest, "unknown media kind")
		return
	}

	res, err := a.media.Save(r.Context(), userID, header.Filename, kind, file)
	if err != nil {
		if errors.Is(err, media.ErrInvalidInput) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	audit.LogEvent(r.Context(), "media.uploaded", map[string]any{
		"media_id": res.ID,
		"kind":     string(res.Kind),
	})
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) handleMediaResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/media/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "not found")
		return
	}
	res, err := a.media.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, media.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}
