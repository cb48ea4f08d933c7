package httpx

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/airlift-ota/airlift/internal/provision"
)

// userHeader carries the acting user's directory id, injected by the
// external auth layer in front of this service.
const userHeader = "X-User-Id"

// Handler serves the provisioning API.
type Handler struct {
	svc *provision.Service
}

func NewHandler(svc *provision.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}

	var req CreateOrganizationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	org, err := h.svc.CreateOrganization(r.Context(), req.Name, userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, OrganizationResponse{Name: org.Name, Access: org.Access})
}

func (h *Handler) CreateApplication(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	orgName := chi.URLParam(r, "org")

	var req CreateApplicationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}

	app, err := h.svc.CreateApplication(r.Context(), orgName, req.Name, userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ApplicationResponse{
		Organization: app.OrgName,
		Name:         app.Name,
		Workspace:    app.WorkspaceName,
	})
}

func (h *Handler) AddUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := actingUser(w, r); !ok {
		return
	}
	orgName := chi.URLParam(r, "org")

	var req AddUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Username == "" || req.Role == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "username and role are required")
		return
	}

	if err := h.svc.AddUser(r.Context(), orgName, req.Username, req.Role); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := actingUser(w, r); !ok {
		return
	}
	orgName := chi.URLParam(r, "org")
	username := chi.URLParam(r, "username")

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}
	if req.Role == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "role is required")
		return
	}

	if err := h.svc.UpdateUserRole(r.Context(), orgName, username, req.Role); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RemoveUser(w http.ResponseWriter, r *http.Request) {
	if _, ok := actingUser(w, r); !ok {
		return
	}
	orgName := chi.URLParam(r, "org")
	username := chi.URLParam(r, "username")

	if err := h.svc.RemoveUser(r.Context(), orgName, username); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateRelease(w http.ResponseWriter, r *http.Request) {
	userID, ok := actingUser(w, r)
	if !ok {
		return
	}
	orgName := chi.URLParam(r, "org")
	appName := chi.URLParam(r, "app")

	var req CreateReleaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	rel, err := h.svc.CreateRelease(r.Context(), orgName, appName, provision.ReleaseInput{
		PackageVersion: req.PackageVersion,
		ConfigVersion:  req.ConfigVersion,
		RolloutPercent: req.RolloutPercent,
		CreatedBy:      userID,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, ReleaseResponse{
		ID:             rel.ID,
		Organization:   rel.OrgName,
		Application:    rel.AppName,
		PackageVersion: rel.PackageVersion,
		ConfigVersion:  rel.ConfigVersion,
		RolloutPercent: rel.RolloutPercent,
		ExperimentID:   rel.ExperimentID,
		CreatedAt:      rel.CreatedAt.Format(time.RFC3339),
	})
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeServiceError maps domain errors onto status codes. A failed saga
// returns the original step failure; by the time it reaches here the
// rollback (or its outbox record) has already happened.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, provision.ErrOrganizationNotFound),
		errors.Is(err, provision.ErrUserNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, provision.ErrUnknownRole):
		writeError(w, http.StatusBadRequest, "unknown_role", err.Error())
	case errors.Is(err, provision.ErrLastOwner):
		writeError(w, http.StatusConflict, "last_owner", err.Error())
	default:
		slog.ErrorContext(r.Context(), "provisioning request failed",
			"path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "provisioning_failed", err.Error())
	}
}

func actingUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userHeader)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "missing_user", userHeader+" header is required")
		return "", false
	}
	return userID, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, ErrorResponse{Error: code, Message: msg})
}
