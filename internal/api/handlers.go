package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"tenant-registry/internal/auth"
	"tenant-registry/internal/manager"
	"tenant-registry/internal/model"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return invalid("bad request body")
	}
	return nil
}

// tokenOrganization returns the ID of the organization the token was issued to.
// Ownership is always checked by this ID, not by name.
func tokenOrganization(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "missing token claims")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(claims.OrganizationID)
	if err != nil || id == uuid.Nil {
		writeErrorCode(w, http.StatusUnauthorized, "unauthorized", "token has no organization")
		return uuid.Nil, false
	}
	return id, true
}

func (a *API) respondResult(w http.ResponseWriter, message string, res *manager.Result) {
	writeJSON(w, http.StatusOK, Envelope{
		Message:  message,
		Data:     res.Organization,
		Warnings: warningsView(res.Warnings),
	})
}

// @Summary Service descriptor
// @Tags Service
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router / [get]
func (a *API) Root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"app":     "tenant-registry",
		"version": "1.0.0",
		"endpoints": map[string]any{
			"health":  "/health",
			"metrics": "/metrics",
			"docs":    "/swagger/index.html",
			"organizations": map[string]string{
				"create":    "POST /org/create",
				"get":       "GET /org/get",
				"update":    "PUT /org/update",
				"delete":    "DELETE /org/delete",
				"documents": "GET|POST /org/documents",
			},
			"admin": map[string]string{
				"login": "POST /admin/login",
			},
		},
	})
}

// @Summary Health check
// @Tags Service
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (a *API) Health(w http.ResponseWriter, r *http.Request) {
	if a.Ping != nil {
		if err := a.Ping(r.Context()); err != nil {
			a.logger.Warn("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "app": "tenant-registry"})
}

// @Summary Create an organization
// @Tags Organizations
// @Accept json
// @Produce json
// @Param body body OrganizationRequest true "Organization and administrator"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /org/create [post]
func (a *API) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req OrganizationRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		a.writeError(w, r, err)
		return
	}

	res, err := a.TenantMgr.Create(r.Context(), req.OrganizationName, req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondResult(w, "Organization created successfully", res)
}

// @Summary Get an organization
// @Tags Organizations
// @Produce json
// @Param organization_name query string true "Organization name"
// @Success 200 {object} Envelope
// @Failure 404 {object} ErrorResponse
// @Router /org/get [get]
func (a *API) GetOrganization(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("organization_name"))
	if name == "" {
		a.writeError(w, r, invalid("organization_name is required"))
		return
	}

	org, err := a.TenantMgr.Get(r.Context(), name)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "Organization retrieved successfully", Data: org})
}

// @Summary Update an organization
// @Description Migrates the organization to a new namespace version and replaces its administrator credential.
// @Tags Organizations
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body OrganizationRequest true "Organization and new administrator credential"
// @Success 200 {object} Envelope
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /org/update [put]
func (a *API) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	var req OrganizationRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		a.writeError(w, r, err)
		return
	}
	owner, ok := tokenOrganization(w, r)
	if !ok {
		return
	}

	res, err := a.TenantMgr.UpdateOwned(r.Context(), owner, req.OrganizationName, req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondResult(w, "Organization updated successfully", res)
}

// @Summary Delete an organization
// @Tags Organizations
// @Security ApiKeyAuth
// @Produce json
// @Param organization_name query string true "Organization name"
// @Success 200 {object} Envelope
// @Failure 401 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /org/delete [delete]
func (a *API) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.URL.Query().Get("organization_name"))
	if name == "" {
		a.writeError(w, r, invalid("organization_name is required"))
		return
	}
	owner, ok := tokenOrganization(w, r)
	if !ok {
		return
	}

	res, err := a.TenantMgr.DeleteOwned(r.Context(), owner, name)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.respondResult(w, fmt.Sprintf("Organization '%s' deleted successfully", name), res)
}

// @Summary Administrator login
// @Tags Admin
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} Envelope{data=TokenResponse}
// @Failure 401 {object} ErrorResponse
// @Failure 429 {object} ErrorResponse
// @Router /admin/login [post]
func (a *API) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if err := req.validate(); err != nil {
		a.writeError(w, r, err)
		return
	}

	id, err := a.Creds.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	token, err := a.Tokens.Issue(id)
	if err != nil {
		a.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, Envelope{
		Message: "Login successful",
		Data: TokenResponse{
			AccessToken:      token,
			TokenType:        "bearer",
			AdminID:          id.AdminID.String(),
			OrganizationID:   id.OrganizationID.String(),
			OrganizationName: id.OrganizationName,
		},
	})
}

// @Summary Store a document in the organization's active collection
// @Tags Documents
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param body body object true "Any JSON document"
// @Success 200 {object} Envelope{data=model.Document}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /org/documents [post]
func (a *API) PutDocument(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tokenOrganization(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil || !json.Valid(body) {
		a.writeError(w, r, invalid("body must be a JSON document"))
		return
	}

	doc, err := a.TenantMgr.PutDocument(r.Context(), orgID, body)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Message: "Document stored", Data: doc})
}

// @Summary List documents in the organization's active collection
// @Tags Documents
// @Security ApiKeyAuth
// @Produce json
// @Param cursor query string false "Pagination cursor"
// @Param limit query int false "Page size (max 100)"
// @Success 200 {object} Envelope{data=DocumentPage}
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /org/documents [get]
func (a *API) ListDocuments(w http.ResponseWriter, r *http.Request) {
	orgID, ok := tokenOrganization(w, r)
	if !ok {
		return
	}

	limit := manager.DefaultDocumentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			a.writeError(w, r, invalid("limit must be a positive integer"))
			return
		}
		limit = min(n, manager.MaxDocumentLimit)
	}

	docs, next, err := a.TenantMgr.ListDocuments(r.Context(), orgID, r.URL.Query().Get("cursor"), limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []model.Document{}
	}
	writeJSON(w, http.StatusOK, Envelope{
		Message: "Documents retrieved successfully",
		Data:    DocumentPage{Documents: docs, NextCursor: next},
	})
}

// @Summary Update remediation worker pool concurrency
// @Tags Service
// @Security ApiKeyAuth
// @Accept json
// @Param body body ConcurrencyConfig true "Concurrency config"
// @Success 200 {object} Envelope{data=ConcurrencyConfig}
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /config/concurrency [put]
func (a *API) UpdateConcurrency(w http.ResponseWriter, r *http.Request) {
	if a.Pool == nil {
		writeErrorCode(w, http.StatusNotFound, "not_found", "remediation queue not configured")
		return
	}

	var body ConcurrencyConfig
	if err := decodeBody(w, r, &body); err != nil {
		a.writeError(w, r, err)
		return
	}
	if body.Workers <= 0 || body.Workers > 64 {
		a.writeError(w, r, invalid("workers must be between 1 and 64"))
		return
	}

	a.Pool.SetWorkerCount(body.Workers)
	writeJSON(w, http.StatusOK, Envelope{
		Message: "Worker pool resized",
		Data:    ConcurrencyConfig{Workers: a.Pool.Workers()},
	})
}
