package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tenant-registry/internal/model"
)

// Envelope wraps every successful response.
type Envelope struct {
	Message  string        `json:"message"`
	Data     any           `json:"data,omitempty"`
	Warnings []WarningView `json:"warnings,omitempty"`
}

// WarningView reports a best-effort step that failed after the registry was updated.
type WarningView struct {
	Step      string `json:"step"`
	Namespace string `json:"namespace,omitempty"`
	Detail    string `json:"detail"`
	Queued    bool   `json:"queued"`
}

type ErrorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code"`
}

type validationError struct {
	detail string
}

func (e *validationError) Error() string { return e.detail }

func invalid(detail string) error { return &validationError{detail: detail} }

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorCode(w http.ResponseWriter, status int, code, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail, ErrorCode: code})
}

func warningsView(ws []model.Warning) []WarningView {
	if len(ws) == 0 {
		return nil
	}
	out := make([]WarningView, 0, len(ws))
	for _, w := range ws {
		detail := ""
		if w.Err != nil {
			detail = w.Err.Error()
		}
		out = append(out, WarningView{Step: w.Step, Namespace: w.Namespace, Detail: detail, Queued: w.Queued})
	}
	return out
}

// errorStatus maps the error taxonomy onto HTTP. Internal details are not exposed.
func errorStatus(err error) (int, string, string) {
	var (
		verr *validationError
		dup  *model.DuplicateKeyError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, "validation_error", verr.detail
	case errors.Is(err, model.ErrInvalidName):
		return http.StatusBadRequest, "invalid_name", "organization name must be 1-100 letters, digits, spaces, '_' or '-'"
	case errors.Is(err, model.ErrInvalidCursor):
		return http.StatusBadRequest, "invalid_cursor", "cursor is not a valid document id"
	case errors.As(err, &dup):
		return http.StatusConflict, "already_exists", dup.Error()
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found", "organization not found"
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden, "forbidden", "token does not belong to this organization"
	case errors.Is(err, model.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid_credentials", "invalid email or password"
	case errors.Is(err, model.ErrNamespaceFailure):
		return http.StatusInternalServerError, "namespace_failure", "tenant namespace operation failed"
	default:
		return http.StatusInternalServerError, "store_failure", "internal server error"
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code, detail := errorStatus(err)
	if status >= http.StatusInternalServerError {
		a.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, ErrorResponse{Detail: detail, ErrorCode: code})
}
