package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so the browser
// always sees the same shapes:
//
//	success: the resource itself, e.g. {"status":"loaded","page":{...}}
//	failure: {"error":"unavailable","message":"Failed to load dogs"}
//
// A failure that means "go log in again" also carries "redirect":"/login";
// the frontend follows it instead of rendering the message.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/dog-adoption/internal/apperror"
)

// Where the frontend should go after certain failures.
const (
	loginPath  = "/login"
	searchPath = "/search"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error    string `json:"error"`              // Machine-readable error type (e.g., "not_found")
	Message  string `json:"message"`            // Human-readable description
	Field    string `json:"field,omitempty"`    // Which form field was invalid, if any
	Redirect string `json:"redirect,omitempty"` // View the frontend should navigate to
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set before the body is written; once
// Encode writes, later header changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent, all we can do is log it.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation   → 400 (with the offending field)
//	ErrUnauthorized → 401 (redirect to the login view)
//	ErrForbidden    → 403
//	ErrNotFound     → 404
//	ErrConflict     → 409
//	ErrPrecondition → 422
//	ErrUnavailable  → 502 (the upstream API failed us)
//
// The service layer never sees HTTP; this is the only place that knows
// about status codes.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError

	if errors.As(err, &appErr) {
		resp := ErrorResponse{
			Error:   "internal_error",
			Message: appErr.Message,
			Field:   appErr.Field,
		}
		status := http.StatusInternalServerError

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest // 400
			resp.Error = "validation_error"
		case errors.Is(err, apperror.ErrUnauthorized):
			status = http.StatusUnauthorized // 401
			resp.Error = "unauthorized"
			resp.Redirect = loginPath
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden // 403
			resp.Error = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound // 404
			resp.Error = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict // 409
			resp.Error = "conflict"
		case errors.Is(err, apperror.ErrPrecondition):
			status = http.StatusUnprocessableEntity // 422
			resp.Error = "precondition_failed"
		case errors.Is(err, apperror.ErrUnavailable):
			status = http.StatusBadGateway // 502
			resp.Error = "unavailable"
		}

		writeJSON(w, status, resp)
		return
	}

	// Unknown error — return a generic 500.
	// NEVER expose internal error details to the client in production!
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a JSON request body into dst. A malformed body is a
// validation error, so it maps to 400.
func decodeJSON(r *http.Request, dst interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.ValidationFailed("", "Invalid request body")
	}
	return nil
}
