// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/fintrack/fintrack/internal/auth"
	"github.com/fintrack/fintrack/internal/handler/dto"
	"github.com/fintrack/fintrack/internal/middleware"
	"github.com/fintrack/fintrack/internal/model"
	"github.com/fintrack/fintrack/internal/service"
)

// Error codes returned in the "code" field of error bodies.
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeInvalidJSON         = "INVALID_JSON"
	CodeUserExists          = "USER_EXISTS"
	CodeInvalidCredentials  = "INVALID_CREDENTIALS"
	CodeForbidden           = "FORBIDDEN"
	CodeUpstreamUnavailable = "UPSTREAM_UNAVAILABLE"
	CodeUnauthorized        = middleware.CodeUnauthorized
	CodePayloadTooLarge     = middleware.CodePayloadTooLarge
	CodeInternal            = middleware.CodeInternal
	CodeNotFound            = "NOT_FOUND"
	CodeMethodNotAllowed    = "METHOD_NOT_ALLOWED"
)

// Handler serves the router-level fallbacks.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, CodeNotFound, "resource not found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, CodeMethodNotAllowed, "method not allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes the flat error envelope.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message, Code: code})
}

// decodeJSON reads a single JSON object from the request body into dst.
// It writes the error response itself and reports whether decoding succeeded.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var maxBytesErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxBytesErr):
			writeError(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge, "Request body too large")
		case errors.Is(err, io.EOF):
			writeError(w, http.StatusBadRequest, CodeInvalidJSON, "Request body is required")
		default:
			writeError(w, http.StatusBadRequest, CodeInvalidJSON, "Invalid request body")
		}
		return false
	}
	if dec.More() {
		writeError(w, http.StatusBadRequest, CodeInvalidJSON, "Request body must contain a single JSON object")
		return false
	}
	return true
}

// requireIdentity returns the authenticated caller, writing a 401 when the
// request carries none.
func requireIdentity(w http.ResponseWriter, r *http.Request) (*model.Identity, bool) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized")
		return nil, false
	}
	return identity, true
}

// handleServiceError maps service errors to HTTP responses.
// Unclassified errors are logged and returned as 500.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Error:  "Validation failed",
			Code:   CodeValidation,
			Fields: verr.Fields,
		})
	case errors.Is(err, service.ErrDuplicateUser):
		writeError(w, http.StatusForbidden, CodeUserExists, "User already exists")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusForbidden, CodeInvalidCredentials, service.ErrInvalidCredentials.Error())
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, CodeForbidden, "Access to resource denied")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		writeError(w, http.StatusConflict, CodeUpstreamUnavailable, service.ErrUpstreamUnavailable.Error())
	case errors.Is(err, service.ErrUserNotFound):
		// The token outlived its user.
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, "Unauthorized")
	default:
		logger.Error("unhandled service error",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetRequestID(r.Context()),
		)
		writeError(w, http.StatusInternalServerError, CodeInternal, "Internal server error")
	}
}
