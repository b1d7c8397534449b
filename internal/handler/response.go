package handler

// RESPONSE HELPERS:
// Every handler answers through writeJSON or writeError, so the API has one
// error shape:
//
//	{"error": "not_found", "message": "reminder not found with id abc123"}
//
// Clients can switch on "error" and show "message" without caring whether
// the status was 400, 404 or 409.

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/starminder/internal/apperror"
	"github.com/sakif/starminder/internal/auth"
	"github.com/sakif/starminder/internal/repository"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error   string `json:"error"`           // machine-readable kind, e.g. "duplicate"
	Message string `json:"message"`         // human-readable description
	Field   string `json:"field,omitempty"` // set for validation errors
}

// writeJSON sends data with the given status. Headers must be set before
// WriteHeader; anything set after the first body write is ignored.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Status is already on the wire; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps an error kind to its HTTP status.
//
// The service layer never sees HTTP. It returns apperror kinds wrapped with
// %w, and errors.Is walks the chain (including AppError's multi-Unwrap) to
// find the kind here:
//
//	ErrValidation     → 400
//	ErrAuthentication → 401
//	ErrForbidden      → 403
//	ErrNotFound       → 404
//	ErrDuplicate      → 409
//
// Anything else is a 500 with a generic message. Raw storage errors can
// carry SQL and file paths, and AppError.Details is for operators only.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "An internal error occurred",
		})
		return
	}

	status, kind := http.StatusInternalServerError, "internal_error"
	switch {
	case errors.Is(err, apperror.ErrValidation):
		status, kind = http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrAuthentication):
		status, kind = http.StatusUnauthorized, "authentication_failed"
	case errors.Is(err, apperror.ErrForbidden):
		status, kind = http.StatusForbidden, "forbidden"
	case errors.Is(err, apperror.ErrNotFound):
		status, kind = http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrDuplicate):
		status, kind = http.StatusConflict, "duplicate"
	}

	writeJSON(w, status, ErrorResponse{Error: kind, Message: appErr.Message, Field: appErr.Field})
}

// decodeJSON reads one JSON object from the body, rejecting unknown fields
// so typos in a client surface as 400s instead of silently doing nothing.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.ValidationFailed("body", fmt.Sprintf("invalid JSON body: %v", err))
	}
	return nil
}

// requireUser returns the authenticated user id, or writes a 401 and
// returns false. Routes behind RequireAuth always have one.
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "valid authentication required",
		})
	}
	return userID, ok
}

// listOptions reads ?limit= and ?offset=. Bad values fall back to the
// repository defaults.
func listOptions(r *http.Request) repository.ListOptions {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))
	return repository.ListOptions{Limit: limit, Offset: offset}
}

// intParam parses a query or path value as an int.
func intParam(name, raw string) (int, error) {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperror.ValidationFailed(name, fmt.Sprintf("%s must be an integer", name))
	}
	return n, nil
}
