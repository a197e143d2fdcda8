package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nomis52/signup/activities"
)

const (
	activityNameParam = "activity_name"
	emailParam        = "email"
)

// ErrorResponse is returned when a request fails.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse confirms a roster change.
type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, status int, detail string) {
	writeJSON(w, logger, status, ErrorResponse{Detail: detail})
}

// statusFor maps registry errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, activities.ErrActivityNotFound):
		return http.StatusNotFound
	case errors.Is(err, activities.ErrAlreadyRegistered), errors.Is(err, activities.ErrNotRegistered):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeRegistryError writes err as an ErrorResponse. Internal errors are
// logged and replaced with a generic detail.
func writeRegistryError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		writeError(w, logger, status, "internal server error")
		return
	}
	writeError(w, logger, status, err.Error())
}

// rosterRequest holds the parameters shared by signup and unregister.
type rosterRequest struct {
	activity string
	email    string
}

// parseRosterRequest reads the activity from the path and the email from
// the query string or form body. It writes a 422 and returns false when the
// email is missing.
func parseRosterRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (rosterRequest, bool) {
	req := rosterRequest{
		activity: r.PathValue(activityNameParam),
		email:    r.FormValue(emailParam),
	}
	if req.email == "" {
		writeError(w, logger, http.StatusUnprocessableEntity, "email is required")
		return req, false
	}
	return req, true
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
