package handlers

import (
	"log/slog"
	"net/http"
)

// SignupHandler adds a student to an activity.
//
//	POST /activities/{activity_name}/signup?email=...
type SignupHandler struct {
	enroller Enroller
	logger   *slog.Logger
}

// NewSignupHandler creates a new SignupHandler.
func NewSignupHandler(enroller Enroller, logger *slog.Logger) *SignupHandler {
	return &SignupHandler{
		enroller: enroller,
		logger:   orDefault(logger),
	}
}

// ServeHTTP implements http.Handler.
func (h *SignupHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRosterRequest(w, r, h.logger)
	if !ok {
		return
	}

	msg, err := h.enroller.Signup(r.Context(), req.activity, req.email)
	if err != nil {
		writeRegistryError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: msg})
}
