package handlers

import (
	"log/slog"
	"net/http"
)

// UnregisterHandler removes a student from an activity.
//
//	POST /activities/{activity_name}/unregister?email=...
type UnregisterHandler struct {
	withdrawer Withdrawer
	logger     *slog.Logger
}

// NewUnregisterHandler creates a new UnregisterHandler.
func NewUnregisterHandler(withdrawer Withdrawer, logger *slog.Logger) *UnregisterHandler {
	return &UnregisterHandler{
		withdrawer: withdrawer,
		logger:     orDefault(logger),
	}
}

// ServeHTTP implements http.Handler.
func (h *UnregisterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req, ok := parseRosterRequest(w, r, h.logger)
	if !ok {
		return
	}

	msg, err := h.withdrawer.Unregister(r.Context(), req.activity, req.email)
	if err != nil {
		writeRegistryError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, MessageResponse{Message: msg})
}
