package handlers

import (
	"log/slog"
	"net/http"
)

// ActivitiesHandler lists every activity with its participants.
type ActivitiesHandler struct {
	lister ActivityLister
	logger *slog.Logger
}

// NewActivitiesHandler creates a new ActivitiesHandler.
func NewActivitiesHandler(lister ActivityLister, logger *slog.Logger) *ActivitiesHandler {
	return &ActivitiesHandler{
		lister: lister,
		logger: orDefault(logger),
	}
}

// ServeHTTP implements http.Handler.
func (h *ActivitiesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	all, err := h.lister.Activities(r.Context())
	if err != nil {
		writeRegistryError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, all)
}
