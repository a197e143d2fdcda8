package handlers

import (
	"log/slog"
	"net/http"
)

// InfoHandler returns build and runtime information about the server.
type InfoHandler struct {
	provider PropertiesProvider
	logger   *slog.Logger
}

// NewInfoHandler creates a new InfoHandler.
func NewInfoHandler(provider PropertiesProvider, logger *slog.Logger) *InfoHandler {
	return &InfoHandler{provider: provider, logger: orDefault(logger)}
}

// ServeHTTP implements http.Handler.
func (h *InfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, h.provider.Properties())
}
