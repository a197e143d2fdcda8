package handlers

import (
	"log/slog"
	"net/http"

	"gopkg.in/yaml.v3"
)

// ConfigHandler returns the running configuration as YAML with secrets
// redacted.
type ConfigHandler struct {
	configProvider ConfigProvider
	logger         *slog.Logger
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(provider ConfigProvider, logger *slog.Logger) *ConfigHandler {
	return &ConfigHandler{
		configProvider: provider,
		logger:         orDefault(logger),
	}
}

// ServeHTTP implements http.Handler.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	redacted := h.configProvider.Config().Redacted()

	w.Header().Set("Content-Type", "text/yaml")
	w.WriteHeader(http.StatusOK)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(redacted); err != nil {
		h.logger.Error("failed to encode YAML response", "error", err)
	}
	enc.Close()
}
