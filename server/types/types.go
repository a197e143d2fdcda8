// Package types holds values shared between the server and its handlers.
package types

import (
	"time"

	"github.com/nomis52/signup/buildinfo"
)

// ServerProperties describes the running server instance.
type ServerProperties struct {
	Build         buildinfo.Properties `json:"build"`
	StartedAt     time.Time            `json:"started_at"`
	Hostname      string               `json:"hostname"`
	StoreBackend  string               `json:"store_backend"`
	MetricsMode   string               `json:"metrics_mode"`
	ResetSchedule string               `json:"reset_schedule,omitempty"`
}

// Metrics modes reported in ServerProperties.
const (
	MetricsScrape = "scrape"
	MetricsPush   = "push"
)
