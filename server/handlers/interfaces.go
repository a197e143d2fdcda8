// Package handlers provides HTTP handlers for the signup server.
//
// Each handler is in its own file and implements http.Handler.
// Handlers reach server dependencies through small interfaces, which keeps
// them free of import cycles and easy to fake in tests.
package handlers

import (
	"context"

	"github.com/nomis52/signup/activities"
	"github.com/nomis52/signup/config"
	"github.com/nomis52/signup/server/types"
)

// ActivityLister returns every activity with its roster.
type ActivityLister interface {
	Activities(ctx context.Context) (map[string]activities.Activity, error)
}

// Enroller adds a participant to an activity.
type Enroller interface {
	Signup(ctx context.Context, activity, email string) (string, error)
}

// Withdrawer removes a participant from an activity.
type Withdrawer interface {
	Unregister(ctx context.Context, activity, email string) (string, error)
}

// HealthChecker reports whether the server can serve requests.
type HealthChecker interface {
	Check(ctx context.Context) error
}

// ConfigProvider provides access to the running configuration.
type ConfigProvider interface {
	Config() *config.ServerConfig
}

// PropertiesProvider provides metadata about the running server.
type PropertiesProvider interface {
	Properties() types.ServerProperties
}
