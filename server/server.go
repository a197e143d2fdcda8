// Package server provides the HTTP server for the Mergington High School
// activity signup system.
//
// # Endpoints
//
//   - GET /activities - All activities with their participants
//   - POST /activities/{activity_name}/signup?email= - Sign a student up
//   - POST /activities/{activity_name}/unregister?email= - Remove a student
//   - GET /health - Health check, returns "ok"
//   - GET /api/info - Build and runtime information
//   - GET /config - Current configuration as YAML, secrets redacted
//   - GET /metrics - Prometheus metrics, unless metrics are pushed
//   - GET / - Redirects to the web UI under /static/
//
// # Example
//
//	cfg, err := config.LoadConfig("/etc/signup/config.yaml")
//	if err != nil {
//	    return err
//	}
//	srv, err := server.New(ctx, cfg, server.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	return srv.Run(ctx)
package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nomis52/signup/activities"
	"github.com/nomis52/signup/buildinfo"
	"github.com/nomis52/signup/config"
	"github.com/nomis52/signup/metrics"
	"github.com/nomis52/signup/server/cron"
	"github.com/nomis52/signup/server/handlers"
	"github.com/nomis52/signup/server/types"
)

//go:embed static
var staticFiles embed.FS

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultShutdownTimeout = 5 * time.Second

	indexPath = "/static/index.html"
)

// Server is the HTTP server for the signup API and web UI.
type Server struct {
	cfg          *config.ServerConfig
	logger       *slog.Logger
	store        activities.Store
	closeStore   func() error
	closeOnce    sync.Once
	service      *activities.Service
	scrape       *metrics.ScrapeRegistry
	push         *metrics.PushRegistry
	resetTrigger *cron.CronTrigger
	props        types.ServerProperties
}

// Option configures a Server.
type Option func(*Server) error

// WithLogger sets the logger used by the server and everything it builds.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

// WithStore makes the server use store instead of building one from the
// store section of the config. The caller keeps ownership of store.
func WithStore(store activities.Store) Option {
	return func(s *Server) error {
		s.store = store
		return nil
	}
}

// New creates a Server from cfg. It connects to the configured store and
// seeds it, so ctx bounds startup work only.
func New(ctx context.Context, cfg *config.ServerConfig, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Server{
		cfg:        cfg,
		logger:     slog.Default(),
		closeStore: func() error { return nil },
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}

	reg, mode, err := s.newMetricsRegistry(hostname)
	if err != nil {
		return nil, fmt.Errorf("creating metrics registry: %w", err)
	}
	m, err := activities.NewMetrics(reg)
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("registering metrics: %w", err)
	}

	if s.store == nil {
		store, closer, err := newStore(ctx, cfg, s.logger)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.store = store
		s.closeStore = closer
	}

	s.service = activities.NewService(s.store,
		activities.WithLogger(s.logger),
		activities.WithMetrics(m),
	)
	if err := s.service.ObserveRosters(ctx); err != nil {
		s.logger.Warn("failed to record initial roster sizes", "error", err)
	}

	if cfg.ResetSchedule != "" {
		trigger, err := cron.NewCronTrigger(cfg.ResetSchedule, s.service.Run, s.logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("creating reset trigger: %w", err)
		}
		s.resetTrigger = trigger
	}

	s.props = types.ServerProperties{
		Build:         buildinfo.Get(),
		StartedAt:     time.Now().UTC(),
		Hostname:      hostname,
		StoreBackend:  cfg.Store.Backend,
		MetricsMode:   mode,
		ResetSchedule: cfg.ResetSchedule,
	}
	return s, nil
}

func (s *Server) newMetricsRegistry(hostname string) (metrics.Registry, string, error) {
	mon := s.cfg.Monitoring
	if mon.RemoteWriteURL != "" {
		s.logger.Info("pushing metrics", "url", mon.RemoteWriteURL, "job", mon.JobName)
		s.push = metrics.NewPushRegistry(metrics.PushConfig{
			URL:      mon.RemoteWriteURL,
			Prefix:   mon.MetricsPrefix,
			Job:      mon.JobName,
			Instance: hostname,
			Logger:   s.logger,
		})
		return s.push, types.MetricsPush, nil
	}

	scrape, err := metrics.NewScrapeRegistry(mon.MetricsPrefix)
	if err != nil {
		return nil, "", err
	}
	s.scrape = scrape
	return scrape, types.MetricsScrape, nil
}

// Logger returns the server's logger.
func (s *Server) Logger() *slog.Logger {
	return s.logger
}

// Config returns the configuration the server was built from.
func (s *Server) Config() *config.ServerConfig {
	return s.cfg
}

// Properties returns metadata about the running server.
func (s *Server) Properties() types.ServerProperties {
	return s.props
}

// Service returns the activity registry served by the server.
func (s *Server) Service() *activities.Service {
	return s.service
}

// Handler returns the server's routes wrapped in the request middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerRoutes(mux)
	return withRequestLogging(s.logger, mux)
}

// Close stops the metrics push worker and releases the store connection if
// the server opened one.
func (s *Server) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.push != nil {
			s.push.Close()
		}
		err = s.closeStore()
	})
	return err
}

// Run starts the HTTP server and blocks until the context is cancelled.
// It performs a graceful shutdown when the context is done and closes the
// store before returning. If a reset schedule is configured the trigger is
// started with ctx.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	httpServer := &http.Server{
		Addr:         s.cfg.Listener.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
	}

	tlsEnabled := s.cfg.TLSEnabled()
	if tlsEnabled {
		loader, err := NewCertLoader(s.cfg.Listener.TLSCert, s.cfg.Listener.TLSKey, s.logger)
		if err != nil {
			return err
		}
		httpServer.TLSConfig = loader.TLSConfig()
	}

	ln, err := net.Listen("tcp", httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", httpServer.Addr, err)
	}

	if s.resetTrigger != nil {
		s.resetTrigger.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server",
			"addr", ln.Addr().String(),
			"tls", tlsEnabled,
			"store", s.cfg.Store.Backend,
		)
		var err error
		if tlsEnabled {
			err = httpServer.ServeTLS(ln, "", "")
		} else {
			err = httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Activity API
	mux.Handle("GET /activities", handlers.NewActivitiesHandler(s.service, s.logger))
	mux.Handle("POST /activities/{activity_name}/signup", handlers.NewSignupHandler(s.service, s.logger))
	mux.Handle("POST /activities/{activity_name}/unregister", handlers.NewUnregisterHandler(s.service, s.logger))

	// Operational endpoints
	mux.Handle("GET /health", handlers.NewHealthHandler(s.service, s.logger))
	mux.Handle("GET /api/info", handlers.NewInfoHandler(s, s.logger))
	mux.Handle("GET /config", handlers.NewConfigHandler(s, s.logger))
	if s.scrape != nil {
		mux.Handle("GET /metrics", s.scrape.Handler())
	}

	// Web UI
	mux.Handle("GET /{$}", http.RedirectHandler(indexPath, http.StatusTemporaryRedirect))
	mux.Handle("GET /static/", http.FileServer(http.FS(staticFiles)))
}
