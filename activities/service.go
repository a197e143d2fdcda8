package activities

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nomis52/signup/metrics"
)

// Outcome label values recorded for signup and unregister attempts.
const (
	outcomeOK                = "ok"
	outcomeNotFound          = "not_found"
	outcomeAlreadyRegistered = "already_registered"
	outcomeNotRegistered     = "not_registered"
	outcomeError             = "error"
)

// Metrics holds the registry metrics.
type Metrics struct {
	signups         metrics.CounterVec
	unregistrations metrics.CounterVec
	participants    metrics.GaugeVec
}

// NewMetrics creates and registers the registry metrics.
func NewMetrics(reg metrics.Registry) (*Metrics, error) {
	signups, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "signups_total",
		Help: "Signup attempts by activity and outcome.",
	}, []string{"activity", "outcome"})
	if err != nil {
		return nil, err
	}
	unregistrations, err := reg.NewCounterVec(prometheus.CounterOpts{
		Name: "unregistrations_total",
		Help: "Unregister attempts by activity and outcome.",
	}, []string{"activity", "outcome"})
	if err != nil {
		return nil, err
	}
	participants, err := reg.NewGaugeVec(prometheus.GaugeOpts{
		Name: "participants",
		Help: "Current roster size by activity.",
	}, []string{"activity"})
	if err != nil {
		return nil, err
	}
	return &Metrics{
		signups:         signups,
		unregistrations: unregistrations,
		participants:    participants,
	}, nil
}

// Service is the activity registry. It validates and applies roster changes
// through a Store and reports them to the logger and metrics.
type Service struct {
	store   Store
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics records signup and unregister outcomes to m.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Activities returns every activity with its current roster.
func (s *Service) Activities(ctx context.Context) (map[string]Activity, error) {
	return s.store.Activities(ctx)
}

// Check reports whether the underlying store can serve reads.
func (s *Service) Check(ctx context.Context) error {
	if _, err := s.store.Activities(ctx); err != nil {
		return fmt.Errorf("store unavailable: %w", err)
	}
	return nil
}

// Signup adds email to the roster of the named activity and returns a
// confirmation message.
func (s *Service) Signup(ctx context.Context, activity, email string) (string, error) {
	size, err := s.store.Signup(ctx, activity, email)
	s.record(s.signups(), activity, size, err)
	if err != nil {
		s.logger.Info("signup rejected", "activity", activity, "email", email, "error", err)
		return "", err
	}
	s.logger.Debug("signed up", "activity", activity, "email", email, "participants", size)
	return fmt.Sprintf("Signed up %s for %s", email, activity), nil
}

// Unregister removes email from the roster of the named activity and returns
// a confirmation message.
func (s *Service) Unregister(ctx context.Context, activity, email string) (string, error) {
	size, err := s.store.Unregister(ctx, activity, email)
	s.record(s.unregistrations(), activity, size, err)
	if err != nil {
		s.logger.Info("unregister rejected", "activity", activity, "email", email, "error", err)
		return "", err
	}
	s.logger.Debug("unregistered", "activity", activity, "email", email, "participants", size)
	return fmt.Sprintf("Unregistered %s from %s", email, activity), nil
}

// Reset restores every roster to its seeded participants.
func (s *Service) Reset(ctx context.Context) error {
	if err := s.store.Reset(ctx); err != nil {
		return err
	}
	s.logger.Info("rosters reset to seed")
	return s.ObserveRosters(ctx)
}

// ObserveRosters sets the participants gauge for every activity from the
// store's current rosters.
func (s *Service) ObserveRosters(ctx context.Context) error {
	if s.metrics == nil {
		return nil
	}
	all, err := s.store.Activities(ctx)
	if err != nil {
		return fmt.Errorf("reading rosters: %w", err)
	}
	for name, a := range all {
		s.metrics.participants.With(prometheus.Labels{"activity": name}).Set(float64(len(a.Participants)))
	}
	return nil
}

// Run resets the rosters. It lets the Service be driven by a cron trigger.
func (s *Service) Run() error {
	return s.Reset(context.Background())
}

func (s *Service) signups() metrics.CounterVec {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.signups
}

func (s *Service) unregistrations() metrics.CounterVec {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.unregistrations
}

// record counts one attempt and, for known activities, updates the roster gauge.
func (s *Service) record(counter metrics.CounterVec, activity string, size int, err error) {
	if s.metrics == nil {
		return
	}
	outcome := outcomeFor(err)
	if outcome == outcomeNotFound {
		// Unknown names are caller input; keep them out of label values.
		activity = "unknown"
	}
	counter.With(prometheus.Labels{"activity": activity, "outcome": outcome}).Inc()
	if outcome != outcomeNotFound && outcome != outcomeError {
		s.metrics.participants.With(prometheus.Labels{"activity": activity}).Set(float64(size))
	}
}

func outcomeFor(err error) string {
	switch {
	case err == nil:
		return outcomeOK
	case errors.Is(err, ErrActivityNotFound):
		return outcomeNotFound
	case errors.Is(err, ErrAlreadyRegistered):
		return outcomeAlreadyRegistered
	case errors.Is(err, ErrNotRegistered):
		return outcomeNotRegistered
	default:
		return outcomeError
	}
}
