// Package cron runs a job on a cron schedule for as long as a context lives.
//
// The server uses it to reset the activity rosters to their seed state, for
// example at the start of each school term:
//
//	trigger, err := cron.NewCronTrigger("0 0 1 9 *", service.Run, logger)
//	if err != nil {
//	    return err
//	}
//	trigger.Start(ctx) // returns immediately
package cron

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidCronSpec is returned when the cron specification cannot be parsed.
var ErrInvalidCronSpec = errors.New("invalid cron spec")

// JobFunc is the work performed on each scheduled tick.
type JobFunc func() error

// CronTrigger executes a JobFunc according to a cron schedule.
type CronTrigger struct {
	spec     string
	schedule cron.Schedule
	job      JobFunc
	logger   *slog.Logger
	now      func() time.Time
}

// NewCronTrigger creates a CronTrigger for spec. The spec uses the standard
// five-field format (minute, hour, day of month, month, weekday) and also
// accepts descriptors such as "@daily".
func NewCronTrigger(spec string, job JobFunc, logger *slog.Logger) (*CronTrigger, error) {
	if job == nil {
		return nil, errors.New("cron trigger requires a job")
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, errors.Join(ErrInvalidCronSpec, err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &CronTrigger{
		spec:     spec,
		schedule: schedule,
		job:      job,
		logger:   logger.With("component", "cron", "schedule", spec),
		now:      time.Now,
	}, nil
}

// Spec returns the schedule the trigger was created with.
func (ct *CronTrigger) Spec() string {
	return ct.spec
}

// Start launches a goroutine that runs the job on schedule.
// Returns immediately. The goroutine exits when ctx is cancelled.
func (ct *CronTrigger) Start(ctx context.Context) {
	ct.logger.Info("cron trigger started", "next_run", ct.NextRun())
	go ct.loop(ctx)
}

// NextRun returns the next scheduled run time from now.
func (ct *CronTrigger) NextRun() time.Time {
	return ct.schedule.Next(ct.now())
}

func (ct *CronTrigger) loop(ctx context.Context) {
	for {
		nextRun := ct.schedule.Next(ct.now())
		wait := nextRun.Sub(ct.now())

		ct.logger.Debug("waiting for next scheduled run",
			"next_run", nextRun,
			"wait_duration", wait,
		)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			ct.logger.Info("cron trigger shutting down")
			return
		case <-timer.C:
			ct.execute()
		}
	}
}

func (ct *CronTrigger) execute() {
	ct.logger.Info("starting scheduled job")
	start := ct.now()

	if err := ct.job(); err != nil {
		ct.logger.Warn("scheduled job failed", "error", err, "duration", ct.now().Sub(start))
		return
	}
	ct.logger.Info("scheduled job completed", "duration", ct.now().Sub(start))
}
