// Package scheduler runs a job once a day at a fixed UTC wall-clock time.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"expensemanager/internal/log"
)

// Job is the work executed on every tick.
type Job func(ctx context.Context)

// Daily fires Job at Hour:Minute UTC. Runs never overlap: the next wait
// starts only after the job returns.
type Daily struct {
	Hour, Minute int
	job          Job
	logger       *log.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewDaily(hour, minute int, job Job, logger *log.Logger) *Daily {
	return &Daily{
		Hour:   hour,
		Minute: minute,
		job:    job,
		logger: logger.WithComponent(log.ComponentScheduler),
		now:    time.Now,
		after:  time.After,
	}
}

// ParseRunAt parses "HH:MM" (24h, UTC).
func ParseRunAt(s string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid run time %q, expected HH:MM", s)
	}
	hour, err = strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in run time %q", s)
	}
	minute, err = strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in run time %q", s)
	}
	return hour, minute, nil
}

// NextRun returns the first hour:minute UTC strictly after now.
func NextRun(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Run blocks until ctx is cancelled, executing the job once per day.
func (d *Daily) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			d.logger.InfoContext(ctx, "Scheduler stopped", "reason", err)
			return err
		}

		next := NextRun(d.now(), d.Hour, d.Minute)
		d.logger.InfoContext(ctx, "Next daily run scheduled", "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			d.logger.InfoContext(ctx, "Scheduler stopped", "reason", ctx.Err())
			return ctx.Err()
		case <-d.after(next.Sub(d.now())):
		}

		start := time.Now()
		d.job(ctx)
		d.logger.InfoContext(ctx, "Daily run complete", log.FieldDurationHuman, time.Since(start).String())
	}
}
