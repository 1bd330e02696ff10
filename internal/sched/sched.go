// Package sched rebuilds the feed in the background on a cron schedule.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mdrnmngl/marketing-feed-analytics/internal/config"
	"github.com/mdrnmngl/marketing-feed-analytics/internal/utils"
)

// runTimeout bounds one scheduled rebuild including its retries.
const runTimeout = 15 * time.Minute

// Scheduler triggers feed rebuilds on a standard 5-field cron spec.
type Scheduler struct {
	cron    *cron.Cron
	days    int
	gen     func(ctx context.Context, days int) error
	retry   utils.Backoff
	log     *slog.Logger
	timeout time.Duration
}

// New validates spec and returns a stopped Scheduler. Transient failures
// are retried twice with short delays; a run that keeps failing waits for
// the next tick.
func New(spec string, days int, gen func(ctx context.Context, days int) error, log *slog.Logger) (*Scheduler, error) {
	if log == nil {
		log = slog.Default()
	}
	s := &Scheduler{
		cron:    cron.New(),
		days:    days,
		gen:     gen,
		retry:   utils.NewBackoff(30*time.Second, 3),
		log:     log,
		timeout: runTimeout,
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("%w: refresh cron %q: %v", config.ErrInvalidConfig, spec, err)
	}
	return s, nil
}

// Start launches the cron loop in its own goroutine.
func (s *Scheduler) Start() {
	s.log.Info("refresh schedule active", "days", s.days)
	s.cron.Start()
}

// Stop halts scheduling and returns once any in-flight run has finished.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) runOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	err := s.retry.Do(ctx, func(i int) error {
		if i > 0 {
			s.log.Warn("scheduled rebuild retrying", "attempt", i+1)
		}
		return s.gen(ctx, s.days)
	})
	if err != nil {
		s.log.Error("scheduled rebuild failed", "err", err)
	}
}
