package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"telegram-places-bot/worker"
)

// Runner runs one ingestion. Implemented by *Job.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// Scheduler runs the job once at start and then every day at a fixed local time.
type Scheduler struct {
	*worker.BaseWorker
	job          Runner
	hour, minute int
	now          func() time.Time
}

// NewScheduler creates a Scheduler for dailyAt in HH:MM form.
func NewScheduler(job Runner, dailyAt string, logger *zap.Logger) (*Scheduler, error) {
	at, err := time.Parse("15:04", dailyAt)
	if err != nil {
		return nil, fmt.Errorf("invalid daily time %q: %w", dailyAt, err)
	}
	return &Scheduler{
		BaseWorker: worker.NewBaseWorker("ingest-scheduler", logger),
		job:        job,
		hour:       at.Hour(),
		minute:     at.Minute(),
		now:        time.Now,
	}, nil
}

// nextRun is the first hour:minute strictly after now, in now's location.
func nextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.runJob(ctx)

	for {
		next := nextRun(s.now(), s.hour, s.minute)
		s.Logger().Info("Next ingestion scheduled", zap.Time("at", next))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-s.StopChan():
			timer.Stop()
			return nil
		case <-timer.C:
			s.runJob(ctx)
		}
	}
}

func (s *Scheduler) runJob(ctx context.Context) {
	if _, err := s.job.Run(ctx); err != nil {
		s.Logger().Error("Scheduled ingestion failed", zap.Error(err))
	}
}
