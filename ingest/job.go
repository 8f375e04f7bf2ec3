package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telegram-places-bot/db"
	"telegram-places-bot/places"
)

// ErrNothingFetched is returned when a run produced no places. The stored dataset is left as is.
var ErrNothingFetched = errors.New("no places fetched")

// Publisher announces a finished run. Implemented by *refresh.Notifier.
type Publisher interface {
	Publish(ctx context.Context, runID string) error
}

// RunRecorder keeps the history of runs. Implemented by *db.DB.
type RunRecorder interface {
	RecordIngestRun(ctx context.Context, run db.IngestRun) error
}

// Report summarizes one run.
type Report struct {
	RunID       uuid.UUID
	StartedAt   time.Time
	FinishedAt  time.Time
	Fetched     int
	Kept        int
	PerCategory map[string]int
	Failures    []string
}

// Options configures a Job. Publisher and Recorder are optional.
type Options struct {
	Fetchers      []Fetcher
	Categories    []string
	Sinks         []Sink
	Publisher     Publisher
	Recorder      RunRecorder
	CategoryDelay time.Duration
}

// Job fetches every category from every fetcher, deduplicates the result and writes it to every
// sink.
type Job struct {
	opts   Options
	logger *zap.Logger
	now    func() time.Time
}

func NewJob(opts Options, logger *zap.Logger) *Job {
	return &Job{
		opts:   opts,
		logger: logger,
		now:    time.Now,
	}
}

func (j *Job) providers() string {
	names := make([]string, 0, len(j.opts.Fetchers))
	for _, f := range j.opts.Fetchers {
		names = append(names, f.Name())
	}
	return strings.Join(names, ",")
}

// Run executes one ingestion run. A failing category is logged and skipped; a run that ends with
// no places returns ErrNothingFetched without touching the sinks.
func (j *Job) Run(ctx context.Context) (Report, error) {
	report := Report{
		RunID:       uuid.New(),
		StartedAt:   j.now(),
		PerCategory: make(map[string]int, len(j.opts.Categories)),
	}
	logger := j.logger.With(zap.String("run_id", report.RunID.String()))
	logger.Info("Starting places ingestion",
		zap.String("providers", j.providers()),
		zap.Int("categories", len(j.opts.Categories)))

	var all []places.Place
	for i, category := range j.opts.Categories {
		if i > 0 {
			// stay under provider rate limits
			if err := sleep(ctx, j.opts.CategoryDelay); err != nil {
				return report, err
			}
		}

		for _, f := range j.opts.Fetchers {
			found, err := f.Fetch(ctx, category)
			if err != nil {
				if ctx.Err() != nil {
					return report, ctx.Err()
				}
				logger.Error("Failed to fetch category",
					zap.String("provider", f.Name()),
					zap.String("category", category),
					zap.Error(err))
				report.Failures = append(report.Failures, fmt.Sprintf("%s/%s", f.Name(), category))
				continue
			}

			logger.Info("Fetched category",
				zap.String("provider", f.Name()),
				zap.String("category", category),
				zap.Int("places", len(found)))
			report.Fetched += len(found)
			all = append(all, found...)
		}
	}

	unique := Deduplicate(all)
	report.Kept = len(unique)
	for _, p := range unique {
		report.PerCategory[p.Category]++
	}

	if len(unique) == 0 {
		report.FinishedAt = j.now()
		logger.Error("No places fetched, keeping the current dataset")
		return report, ErrNothingFetched
	}

	for _, sink := range j.opts.Sinks {
		if err := sink.Write(ctx, report.RunID, unique); err != nil {
			report.FinishedAt = j.now()
			return report, fmt.Errorf("failed to write %s: %w", sink.Name(), err)
		}
		logger.Info("Dataset written", zap.String("sink", sink.Name()), zap.Int("places", len(unique)))
	}
	report.FinishedAt = j.now()

	if j.opts.Recorder != nil {
		err := j.opts.Recorder.RecordIngestRun(ctx, db.IngestRun{
			RunID:      report.RunID,
			Providers:  j.providers(),
			Fetched:    report.Fetched,
			Kept:       report.Kept,
			StartedAt:  report.StartedAt,
			FinishedAt: report.FinishedAt,
		})
		if err != nil {
			logger.Warn("Failed to record ingest run", zap.Error(err))
		}
	}

	if j.opts.Publisher != nil {
		if err := j.opts.Publisher.Publish(ctx, report.RunID.String()); err != nil {
			logger.Warn("Failed to announce refresh, bots will pick it up on their reload interval", zap.Error(err))
		}
	}

	logger.Info("Places ingestion completed",
		zap.Int("fetched", report.Fetched),
		zap.Int("kept", report.Kept),
		zap.Int("failures", len(report.Failures)),
		zap.Duration("took", report.FinishedAt.Sub(report.StartedAt)))
	return report, nil
}
