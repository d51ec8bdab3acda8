// Package worker runs the background jobs of the service on a River queue:
// scan collection and the periodic purge of expired scans.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/riverqueue/river"
	"github.com/riverqueue/river/riverdriver/riverpgxv5"
	"go.uber.org/zap/exp/zapslog"

	"osint/internal/config"
	"osint/internal/scanner"
	"osint/pkg/logger"
)

// Options configure the job queue.
type Options struct {
	// MaxWorkers is the number of jobs run at the same time.
	MaxWorkers int
	// CollectTimeout bounds a single collect job. Zero uses River's default.
	CollectTimeout time.Duration
	// PurgeInterval is how often expired scans are purged. Zero disables the
	// periodic purge.
	PurgeInterval time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxWorkers: cfg.Store.Workers,
		// every source gets its full timeout even when they all run in sequence
		CollectTimeout: cfg.Collector.SourceTimeout * 10,
		PurgeInterval:  cfg.Store.PurgeInterval,
	}
}

// NewWorkers registers the collect and purge workers.
func NewWorkers(s scanner.Scanner, opts Options) *river.Workers {
	workers := river.NewWorkers()
	river.AddWorker(workers, NewCollectWorker(s, opts.CollectTimeout))
	river.AddWorker(workers, NewPurgeWorker(s))

	return workers
}

// PeriodicJobs returns the jobs River schedules by itself.
func PeriodicJobs(opts Options) []*river.PeriodicJob {
	if opts.PurgeInterval <= 0 {
		return nil
	}

	return []*river.PeriodicJob{
		river.NewPeriodicJob(
			river.PeriodicInterval(opts.PurgeInterval),
			func() (river.JobArgs, *river.InsertOpts) {
				return scanner.PurgeJobArgs{}, nil
			},
			&river.PeriodicJobOpts{RunOnStart: true},
		),
	}
}

// Start creates and starts a River client working the scan jobs.
func Start(ctx context.Context, dbPool *pgxpool.Pool, s scanner.Scanner, opts Options) (*river.Client[pgx.Tx], error) {
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 20
	}

	riverClient, err := river.NewClient(riverpgxv5.New(dbPool), &river.Config{
		Queues: map[string]river.QueueConfig{
			river.QueueDefault: {MaxWorkers: opts.MaxWorkers},
		},
		Workers:      NewWorkers(s, opts),
		PeriodicJobs: PeriodicJobs(opts),
		Logger:       slog.New(zapslog.NewHandler(logger.Get(ctx).Core())),
	})
	if err != nil {
		return nil, fmt.Errorf("could not create river queue client: %w", err)
	}

	if err := riverClient.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start river queue client: %w", err)
	}

	return riverClient, nil
}
