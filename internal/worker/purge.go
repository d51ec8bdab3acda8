package worker

import (
	"context"
	"fmt"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"osint/internal/scanner"
	"osint/pkg/logger"
)

// PurgeWorker removes scans whose result lifetime has passed.
type PurgeWorker struct {
	river.WorkerDefaults[scanner.PurgeJobArgs]

	scanner scanner.Scanner
}

// NewPurgeWorker constructs a PurgeWorker.
func NewPurgeWorker(s scanner.Scanner) *PurgeWorker {
	return &PurgeWorker{scanner: s}
}

// Work runs one purge.
func (w *PurgeWorker) Work(ctx context.Context, job *river.Job[scanner.PurgeJobArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID))

	n, err := w.scanner.Purge(ctx)
	if err != nil {
		return fmt.Errorf("could not purge scans: %w", err)
	}
	logger.Debug(ctx, "purge finished", zap.Int64("removed", n))

	return nil
}
