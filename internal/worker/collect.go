package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/riverqueue/river"
	"go.uber.org/zap"

	"osint/internal/scanner"
	"osint/pkg/domain"
	"osint/pkg/logger"
	"osint/pkg/serrors"
)

// CollectWorker runs source collection for one scan per job.
//
// A scan that no longer exists or is no longer pending cancels the job, since
// retrying cannot change the outcome. Any other error is recorded on the scan
// through Scanner.Fail and returned so River retries the job; the scan turns
// FAILED once its attempts are spent.
type CollectWorker struct {
	river.WorkerDefaults[scanner.CollectJobArgs]

	scanner scanner.Scanner
	timeout time.Duration
}

// NewCollectWorker constructs a CollectWorker. A zero timeout keeps River's
// default job timeout.
func NewCollectWorker(s scanner.Scanner, timeout time.Duration) *CollectWorker {
	return &CollectWorker{scanner: s, timeout: timeout}
}

// Timeout bounds the whole collection of a scan.
func (w *CollectWorker) Timeout(*river.Job[scanner.CollectJobArgs]) time.Duration {
	return w.timeout
}

// Work collects a single scan and maps errors to River actions.
func (w *CollectWorker) Work(ctx context.Context, job *river.Job[scanner.CollectJobArgs]) error {
	ctx = logger.WithFields(ctx, zap.Int64("jobID", job.ID), zap.String("scanID", job.Args.ScanID))

	scanID, err := domain.ParseScanID(job.Args.ScanID)
	if err != nil {
		logger.Error(ctx, "collect job has an invalid scan ID", zap.Error(err))

		return river.JobCancel(err) //nolint: wrapcheck
	}

	err = w.scanner.Collect(ctx, scanID)
	if err == nil {
		return nil
	}
	if serrors.IsAny(err, serrors.ErrNotFound, serrors.ErrConflict) {
		logger.Info(ctx, "nothing to collect", zap.Error(err))

		return river.JobCancel(err) //nolint: wrapcheck
	}

	logger.Error(ctx, "error in collecting scan", zap.Error(err), zap.Int("attempt", job.Attempt))
	if failErr := w.scanner.Fail(ctx, scanID, err); failErr != nil {
		logger.Error(ctx, "could not record scan failure", zap.Error(failErr))
	}

	return fmt.Errorf("could not collect scan: %w", err)
}
