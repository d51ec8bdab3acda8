package scanner

import (
	"context"

	"osint/pkg/domain"
)

// Scanner manages the lifecycle of scans: accepting targets, collecting
// sources in the background and correlating completed results.
//
//go:generate mockgen -package mockscanner -source=interface.go -destination=mock/mockscanner.go *
type Scanner interface {
	// Enqueue validates the target and stores a pending scan together with
	// its collection job.
	Enqueue(ctx context.Context, target domain.Target) (*domain.Scan, error)
	// Collect runs every source for a pending scan and completes it.
	Collect(ctx context.Context, scanID domain.ScanID) error
	// Fail records a collection failure; the scan turns FAILED once its
	// attempts are spent.
	Fail(ctx context.Context, scanID domain.ScanID, cause error) error
	// Scans returns a page of scans filtered by status.
	Scans(ctx context.Context,
		status domain.ScanStatus,
		cursor string,
		limit uint) ([]domain.Scan, string, error)
	// Result returns a scan with its envelopes.
	Result(ctx context.Context, scanID domain.ScanID) (*domain.Scan, error)
	// Delete removes a scan and anything derived from it.
	Delete(ctx context.Context, scanID domain.ScanID) error
	// Correlate returns the correlation outcome of a completed scan.
	Correlate(ctx context.Context, scanID domain.ScanID) (*Correlation, error)
	// Purge removes scans older than the result lifetime.
	Purge(ctx context.Context) (int64, error)
}
