package storage

import (
	"context"
	"time"

	"osint/pkg/domain"
)

// ScanUpdates describes a set of optional fields that can be applied to a
// pending scan. Only non-nil fields are written.
type ScanUpdates struct {
	// Status is the new status to set for the scan.
	Status domain.ScanStatus
	// Envelopes, when provided, replaces the stored collection results.
	Envelopes *[]domain.Envelope
	// LastError, when provided, sets the last error text. An empty string value
	// indicates the error should be cleared (set to NULL).
	LastError *string
	// StartedAt and FinishedAt, when provided, record the collection window.
	StartedAt  *time.Time
	FinishedAt *time.Time
	// MaxAttempts, when provided alongside a Failed status, ensures that status
	// is only updated to Failed once the attempts after increment reach this
	// threshold. A value <= 0 disables this guard.
	MaxAttempts int
}

// ScanPage groups a page of scans together with an optional NextCursor used
// for pagination.
type ScanPage struct {
	// Scans contains the current page of scan records.
	Scans []domain.Scan
	// NextCursor points to the timestamp to be used as the cursor for fetching
	// the next page. It is nil when there is no next page.
	NextCursor *time.Time
}

// ScanStorage defines CRUD and query operations related to scans.
type ScanStorage interface {
	// StoreScans inserts one or more scans and returns the stored rows as they
	// exist in the database (including generated fields).
	StoreScans(ctx context.Context, scans ...domain.Scan) ([]domain.Scan, error)
	// UpdatePendingScan updates a pending, non-deleted scan and returns the
	// updated row, or nil when no pending scan has the ID.
	// Notes:
	// - Attempts is incremented by 1 and updated_at is set automatically.
	// - If Status is Failed and MaxAttempts > 0, status is only set to Failed
	//   when the attempts after increment reach MaxAttempts; otherwise status
	//   stays Pending.
	UpdatePendingScan(ctx context.Context, ID domain.ScanID, updates ScanUpdates) (*domain.Scan, error)
	// DeleteScan performs a soft delete for the given scan ID and returns the
	// deleted scan, or nil if it was not found.
	DeleteScan(ctx context.Context, ID domain.ScanID) (*domain.Scan, error)
	// Scans returns a page of scans created before the optional cursor time,
	// newest first, limited by the given limit. If status is non-empty, results
	// are filtered to records with the given status.
	Scans(ctx context.Context, status domain.ScanStatus, cursor time.Time, limit uint) (ScanPage, error)
	// ScanByID fetches a scan by its ID, excluding soft-deleted records.
	// Returns nil when not found.
	ScanByID(ctx context.Context, ID domain.ScanID) (*domain.Scan, error)
	// PurgeScans permanently removes scans created, or soft-deleted, before
	// the given time and returns the IDs of the removed rows.
	PurgeScans(ctx context.Context, before time.Time) ([]domain.ScanID, error)
}
