package scanner

import (
	"time"

	"github.com/riverqueue/river"
	"github.com/riverqueue/river/rivertype"
)

// CollectJobArgs contains the arguments of the job that runs source
// collection for one scan. The scan ID is the unique key, so a scan is never
// collected by two jobs at once.
type CollectJobArgs struct {
	// ScanID is the textual ID of the scan to collect.
	ScanID string `json:"scan_id" river:"unique"`

	// maxAttempts configures the maximum number of times River should retry the job.
	maxAttempts int
}

// Kind returns the River job kind used to register and dispatch the collect worker.
func (args CollectJobArgs) Kind() string { return "CollectScanJob" }

// InsertOpts returns the River options that control how the job is enqueued:
// the retry budget and a uniqueness constraint on the scan ID across every
// live job state.
func (args CollectJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: args.maxAttempts,
		UniqueOpts: river.UniqueOpts{
			ByArgs: true,
			ByState: []rivertype.JobState{
				rivertype.JobStateAvailable,
				rivertype.JobStateCompleted,
				rivertype.JobStatePending,
				rivertype.JobStateRunning,
				rivertype.JobStateRetryable,
				rivertype.JobStateScheduled,
			},
		},
	}
}

// NewCollectJobArgs builds the job arguments for a scan.
func NewCollectJobArgs(scanID string, maxAttempts int) CollectJobArgs {
	return CollectJobArgs{ScanID: scanID, maxAttempts: maxAttempts}
}

// PurgeJobArgs is the periodic job that removes expired scans.
type PurgeJobArgs struct{}

// Kind returns the River job kind of the purge worker.
func (PurgeJobArgs) Kind() string { return "PurgeScansJob" }

// InsertOpts keeps at most one purge job per interval.
func (PurgeJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		MaxAttempts: 1,
		UniqueOpts:  river.UniqueOpts{ByPeriod: time.Minute},
	}
}
