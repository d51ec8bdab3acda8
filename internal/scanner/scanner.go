// Package scanner coordinates scans: it stores requested targets, drives
// collection through background jobs and correlates completed results.
package scanner

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"osint/internal/config"
	"osint/internal/correlator"
	"osint/internal/export"
	"osint/pkg/domain"
	"osint/pkg/logger"
	"osint/pkg/serrors"
	"osint/pkg/storage"
)

const (
	// DefaultLimit is the page size used when the caller gives none.
	DefaultLimit = 20
	// MaxLimit caps the page size.
	MaxLimit = 100

	meterName = "osint/internal/scanner"
)

// Collector runs the sources of a target.
type Collector interface {
	Summarize(ctx context.Context, target domain.Target) domain.RunSummary
}

// GraphPusher mirrors correlation graphs into a graph database.
type GraphPusher interface {
	Push(ctx context.Context, scanID string, g *correlator.Graph) error
	Forget(ctx context.Context, scanID string) error
}

// Options configure how scan jobs are enqueued and how results live.
type Options struct {
	// MaxAttempts is the maximum number of attempts the background worker should
	// make when collecting a scan before marking it failed.
	MaxAttempts int
	// ResultTTL is how long scans are kept before Purge removes them. Zero
	// keeps them forever.
	ResultTTL time.Duration
	// Layout configures the visualization layout.
	Layout correlator.LayoutOptions
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxAttempts: cfg.Store.MaxAttempts,
		ResultTTL:   cfg.Store.ResultTTL,
		Layout:      correlator.DefaultLayoutOptions(),
	}
}

// Deps are the collaborators of a scanner. Tabular and GraphStore are
// optional.
type Deps struct {
	Storage    storage.Storage
	Collector  Collector
	Cache      *Cache
	Tabular    *export.Tabular
	GraphStore GraphPusher
}

// scanner is the concrete implementation of the Scanner interface.
type scanner struct {
	options Options
	deps    Deps

	enqueued     metric.Int64Counter
	finished     metric.Int64Counter
	correlations metric.Int64Counter

	inflight singleflight.Group
}

// Enqueue stores a pending scan for the target and a job to collect it in
// the same transaction.
func (s *scanner) Enqueue(ctx context.Context, target domain.Target) (*domain.Scan, error) {
	target = target.Normalize()
	if err := target.Validate(); err != nil {
		return nil, err //nolint: wrapcheck
	}

	var scan *domain.Scan
	if err := s.deps.Storage.WithTx(ctx, func(tx storage.AllStorage) error {
		res, err := tx.StoreScans(ctx, domain.Scan{
			Target: target,
			Status: domain.ScanStatusPending,
		})
		if err != nil {
			return fmt.Errorf("could not store scan: %w", err)
		}
		scan = &res[0]

		added, err := tx.AddJob(ctx, NewCollectJobArgs(scan.ID.String(), s.options.MaxAttempts), nil)
		if err != nil {
			return fmt.Errorf("could not add job: %w", err)
		}
		if !added {
			logger.Warn(ctx, "collect job already queued", zap.String("scanID", scan.ID.String()))
		}

		return nil
	}); err != nil {
		return nil, fmt.Errorf("could not enqueue scan: %w", err)
	}

	s.enqueued.Add(ctx, 1, metric.WithAttributes(attribute.String("target", string(target.Kind))))

	return scan, nil
}

// Collect runs the collector for a pending scan and stores its envelopes. It
// returns a not-found error for unknown scans and a conflict for scans that
// are no longer pending, both of which mean the job has nothing left to do.
func (s *scanner) Collect(ctx context.Context, scanID domain.ScanID) error {
	ctx = logger.WithFields(ctx, zap.String("scanID", scanID.String()))

	scan, err := s.deps.Storage.ScanByID(ctx, scanID)
	if err != nil {
		return fmt.Errorf("could not get scan: %w", err)
	}
	if scan == nil {
		return serrors.With(serrors.ErrNotFound, "scan not found")
	}
	if scan.Status != domain.ScanStatusPending {
		return serrors.With(serrors.ErrConflict, "scan is already %s", scan.Status)
	}

	summary := s.deps.Collector.Summarize(ctx, scan.Target)
	noError := ""
	updated, err := s.deps.Storage.UpdatePendingScan(ctx, scanID, storage.ScanUpdates{
		Status:     domain.ScanStatusCompleted,
		Envelopes:  &summary.Results,
		LastError:  &noError,
		StartedAt:  &summary.Started,
		FinishedAt: &summary.Finished,
	})
	if err != nil {
		return fmt.Errorf("could not complete scan: %w", err)
	}
	if updated == nil {
		return serrors.With(serrors.ErrConflict, "scan is no longer pending")
	}

	failed := 0
	for _, env := range summary.Results {
		if env.Failed() {
			failed++
		}
	}
	s.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(domain.ScanStatusCompleted))))
	logger.Info(ctx, "scan collected",
		zap.Int("envelopes", len(summary.Results)),
		zap.Int("failed", failed),
		zap.Duration("took", summary.Finished.Sub(summary.Started)))

	return nil
}

// Fail records a failed collection attempt.
func (s *scanner) Fail(ctx context.Context, scanID domain.ScanID, cause error) error {
	msg := "unknown error"
	if cause != nil {
		msg = cause.Error()
	}

	updated, err := s.deps.Storage.UpdatePendingScan(ctx, scanID, storage.ScanUpdates{
		Status:      domain.ScanStatusFailed,
		LastError:   &msg,
		MaxAttempts: s.options.MaxAttempts,
	})
	if err != nil {
		return fmt.Errorf("could not record scan failure: %w", err)
	}
	if updated != nil && updated.Status == domain.ScanStatusFailed {
		s.finished.Add(ctx, 1, metric.WithAttributes(attribute.String("status", string(domain.ScanStatusFailed))))
	}

	return nil
}

// Scans returns a page of scans filtered by status. It supports cursor-based
// pagination using an RFC3339 timestamp string and returns the next cursor
// when more results are available.
func (s *scanner) Scans(ctx context.Context,
	status domain.ScanStatus,
	cursor string,
	limit uint) ([]domain.Scan, string, error) {
	var cursorTime time.Time
	if cursor != "" {
		t, err := time.Parse(time.RFC3339Nano, cursor)
		if err != nil {
			return nil, "", serrors.Wrap(serrors.ErrBadRequest, err, "invalid cursor")
		}
		cursorTime = t
	}
	switch status {
	case "", domain.ScanStatusPending, domain.ScanStatusCompleted, domain.ScanStatusFailed:
	default:
		return nil, "", serrors.With(serrors.ErrBadRequest, "unknown status %q", status)
	}
	if limit == 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)

	page, err := s.deps.Storage.Scans(ctx, status, cursorTime, limit)
	if err != nil {
		return nil, "", fmt.Errorf("could not get scans: %w", err)
	}

	var next string
	if page.NextCursor != nil {
		next = page.NextCursor.UTC().Format(time.RFC3339Nano)
	}

	return page.Scans, next, nil
}

// Result fetches a single scan by ID. It returns a not-found error when no
// matching scan exists.
func (s *scanner) Result(ctx context.Context, scanID domain.ScanID) (*domain.Scan, error) {
	res, err := s.deps.Storage.ScanByID(ctx, scanID)
	if err != nil {
		return nil, fmt.Errorf("could not get scan results: %w", err)
	}
	if res == nil {
		return nil, serrors.With(serrors.ErrNotFound, "scan not found")
	}

	return res, nil
}

// Delete soft-deletes a scan and drops its cached correlation and graph.
// A queued collect job finds the scan gone and cancels itself.
func (s *scanner) Delete(ctx context.Context, scanID domain.ScanID) error {
	res, err := s.deps.Storage.DeleteScan(ctx, scanID)
	if err != nil {
		return fmt.Errorf("could not delete scan: %w", err)
	}
	if res == nil {
		return serrors.With(serrors.ErrNotFound, "scan not found")
	}

	s.forget(ctx, scanID)

	return nil
}

// forget drops everything derived from a scan that no longer exists.
func (s *scanner) forget(ctx context.Context, scanID domain.ScanID) {
	s.deps.Cache.Remove(scanID)
	if s.deps.GraphStore != nil {
		if err := s.deps.GraphStore.Forget(ctx, scanID.String()); err != nil {
			logger.Warn(ctx, "could not remove scan graph", zap.String("scanID", scanID.String()), zap.Error(err))
		}
	}
}

// Correlate extracts entities and relationships from a completed scan and
// builds its report, visualization and tabular export. Outcomes are cached.
func (s *scanner) Correlate(ctx context.Context, scanID domain.ScanID) (*Correlation, error) {
	if c, ok := s.deps.Cache.Get(scanID); ok {
		s.correlations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", true)))

		return c, nil
	}

	// concurrent misses for one scan share a single run, so the graph store
	// and the artifact sink see it once
	v, err, _ := s.inflight.Do(scanID.String(), func() (any, error) {
		if c, ok := s.deps.Cache.Get(scanID); ok {
			return c, nil
		}

		return s.correlate(context.WithoutCancel(ctx), scanID)
	})
	if err != nil {
		return nil, err //nolint: wrapcheck
	}

	return v.(*Correlation), nil //nolint: forcetypeassert
}

func (s *scanner) correlate(ctx context.Context, scanID domain.ScanID) (*Correlation, error) {
	scan, err := s.Result(ctx, scanID)
	if err != nil {
		return nil, err
	}
	switch scan.Status {
	case domain.ScanStatusCompleted:
	case domain.ScanStatusFailed:
		return nil, serrors.With(serrors.ErrConflict, "scan failed: %s", scan.LastError)
	default:
		return nil, serrors.With(serrors.ErrConflict, "scan is still collecting")
	}

	res := correlator.Correlate(scan.Envelopes)
	c := &Correlation{
		ScanID: scanID,
		Report: res.Report,
		Graph: GraphSummary{
			Nodes:     res.Graph.NodeCount(),
			Edges:     res.Graph.EdgeCount(),
			Breakdown: res.Graph.Breakdown(),
		},
		CreatedAt:     time.Now().UTC(),
		Visualization: export.Visualize(res.Graph, s.options.Layout),
		Entities:      res.Entities,
		Relationships: res.Relationships,
	}

	if s.deps.Tabular != nil {
		base, err := export.NewBaseName("scan")
		if err != nil {
			return nil, err //nolint: wrapcheck
		}
		c.Export, err = s.deps.Tabular.Export(ctx, base, res.Entities, res.Relationships)
		if err != nil {
			return nil, fmt.Errorf("could not export correlation tables: %w", err)
		}
	}
	if s.deps.GraphStore != nil {
		s.mirror(ctx, scanID, res.Graph)
	}

	s.deps.Cache.Add(scanID, c)
	s.correlations.Add(ctx, 1, metric.WithAttributes(attribute.Bool("cached", false)))

	return c, nil
}

// mirror replaces the scan's edges in the graph store. Failures only cost
// the mirror, so they are logged.
func (s *scanner) mirror(ctx context.Context, scanID domain.ScanID, g *correlator.Graph) {
	ctx = logger.WithFields(ctx, zap.String("scanID", scanID.String()))
	if err := s.deps.GraphStore.Forget(ctx, scanID.String()); err != nil {
		logger.Warn(ctx, "could not clear scan graph", zap.Error(err))

		return
	}
	if err := s.deps.GraphStore.Push(ctx, scanID.String(), g); err != nil {
		logger.Warn(ctx, "could not push scan graph", zap.Error(err))
	}
}

// Purge removes scans older than ResultTTL.
func (s *scanner) Purge(ctx context.Context) (int64, error) {
	if s.options.ResultTTL <= 0 {
		return 0, nil
	}

	ids, err := s.deps.Storage.PurgeScans(ctx, time.Now().Add(-s.options.ResultTTL))
	if err != nil {
		return 0, fmt.Errorf("could not purge scans: %w", err)
	}
	for _, id := range ids {
		s.forget(ctx, id)
	}
	if len(ids) > 0 {
		logger.Info(ctx, "purged expired scans", zap.Int("count", len(ids)))
	}

	return int64(len(ids)), nil
}

// New creates a new Scanner backed by deps. A nil cache is replaced by a
// small private one.
func New(deps Deps, options Options) Scanner {
	if deps.Cache == nil {
		deps.Cache = NewCache(128, time.Hour)
	}

	meter := otel.Meter(meterName)
	// instrument constructors always return a usable instrument
	enqueued, _ := meter.Int64Counter("osint_scans_enqueued", metric.WithDescription("Scans accepted for collection."))
	finished, _ := meter.Int64Counter("osint_scans_finished", metric.WithDescription("Scans that reached a final status."))
	correlations, _ := meter.Int64Counter("osint_correlations", metric.WithDescription("Correlation requests served."))

	return &scanner{
		options:      options,
		deps:         deps,
		enqueued:     enqueued,
		finished:     finished,
		correlations: correlations,
	}
}
