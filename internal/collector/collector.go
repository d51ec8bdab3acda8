// Package collector fans a target out to every source adapter that handles
// its kind and gathers one envelope per adapter.
package collector

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"osint/internal/config"
	"osint/pkg/domain"
	"osint/pkg/logger"
	"osint/pkg/serrors"
	"osint/pkg/source"
)

const (
	// DefaultMaxWorkers bounds concurrent source lookups when no limit is configured.
	DefaultMaxWorkers = 6

	tracerName = "osint/internal/collector"
)

// Plan returns the modules run for a target kind, in envelope order.
func Plan(kind domain.TargetKind) []domain.Module {
	switch kind {
	case domain.TargetDomain:
		return []domain.Module{domain.ModuleWhois, domain.ModuleDNS, domain.ModuleHTTPMeta}
	case domain.TargetUsername:
		return []domain.Module{domain.ModuleUsernameCheck}
	case domain.TargetPhone:
		return []domain.Module{domain.ModulePhoneLookup}
	case domain.TargetIP:
		return []domain.Module{domain.ModuleShodanHost}
	case domain.TargetImages:
		return []domain.Module{domain.ModuleExifMetadata}
	default:
		return nil
	}
}

// Options configure a Collector.
type Options struct {
	// MaxWorkers is the number of sources queried at the same time.
	MaxWorkers int
	// SourceTimeout bounds a single source lookup. Zero means no bound besides
	// the caller's context.
	SourceTimeout time.Duration
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MaxWorkers:    cfg.Collector.MaxWorkers,
		SourceTimeout: cfg.Collector.SourceTimeout,
	}
}

// Collector runs source lookups for targets.
type Collector struct {
	sources map[domain.Module]source.Source
	options Options
	metrics *Metrics
	tracer  trace.Tracer
}

// Run queries every source planned for the target and returns their
// envelopes in plan order. A failing or panicking source becomes an error
// envelope; Run itself never fails and returns once every source finished.
func (c *Collector) Run(ctx context.Context, target domain.Target) []domain.Envelope {
	plan := Plan(target.Kind)
	out := make([]domain.Envelope, len(plan))

	var g errgroup.Group
	g.SetLimit(c.options.MaxWorkers)
	for i, module := range plan {
		g.Go(func() error {
			out[i] = c.lookup(ctx, module, target)

			return nil
		})
	}
	_ = g.Wait()

	return out
}

// Summarize runs the target and wraps the envelopes into a run summary.
func (c *Collector) Summarize(ctx context.Context, target domain.Target) domain.RunSummary {
	started := time.Now().UTC()
	results := c.Run(ctx, target)

	return domain.RunSummary{
		Target:   target.Descriptor(),
		Results:  results,
		Started:  started,
		Finished: time.Now().UTC(),
	}
}

func (c *Collector) lookup(ctx context.Context, module domain.Module, target domain.Target) (env domain.Envelope) {
	ctx = logger.WithFields(ctx, zap.String("module", string(module)))
	ctx, span := c.tracer.Start(ctx, "source."+string(module),
		trace.WithAttributes(
			attribute.String("osint.module", string(module)),
			attribute.String("osint.target.type", string(target.Kind)),
		))
	defer span.End()

	if c.options.SourceTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.options.SourceTimeout)
		defer cancel()
	}

	start := time.Now()
	outcome := outcomeSuccess
	defer func() {
		if p := recover(); p != nil {
			outcome = outcomePanic
			logger.Error(ctx, "source panicked", zap.Any("panic", p), zap.Stack("stack"))
			env = c.envelope(module, target, nil, fmt.Errorf("panic: %v", p)) //nolint: err113
		}
		if env.Failed() {
			span.SetStatus(codes.Error, env.Error)
		}
		c.metrics.observe(string(module), outcome, time.Since(start).Seconds())
	}()

	src, ok := c.sources[module]
	if !ok {
		outcome = outcomeFailure

		return c.envelope(module, target, nil, serrors.With(serrors.ErrUnavailable, "source %s is not configured", module))
	}

	payload, err := src.Lookup(ctx, target)
	if err == nil && payload == nil {
		err = serrors.With(serrors.ErrInternal, "source returned no payload")
	}
	if err != nil {
		outcome = outcomeFailure
		span.RecordError(err)
		logger.Warn(ctx, "source lookup failed", zap.Error(err))

		return c.envelope(module, target, nil, err)
	}
	logger.Debug(ctx, "source lookup finished", zap.Duration("took", time.Since(start)))

	return c.envelope(module, target, payload, nil)
}

func (c *Collector) envelope(module domain.Module, target domain.Target, payload domain.Payload, err error) domain.Envelope {
	var env domain.Envelope
	if err != nil {
		env = domain.FailedEnvelope(module, target.Value, err)
	} else {
		env = domain.NewEnvelope(target.Value, payload)
	}
	if target.Kind == domain.TargetImages {
		env.Input = ""
		env.Inputs = append([]string(nil), target.Values...)
	}

	return env
}

// New builds a Collector over the given sources. A later source replaces an
// earlier one with the same module. Nil metrics are replaced by an
// unregistered set.
func New(sources []source.Source, options Options, m *Metrics) *Collector {
	if options.MaxWorkers <= 0 {
		options.MaxWorkers = DefaultMaxWorkers
	}
	if m == nil {
		m = NewMetrics(nil)
	}

	byModule := make(map[domain.Module]source.Source, len(sources))
	for _, s := range sources {
		byModule[s.Module()] = s
	}

	return &Collector{
		sources: byModule,
		options: options,
		metrics: m,
		tracer:  otel.Tracer(tracerName),
	}
}
