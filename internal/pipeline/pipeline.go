package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/climate-explorer/internal/domain"
	"github.com/couchcryptid/climate-explorer/internal/observability"
)

// Extractor reads the raw source tables.
type Extractor interface {
	Extract(ctx context.Context) (domain.Sources, error)
}

// Loader publishes the warming delta table to one sink.
type Loader interface {
	Name() string
	LoadDeltas(ctx context.Context, ds *domain.Dataset) error
}

// Backoff bounds for export retries: start at 200ms, double each attempt, cap at 5s.
const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Pipeline builds the dataset once and hands it to the configured loaders.
type Pipeline struct {
	extractor   Extractor
	years       domain.ReferenceYears
	loaders     []Loader
	logger      *slog.Logger
	metrics     *observability.Metrics
	clock       clockwork.Clock
	maxAttempts int

	dataset atomic.Pointer[domain.Dataset]
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock replaces the real clock, letting tests drive retry backoff.
func WithClock(c clockwork.Clock) Option {
	return func(p *Pipeline) { p.clock = c }
}

// New creates a Pipeline. maxAttempts bounds the tries per loader.
func New(e Extractor, years domain.ReferenceYears, loaders []Loader, logger *slog.Logger, metrics *observability.Metrics, maxAttempts int, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor:   e,
		years:       years,
		loaders:     loaders,
		logger:      logger,
		metrics:     metrics,
		clock:       clockwork.NewRealClock(),
		maxAttempts: max(1, maxAttempts),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// CheckReadiness returns nil once the dataset has been built.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if p.dataset.Load() == nil {
		return errors.New("dataset has not been built yet")
	}
	return nil
}

// Dataset returns the built dataset, or nil before Build has succeeded.
func (p *Pipeline) Dataset() *domain.Dataset {
	return p.dataset.Load()
}

// Run builds the dataset and exports it. Build failures are returned; export
// failures are logged and counted but do not fail the run.
func (p *Pipeline) Run(ctx context.Context) (*domain.Dataset, error) {
	ds, err := p.Build(ctx)
	if err != nil {
		return nil, err
	}
	if err := p.Export(ctx, ds); err != nil {
		p.logger.Error("export incomplete", "error", err)
	}
	return ds, nil
}

// Build extracts the sources and derives the dataset, reporting join quality.
func (p *Pipeline) Build(ctx context.Context) (*domain.Dataset, error) {
	start := p.clock.Now()

	src, err := p.extractor.Extract(ctx)
	if err != nil {
		return nil, fmt.Errorf("extract sources: %w", err)
	}
	ds, err := domain.Build(src, p.years)
	if err != nil {
		return nil, err
	}

	ds.Report.Log(p.logger)
	p.record(src, ds)
	p.metrics.BuildDuration.Observe(p.clock.Since(start).Seconds())

	p.dataset.Store(ds)
	p.metrics.DatasetReady.Set(1)
	p.logger.Info("dataset built",
		"enriched_rows", len(ds.Enriched),
		"countries", ds.Countries(),
		"warming_deltas", len(ds.Deltas),
		"min_year", ds.MinYear,
		"max_year", ds.MaxYear,
		"base_year", ds.Years.Base,
		"late_year", ds.Years.Late,
	)
	return ds, nil
}

func (p *Pipeline) record(src domain.Sources, ds *domain.Dataset) {
	p.metrics.RowsLoaded.WithLabelValues("temperatures").Add(float64(len(src.Observations) + src.SkippedReadings))
	p.metrics.RowsLoaded.WithLabelValues("continents").Add(float64(len(src.Continents)))
	p.metrics.RowsLoaded.WithLabelValues("countries").Add(float64(len(src.Countries)))

	r := ds.Report
	p.metrics.RowsDropped.WithLabelValues("blank_reading").Add(float64(r.SkippedReadings))
	p.metrics.RowsDropped.WithLabelValues("no_continent").Add(float64(r.DroppedNoContinent))
	p.metrics.RowsDropped.WithLabelValues("no_metadata").Add(float64(r.DroppedNoMetadata))
	p.metrics.UnmatchedCountries.WithLabelValues("continents").Set(float64(len(r.UnmatchedContinent)))
	p.metrics.UnmatchedCountries.WithLabelValues("countries").Set(float64(len(r.UnmatchedMetadata)))
	p.metrics.DeltaRows.Set(float64(len(ds.Deltas)))
}

// Export runs every loader, retrying each with exponential backoff. It returns
// the joined errors of loaders that never succeeded.
func (p *Pipeline) Export(ctx context.Context, ds *domain.Dataset) error {
	var errs []error
	for _, l := range p.loaders {
		if err := p.exportOne(ctx, l, ds); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", l.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) exportOne(ctx context.Context, l Loader, ds *domain.Dataset) error {
	backoff := initialBackoff
	var err error
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err = l.LoadDeltas(ctx, ds)
		if err == nil {
			p.metrics.ExportedRows.WithLabelValues(l.Name()).Add(float64(len(ds.Deltas)))
			p.logger.Info("warming deltas exported", "sink", l.Name(), "rows", len(ds.Deltas), "attempt", attempt)
			return nil
		}

		p.metrics.ExportErrors.WithLabelValues(l.Name()).Inc()
		p.logger.Warn("export attempt failed", "sink", l.Name(), "attempt", attempt, "error", err)

		if attempt == p.maxAttempts {
			break
		}
		if !p.sleep(ctx, backoff) {
			return ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return err
}

func nextBackoff(current, limit time.Duration) time.Duration {
	next := current * 2
	if next > limit {
		return limit
	}
	return next
}

func (p *Pipeline) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := p.clock.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.Chan():
		return true
	}
}
